package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"tramite-system/internal/authz"
	"tramite-system/internal/entities"
	apperrors "tramite-system/pkg/errors"
	"tramite-system/pkg/service"
	"tramite-system/pkg/utils"
)

type AuthMiddleware struct {
	jwtService service.JWTService
	gatekeeper *authz.Gatekeeper
	logger     *zap.Logger
}

func NewAuthMiddleware(jwtSvc service.JWTService, gatekeeper *authz.Gatekeeper, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtSvc,
		gatekeeper: gatekeeper,
		logger:     logger,
	}
}

// Auth проверяет Bearer-токен и кладёт entities.Actor в контекст запроса.
func (m *AuthMiddleware) Auth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		if authHeader == "" {
			return utils.ErrorResponse(c, apperrors.ErrEmptyAuthHeader, m.logger)
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return utils.ErrorResponse(c, apperrors.ErrInvalidAuthHeader, m.logger)
		}

		claims, err := m.jwtService.ValidateToken(parts[1])
		if err != nil {
			m.logger.Warn("AuthMiddleware: токен отклонён", zap.Error(err))
			return utils.ErrorResponse(c, err, m.logger)
		}
		if claims.IsRefreshToken {
			return utils.ErrorResponse(c, apperrors.ErrInvalidToken, m.logger)
		}
		actorID, err := claims.ActorID()
		if err != nil {
			return utils.ErrorResponse(c, err, m.logger)
		}

		actor := entities.Actor{ID: actorID, Role: claims.Role}
		c.SetRequest(c.Request().WithContext(utils.WithActor(c.Request().Context(), actor)))
		return next(c)
	}
}

// RequirePermission пропускает запрос, только если у роли actor есть право. Ставится после Auth.
func (m *AuthMiddleware) RequirePermission(permission string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, err := utils.GetActorFromCtx(c.Request().Context())
			if err != nil {
				return utils.ErrorResponse(c, err, m.logger)
			}
			if !m.gatekeeper.Can(actor, permission, nil) {
				m.logger.Debug("AuthMiddleware: нет права",
					zap.String("permission", permission),
					zap.String("role", actor.Role))
				return utils.ErrorResponse(c, apperrors.ErrForbidden, m.logger)
			}
			return next(c)
		}
	}
}
