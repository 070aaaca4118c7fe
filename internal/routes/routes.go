package routes

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"tramite-system/internal/authz"
	"tramite-system/internal/controllers"
	"tramite-system/internal/services"
	"tramite-system/pkg/filestorage"
	"tramite-system/pkg/middleware"
	"tramite-system/pkg/service"
	appwebsocket "tramite-system/pkg/websocket"
)

type dailyMetricsRunner interface {
	RecordMetricsOnce(ctx context.Context, date time.Time) (bool, error)
}

// Dependencies - собранные в main сервисы, которые нужны HTTP-слою.
type Dependencies struct {
	TramiteService      services.TramiteServiceInterface
	AnalyticsService    services.AnalyticsServiceInterface
	PriorityService     services.PriorityServiceInterface
	NotificationService services.NotificationServiceInterface
	DailyMetrics        dailyMetricsRunner
	JWTService          service.JWTService
	Gatekeeper          *authz.Gatekeeper
	FileStorage         filestorage.FileStorageInterface
	Hub                 *appwebsocket.Hub
	AllowedOrigins      []string
	Logger              *zap.Logger
}

func InitRouter(e *echo.Echo, deps Dependencies) {
	deps.Logger.Info("InitRouter: Начало создания маршрутов")

	if deps.Gatekeeper == nil {
		deps.Gatekeeper = authz.NewGatekeeper()
	}
	authMW := middleware.NewAuthMiddleware(deps.JWTService, deps.Gatekeeper, deps.Logger)
	api := e.Group("/api")
	secureGroup := api.Group("", authMW.Auth)

	runTramiteRouter(secureGroup, deps, authMW)
	runAnalyticsRouter(secureGroup, deps, authMW)
	runNotificationRouter(secureGroup, deps)

	wsController := controllers.NewWebSocketController(deps.Hub, deps.JWTService, deps.AllowedOrigins, deps.Logger)
	e.GET("/ws", wsController.ServeWs)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	deps.Logger.Info("InitRouter: Создание маршрутов завершено")
}
