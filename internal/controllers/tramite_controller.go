package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"tramite-system/internal/authz"
	"tramite-system/internal/dto"
	"tramite-system/internal/entities"
	"tramite-system/internal/services"
	"tramite-system/pkg/constants"
	apperrors "tramite-system/pkg/errors"
	"tramite-system/pkg/filestorage"
	"tramite-system/pkg/utils"
)

type TramiteController struct {
	tramiteService services.TramiteServiceInterface
	uploader       *documentUploader
	gatekeeper     *authz.Gatekeeper
	logger         *zap.Logger
}

func NewTramiteController(
	tramiteService services.TramiteServiceInterface,
	fileStorage filestorage.FileStorageInterface,
	gatekeeper *authz.Gatekeeper,
	logger *zap.Logger,
) *TramiteController {
	return &TramiteController{
		tramiteService: tramiteService,
		uploader:       newDocumentUploader(fileStorage, logger),
		gatekeeper:     gatekeeper,
		logger:         logger,
	}
}

func parseUUIDParam(ctx echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Param(name))
	if err != nil {
		return uuid.Nil, apperrors.NewHttpError(http.StatusBadRequest, "Некорректный идентификатор", nil, map[string]string{name: ctx.Param(name)})
	}
	return id, nil
}

// loadVisible - трамит, который actor вправе видеть, иначе ErrForbidden.
func (c *TramiteController) loadVisible(ctx context.Context, id uuid.UUID, actor entities.Actor) (*entities.Tramite, error) {
	t, err := c.tramiteService.GetTramite(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.gatekeeper.Can(actor, authz.TramitesView, t) {
		return nil, apperrors.ErrForbidden
	}
	return t, nil
}

// publicCommentsOnly - без права на внутренние комментарии видны только публичные.
func (c *TramiteController) publicCommentsOnly(actor entities.Actor) bool {
	return !c.gatekeeper.Can(actor, authz.TramitesCommentsPrivate, nil)
}

func (c *TramiteController) CreateTramite(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	actor, err := utils.GetActorFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	dataString := ctx.FormValue("data")
	if dataString == "" {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "поле 'data' с JSON данными не найдено", nil, nil), c.logger)
	}
	var in dto.CreateTramiteDTO
	if err := json.Unmarshal([]byte(dataString), &in); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "некорректный JSON в поле 'data'", nil, nil), c.logger)
	}
	if err := ctx.Validate(&in); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var files map[string]entities.FileRef
	form, err := ctx.MultipartForm()
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "некорректная multipart-форма", err, nil), c.logger)
	}
	if form != nil {
		files, err = c.uploader.storeAll(form.File)
		if err != nil {
			return utils.ErrorResponse(ctx, err, c.logger)
		}
	}

	numero, err := c.tramiteService.CreateTramite(reqCtx, actor, in, files)
	if err != nil {
		c.uploader.discard(files)
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	return utils.SuccessResponse(ctx, dto.CreateTramiteResponseDTO{NumeroTramite: numero}, "Трамит успешно создан", http.StatusCreated)
}

func (c *TramiteController) SearchTramites(ctx echo.Context) error {
	var q dto.TramiteSearchDTO
	if err := ctx.Bind(&q); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "некорректные параметры поиска", err, nil), c.logger)
	}
	if err := ctx.Validate(&q); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	filter := entities.TramiteFilter{Termino: q.Termino}
	filter.Limit, filter.Offset = utils.ParseLimitOffset(ctx.QueryParams())
	if q.Estado != "" {
		filter.Estado = utils.ToPtr(entities.Estado(q.Estado))
	}
	if q.Prioridad != "" {
		filter.Prioridad = utils.ToPtr(entities.Prioridad(q.Prioridad))
	}
	if q.TipoTramiteID != "" {
		filter.TipoTramiteID = utils.ToPtr(uuid.MustParse(q.TipoTramiteID))
	}
	if q.FechaDesde != "" {
		d, _ := time.Parse(constants.DateLayout, q.FechaDesde)
		filter.FechaDesde = &d
	}
	if q.FechaHasta != "" {
		d, _ := time.Parse(constants.DateLayout, q.FechaHasta)
		d = d.AddDate(0, 0, 1)
		filter.FechaHasta = &d
	}

	list, total, err := c.tramiteService.Search(ctx.Request().Context(), filter)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, list, "Трамиты успешно получены", http.StatusOK, total)
}

func (c *TramiteController) GetMyTramites(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	actor, err := utils.GetActorFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	list, err := c.tramiteService.ListByUser(reqCtx, actor.ID)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, list, "Трамиты успешно получены", http.StatusOK)
}

// GetTramite отдаёт карточку: трамит, история, комментарии (гражданину - только публичные), документы.
func (c *TramiteController) GetTramite(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	actor, err := utils.GetActorFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	id, err := parseUUIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	t, err := c.loadVisible(reqCtx, id, actor)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	detail := dto.TramiteDetailDTO{Tramite: *t}
	if detail.Historial, err = c.tramiteService.GetHistory(reqCtx, id); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	if detail.Comentarios, err = c.tramiteService.GetComments(reqCtx, id, c.publicCommentsOnly(actor)); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	if detail.Documentos, err = c.tramiteService.GetDocuments(reqCtx, id); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, detail, "Трамит успешно получен", http.StatusOK)
}

func (c *TramiteController) GetByNumero(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	actor, err := utils.GetActorFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	t, err := c.tramiteService.GetByNumero(reqCtx, ctx.Param("numero"))
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	if !c.gatekeeper.Can(actor, authz.TramitesView, t) {
		return utils.ErrorResponse(ctx, apperrors.ErrForbidden, c.logger)
	}
	return utils.SuccessResponse(ctx, t, "Трамит успешно получен", http.StatusOK)
}

func (c *TramiteController) TransitionState(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	actor, err := utils.GetActorFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	id, err := parseUUIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var in dto.TransitionDTO
	if err := ctx.Bind(&in); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "некорректное тело запроса", err, nil), c.logger)
	}
	if err := ctx.Validate(&in); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	actorID := uuid.NullUUID{UUID: actor.ID, Valid: true}
	t, err := c.tramiteService.TransitionStateAt(reqCtx, id, entities.Estado(in.Estado), in.Comentario, actorID, in.UpdatedAt)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, t, "Состояние трамита изменено", http.StatusOK)
}

func (c *TramiteController) GetHistory(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	actor, err := utils.GetActorFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	id, err := parseUUIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	if _, err := c.loadVisible(reqCtx, id, actor); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	history, err := c.tramiteService.GetHistory(reqCtx, id)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, history, "История трамита получена", http.StatusOK)
}

// AddComment. Комментарий гражданина всегда публичный; тип по умолчанию - consulta для
// гражданина и comentario для персонала.
func (c *TramiteController) AddComment(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	actor, err := utils.GetActorFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	id, err := parseUUIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var in dto.CreateCommentDTO
	if err := ctx.Bind(&in); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "некорректное тело запроса", err, nil), c.logger)
	}
	if err := ctx.Validate(&in); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	if _, err := c.loadVisible(reqCtx, id, actor); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	tipo := entities.ComentarioTipo(in.Tipo)
	publico := true
	if !c.publicCommentsOnly(actor) {
		if tipo == "" {
			tipo = entities.ComentarioTipoComentario
		}
		if in.Publico.Valid {
			publico = in.Publico.Bool
		}
	} else if tipo == "" {
		tipo = entities.ComentarioTipoConsulta
	}

	comment, err := c.tramiteService.AddComment(reqCtx, id, actor, in.Contenido, tipo, publico)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, comment, "Комментарий добавлен", http.StatusCreated)
}

func (c *TramiteController) GetComments(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	actor, err := utils.GetActorFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	id, err := parseUUIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	if _, err := c.loadVisible(reqCtx, id, actor); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	comments, err := c.tramiteService.GetComments(reqCtx, id, c.publicCommentsOnly(actor))
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, comments, "Комментарии получены", http.StatusOK)
}

// AddDocument - multipart: поле nombre_documento и файл в поле file.
func (c *TramiteController) AddDocument(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	actor, err := utils.GetActorFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	id, err := parseUUIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	nombre := ctx.FormValue("nombre_documento")
	if nombre == "" {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "поле 'nombre_documento' обязательно", nil, nil), c.logger)
	}
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Файл не был передан", nil, nil), c.logger)
	}

	t, err := c.loadVisible(reqCtx, id, actor)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	ref, err := c.uploader.store(fileHeader)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	requerido := t.TipoTramite != nil && t.TipoTramite.RequiresDocument(nombre)
	doc, err := c.tramiteService.AddDocument(reqCtx, id, nombre, ref, actor.ID, requerido)
	if err != nil {
		c.uploader.discard(map[string]entities.FileRef{nombre: ref})
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, doc, "Документ добавлен", http.StatusCreated)
}

func (c *TramiteController) GetDocuments(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	actor, err := utils.GetActorFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	id, err := parseUUIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	if _, err := c.loadVisible(reqCtx, id, actor); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	docs, err := c.tramiteService.GetDocuments(reqCtx, id)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, docs, "Документы получены", http.StatusOK)
}

func (c *TramiteController) RequestDocument(ctx echo.Context) error {
	id, err := parseUUIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var in dto.RequestDocumentDTO
	if err := ctx.Bind(&in); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "некорректное тело запроса", err, nil), c.logger)
	}
	if err := ctx.Validate(&in); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	if err := c.tramiteService.RequestDocument(ctx.Request().Context(), id, in.NombreDocumento); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, nil, "Запрос документа отправлен заявителю", http.StatusAccepted)
}

// GetPrediction - ошибки для оценки берутся из недостающих обязательных документов.
func (c *TramiteController) GetPrediction(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	actor, err := utils.GetActorFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	id, err := parseUUIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	t, err := c.loadVisible(reqCtx, id, actor)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	docs, err := c.tramiteService.GetDocuments(reqCtx, id)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	errores := services.MissingRequiredDocuments(t.TipoTramite, docs)
	return utils.SuccessResponse(ctx, services.PredictTramite(*t, errores), "Прогноз рассчитан", http.StatusOK)
}
