package controllers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"tramite-system/internal/dto"
	"tramite-system/internal/entities"
	"tramite-system/internal/services"
	"tramite-system/pkg/constants"
	apperrors "tramite-system/pkg/errors"
	"tramite-system/pkg/types"
	"tramite-system/pkg/utils"
)

// dailyMetricsRunner - запись дневных метрик с защитой от повторной записи даты.
type dailyMetricsRunner interface {
	RecordMetricsOnce(ctx context.Context, date time.Time) (bool, error)
}

type openTramitesLister interface {
	ListOpen(ctx context.Context) ([]entities.Tramite, error)
}

type AnalyticsController struct {
	analyticsService services.AnalyticsServiceInterface
	priorityService  services.PriorityServiceInterface
	dailyMetrics     dailyMetricsRunner
	tramites         openTramitesLister
	logger           *zap.Logger
	now              func() time.Time
}

func NewAnalyticsController(
	analyticsService services.AnalyticsServiceInterface,
	priorityService services.PriorityServiceInterface,
	dailyMetrics dailyMetricsRunner,
	tramites openTramitesLister,
	logger *zap.Logger,
) *AnalyticsController {
	return &AnalyticsController{
		analyticsService: analyticsService,
		priorityService:  priorityService,
		dailyMetrics:     dailyMetrics,
		tramites:         tramites,
		logger:           logger,
		now:              time.Now,
	}
}

// parseWindow читает ?desde=&hasta= (YYYY-MM-DD). Незаданная граница берётся из окна по умолчанию.
func (c *AnalyticsController) parseWindow(ctx echo.Context) (types.Window, error) {
	w := c.analyticsService.DefaultWindow()
	parse := func(name string, dst *time.Time) error {
		raw := ctx.QueryParam(name)
		if raw == "" {
			return nil
		}
		d, err := time.Parse(constants.DateLayout, raw)
		if err != nil {
			return apperrors.NewInvalidInputError("параметр '%s' должен быть датой в формате YYYY-MM-DD", name)
		}
		*dst = d
		return nil
	}
	if err := parse("desde", &w.Desde); err != nil {
		return w, err
	}
	if err := parse("hasta", &w.Hasta); err != nil {
		return w, err
	}
	if types.DateOnly(w.Desde).After(types.DateOnly(w.Hasta)) {
		return w, apperrors.NewInvalidInputError("начало окна позже конца")
	}
	return w, nil
}

// GetReport - отчёт о работе за окно. ?format=xlsx отдаёт файл.
func (c *AnalyticsController) GetReport(ctx echo.Context) error {
	w, err := c.parseWindow(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	report, err := c.analyticsService.GeneratePerformanceReport(ctx.Request().Context(), w)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	if strings.ToLower(ctx.QueryParam("format")) == "xlsx" {
		return c.respondWithXLSX(ctx, report)
	}
	return utils.SuccessResponse(ctx, report, "Отчет успешно сформирован", http.StatusOK)
}

func (c *AnalyticsController) respondWithXLSX(ctx echo.Context, report *dto.PerformanceReportDTO) error {
	var buf bytes.Buffer
	if err := services.ExportReportXLSX(&buf, report); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	fileName := fmt.Sprintf("reporte_%s_%s.xlsx", report.Periodo.Inicio, report.Periodo.Fin)
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, fileName))
	return ctx.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (c *AnalyticsController) GetBottlenecks(ctx echo.Context) error {
	w, err := c.parseWindow(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	stats, err := c.analyticsService.DetectBottlenecksInWindow(ctx.Request().Context(), w)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, stats, "Узкие места рассчитаны", http.StatusOK)
}

func (c *AnalyticsController) GetStatistics(ctx echo.Context) error {
	w, err := c.parseWindow(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	stats, err := c.analyticsService.AggregateStatistics(ctx.Request().Context(), w)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, stats, "Статистика получена", http.StatusOK)
}

func (c *AnalyticsController) GetTrends(ctx echo.Context) error {
	w, err := c.parseWindow(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	trends, err := c.analyticsService.AnalyzeTrends(ctx.Request().Context(), w)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, trends, "Тренды получены", http.StatusOK)
}

func (c *AnalyticsController) RegisterMetric(ctx echo.Context) error {
	var in dto.RegisterMetricDTO
	if err := ctx.Bind(&in); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "некорректное тело запроса", err, nil), c.logger)
	}
	if err := ctx.Validate(&in); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	m, err := c.analyticsService.RegisterMetric(ctx.Request().Context(), in)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, m, "Метрика записана", http.StatusCreated)
}

// GetMetrics - фильтры ?tipo=&categoria=&desde=&hasta=, все необязательные.
func (c *AnalyticsController) GetMetrics(ctx echo.Context) error {
	filter := entities.MetricFilter{
		TipoMetrica: ctx.QueryParam("tipo"),
		Categoria:   ctx.QueryParam("categoria"),
	}
	for name, dst := range map[string]**time.Time{"desde": &filter.Desde, "hasta": &filter.Hasta} {
		raw := ctx.QueryParam(name)
		if raw == "" {
			continue
		}
		d, err := time.Parse(constants.DateLayout, raw)
		if err != nil {
			return utils.ErrorResponse(ctx, apperrors.NewInvalidInputError("параметр '%s' должен быть датой в формате YYYY-MM-DD", name), c.logger)
		}
		*dst = &d
	}

	list, err := c.analyticsService.GetMetrics(ctx.Request().Context(), filter)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, list, "Метрики получены", http.StatusOK)
}

// RecordDailyMetrics - ручной запуск записи за ?fecha= (по умолчанию вчера).
// Дата, уже записанная планировщиком или предыдущим вызовом, повторно не пишется.
func (c *AnalyticsController) RecordDailyMetrics(ctx echo.Context) error {
	date := types.DateOnly(c.now()).AddDate(0, 0, -1)
	if raw := ctx.QueryParam("fecha"); raw != "" {
		d, err := time.Parse(constants.DateLayout, raw)
		if err != nil {
			return utils.ErrorResponse(ctx, apperrors.NewInvalidInputError("параметр 'fecha' должен быть датой в формате YYYY-MM-DD"), c.logger)
		}
		date = d
	}

	recorded, err := c.dailyMetrics.RecordMetricsOnce(ctx.Request().Context(), date)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	result := dto.DailyMetricsResultDTO{Fecha: date.Format(constants.DateLayout), Registrado: recorded}
	if !recorded {
		return utils.SuccessResponse(ctx, result, "Метрики за эту дату уже записаны", http.StatusOK)
	}
	return utils.SuccessResponse(ctx, result, "Дневные метрики записаны", http.StatusCreated)
}

func (c *AnalyticsController) RecomputePriorities(ctx echo.Context) error {
	summary, err := c.priorityService.RecomputeAll(ctx.Request().Context())
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, summary, "Приоритеты пересчитаны", http.StatusOK)
}

// SuggestAssignments распределяет открытые трамиты по переданному составу персонала.
// Ничего не записывает.
func (c *AnalyticsController) SuggestAssignments(ctx echo.Context) error {
	var in dto.AssignmentRequestDTO
	if err := ctx.Bind(&in); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "некорректное тело запроса", err, nil), c.logger)
	}
	if err := ctx.Validate(&in); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	staff := make([]services.StaffMember, 0, len(in.Personal))
	for _, p := range in.Personal {
		staff = append(staff, services.StaffMember{
			ID:              uuid.MustParse(p.ID),
			Especialidades:  p.Especialidades,
			CargaActual:     p.CargaActual,
			CapacidadMaxima: p.CapacidadMaxima,
		})
	}

	open, err := c.tramites.ListOpen(ctx.Request().Context())
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, services.OptimizeAssignment(open, staff), "Распределение рассчитано", http.StatusOK)
}
