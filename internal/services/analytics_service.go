package services

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tramite-system/internal/dto"
	"tramite-system/internal/entities"
	"tramite-system/internal/repositories"
	"tramite-system/pkg/config"
	"tramite-system/pkg/constants"
	apperrors "tramite-system/pkg/errors"
	"tramite-system/pkg/types"
	"tramite-system/pkg/utils"
)

type AnalyticsServiceInterface interface {
	DefaultWindow() types.Window
	DetectBottlenecksInWindow(ctx context.Context, w types.Window) ([]types.BottleneckStat, error)
	AggregateStatistics(ctx context.Context, w types.Window) (*dto.AggregateStatisticsDTO, error)
	GeneratePerformanceReport(ctx context.Context, w types.Window) (*dto.PerformanceReportDTO, error)
	RecordDailyMetrics(ctx context.Context, targetDate time.Time) (types.BatchSummary, error)
	RegisterMetric(ctx context.Context, in dto.RegisterMetricDTO) (*entities.Metrica, error)
	GetMetrics(ctx context.Context, filter entities.MetricFilter) ([]entities.Metrica, error)
	AnalyzeTrends(ctx context.Context, w types.Window) (*dto.TrendsDTO, error)
}

type AnalyticsService struct {
	tramiteRepo repositories.TramiteRepositoryInterface
	metricRepo  repositories.MetricRepositoryInterface
	thresholds  types.BottleneckThresholds
	windowDays  int
	logger      *zap.Logger
	now         func() time.Time
}

func NewAnalyticsService(
	tramiteRepo repositories.TramiteRepositoryInterface,
	metricRepo repositories.MetricRepositoryInterface,
	cfg config.AnalyticsConfig,
	logger *zap.Logger,
) *AnalyticsService {
	th := types.DefaultThresholds()
	if cfg.BottleneckMeanDays > 0 {
		th.MeanDays = cfg.BottleneckMeanDays
	}
	if cfg.BottleneckMaxDays > 0 {
		th.MaxDays = cfg.BottleneckMaxDays
	}
	if cfg.HighVolumeThreshold > 0 {
		th.HighVolume = cfg.HighVolumeThreshold
	}
	windowDays := cfg.DefaultWindowDays
	if windowDays <= 0 {
		windowDays = 30
	}
	return &AnalyticsService{
		tramiteRepo: tramiteRepo,
		metricRepo:  metricRepo,
		thresholds:  th,
		windowDays:  windowDays,
		logger:      logger,
		now:         time.Now,
	}
}

// DefaultWindow - последние windowDays дней, включая сегодняшний.
func (s *AnalyticsService) DefaultWindow() types.Window {
	now := s.now()
	return types.Window{Desde: now.AddDate(0, 0, -s.windowDays), Hasta: now}
}

// DetectBottlenecks группирует трамиты по текущему состоянию и считает среднее и максимум
// суток с начала трамита (не время в текущем состоянии). Худшая группа первой.
func DetectBottlenecks(tramites []entities.Tramite, now time.Time, th types.BottleneckThresholds) []types.BottleneckStat {
	type acc struct {
		count int
		sum   int
		max   int
	}
	groups := make(map[entities.Estado]*acc)
	for _, t := range tramites {
		dias := utils.WholeDays(t.FechaInicio, now)
		g, ok := groups[t.Estado]
		if !ok {
			g = &acc{max: dias}
			groups[t.Estado] = g
		}
		g.count++
		g.sum += dias
		if dias > g.max {
			g.max = dias
		}
	}

	stats := make([]types.BottleneckStat, 0, len(groups))
	for estado, g := range groups {
		// Порог сравнивается с точным средним, округляется только отображаемое значение.
		mean := float64(g.sum) / float64(g.count)
		stats = append(stats, types.BottleneckStat{
			Estado:             estado.String(),
			Cantidad:           g.count,
			TiempoPromedio:     math.Round(mean*100) / 100,
			TiempoMaximo:       g.max,
			EsCuelloDeBottella: mean > th.MeanDays || g.max > th.MaxDays,
		})
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].TiempoPromedio != stats[j].TiempoPromedio {
			return stats[i].TiempoPromedio > stats[j].TiempoPromedio
		}
		return stats[i].Estado < stats[j].Estado
	})
	return stats
}

// GenerateRecommendations применяет независимые правила в порядке объявления.
func GenerateRecommendations(stats []types.BottleneckStat, totalTramites int, th types.BottleneckThresholds) []types.Recommendation {
	recs := make([]types.Recommendation, 0, 2)

	flagged := 0
	for _, st := range stats {
		if st.EsCuelloDeBottella {
			flagged++
		}
	}
	if flagged > 0 {
		recs = append(recs, types.Recommendation{
			Tipo:        "cuello_botella",
			Prioridad:   "alta",
			Titulo:      "Optimizar estados con mayor demora",
			Descripcion: fmt.Sprintf("Se detectaron %d estados con tiempos excesivos de procesamiento.", flagged),
			Acciones: []string{
				"Revisar procesos en estados con mayor demora",
				"Redistribuir carga de trabajo",
				"Automatizar validaciones donde sea posible",
			},
		})
	}

	if totalTramites > th.HighVolume {
		recs = append(recs, types.Recommendation{
			Tipo:        "volumen",
			Prioridad:   "media",
			Titulo:      "Alto volumen de trámites",
			Descripcion: "El volumen de trámites está por encima del promedio.",
			Acciones: []string{
				"Considerar aumentar personal en períodos pico",
				"Implementar más automatizaciones",
				"Mejorar formularios para reducir errores",
			},
		})
	}
	return recs
}

func (s *AnalyticsService) DetectBottlenecksInWindow(ctx context.Context, w types.Window) ([]types.BottleneckStat, error) {
	from, to := w.Bounds()
	tramites, err := s.tramiteRepo.ListByFechaInicio(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return DetectBottlenecks(tramites, s.now(), s.thresholds), nil
}

// AggregateStatistics - агрегаты трамитов считает хранилище, метрики окна группируются по категории.
func (s *AnalyticsService) AggregateStatistics(ctx context.Context, w types.Window) (*dto.AggregateStatisticsDTO, error) {
	from, to := w.Bounds()
	desde, hasta := types.DateOnly(w.Desde), types.DateOnly(w.Hasta)

	var (
		agg      *entities.TramiteAggregate
		metricas []entities.Metrica
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		agg, err = s.tramiteRepo.GetAggregate(gctx, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		metricas, err = s.metricRepo.Query(gctx, entities.MetricFilter{Desde: &desde, Hasta: &hasta})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &dto.AggregateStatisticsDTO{
		Tramites: *agg,
		Metricas: groupByCategoria(metricas),
		Periodo:  w.Periodo(),
	}, nil
}

func groupByCategoria(metricas []entities.Metrica) map[string][]entities.Metrica {
	out := make(map[string][]entities.Metrica)
	for _, m := range metricas {
		cat := constants.MetricCategoryGeneral
		if m.Categoria.Valid && m.Categoria.String != "" {
			cat = m.Categoria.String
		}
		out[cat] = append(out[cat], m)
	}
	return out
}

func (s *AnalyticsService) GeneratePerformanceReport(ctx context.Context, w types.Window) (*dto.PerformanceReportDTO, error) {
	var (
		stats       *dto.AggregateStatisticsDTO
		bottlenecks []types.BottleneckStat
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats, err = s.AggregateStatistics(gctx, w)
		return err
	})
	g.Go(func() error {
		var err error
		bottlenecks, err = s.DetectBottlenecksInWindow(gctx, w)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("Не удалось собрать отчёт", zap.Error(err))
		return nil, err
	}

	return &dto.PerformanceReportDTO{
		AggregateStatisticsDTO: *stats,
		CuellosDeBottella:      bottlenecks,
		Recomendaciones:        GenerateRecommendations(bottlenecks, stats.Tramites.TotalTramites, s.thresholds),
	}, nil
}

// RecordDailyMetrics пишет дневные метрики за targetDate. Запись без upsert: повторный вызов
// за ту же дату добавит дубликаты, защита от повтора на стороне планировщика.
func (s *AnalyticsService) RecordDailyMetrics(ctx context.Context, targetDate time.Time) (types.BatchSummary, error) {
	var summary types.BatchSummary
	fecha := types.DateOnly(targetDate)
	from, to := fecha, fecha.AddDate(0, 0, 1)

	record := func(tipo string, valor float64, unidad, categoria string) {
		summary.Procesados++
		m := &entities.Metrica{
			Fecha:       fecha,
			TipoMetrica: tipo,
			Valor:       valor,
			Unidad:      null.StringFrom(unidad),
			Categoria:   null.StringFrom(categoria),
		}
		if err := s.metricRepo.Insert(ctx, m); err != nil {
			summary.Fail(tipo, err)
			return
		}
		summary.Actualizados++
	}

	iniciados, err := s.tramiteRepo.CountByFechaInicio(ctx, from, to)
	if err != nil {
		summary.Procesados++
		summary.Fail(constants.MetricTramitesIniciados, err)
	} else {
		record(constants.MetricTramitesIniciados, float64(iniciados), constants.MetricUnitCantidad, constants.MetricCategoryTramites)
	}

	completados, err := s.tramiteRepo.ListCompletedBetween(ctx, from, to)
	if err != nil {
		summary.Procesados++
		summary.Fail(constants.MetricTramitesCompletados, err)
	} else {
		record(constants.MetricTramitesCompletados, float64(len(completados)), constants.MetricUnitCantidad, constants.MetricCategoryTramites)

		if avg, ok := meanResolution(completados); ok {
			record(constants.MetricTiempoPromedioResolucion, avg, constants.MetricUnitDias, constants.MetricCategoryRendimiento)
		}
	}

	s.logger.Info("Дневные метрики записаны",
		zap.String("fecha", fecha.Format(constants.DateLayout)),
		zap.Int("escritas", summary.Actualizados),
		zap.Int("fallidas", summary.Fallidos))
	return summary, nil
}

// meanResolution - среднее tiempo_resolucion_dias. ok=false, если усреднять нечего.
func meanResolution(tramites []entities.Tramite) (float64, bool) {
	sum, n := 0, 0
	for _, t := range tramites {
		if t.TiempoResolucionDias.Valid {
			sum += t.TiempoResolucionDias.Int
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return float64(sum) / float64(n), true
}

// RegisterMetric - ручная запись метрики. Без даты метрика относится к сегодняшнему дню.
func (s *AnalyticsService) RegisterMetric(ctx context.Context, in dto.RegisterMetricDTO) (*entities.Metrica, error) {
	tipo := strings.TrimSpace(in.TipoMetrica)
	if tipo == "" || in.Valor == nil {
		return nil, apperrors.NewInvalidInputError("метрика должна иметь тип и значение")
	}

	fecha := types.DateOnly(s.now())
	if in.Fecha != "" {
		parsed, err := time.Parse(constants.DateLayout, in.Fecha)
		if err != nil {
			return nil, apperrors.NewInvalidInputError("некорректная дата метрики: %s", in.Fecha)
		}
		fecha = parsed
	}

	m := &entities.Metrica{
		Fecha:       fecha,
		TipoMetrica: tipo,
		Valor:       *in.Valor,
	}
	if in.Unidad != "" {
		m.Unidad = null.StringFrom(in.Unidad)
	}
	if in.Categoria != "" {
		m.Categoria = null.StringFrom(in.Categoria)
	}
	if err := s.metricRepo.Insert(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *AnalyticsService) GetMetrics(ctx context.Context, filter entities.MetricFilter) ([]entities.Metrica, error) {
	return s.metricRepo.Query(ctx, filter)
}

// AnalyzeTrends - помесячный объём, времена решения по типам и зависшие без документов по типам.
func (s *AnalyticsService) AnalyzeTrends(ctx context.Context, w types.Window) (*dto.TrendsDTO, error) {
	from, to := w.Bounds()
	tramites, err := s.tramiteRepo.ListByFechaInicio(ctx, from, to)
	if err != nil {
		return nil, err
	}

	trends := &dto.TrendsDTO{
		TramitesPorMes:                 make(map[string]int),
		TiemposPorTipo:                 make(map[string][]int),
		DocumentacionIncompletaPorTipo: make(map[string]int),
	}
	for _, t := range tramites {
		trends.TramitesPorMes[t.FechaInicio.UTC().Format("2006-01")]++

		tipo := t.TipoCodigo()
		if t.TiempoResolucionDias.Valid {
			trends.TiemposPorTipo[tipo] = append(trends.TiemposPorTipo[tipo], t.TiempoResolucionDias.Int)
		}
		if t.Estado == entities.EstadoDocumentacionIncompleta {
			trends.DocumentacionIncompletaPorTipo[tipo]++
		}
	}
	return trends, nil
}

//============== ЭКСПОРТ ==============

var (
	bottleneckHeaders     = []interface{}{"Estado", "Cantidad", "Tiempo promedio (días)", "Tiempo máximo (días)", "Cuello de botella"}
	recommendationHeaders = []interface{}{"Tipo", "Prioridad", "Título", "Descripción", "Acciones"}
)

// ExportReportXLSX пишет отчёт в xlsx: сводка, узкие места и рекомендации на отдельных листах.
func ExportReportXLSX(w io.Writer, report *dto.PerformanceReportDTO) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("ошибка создания стиля: %w", err)
	}

	summary := "Resumen"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return fmt.Errorf("ошибка переименования листа: %w", err)
	}
	summaryRows := [][]interface{}{
		{"Periodo", report.Periodo.Inicio + " - " + report.Periodo.Fin},
		{"Total trámites", report.Tramites.TotalTramites},
		{"Tasa de aprobación (%)", report.Tramites.TasaAprobacion},
	}
	for _, estado := range entities.AllEstados {
		summaryRows = append(summaryRows, []interface{}{estado.String(), report.Tramites.PorEstado[estado]})
	}
	if err := writeRows(f, summary, 1, summaryRows); err != nil {
		return err
	}
	if err := f.SetCellStyle(summary, "A1", fmt.Sprintf("A%d", len(summaryRows)), bold); err != nil {
		return fmt.Errorf("лист %s: %w", summary, err)
	}
	if err := setWidths(f, summary, map[string]float64{"A": 28, "B": 26}); err != nil {
		return err
	}

	bottleneckRows := make([][]interface{}, 0, len(report.CuellosDeBottella))
	for _, st := range report.CuellosDeBottella {
		flag := "No"
		if st.EsCuelloDeBottella {
			flag = "Sí"
		}
		bottleneckRows = append(bottleneckRows, []interface{}{st.Estado, st.Cantidad, st.TiempoPromedio, st.TiempoMaximo, flag})
	}
	if err := writeTable(f, "Cuellos de botella", bottleneckHeaders, bottleneckRows, bold, map[string]float64{"A": 24, "B": 24, "C": 24, "D": 24, "E": 24}); err != nil {
		return err
	}

	recRows := make([][]interface{}, 0, len(report.Recomendaciones))
	for _, rec := range report.Recomendaciones {
		recRows = append(recRows, []interface{}{rec.Tipo, rec.Prioridad, rec.Titulo, rec.Descripcion, strings.Join(rec.Acciones, "; ")})
	}
	if err := writeTable(f, "Recomendaciones", recommendationHeaders, recRows, bold, map[string]float64{"C": 45, "D": 45, "E": 45}); err != nil {
		return err
	}

	return f.Write(w)
}

// writeTable создаёт лист с жирной строкой заголовков и строками данных под ней.
func writeTable(f *excelize.File, sheet string, headers []interface{}, rows [][]interface{}, headerStyle int, widths map[string]float64) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("ошибка создания листа %s: %w", sheet, err)
	}
	if err := writeRows(f, sheet, 1, append([][]interface{}{headers}, rows...)); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return fmt.Errorf("лист %s: %w", sheet, err)
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("лист %s: %w", sheet, err)
	}
	return setWidths(f, sheet, widths)
}

// writeRows пишет строки подряд, начиная со строки firstRow.
func writeRows(f *excelize.File, sheet string, firstRow int, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, firstRow+i)
		if err != nil {
			return fmt.Errorf("лист %s: %w", sheet, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("ошибка записи строки %d на листе %s: %w", firstRow+i, sheet, err)
		}
	}
	return nil
}

func setWidths(f *excelize.File, sheet string, widths map[string]float64) error {
	for col, width := range widths {
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return fmt.Errorf("ширина колонки %s на листе %s: %w", col, sheet, err)
		}
	}
	return nil
}
