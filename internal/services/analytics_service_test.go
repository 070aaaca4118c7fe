package services

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"tramite-system/internal/dto"
	"tramite-system/internal/entities"
	"tramite-system/pkg/config"
	"tramite-system/pkg/constants"
	"tramite-system/pkg/types"
)

var analyticsNow = time.Date(2025, 4, 30, 15, 0, 0, 0, time.UTC)

func newAnalytics(repo *fakeTramiteRepo, metrics *fakeMetricRepo) *AnalyticsService {
	svc := NewAnalyticsService(repo, metrics, config.AnalyticsConfig{}, zap.NewNop())
	svc.now = func() time.Time { return analyticsNow }
	return svc
}

func tramiteAged(estado entities.Estado, days int) entities.Tramite {
	return entities.Tramite{
		ID:            uuid.New(),
		NumeroTramite: "TRM-2025-" + uuid.NewString()[:6],
		Estado:        estado,
		Prioridad:     entities.PrioridadMedia,
		FechaInicio:   analyticsNow.AddDate(0, 0, -days),
		TipoTramite:   &entities.TipoTramite{Codigo: constants.TipoPermisoComercial},
	}
}

func TestDetectBottlenecks_Empty(t *testing.T) {
	stats := DetectBottlenecks(nil, analyticsNow, types.DefaultThresholds())
	assert.NotNil(t, stats)
	assert.Empty(t, stats)
}

func TestDetectBottlenecks_NothingFlaggedUnderThresholds(t *testing.T) {
	tramites := []entities.Tramite{
		tramiteAged(entities.EstadoRecibido, 1),
		tramiteAged(entities.EstadoRecibido, 7),
		tramiteAged(entities.EstadoEnProceso, 5),
		tramiteAged(entities.EstadoEnProceso, 6),
	}
	for _, st := range DetectBottlenecks(tramites, analyticsNow, types.DefaultThresholds()) {
		assert.False(t, st.EsCuelloDeBottella, st.Estado)
	}
}

func TestDetectBottlenecks_MaxAloneFlags(t *testing.T) {
	tramites := []entities.Tramite{
		tramiteAged(entities.EstadoEnProceso, 0),
		tramiteAged(entities.EstadoEnProceso, 0),
		tramiteAged(entities.EstadoEnProceso, 0),
		tramiteAged(entities.EstadoEnProceso, 16),
	}
	stats := DetectBottlenecks(tramites, analyticsNow, types.DefaultThresholds())
	require.Len(t, stats, 1)
	assert.Equal(t, 4.0, stats[0].TiempoPromedio)
	assert.True(t, stats[0].EsCuelloDeBottella)
}

// Среднее 7.00497 округляется до 7, но порог всё равно превышен.
func TestDetectBottlenecks_MeanJustAboveThreshold(t *testing.T) {
	tramites := make([]entities.Tramite, 0, 201)
	for i := 0; i < 200; i++ {
		tramites = append(tramites, tramiteAged(entities.EstadoEnRevision, 7))
	}
	tramites = append(tramites, tramiteAged(entities.EstadoEnRevision, 8))

	stats := DetectBottlenecks(tramites, analyticsNow, types.DefaultThresholds())
	require.Len(t, stats, 1)
	assert.Equal(t, 7.0, stats[0].TiempoPromedio)
	assert.Equal(t, 8, stats[0].TiempoMaximo)
	assert.True(t, stats[0].EsCuelloDeBottella)
}

func TestDetectBottlenecks_OrderedByMeanDescending(t *testing.T) {
	tramites := []entities.Tramite{
		tramiteAged(entities.EstadoRecibido, 1),
		tramiteAged(entities.EstadoEnProceso, 9),
		tramiteAged(entities.EstadoEnRevision, 4),
		tramiteAged(entities.EstadoEnRevision, 5),
	}
	stats := DetectBottlenecks(tramites, analyticsNow, types.DefaultThresholds())
	require.Len(t, stats, 3)
	assert.Equal(t, "en_proceso", stats[0].Estado)
	assert.Equal(t, "en_revision", stats[1].Estado)
	assert.Equal(t, 4.5, stats[1].TiempoPromedio)
	assert.Equal(t, "recibido", stats[2].Estado)
}

// 120 трамитов в окне, два в en_revision с возрастом 10 и 20 дней.
func TestPerformanceReport_HighVolumeWithBottleneck(t *testing.T) {
	repo := newFakeTramiteRepo()
	repo.put(tramiteAged(entities.EstadoEnRevision, 10))
	repo.put(tramiteAged(entities.EstadoEnRevision, 20))
	for i := 0; i < 118; i++ {
		estado := entities.EstadoRecibido
		if i%2 == 0 {
			estado = entities.EstadoAprobado
		}
		repo.put(tramiteAged(estado, 0))
	}

	svc := newAnalytics(repo, &fakeMetricRepo{})
	report, err := svc.GeneratePerformanceReport(context.Background(), svc.DefaultWindow())
	require.NoError(t, err)

	assert.Equal(t, 120, report.Tramites.TotalTramites)
	assert.Equal(t, 49.17, report.Tramites.TasaAprobacion)

	var revision *types.BottleneckStat
	for i := range report.CuellosDeBottella {
		if report.CuellosDeBottella[i].Estado == "en_revision" {
			revision = &report.CuellosDeBottella[i]
		}
	}
	require.NotNil(t, revision)
	assert.Equal(t, 2, revision.Cantidad)
	assert.Equal(t, 15.0, revision.TiempoPromedio)
	assert.Equal(t, 20, revision.TiempoMaximo)
	assert.True(t, revision.EsCuelloDeBottella)
	assert.Equal(t, "en_revision", report.CuellosDeBottella[0].Estado, "худшая группа первой")

	require.Len(t, report.Recomendaciones, 2)
	assert.Equal(t, "cuello_botella", report.Recomendaciones[0].Tipo)
	assert.Equal(t, "alta", report.Recomendaciones[0].Prioridad)
	assert.Equal(t, "Se detectaron 1 estados con tiempos excesivos de procesamiento.", report.Recomendaciones[0].Descripcion)
	assert.Equal(t, "volumen", report.Recomendaciones[1].Tipo)
	assert.Equal(t, "media", report.Recomendaciones[1].Prioridad)
}

func TestGenerateRecommendations_Independent(t *testing.T) {
	th := types.DefaultThresholds()
	assert.Empty(t, GenerateRecommendations(nil, 100, th), "ровно 100 - не высокий объём")

	recs := GenerateRecommendations(nil, 101, th)
	require.Len(t, recs, 1)
	assert.Equal(t, "volumen", recs[0].Tipo)

	recs = GenerateRecommendations([]types.BottleneckStat{{Estado: "en_proceso", EsCuelloDeBottella: true}}, 3, th)
	require.Len(t, recs, 1)
	assert.Equal(t, "cuello_botella", recs[0].Tipo)
	assert.Len(t, recs[0].Acciones, 3)
}

func TestAggregateStatistics_GroupsMetricsByCategoria(t *testing.T) {
	metrics := &fakeMetricRepo{}
	day := types.DateOnly(analyticsNow).AddDate(0, 0, -1)
	for _, m := range []entities.Metrica{
		{Fecha: day, TipoMetrica: "tramites_iniciados", Valor: 4, Categoria: null.StringFrom("tramites")},
		{Fecha: day, TipoMetrica: "satisfaccion", Valor: 4.5},
		{Fecha: day, TipoMetrica: "tramites_completados", Valor: 2, Categoria: null.StringFrom("tramites")},
		{Fecha: day.AddDate(0, 0, -90), TipoMetrica: "fuera_de_ventana", Valor: 1},
	} {
		m := m
		require.NoError(t, metrics.Insert(context.Background(), &m))
	}

	svc := newAnalytics(newFakeTramiteRepo(), metrics)
	stats, err := svc.AggregateStatistics(context.Background(), svc.DefaultWindow())
	require.NoError(t, err)

	require.Len(t, stats.Metricas["tramites"], 2)
	assert.Equal(t, "tramites_iniciados", stats.Metricas["tramites"][0].TipoMetrica)
	assert.Equal(t, "tramites_completados", stats.Metricas["tramites"][1].TipoMetrica)
	require.Len(t, stats.Metricas["general"], 1)
	assert.Equal(t, "satisfaccion", stats.Metricas["general"][0].TipoMetrica)
	assert.Equal(t, 0, stats.Tramites.TotalTramites)
	assert.Equal(t, "2025-04-30", stats.Periodo.Fin)
}

func completedTramite(inicio time.Time, completado time.Time) entities.Tramite {
	t := tramiteAged(entities.EstadoCompletado, 0)
	t.FechaInicio = inicio
	t.FechaCompletado = null.TimeFrom(completado)
	t.TiempoResolucionDias = null.IntFrom(int(completado.Sub(inicio).Hours() / 24))
	return t
}

func TestRecordDailyMetrics_WritesThreeSeries(t *testing.T) {
	repo := newFakeTramiteRepo()
	target := time.Date(2025, 4, 29, 0, 0, 0, 0, time.UTC)
	repo.put(completedTramite(target.AddDate(0, 0, -4), target.Add(10*time.Hour)))
	repo.put(completedTramite(target.AddDate(0, 0, -7), target.Add(11*time.Hour)))
	started := tramiteAged(entities.EstadoRecibido, 0)
	started.FechaInicio = target.Add(8 * time.Hour)
	repo.put(started)

	metrics := &fakeMetricRepo{}
	svc := newAnalytics(repo, metrics)

	summary, err := svc.RecordDailyMetrics(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Actualizados)
	assert.False(t, summary.HasFailures())

	iniciados := metrics.byTipo(constants.MetricTramitesIniciados)
	require.Len(t, iniciados, 1)
	assert.Equal(t, 1.0, iniciados[0].Valor)
	assert.Equal(t, target, iniciados[0].Fecha)

	completados := metrics.byTipo(constants.MetricTramitesCompletados)
	require.Len(t, completados, 1)
	assert.Equal(t, 2.0, completados[0].Valor)

	promedio := metrics.byTipo(constants.MetricTiempoPromedioResolucion)
	require.Len(t, promedio, 1)
	assert.Equal(t, 5.5, promedio[0].Valor)
	assert.Equal(t, constants.MetricCategoryRendimiento, promedio[0].Categoria.String)
	assert.Equal(t, constants.MetricUnitDias, promedio[0].Unidad.String)
}

func TestRecordDailyMetrics_AverageStoredUnrounded(t *testing.T) {
	repo := newFakeTramiteRepo()
	target := time.Date(2025, 4, 29, 0, 0, 0, 0, time.UTC)
	repo.put(completedTramite(target.AddDate(0, 0, -1), target.Add(time.Hour)))
	repo.put(completedTramite(target.AddDate(0, 0, -2), target.Add(time.Hour)))
	repo.put(completedTramite(target.AddDate(0, 0, -2), target.Add(2*time.Hour)))
	metrics := &fakeMetricRepo{}

	_, err := newAnalytics(repo, metrics).RecordDailyMetrics(context.Background(), target)
	require.NoError(t, err)

	promedio := metrics.byTipo(constants.MetricTiempoPromedioResolucion)
	require.Len(t, promedio, 1)
	assert.InDelta(t, 5.0/3.0, promedio[0].Valor, 1e-9)
	assert.NotEqual(t, 1.67, promedio[0].Valor)
}

func TestRecordDailyMetrics_NoAverageForEmptySet(t *testing.T) {
	metrics := &fakeMetricRepo{}
	svc := newAnalytics(newFakeTramiteRepo(), metrics)

	summary, err := svc.RecordDailyMetrics(context.Background(), analyticsNow.AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Actualizados)
	assert.Empty(t, metrics.byTipo(constants.MetricTiempoPromedioResolucion))

	completados := metrics.byTipo(constants.MetricTramitesCompletados)
	require.Len(t, completados, 1)
	assert.Equal(t, 0.0, completados[0].Valor)
}

// Запись без upsert: второй прогон за ту же дату дублирует строки с теми же значениями.
func TestRecordDailyMetrics_RerunDuplicatesRows(t *testing.T) {
	repo := newFakeTramiteRepo()
	target := time.Date(2025, 4, 29, 0, 0, 0, 0, time.UTC)
	repo.put(completedTramite(target.AddDate(0, 0, -3), target.Add(9*time.Hour)))

	metrics := &fakeMetricRepo{}
	svc := newAnalytics(repo, metrics)

	_, err := svc.RecordDailyMetrics(context.Background(), target)
	require.NoError(t, err)
	_, err = svc.RecordDailyMetrics(context.Background(), target)
	require.NoError(t, err)

	completados := metrics.byTipo(constants.MetricTramitesCompletados)
	require.Len(t, completados, 2)
	assert.Equal(t, completados[0].Valor, completados[1].Valor)
	assert.Equal(t, completados[0].Fecha, completados[1].Fecha)
}

func TestRecordDailyMetrics_ContinuesAfterFailure(t *testing.T) {
	metrics := &fakeMetricRepo{failTipo: constants.MetricTramitesIniciados}
	svc := newAnalytics(newFakeTramiteRepo(), metrics)

	summary, err := svc.RecordDailyMetrics(context.Background(), analyticsNow)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Fallidos)
	assert.Equal(t, 1, summary.Actualizados)
	assert.Len(t, metrics.byTipo(constants.MetricTramitesCompletados), 1)
}

func TestRegisterMetric(t *testing.T) {
	metrics := &fakeMetricRepo{}
	svc := newAnalytics(newFakeTramiteRepo(), metrics)

	valor := 4.2
	m, err := svc.RegisterMetric(context.Background(), dto.RegisterMetricDTO{
		TipoMetrica: "satisfaccion_ciudadana",
		Valor:       &valor,
		Unidad:      "puntos",
	})
	require.NoError(t, err)
	assert.Equal(t, types.DateOnly(analyticsNow), m.Fecha)
	assert.False(t, m.Categoria.Valid)

	_, err = svc.RegisterMetric(context.Background(), dto.RegisterMetricDTO{TipoMetrica: "x"})
	assert.Error(t, err)
	_, err = svc.RegisterMetric(context.Background(), dto.RegisterMetricDTO{TipoMetrica: "x", Valor: &valor, Fecha: "30/04/2025"})
	assert.Error(t, err)
}

func TestAnalyzeTrends(t *testing.T) {
	repo := newFakeTramiteRepo()
	march := time.Date(2025, 3, 20, 10, 0, 0, 0, time.UTC)
	april := time.Date(2025, 4, 5, 10, 0, 0, 0, time.UTC)

	done := completedTramite(march, march.AddDate(0, 0, 6))
	repo.put(done)
	incompleta := tramiteAged(entities.EstadoDocumentacionIncompleta, 0)
	incompleta.FechaInicio = april
	repo.put(incompleta)
	other := tramiteAged(entities.EstadoRecibido, 0)
	other.FechaInicio = april
	repo.put(other)

	svc := newAnalytics(repo, &fakeMetricRepo{})
	trends, err := svc.AnalyzeTrends(context.Background(), types.Window{Desde: march.AddDate(0, 0, -1), Hasta: analyticsNow})
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"2025-03": 1, "2025-04": 2}, trends.TramitesPorMes)
	assert.Equal(t, []int{6}, trends.TiemposPorTipo[constants.TipoPermisoComercial])
	assert.Equal(t, 1, trends.DocumentacionIncompletaPorTipo[constants.TipoPermisoComercial])
}

func TestExportReportXLSX(t *testing.T) {
	report := &dto.PerformanceReportDTO{
		AggregateStatisticsDTO: dto.AggregateStatisticsDTO{
			Tramites: entities.TramiteAggregate{TotalTramites: 3, PorEstado: map[entities.Estado]int{entities.EstadoRecibido: 3}},
			Periodo:  types.Periodo{Inicio: "2025-04-01", Fin: "2025-04-30"},
		},
		CuellosDeBottella: []types.BottleneckStat{{Estado: "recibido", Cantidad: 3, TiempoPromedio: 9, TiempoMaximo: 12, EsCuelloDeBottella: true}},
		Recomendaciones:   GenerateRecommendations([]types.BottleneckStat{{EsCuelloDeBottella: true}}, 3, types.DefaultThresholds()),
	}

	var buf bytes.Buffer
	require.NoError(t, ExportReportXLSX(&buf, report))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Resumen", "Cuellos de botella", "Recomendaciones"}, f.GetSheetList())
	v, err := f.GetCellValue("Cuellos de botella", "A2")
	require.NoError(t, err)
	assert.Equal(t, "recibido", v)
	v, err = f.GetCellValue("Cuellos de botella", "E2")
	require.NoError(t, err)
	assert.Equal(t, "Sí", v)

	rows, err := f.GetRows("Recomendaciones")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Tipo", rows[0][0])
	assert.Equal(t, "cuello_botella", rows[1][0])
	assert.Contains(t, rows[1][4], "Redistribuir carga de trabajo")

	styleID, err := f.GetCellStyle("Recomendaciones", "E1")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	require.NotNil(t, style.Font)
	assert.True(t, style.Font.Bold)
}
