package constants

// --- КОДЫ ТИПОВ ТРАМИТОВ (совпадают с tipos_tramites.codigo) ---
const (
	TipoLicenciaConstruccion  = "licencia_construccion"
	TipoReclamoServicios      = "reclamo_servicios"
	TipoPermisoComercial      = "permiso_comercial"
	TipoPermisoEvento         = "permiso_evento"
	TipoCertificadoResidencia = "certificado_residencia"
)

// --- ИМЕНА МЕТРИК ---
const (
	MetricTramitesIniciados        = "tramites_iniciados"
	MetricTramitesCompletados      = "tramites_completados"
	MetricTiempoPromedioResolucion = "tiempo_promedio_resolucion"
)

// --- КАТЕГОРИИ И ЕДИНИЦЫ МЕТРИК ---
const (
	MetricCategoryGeneral     = "general"
	MetricCategoryTramites    = "tramites"
	MetricCategoryRendimiento = "rendimiento"

	MetricUnitCantidad = "cantidad"
	MetricUnitDias     = "dias"
)

// NumeroPrefix - префикс человекочитаемого номера: TRM-<год>-<6 цифр>.
const NumeroPrefix = "TRM"
