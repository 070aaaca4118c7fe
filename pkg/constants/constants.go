// pkg/constants/constants.go
package constants

//============== UPLOAD CONTEXTS ==============

// UploadContext определяет тип для контекстов загрузки файлов.
type UploadContext string

const (
	// UploadContextTramiteDocument - документы, приложенные к трамиту.
	UploadContextTramiteDocument UploadContext = "documentos-tramites"
)

// String возвращает строковое представление контекста.
func (uc UploadContext) String() string {
	return string(uc)
}

//============== ROLES ==============

// Роли, которые приходят от внешнего провайдера идентичности.
const (
	RoleCiudadano      = "ciudadano"
	RoleAdministrativo = "administrativo"
	RoleSupervisor     = "supervisor"
)

//============== CACHE KEYS ==============

const (
	// Счётчик номеров трамитов за год.
	// Формат: tramite_seq:<year> -> counter
	CacheKeyTramiteSequence = "tramite_seq:%d"

	// Защита от повторной записи дневных метрик.
	// Формат: metrics_recorded:<YYYY-MM-DD> -> "1"
	CacheKeyDailyMetricsGuard = "metrics_recorded:%s"
)

//============== DATES ==============

const DateLayout = "2006-01-02"
