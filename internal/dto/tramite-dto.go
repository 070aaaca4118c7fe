package dto

import (
	"time"

	"github.com/aarondl/null/v8"

	"tramite-system/internal/entities"
	"tramite-system/pkg/types"
)

// CreateTramiteDTO - поле "data" multipart-формы подачи.
type CreateTramiteDTO struct {
	TipoCodigo  string `json:"tipo_tramite" validate:"required"`
	Descripcion string `json:"descripcion" validate:"required,min=5"`
	Direccion   string `json:"direccion,omitempty"`
	Telefono    string `json:"telefono,omitempty" validate:"omitempty,telefono"`
	Email       string `json:"email,omitempty" validate:"omitempty,email"`
	Urgencia    string `json:"urgencia,omitempty" validate:"omitempty,oneof=baja media alta"`
}

type CreateTramiteResponseDTO struct {
	NumeroTramite string `json:"numero_tramite"`
}

type TransitionDTO struct {
	Estado     string `json:"estado" validate:"required,tramite_estado"`
	Comentario string `json:"comentario,omitempty" validate:"omitempty,max=2000"`
	// UpdatedAt - если передан, переход применяется только к этой версии трамита.
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type CreateCommentDTO struct {
	Contenido string    `json:"contenido" validate:"required,min=1,max=5000"`
	Tipo      string    `json:"tipo,omitempty" validate:"omitempty,comentario_tipo"`
	Publico   null.Bool `json:"publico"`
}

type RequestDocumentDTO struct {
	NombreDocumento string `json:"nombre_documento" validate:"required,min=2,max=255"`
}

// TramiteSearchDTO - query-параметры GET /api/tramites. limit/offset/page читаются отдельно.
type TramiteSearchDTO struct {
	Termino       string `query:"q"`
	Estado        string `query:"estado" validate:"omitempty,tramite_estado"`
	TipoTramiteID string `query:"tipo_tramite_id" validate:"omitempty,uuid"`
	Prioridad     string `query:"prioridad" validate:"omitempty,oneof=baja media alta urgente"`
	FechaDesde    string `query:"desde" validate:"omitempty,datetime=2006-01-02"`
	FechaHasta    string `query:"hasta" validate:"omitempty,datetime=2006-01-02"`
}

// TramiteDetailDTO - карточка трамита со всеми дочерними записями.
type TramiteDetailDTO struct {
	Tramite     entities.Tramite            `json:"tramite"`
	Historial   []entities.HistorialTramite `json:"historial"`
	Comentarios []entities.Comentario       `json:"comentarios"`
	Documentos  []entities.Documento        `json:"documentos"`
}

// PredictionDTO - оценка срока и шансов на одобрение.
type PredictionDTO struct {
	TiempoEstimadoDias     int      `json:"tiempo_estimado_dias"`
	TiempoEstimado         string   `json:"tiempo_estimado"`
	ProbabilidadAprobacion int      `json:"probabilidad_aprobacion"`
	PosiblesProblemas      []string `json:"posibles_problemas"`
	Recomendaciones        []string `json:"recomendaciones"`
}

type AssignmentDTO struct {
	TramiteID          string `json:"tramite_id"`
	PersonalID         string `json:"personal_id"`
	TiempoEstimadoDias int    `json:"tiempo_estimado_dias"`
}

// AggregateStatisticsDTO - агрегаты по окну: трамиты, метрики по категориям, период.
type AggregateStatisticsDTO struct {
	Tramites entities.TramiteAggregate     `json:"tramites"`
	Metricas map[string][]entities.Metrica `json:"metricas"`
	Periodo  types.Periodo                 `json:"periodo"`
}

type PerformanceReportDTO struct {
	AggregateStatisticsDTO
	CuellosDeBottella []types.BottleneckStat `json:"cuellosDeBottella"`
	Recomendaciones   []types.Recommendation `json:"recomendaciones"`
}

// TrendsDTO - помесячный объём, сроки решения по типам и число трамитов без документов по типам.
type TrendsDTO struct {
	TramitesPorMes                 map[string]int   `json:"tramitesPorMes"`
	TiemposPorTipo                 map[string][]int `json:"tiemposPorTipo"`
	DocumentacionIncompletaPorTipo map[string]int   `json:"documentacionIncompletaPorTipo"`
}

type RegisterMetricDTO struct {
	TipoMetrica string   `json:"tipo_metrica" validate:"required,max=128"`
	Valor       *float64 `json:"valor" validate:"required"`
	Unidad      string   `json:"unidad,omitempty" validate:"omitempty,max=32"`
	Categoria   string   `json:"categoria,omitempty" validate:"omitempty,max=64"`
	Fecha       string   `json:"fecha,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

type UnreadCountDTO struct {
	Count int `json:"count"`
}

type StaffMemberDTO struct {
	ID              string   `json:"id" validate:"required,uuid"`
	Especialidades  []string `json:"especialidades" validate:"required,min=1"`
	CargaActual     int      `json:"carga_actual" validate:"gte=0"`
	CapacidadMaxima int      `json:"capacidad_maxima" validate:"gt=0"`
}

// AssignmentRequestDTO - состав персонала, по которому распределяются открытые трамиты.
type AssignmentRequestDTO struct {
	Personal []StaffMemberDTO `json:"personal" validate:"required,min=1,dive"`
}

type DailyMetricsResultDTO struct {
	Fecha      string `json:"fecha"`
	Registrado bool   `json:"registrado"`
}
