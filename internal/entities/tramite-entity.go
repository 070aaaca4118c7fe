package entities

import (
	"fmt"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/google/uuid"

	"tramite-system/pkg/constants"
)

// DatosAdicionales - контактные данные из формы подачи (jsonb).
type DatosAdicionales struct {
	Telefono string `json:"telefono,omitempty"`
	Email    string `json:"email,omitempty"`
	Urgencia string `json:"urgencia,omitempty"`
}

type Tramite struct {
	ID                   uuid.UUID        `json:"id" db:"id"`
	NumeroTramite        string           `json:"numero_tramite" db:"numero_tramite"`
	UsuarioID            uuid.UUID        `json:"usuario_id" db:"usuario_id"`
	TipoTramiteID        uuid.UUID        `json:"tipo_tramite_id" db:"tipo_tramite_id"`
	Estado               Estado           `json:"estado" db:"estado"`
	Prioridad            Prioridad        `json:"prioridad" db:"prioridad"`
	Descripcion          string           `json:"descripcion" db:"descripcion"`
	DireccionTramite     null.String      `json:"direccion_tramite" db:"direccion_tramite"`
	DatosAdicionales     DatosAdicionales `json:"datos_adicionales" db:"datos_adicionales"`
	AsignadoA            uuid.NullUUID    `json:"asignado_a" db:"asignado_a"`
	FechaInicio          time.Time        `json:"fecha_inicio" db:"fecha_inicio"`
	FechaLimite          null.Time        `json:"fecha_limite" db:"fecha_limite"`
	FechaCompletado      null.Time        `json:"fecha_completado" db:"fecha_completado"`
	TiempoResolucionDias null.Int         `json:"tiempo_resolucion_dias" db:"tiempo_resolucion_dias"`
	CostoTotal           float64          `json:"costo_total" db:"costo_total"`
	Observaciones        null.String      `json:"observaciones" db:"observaciones"`
	CreatedAt            time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at" db:"updated_at"`

	TipoTramite *TipoTramite `json:"tipo_tramite,omitempty" db:"-"`
}

// TipoCodigo возвращает код типа или пустую строку, если тип не подгружен.
func (t *Tramite) TipoCodigo() string {
	if t.TipoTramite == nil {
		return ""
	}
	return t.TipoTramite.Codigo
}

// CheckInvariants: fecha_completado задана тогда и только тогда, когда estado == completado,
// а tiempo_resolucion_dias определён только вместе с fecha_completado.
func (t *Tramite) CheckInvariants() error {
	if t.FechaCompletado.Valid != (t.Estado == EstadoCompletado) {
		return fmt.Errorf("трамит %s: fecha_completado=%v при estado=%s", t.NumeroTramite, t.FechaCompletado.Valid, t.Estado)
	}
	if t.TiempoResolucionDias.Valid && !t.FechaCompletado.Valid {
		return fmt.Errorf("трамит %s: tiempo_resolucion_dias без fecha_completado", t.NumeroTramite)
	}
	return nil
}

// FormatNumero собирает номер вида TRM-2025-000042 из года и хвоста счётчика.
func FormatNumero(year int, seq int64) string {
	if seq < 0 {
		seq = -seq
	}
	return fmt.Sprintf("%s-%04d-%06d", constants.NumeroPrefix, year, seq%1_000_000)
}

// TramitePatch - частичное обновление. Nil-поля не трогаются.
type TramitePatch struct {
	Estado               *Estado
	Prioridad            *Prioridad
	AsignadoA            uuid.NullUUID
	Observaciones        null.String
	FechaCompletado      null.Time
	TiempoResolucionDias null.Int

	// ExpectedUpdatedAt - оптимистическая блокировка: обновление проходит, только если
	// updated_at в хранилище совпадает.
	ExpectedUpdatedAt *time.Time
}

// IsEmpty - в патче нет ни одного поля для записи.
func (p TramitePatch) IsEmpty() bool {
	return p.Estado == nil && p.Prioridad == nil && !p.AsignadoA.Valid && !p.Observaciones.Valid &&
		!p.FechaCompletado.Valid && !p.TiempoResolucionDias.Valid
}

// Apply применяет патч к копии трамита (нужен фейковым хранилищам и кэшу).
func (p TramitePatch) Apply(t Tramite, now time.Time) Tramite {
	if p.Estado != nil {
		t.Estado = *p.Estado
	}
	if p.Prioridad != nil {
		t.Prioridad = *p.Prioridad
	}
	if p.AsignadoA.Valid {
		t.AsignadoA = p.AsignadoA
	}
	if p.Observaciones.Valid {
		t.Observaciones = p.Observaciones
	}
	if p.FechaCompletado.Valid {
		t.FechaCompletado = p.FechaCompletado
	}
	if p.TiempoResolucionDias.Valid {
		t.TiempoResolucionDias = p.TiempoResolucionDias
	}
	t.UpdatedAt = now
	return t
}

// TramiteFilter - фильтры поиска (номер/описание + точные поля).
type TramiteFilter struct {
	Termino       string
	Estado        *Estado
	TipoTramiteID *uuid.UUID
	Prioridad     *Prioridad
	FechaDesde    *time.Time
	FechaHasta    *time.Time
	Limit         uint64
	Offset        uint64
}

// TramiteAggregate - агрегаты по окну, считаются на стороне хранилища.
type TramiteAggregate struct {
	TotalTramites  int            `json:"total_tramites"`
	PorEstado      map[Estado]int `json:"por_estado"`
	TasaAprobacion float64        `json:"tasa_aprobacion"`
}
