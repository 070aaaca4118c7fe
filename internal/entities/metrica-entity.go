package entities

import (
	"encoding/json"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/google/uuid"
)

// Metrica - одно датированное числовое наблюдение. Fecha - дата (без времени) в UTC.
type Metrica struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	Fecha            time.Time       `json:"fecha" db:"fecha"`
	TipoMetrica      string          `json:"tipo_metrica" db:"tipo_metrica"`
	Valor            float64         `json:"valor" db:"valor"`
	Unidad           null.String     `json:"unidad" db:"unidad"`
	Categoria        null.String     `json:"categoria" db:"categoria"`
	DatosAdicionales json.RawMessage `json:"datos_adicionales,omitempty" db:"datos_adicionales"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
}

// MetricFilter - все поля необязательны.
type MetricFilter struct {
	TipoMetrica string
	Desde       *time.Time
	Hasta       *time.Time
	Categoria   string
}
