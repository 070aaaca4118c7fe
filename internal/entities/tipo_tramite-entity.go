package entities

import (
	"time"

	"github.com/aarondl/null/v8"
	"github.com/google/uuid"
)

type TipoTramite struct {
	ID                   uuid.UUID   `json:"id" db:"id"`
	Codigo               string      `json:"codigo" db:"codigo"`
	Nombre               string      `json:"nombre" db:"nombre"`
	Descripcion          null.String `json:"descripcion" db:"descripcion"`
	DocumentosRequeridos []string    `json:"documentos_requeridos" db:"documentos_requeridos"`
	TiempoEstimadoDias   int         `json:"tiempo_estimado_dias" db:"tiempo_estimado_dias"`
	Costo                float64     `json:"costo" db:"costo"`
	Activo               bool        `json:"activo" db:"activo"`
	CreatedAt            time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at" db:"updated_at"`
}

// RequiresDocument - документ с таким логическим именем входит в список обязательных.
func (t *TipoTramite) RequiresDocument(nombre string) bool {
	for _, d := range t.DocumentosRequeridos {
		if d == nombre {
			return true
		}
	}
	return false
}
