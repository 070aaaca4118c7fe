package entities

import (
	"time"

	"github.com/google/uuid"
)

type ComentarioTipo string

const (
	ComentarioTipoComentario  ComentarioTipo = "comentario"
	ComentarioTipoConsulta    ComentarioTipo = "consulta"
	ComentarioTipoRespuesta   ComentarioTipo = "respuesta"
	ComentarioTipoObservacion ComentarioTipo = "observacion"
)

func (t ComentarioTipo) Valid() bool {
	switch t {
	case ComentarioTipoComentario, ComentarioTipoConsulta, ComentarioTipoRespuesta, ComentarioTipoObservacion:
		return true
	}
	return false
}

type Comentario struct {
	ID              uuid.UUID      `json:"id" db:"id"`
	TramiteID       uuid.UUID      `json:"tramite_id" db:"tramite_id"`
	UsuarioID       uuid.UUID      `json:"usuario_id" db:"usuario_id"`
	Contenido       string         `json:"contenido" db:"contenido"`
	Tipo            ComentarioTipo `json:"tipo" db:"tipo"`
	Publico         bool           `json:"publico" db:"publico"`
	FechaComentario time.Time      `json:"fecha_comentario" db:"fecha_comentario"`
}
