package entities

import (
	"time"

	"github.com/aarondl/null/v8"
	"github.com/google/uuid"
)

type NotificacionTipo string

const (
	NotificacionEstadoCambio       NotificacionTipo = "estado_cambio"
	NotificacionDocumentoRequerido NotificacionTipo = "documento_requerido"
	NotificacionAprobacion         NotificacionTipo = "aprobacion"
	NotificacionRechazo            NotificacionTipo = "rechazo"
	NotificacionRecordatorio       NotificacionTipo = "recordatorio"
	NotificacionComentario         NotificacionTipo = "comentario"
)

type Canal string

const (
	CanalEmail      Canal = "email"
	CanalSMS        Canal = "sms"
	CanalPlataforma Canal = "plataforma"
	CanalPush       Canal = "push"
)

func (c Canal) Valid() bool {
	switch c {
	case CanalEmail, CanalSMS, CanalPlataforma, CanalPush:
		return true
	}
	return false
}

type Notificacion struct {
	ID           uuid.UUID        `json:"id" db:"id"`
	UsuarioID    uuid.UUID        `json:"usuario_id" db:"usuario_id"`
	TramiteID    uuid.NullUUID    `json:"tramite_id" db:"tramite_id"`
	Tipo         NotificacionTipo `json:"tipo" db:"tipo"`
	Titulo       string           `json:"titulo" db:"titulo"`
	Mensaje      string           `json:"mensaje" db:"mensaje"`
	Canal        Canal            `json:"canal" db:"canal"`
	Enviado      bool             `json:"enviado" db:"enviado"`
	Leida        bool             `json:"leida" db:"leida"`
	FechaEnvio   null.Time        `json:"fecha_envio" db:"fecha_envio"`
	FechaLectura null.Time        `json:"fecha_lectura" db:"fecha_lectura"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
}
