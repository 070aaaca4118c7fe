package events

import (
	"github.com/google/uuid"

	"tramite-system/internal/entities"
)

const (
	TramiteStateChangedName = "tramite.estado.cambiado"
	TramiteCommentAddedName = "tramite.comentario.agregado"
	DocumentRequestedName   = "tramite.documento.requerido"
	TramiteReminderName     = "tramite.recordatorio"
)

// TramiteStateChangedEvent публикуется после фиксации перехода. Tramite - снимок уже после обновления.
type TramiteStateChangedEvent struct {
	Tramite    entities.Tramite
	From       entities.Estado
	To         entities.Estado
	Actor      uuid.NullUUID
	Comentario string
}

// Name - реализуем интерфейс eventbus.Event
func (e TramiteStateChangedEvent) Name() string { return TramiteStateChangedName }

// TramiteCommentAddedEvent - сотрудник оставил комментарий в чужом трамите.
type TramiteCommentAddedEvent struct {
	Tramite    entities.Tramite
	Comentario entities.Comentario
}

func (e TramiteCommentAddedEvent) Name() string { return TramiteCommentAddedName }

type DocumentRequestedEvent struct {
	Tramite         entities.Tramite
	NombreDocumento string
}

func (e DocumentRequestedEvent) Name() string { return DocumentRequestedName }

// TramiteReminderEvent - до fecha_limite осталось DiasRestantes суток.
type TramiteReminderEvent struct {
	Tramite       entities.Tramite
	DiasRestantes int
}

func (e TramiteReminderEvent) Name() string { return TramiteReminderName }
