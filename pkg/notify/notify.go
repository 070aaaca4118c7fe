// Package notify описывает доставку уведомлений по внешним каналам.
package notify

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

//go:generate mockgen -source=notify.go -destination=../../internal/services/mocks/mock_sender.go -package=mocks

// ErrNoAddress - у получателя нет адреса для канала (email, телефон).
var ErrNoAddress = errors.New("у получателя нет адреса для этого канала")

// Message - всё, что транспорту нужно знать о доставке.
type Message struct {
	UsuarioID     uuid.UUID
	Email         string
	Telefono      string
	NumeroTramite string
	Tipo          string
	Titulo        string
	Mensaje       string
}

// Sender - транспорт одного канала. acked=true означает, что транспорт подтвердил доставку.
// acked=false без ошибки - сообщение принято, но подтверждения пока нет.
type Sender interface {
	Deliver(ctx context.Context, msg Message) (acked bool, err error)
}
