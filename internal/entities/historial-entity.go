package entities

import (
	"time"

	"github.com/aarondl/null/v8"
	"github.com/google/uuid"
)

// HistorialTramite - одна строка аудита на каждый переход. Только добавление.
// EstadoAnterior пуст у строки создания, UsuarioID пуст у системных действий.
type HistorialTramite struct {
	ID             uuid.UUID     `json:"id" db:"id"`
	TramiteID      uuid.UUID     `json:"tramite_id" db:"tramite_id"`
	EstadoAnterior null.String   `json:"estado_anterior" db:"estado_anterior"`
	EstadoNuevo    Estado        `json:"estado_nuevo" db:"estado_nuevo"`
	Comentario     null.String   `json:"comentario" db:"comentario"`
	UsuarioID      uuid.NullUUID `json:"usuario_id" db:"usuario_id"`
	FechaCambio    time.Time     `json:"fecha_cambio" db:"fecha_cambio"`
}
