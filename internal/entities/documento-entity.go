package entities

import (
	"time"

	"github.com/aarondl/null/v8"
	"github.com/google/uuid"
)

type Documento struct {
	ID              uuid.UUID   `json:"id" db:"id"`
	TramiteID       uuid.UUID   `json:"tramite_id" db:"tramite_id"`
	NombreDocumento string      `json:"nombre_documento" db:"nombre_documento"`
	NombreArchivo   string      `json:"nombre_archivo" db:"nombre_archivo"`
	URLArchivo      string      `json:"url_archivo" db:"url_archivo"`
	TipoMime        null.String `json:"tipo_mime" db:"tipo_mime"`
	TamanoBytes     null.Int64  `json:"tamano_bytes" db:"tamano_bytes"`
	Requerido       bool        `json:"requerido" db:"requerido"`
	Aprobado        bool        `json:"aprobado" db:"aprobado"`
	Observaciones   null.String `json:"observaciones" db:"observaciones"`
	SubidoPor       uuid.UUID   `json:"subido_por" db:"subido_por"`
	FechaSubida     time.Time   `json:"fecha_subida" db:"fecha_subida"`
}

// FileRef - ссылка на уже сохранённый файл (путь в хранилище и метаданные).
type FileRef struct {
	NombreArchivo string
	URL           string
	TipoMime      string
	TamanoBytes   int64
}
