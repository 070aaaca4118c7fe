package repositories

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"tramite-system/internal/entities"
	apperrors "tramite-system/pkg/errors"
)

// AppendHistory добавляет строку аудита. Только добавление, обновлений и удаления нет.
func (r *TramiteRepository) AppendHistory(ctx context.Context, h *entities.HistorialTramite) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	query := `
		INSERT INTO historial_tramites (id, tramite_id, estado_anterior, estado_nuevo, comentario, usuario_id, fecha_cambio)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := getQuerier(ctx, r.storage).Exec(ctx, query,
		h.ID, h.TramiteID, h.EstadoAnterior, string(h.EstadoNuevo), h.Comentario, h.UsuarioID, h.FechaCambio)
	if err != nil {
		return apperrors.NewPersistenceError("запись истории трамита", err)
	}
	return nil
}

func (r *TramiteRepository) AppendComment(ctx context.Context, c *entities.Comentario) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	query := `
		INSERT INTO comentarios (id, tramite_id, usuario_id, contenido, tipo, publico, fecha_comentario)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := getQuerier(ctx, r.storage).Exec(ctx, query,
		c.ID, c.TramiteID, c.UsuarioID, c.Contenido, string(c.Tipo), c.Publico, c.FechaComentario)
	if err != nil {
		return apperrors.NewPersistenceError("запись комментария", err)
	}
	return nil
}

func (r *TramiteRepository) AppendDocument(ctx context.Context, d *entities.Documento) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	query := `
		INSERT INTO documentos (id, tramite_id, nombre_documento, nombre_archivo, url_archivo, tipo_mime,
			tamano_bytes, requerido, aprobado, observaciones, subido_por, fecha_subida)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := getQuerier(ctx, r.storage).Exec(ctx, query,
		d.ID, d.TramiteID, d.NombreDocumento, d.NombreArchivo, d.URLArchivo, d.TipoMime,
		d.TamanoBytes, d.Requerido, d.Aprobado, d.Observaciones, d.SubidoPor, d.FechaSubida)
	if err != nil {
		return apperrors.NewPersistenceError("запись документа", err)
	}
	return nil
}

func (r *TramiteRepository) FindHistory(ctx context.Context, tramiteID uuid.UUID) ([]entities.HistorialTramite, error) {
	query := `
		SELECT id, tramite_id, estado_anterior, estado_nuevo, comentario, usuario_id, fecha_cambio
		FROM historial_tramites
		WHERE tramite_id = $1
		ORDER BY fecha_cambio ASC`

	rows, err := getQuerier(ctx, r.storage).Query(ctx, query, tramiteID)
	if err != nil {
		return nil, apperrors.NewPersistenceError("чтение истории трамита", err)
	}
	defer rows.Close()

	history := make([]entities.HistorialTramite, 0)
	for rows.Next() {
		var h entities.HistorialTramite
		if err := rows.Scan(&h.ID, &h.TramiteID, &h.EstadoAnterior, &h.EstadoNuevo, &h.Comentario, &h.UsuarioID, &h.FechaCambio); err != nil {
			return nil, apperrors.NewPersistenceError("чтение истории трамита", err)
		}
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError("чтение истории трамита", err)
	}
	return history, nil
}

// FindComments возвращает комментарии по времени. publicOnly скрывает внутренние заметки персонала.
func (r *TramiteRepository) FindComments(ctx context.Context, tramiteID uuid.UUID, publicOnly bool) ([]entities.Comentario, error) {
	b := sq.Select("id", "tramite_id", "usuario_id", "contenido", "tipo", "publico", "fecha_comentario").
		From("comentarios").
		Where(sq.Eq{"tramite_id": tramiteID}).
		OrderBy("fecha_comentario ASC").
		PlaceholderFormat(sq.Dollar)
	if publicOnly {
		b = b.Where(sq.Eq{"publico": true})
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса комментариев: %w", err)
	}

	rows, err := getQuerier(ctx, r.storage).Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewPersistenceError("чтение комментариев", err)
	}
	defer rows.Close()

	comments := make([]entities.Comentario, 0)
	for rows.Next() {
		var c entities.Comentario
		if err := rows.Scan(&c.ID, &c.TramiteID, &c.UsuarioID, &c.Contenido, &c.Tipo, &c.Publico, &c.FechaComentario); err != nil {
			return nil, apperrors.NewPersistenceError("чтение комментариев", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError("чтение комментариев", err)
	}
	return comments, nil
}

func (r *TramiteRepository) FindDocuments(ctx context.Context, tramiteID uuid.UUID) ([]entities.Documento, error) {
	query := `
		SELECT id, tramite_id, nombre_documento, nombre_archivo, url_archivo, tipo_mime, tamano_bytes,
			requerido, aprobado, observaciones, subido_por, fecha_subida
		FROM documentos
		WHERE tramite_id = $1
		ORDER BY fecha_subida ASC`

	rows, err := getQuerier(ctx, r.storage).Query(ctx, query, tramiteID)
	if err != nil {
		return nil, apperrors.NewPersistenceError("чтение документов", err)
	}
	defer rows.Close()

	docs := make([]entities.Documento, 0)
	for rows.Next() {
		var d entities.Documento
		if err := rows.Scan(&d.ID, &d.TramiteID, &d.NombreDocumento, &d.NombreArchivo, &d.URLArchivo, &d.TipoMime,
			&d.TamanoBytes, &d.Requerido, &d.Aprobado, &d.Observaciones, &d.SubidoPor, &d.FechaSubida); err != nil {
			return nil, apperrors.NewPersistenceError("чтение документов", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError("чтение документов", err)
	}
	return docs, nil
}
