package repositories

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"tramite-system/internal/entities"
	apperrors "tramite-system/pkg/errors"
)

type NotificationRepositoryInterface interface {
	Create(ctx context.Context, n *entities.Notificacion) error
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkRead(ctx context.Context, id, userID uuid.UUID, at time.Time) error
	MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit uint64, unreadOnly bool) ([]entities.Notificacion, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

type NotificationRepository struct {
	storage *pgxpool.Pool
}

func NewNotificationRepository(storage *pgxpool.Pool) NotificationRepositoryInterface {
	return &NotificationRepository{storage: storage}
}

func (r *NotificationRepository) Create(ctx context.Context, n *entities.Notificacion) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	query := `
		INSERT INTO notificaciones (id, usuario_id, tramite_id, tipo, titulo, mensaje, canal, enviado, leida, fecha_envio)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`
	err := getQuerier(ctx, r.storage).QueryRow(ctx, query,
		n.ID, n.UsuarioID, n.TramiteID, string(n.Tipo), n.Titulo, n.Mensaje, string(n.Canal), n.Enviado, n.Leida, n.FechaEnvio,
	).Scan(&n.CreatedAt)
	if err != nil {
		return apperrors.NewPersistenceError("запись уведомления", err)
	}
	return nil
}

// MarkSent - подтверждение доставки от внешнего транспорта.
func (r *NotificationRepository) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := getQuerier(ctx, r.storage).Exec(ctx,
		`UPDATE notificaciones SET enviado = TRUE, fecha_envio = $2 WHERE id = $1`, id, at)
	if err != nil {
		return apperrors.NewPersistenceError("отметка отправки уведомления", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID, at time.Time) error {
	tag, err := getQuerier(ctx, r.storage).Exec(ctx,
		`UPDATE notificaciones SET leida = TRUE, fecha_lectura = COALESCE(fecha_lectura, $3) WHERE id = $1 AND usuario_id = $2`,
		id, userID, at)
	if err != nil {
		return apperrors.NewPersistenceError("отметка прочтения уведомления", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	tag, err := getQuerier(ctx, r.storage).Exec(ctx,
		`UPDATE notificaciones SET leida = TRUE, fecha_lectura = $2 WHERE usuario_id = $1 AND leida = FALSE`, userID, at)
	if err != nil {
		return 0, apperrors.NewPersistenceError("отметка прочтения всех уведомлений", err)
	}
	return tag.RowsAffected(), nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := getQuerier(ctx, r.storage).QueryRow(ctx,
		`SELECT COUNT(*) FROM notificaciones WHERE usuario_id = $1 AND leida = FALSE`, userID).Scan(&n)
	if err != nil {
		return 0, apperrors.NewPersistenceError("подсчёт непрочитанных уведомлений", err)
	}
	return n, nil
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit uint64, unreadOnly bool) ([]entities.Notificacion, error) {
	b := sq.Select("id", "usuario_id", "tramite_id", "tipo", "titulo", "mensaje", "canal", "enviado", "leida",
		"fecha_envio", "fecha_lectura", "created_at").
		From("notificaciones").
		Where(sq.Eq{"usuario_id": userID}).
		OrderBy("created_at DESC").
		PlaceholderFormat(sq.Dollar)
	if unreadOnly {
		b = b.Where(sq.Eq{"leida": false})
	}
	if limit > 0 {
		b = b.Limit(limit)
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса уведомлений: %w", err)
	}

	rows, err := getQuerier(ctx, r.storage).Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewPersistenceError("чтение уведомлений", err)
	}
	defer rows.Close()

	list := make([]entities.Notificacion, 0)
	for rows.Next() {
		var n entities.Notificacion
		if err := rows.Scan(&n.ID, &n.UsuarioID, &n.TramiteID, &n.Tipo, &n.Titulo, &n.Mensaje, &n.Canal,
			&n.Enviado, &n.Leida, &n.FechaEnvio, &n.FechaLectura, &n.CreatedAt); err != nil {
			return nil, apperrors.NewPersistenceError("чтение уведомлений", err)
		}
		list = append(list, n)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError("чтение уведомлений", err)
	}
	return list, nil
}

func (r *NotificationRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := getQuerier(ctx, r.storage).Exec(ctx,
		`DELETE FROM notificaciones WHERE id = $1 AND usuario_id = $2`, id, userID)
	if err != nil {
		return apperrors.NewPersistenceError("удаление уведомления", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
