package repositories

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"tramite-system/internal/entities"
	apperrors "tramite-system/pkg/errors"
)

// MetricRepositoryInterface - хранилище временных рядов. Уникальность (fecha, tipo_metrica) не проверяется.
type MetricRepositoryInterface interface {
	Insert(ctx context.Context, m *entities.Metrica) error
	Query(ctx context.Context, filter entities.MetricFilter) ([]entities.Metrica, error)
}

type MetricRepository struct {
	storage *pgxpool.Pool
}

func NewMetricRepository(storage *pgxpool.Pool) MetricRepositoryInterface {
	return &MetricRepository{storage: storage}
}

func (r *MetricRepository) Insert(ctx context.Context, m *entities.Metrica) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	var payload interface{}
	if len(m.DatosAdicionales) > 0 {
		payload = string(m.DatosAdicionales)
	}
	query := `
		INSERT INTO metricas (id, fecha, tipo_metrica, valor, unidad, categoria, datos_adicionales)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`
	err := getQuerier(ctx, r.storage).QueryRow(ctx, query,
		m.ID, m.Fecha, m.TipoMetrica, m.Valor, m.Unidad, m.Categoria, payload,
	).Scan(&m.CreatedAt)
	if err != nil {
		return apperrors.NewPersistenceError("запись метрики", err)
	}
	return nil
}

// Query возвращает метрики от новых к старым. Границы дат включительные.
func (r *MetricRepository) Query(ctx context.Context, f entities.MetricFilter) ([]entities.Metrica, error) {
	b := sq.Select("id", "fecha", "tipo_metrica", "valor", "unidad", "categoria", "datos_adicionales", "created_at").
		From("metricas").
		OrderBy("fecha DESC", "created_at ASC").
		PlaceholderFormat(sq.Dollar)

	if f.TipoMetrica != "" {
		b = b.Where(sq.Eq{"tipo_metrica": f.TipoMetrica})
	}
	if f.Categoria != "" {
		b = b.Where(sq.Eq{"categoria": f.Categoria})
	}
	if f.Desde != nil {
		b = b.Where(sq.GtOrEq{"fecha": *f.Desde})
	}
	if f.Hasta != nil {
		b = b.Where(sq.LtOrEq{"fecha": *f.Hasta})
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса метрик: %w", err)
	}

	rows, err := getQuerier(ctx, r.storage).Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewPersistenceError("чтение метрик", err)
	}
	defer rows.Close()

	metricas := make([]entities.Metrica, 0)
	for rows.Next() {
		var m entities.Metrica
		var payload []byte
		if err := rows.Scan(&m.ID, &m.Fecha, &m.TipoMetrica, &m.Valor, &m.Unidad, &m.Categoria, &payload, &m.CreatedAt); err != nil {
			return nil, apperrors.NewPersistenceError("чтение метрик", err)
		}
		m.DatosAdicionales = payload
		metricas = append(metricas, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError("чтение метрик", err)
	}
	return metricas, nil
}
