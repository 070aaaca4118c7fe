package repositories

import (
	"context"
	"math"
	"time"

	sq "github.com/Masterminds/squirrel"

	"tramite-system/internal/entities"
	apperrors "tramite-system/pkg/errors"
)

// Оконные выборки для аналитики. Все окна полуоткрытые: [from, to).

func (r *TramiteRepository) ListByFechaInicio(ctx context.Context, from, to time.Time) ([]entities.Tramite, error) {
	return r.queryMany(ctx, "трамиты по дате начала",
		r.selectBuilder().
			Where(sq.GtOrEq{"t.fecha_inicio": from}).
			Where(sq.Lt{"t.fecha_inicio": to}).
			OrderBy("t.fecha_inicio ASC"))
}

func (r *TramiteRepository) ListCompletedBetween(ctx context.Context, from, to time.Time) ([]entities.Tramite, error) {
	return r.queryMany(ctx, "завершённые трамиты",
		r.selectBuilder().
			Where(sq.Eq{"t.estado": string(entities.EstadoCompletado)}).
			Where(sq.GtOrEq{"t.fecha_completado": from}).
			Where(sq.Lt{"t.fecha_completado": to}).
			OrderBy("t.fecha_completado ASC"))
}

func (r *TramiteRepository) CountByFechaInicio(ctx context.Context, from, to time.Time) (int, error) {
	var n int
	err := getQuerier(ctx, r.storage).QueryRow(ctx,
		`SELECT COUNT(*) FROM tramites WHERE fecha_inicio >= $1 AND fecha_inicio < $2`, from, to).Scan(&n)
	if err != nil {
		return 0, apperrors.NewPersistenceError("подсчёт трамитов по дате начала", err)
	}
	return n, nil
}

// GetAggregate - общее число, разбивка по состояниям и доля одобренных (aprobado + completado) в процентах.
func (r *TramiteRepository) GetAggregate(ctx context.Context, from, to time.Time) (*entities.TramiteAggregate, error) {
	query, args, err := sq.Select("estado", "COUNT(*)").
		From(tramiteTable).
		Where(sq.GtOrEq{"fecha_inicio": from}).
		Where(sq.Lt{"fecha_inicio": to}).
		GroupBy("estado").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, apperrors.NewPersistenceError("агрегаты трамитов", err)
	}

	rows, err := getQuerier(ctx, r.storage).Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewPersistenceError("агрегаты трамитов", err)
	}
	defer rows.Close()

	counts := make(map[entities.Estado]int)
	for rows.Next() {
		var estado entities.Estado
		var n int
		if err := rows.Scan(&estado, &n); err != nil {
			return nil, apperrors.NewPersistenceError("агрегаты трамитов", err)
		}
		counts[estado] = n
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError("агрегаты трамитов", err)
	}

	return BuildAggregate(counts), nil
}

// BuildAggregate собирает агрегат из счётчиков по состояниям.
func BuildAggregate(counts map[entities.Estado]int) *entities.TramiteAggregate {
	agg := &entities.TramiteAggregate{PorEstado: make(map[entities.Estado]int, len(counts))}
	for estado, n := range counts {
		agg.PorEstado[estado] = n
		agg.TotalTramites += n
	}
	if agg.TotalTramites > 0 {
		aprobados := counts[entities.EstadoAprobado] + counts[entities.EstadoCompletado]
		agg.TasaAprobacion = math.Round(float64(aprobados)/float64(agg.TotalTramites)*10000) / 100
	}
	return agg
}
