package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tramite-system/internal/entities"
	apperrors "tramite-system/pkg/errors"
)

const (
	tipoTramiteTable  = "tipos_tramites"
	tipoTramiteFields = "id, codigo, nombre, descripcion, documentos_requeridos, tiempo_estimado_dias, costo, activo, created_at, updated_at"
)

type TipoTramiteRepositoryInterface interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entities.TipoTramite, error)
	FindByCodigo(ctx context.Context, codigo string) (*entities.TipoTramite, error)
	ListActive(ctx context.Context) ([]entities.TipoTramite, error)
	Upsert(ctx context.Context, tipo *entities.TipoTramite) error
}

type tipoTramiteRepository struct {
	storage *pgxpool.Pool
}

func NewTipoTramiteRepository(storage *pgxpool.Pool) TipoTramiteRepositoryInterface {
	return &tipoTramiteRepository{storage: storage}
}

// scanRow - вспомогательная функция для сканирования одной строки из БД.
func (r *tipoTramiteRepository) scanRow(row pgx.Row) (*entities.TipoTramite, error) {
	var t entities.TipoTramite
	err := row.Scan(&t.ID, &t.Codigo, &t.Nombre, &t.Descripcion, &t.DocumentosRequeridos,
		&t.TiempoEstimadoDias, &t.Costo, &t.Activo, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка сканирования строки tipos_tramites: %w", err)
	}
	return &t, nil
}

func (r *tipoTramiteRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.TipoTramite, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", tipoTramiteFields, tipoTramiteTable)
	t, err := r.scanRow(getQuerier(ctx, r.storage).QueryRow(ctx, query, id))
	if err != nil {
		return nil, apperrors.NewPersistenceError("поиск типа трамита", err)
	}
	return t, nil
}

func (r *tipoTramiteRepository) FindByCodigo(ctx context.Context, codigo string) (*entities.TipoTramite, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE codigo = $1", tipoTramiteFields, tipoTramiteTable)
	t, err := r.scanRow(getQuerier(ctx, r.storage).QueryRow(ctx, query, codigo))
	if err != nil {
		return nil, apperrors.NewPersistenceError("поиск типа трамита по коду", err)
	}
	return t, nil
}

func (r *tipoTramiteRepository) ListActive(ctx context.Context) ([]entities.TipoTramite, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE activo = TRUE ORDER BY nombre", tipoTramiteFields, tipoTramiteTable)
	rows, err := getQuerier(ctx, r.storage).Query(ctx, query)
	if err != nil {
		return nil, apperrors.NewPersistenceError("список типов трамитов", err)
	}
	defer rows.Close()

	tipos := make([]entities.TipoTramite, 0)
	for rows.Next() {
		t, err := r.scanRow(rows)
		if err != nil {
			return nil, apperrors.NewPersistenceError("список типов трамитов", err)
		}
		tipos = append(tipos, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError("список типов трамитов", err)
	}
	return tipos, nil
}

// Upsert нужен сидеру: тип ищется по коду, остальные поля перезаписываются.
func (r *tipoTramiteRepository) Upsert(ctx context.Context, t *entities.TipoTramite) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (id, codigo, nombre, descripcion, documentos_requeridos, tiempo_estimado_dias, costo, activo)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (codigo) DO UPDATE SET
			nombre = EXCLUDED.nombre,
			descripcion = EXCLUDED.descripcion,
			documentos_requeridos = EXCLUDED.documentos_requeridos,
			tiempo_estimado_dias = EXCLUDED.tiempo_estimado_dias,
			costo = EXCLUDED.costo,
			activo = EXCLUDED.activo,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`, tipoTramiteTable)

	err := getQuerier(ctx, r.storage).QueryRow(ctx, query,
		t.ID, t.Codigo, t.Nombre, t.Descripcion, t.DocumentosRequeridos, t.TiempoEstimadoDias, t.Costo, t.Activo,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return apperrors.NewPersistenceError("сохранение типа трамита", err)
	}
	return nil
}
