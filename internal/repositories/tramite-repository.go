package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"tramite-system/internal/entities"
	apperrors "tramite-system/pkg/errors"
)

const tramiteTable = "tramites"

var tramiteColumns = []string{
	"t.id", "t.numero_tramite", "t.usuario_id", "t.tipo_tramite_id", "t.estado", "t.prioridad",
	"t.descripcion", "t.direccion_tramite", "t.datos_adicionales", "t.asignado_a",
	"t.fecha_inicio", "t.fecha_limite", "t.fecha_completado", "t.tiempo_resolucion_dias",
	"t.costo_total", "t.observaciones", "t.created_at", "t.updated_at",
	"tt.id", "tt.codigo", "tt.nombre", "tt.descripcion", "tt.documentos_requeridos",
	"tt.tiempo_estimado_dias", "tt.costo", "tt.activo", "tt.created_at", "tt.updated_at",
}

// TramiteRepositoryInterface - хранилище трамитов и их дочерних записей (история, комментарии, документы).
// Все методы подхватывают транзакцию из контекста, если она открыта через TxManager.
type TramiteRepositoryInterface interface {
	Create(ctx context.Context, tramite *entities.Tramite) error
	FindByID(ctx context.Context, id uuid.UUID) (*entities.Tramite, error)
	FindByNumero(ctx context.Context, numero string) (*entities.Tramite, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]entities.Tramite, error)
	ListAll(ctx context.Context) ([]entities.Tramite, error)
	ListOpen(ctx context.Context) ([]entities.Tramite, error)
	Update(ctx context.Context, id uuid.UUID, patch entities.TramitePatch) (*entities.Tramite, error)
	Search(ctx context.Context, filter entities.TramiteFilter) ([]entities.Tramite, uint64, error)

	AppendHistory(ctx context.Context, entry *entities.HistorialTramite) error
	AppendComment(ctx context.Context, comment *entities.Comentario) error
	AppendDocument(ctx context.Context, doc *entities.Documento) error
	FindHistory(ctx context.Context, tramiteID uuid.UUID) ([]entities.HistorialTramite, error)
	FindComments(ctx context.Context, tramiteID uuid.UUID, publicOnly bool) ([]entities.Comentario, error)
	FindDocuments(ctx context.Context, tramiteID uuid.UUID) ([]entities.Documento, error)

	ListByFechaInicio(ctx context.Context, from, to time.Time) ([]entities.Tramite, error)
	ListCompletedBetween(ctx context.Context, from, to time.Time) ([]entities.Tramite, error)
	CountByFechaInicio(ctx context.Context, from, to time.Time) (int, error)
	GetAggregate(ctx context.Context, from, to time.Time) (*entities.TramiteAggregate, error)
}

type TramiteRepository struct {
	storage *pgxpool.Pool
}

func NewTramiteRepository(storage *pgxpool.Pool) TramiteRepositoryInterface {
	return &TramiteRepository{storage: storage}
}

func (r *TramiteRepository) selectBuilder() sq.SelectBuilder {
	return sq.Select(tramiteColumns...).
		From(tramiteTable + " t").
		Join("tipos_tramites tt ON tt.id = t.tipo_tramite_id").
		PlaceholderFormat(sq.Dollar)
}

func (r *TramiteRepository) scanRow(row pgx.Row) (*entities.Tramite, error) {
	var t entities.Tramite
	var tipo entities.TipoTramite
	err := row.Scan(
		&t.ID, &t.NumeroTramite, &t.UsuarioID, &t.TipoTramiteID, &t.Estado, &t.Prioridad,
		&t.Descripcion, &t.DireccionTramite, &t.DatosAdicionales, &t.AsignadoA,
		&t.FechaInicio, &t.FechaLimite, &t.FechaCompletado, &t.TiempoResolucionDias,
		&t.CostoTotal, &t.Observaciones, &t.CreatedAt, &t.UpdatedAt,
		&tipo.ID, &tipo.Codigo, &tipo.Nombre, &tipo.Descripcion, &tipo.DocumentosRequeridos,
		&tipo.TiempoEstimadoDias, &tipo.Costo, &tipo.Activo, &tipo.CreatedAt, &tipo.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка сканирования трамита: %w", err)
	}
	t.TipoTramite = &tipo
	return &t, nil
}

func (r *TramiteRepository) queryOne(ctx context.Context, op string, b sq.SelectBuilder) (*entities.Tramite, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса %s: %w", op, err)
	}
	t, err := r.scanRow(getQuerier(ctx, r.storage).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, apperrors.NewPersistenceError(op, err)
	}
	return t, nil
}

func (r *TramiteRepository) queryMany(ctx context.Context, op string, b sq.SelectBuilder) ([]entities.Tramite, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса %s: %w", op, err)
	}
	rows, err := getQuerier(ctx, r.storage).Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewPersistenceError(op, err)
	}
	defer rows.Close()

	tramites := make([]entities.Tramite, 0)
	for rows.Next() {
		t, err := r.scanRow(rows)
		if err != nil {
			return nil, apperrors.NewPersistenceError(op, err)
		}
		tramites = append(tramites, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError(op, err)
	}
	return tramites, nil
}

// Create сохраняет трамит. ID генерируется здесь, если не задан; created_at/updated_at берутся из БД.
func (r *TramiteRepository) Create(ctx context.Context, t *entities.Tramite) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	query, args, err := sq.Insert(tramiteTable).
		Columns("id", "numero_tramite", "usuario_id", "tipo_tramite_id", "estado", "prioridad",
			"descripcion", "direccion_tramite", "datos_adicionales", "asignado_a",
			"fecha_inicio", "fecha_limite", "costo_total", "observaciones").
		Values(t.ID, t.NumeroTramite, t.UsuarioID, t.TipoTramiteID, string(t.Estado), string(t.Prioridad),
			t.Descripcion, t.DireccionTramite, t.DatosAdicionales, t.AsignadoA,
			t.FechaInicio, t.FechaLimite, t.CostoTotal, t.Observaciones).
		Suffix("RETURNING created_at, updated_at").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("ошибка сборки запроса создания трамита: %w", err)
	}

	err = getQuerier(ctx, r.storage).QueryRow(ctx, query, args...).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.NewPersistenceError("создание трамита", fmt.Errorf("номер %s уже занят: %w", t.NumeroTramite, err))
		}
		return apperrors.NewPersistenceError("создание трамита", err)
	}
	return nil
}

func (r *TramiteRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.Tramite, error) {
	return r.queryOne(ctx, "поиск трамита по id", r.selectBuilder().Where(sq.Eq{"t.id": id}))
}

func (r *TramiteRepository) FindByNumero(ctx context.Context, numero string) (*entities.Tramite, error) {
	return r.queryOne(ctx, "поиск трамита по номеру", r.selectBuilder().Where(sq.Eq{"t.numero_tramite": numero}))
}

func (r *TramiteRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]entities.Tramite, error) {
	return r.queryMany(ctx, "список трамитов пользователя",
		r.selectBuilder().Where(sq.Eq{"t.usuario_id": userID}).OrderBy("t.fecha_inicio DESC"))
}

func (r *TramiteRepository) ListAll(ctx context.Context) ([]entities.Tramite, error) {
	return r.queryMany(ctx, "список трамитов", r.selectBuilder().OrderBy("t.fecha_inicio DESC"))
}

// ListOpen - все трамиты в нетерминальных состояниях.
func (r *TramiteRepository) ListOpen(ctx context.Context) ([]entities.Tramite, error) {
	return r.queryMany(ctx, "список открытых трамитов",
		r.selectBuilder().
			Where(sq.NotEq{"t.estado": []string{string(entities.EstadoCompletado), string(entities.EstadoRechazado)}}).
			OrderBy("t.fecha_inicio ASC"))
}

// Update применяет патч. При заданном ExpectedUpdatedAt обновление проходит, только если
// запись не менялась с момента чтения, иначе ErrConcurrentModification.
func (r *TramiteRepository) Update(ctx context.Context, id uuid.UUID, patch entities.TramitePatch) (*entities.Tramite, error) {
	if patch.IsEmpty() {
		return r.FindByID(ctx, id)
	}

	b := sq.Update(tramiteTable).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar)

	if patch.Estado != nil {
		b = b.Set("estado", string(*patch.Estado))
	}
	if patch.Prioridad != nil {
		b = b.Set("prioridad", string(*patch.Prioridad))
	}
	if patch.AsignadoA.Valid {
		b = b.Set("asignado_a", patch.AsignadoA)
	}
	if patch.Observaciones.Valid {
		b = b.Set("observaciones", patch.Observaciones)
	}
	if patch.FechaCompletado.Valid {
		b = b.Set("fecha_completado", patch.FechaCompletado)
	}
	if patch.TiempoResolucionDias.Valid {
		b = b.Set("tiempo_resolucion_dias", patch.TiempoResolucionDias)
	}
	if patch.ExpectedUpdatedAt != nil {
		b = b.Where(sq.Eq{"updated_at": *patch.ExpectedUpdatedAt})
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса обновления трамита: %w", err)
	}

	q := getQuerier(ctx, r.storage)
	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewPersistenceError("обновление трамита", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tramites WHERE id = $1)`, id).Scan(&exists); err != nil {
			return nil, apperrors.NewPersistenceError("обновление трамита", err)
		}
		if !exists {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.ErrConcurrentModification
	}

	return r.FindByID(ctx, id)
}

// Search - поиск по номеру/описанию и точным фильтрам с пагинацией.
func (r *TramiteRepository) Search(ctx context.Context, f entities.TramiteFilter) ([]entities.Tramite, uint64, error) {
	where := sq.And{}
	if f.Termino != "" {
		like := "%" + f.Termino + "%"
		where = append(where, sq.Or{sq.ILike{"t.numero_tramite": like}, sq.ILike{"t.descripcion": like}})
	}
	if f.Estado != nil {
		where = append(where, sq.Eq{"t.estado": string(*f.Estado)})
	}
	if f.TipoTramiteID != nil {
		where = append(where, sq.Eq{"t.tipo_tramite_id": *f.TipoTramiteID})
	}
	if f.Prioridad != nil {
		where = append(where, sq.Eq{"t.prioridad": string(*f.Prioridad)})
	}
	if f.FechaDesde != nil {
		where = append(where, sq.GtOrEq{"t.fecha_inicio": *f.FechaDesde})
	}
	if f.FechaHasta != nil {
		where = append(where, sq.Lt{"t.fecha_inicio": *f.FechaHasta})
	}

	countQuery, countArgs, err := sq.Select("COUNT(*)").
		From(tramiteTable + " t").
		Where(where).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка сборки запроса подсчёта: %w", err)
	}
	var total uint64
	if err := getQuerier(ctx, r.storage).QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, apperrors.NewPersistenceError("подсчёт трамитов", err)
	}
	if total == 0 {
		return []entities.Tramite{}, 0, nil
	}

	b := r.selectBuilder().Where(where).OrderBy("t.fecha_inicio DESC")
	if f.Limit > 0 {
		b = b.Limit(f.Limit).Offset(f.Offset)
	}
	tramites, err := r.queryMany(ctx, "поиск трамитов", b)
	if err != nil {
		return nil, 0, err
	}
	return tramites, total, nil
}
