package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tramite-system/internal/entities"
	"tramite-system/internal/repositories"
	apperrors "tramite-system/pkg/errors"
	"tramite-system/pkg/eventbus"
)

// fakeTramiteRepo - хранилище в памяти с той же семантикой ошибок, что у pgx-реализации.
type fakeTramiteRepo struct {
	mu          sync.Mutex
	tramites    map[uuid.UUID]entities.Tramite
	history     []entities.HistorialTramite
	comments    []entities.Comentario
	documents   []entities.Documento
	tipos       map[uuid.UUID]*entities.TipoTramite
	failUpdate  error
	failListing error
}

func newFakeTramiteRepo() *fakeTramiteRepo {
	return &fakeTramiteRepo{
		tramites: make(map[uuid.UUID]entities.Tramite),
		tipos:    make(map[uuid.UUID]*entities.TipoTramite),
	}
}

type fakeSnapshot struct {
	tramites  map[uuid.UUID]entities.Tramite
	history   int
	comments  int
	documents int
}

func (r *fakeTramiteRepo) snapshot() fakeSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	copyMap := make(map[uuid.UUID]entities.Tramite, len(r.tramites))
	for k, v := range r.tramites {
		copyMap[k] = v
	}
	return fakeSnapshot{tramites: copyMap, history: len(r.history), comments: len(r.comments), documents: len(r.documents)}
}

func (r *fakeTramiteRepo) restore(s fakeSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tramites = s.tramites
	r.history = r.history[:s.history]
	r.comments = r.comments[:s.comments]
	r.documents = r.documents[:s.documents]
}

// put кладёт трамит напрямую, минуя сервис.
func (r *fakeTramiteRepo) put(t entities.Tramite) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.TipoTramite != nil {
		r.tipos[t.TipoTramiteID] = t.TipoTramite
	}
	r.tramites[t.ID] = t
}

func (r *fakeTramiteRepo) Create(ctx context.Context, t *entities.Tramite) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.tramites {
		if existing.NumeroTramite == t.NumeroTramite {
			return apperrors.NewPersistenceError("создание трамита", errors.New("duplicate numero"))
		}
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = t.FechaInicio
	t.UpdatedAt = t.FechaInicio
	if t.TipoTramite != nil {
		r.tipos[t.TipoTramiteID] = t.TipoTramite
	}
	r.tramites[t.ID] = *t
	return nil
}

func (r *fakeTramiteRepo) withTipo(t entities.Tramite) entities.Tramite {
	if tipo, ok := r.tipos[t.TipoTramiteID]; ok {
		t.TipoTramite = tipo
	}
	return t
}

func (r *fakeTramiteRepo) FindByID(ctx context.Context, id uuid.UUID) (*entities.Tramite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tramites[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	t = r.withTipo(t)
	return &t, nil
}

func (r *fakeTramiteRepo) FindByNumero(ctx context.Context, numero string) (*entities.Tramite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tramites {
		if t.NumeroTramite == numero {
			t = r.withTipo(t)
			return &t, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeTramiteRepo) filter(keep func(t entities.Tramite) bool) []entities.Tramite {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entities.Tramite, 0)
	for _, t := range r.tramites {
		if keep(t) {
			out = append(out, r.withTipo(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FechaInicio.Before(out[j].FechaInicio) })
	return out
}

func (r *fakeTramiteRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]entities.Tramite, error) {
	return r.filter(func(t entities.Tramite) bool { return t.UsuarioID == userID }), nil
}

func (r *fakeTramiteRepo) ListAll(ctx context.Context) ([]entities.Tramite, error) {
	return r.filter(func(entities.Tramite) bool { return true }), nil
}

func (r *fakeTramiteRepo) ListOpen(ctx context.Context) ([]entities.Tramite, error) {
	if r.failListing != nil {
		return nil, r.failListing
	}
	return r.filter(func(t entities.Tramite) bool { return !t.Estado.IsTerminal() }), nil
}

func (r *fakeTramiteRepo) Update(ctx context.Context, id uuid.UUID, patch entities.TramitePatch) (*entities.Tramite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpdate != nil {
		return nil, r.failUpdate
	}
	t, ok := r.tramites[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if patch.ExpectedUpdatedAt != nil && !patch.ExpectedUpdatedAt.Equal(t.UpdatedAt) {
		return nil, apperrors.ErrConcurrentModification
	}
	t = patch.Apply(t, t.UpdatedAt.Add(time.Millisecond))
	r.tramites[id] = t
	t = r.withTipo(t)
	return &t, nil
}

func (r *fakeTramiteRepo) Search(ctx context.Context, f entities.TramiteFilter) ([]entities.Tramite, uint64, error) {
	list := r.filter(func(t entities.Tramite) bool {
		return f.Estado == nil || t.Estado == *f.Estado
	})
	return list, uint64(len(list)), nil
}

func (r *fakeTramiteRepo) AppendHistory(ctx context.Context, e *entities.HistorialTramite) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.ID = uuid.New()
	r.history = append(r.history, *e)
	return nil
}

func (r *fakeTramiteRepo) AppendComment(ctx context.Context, c *entities.Comentario) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.comments = append(r.comments, *c)
	return nil
}

func (r *fakeTramiteRepo) AppendDocument(ctx context.Context, d *entities.Documento) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.documents = append(r.documents, *d)
	return nil
}

func (r *fakeTramiteRepo) FindHistory(ctx context.Context, id uuid.UUID) ([]entities.HistorialTramite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entities.HistorialTramite, 0)
	for _, h := range r.history {
		if h.TramiteID == id {
			out = append(out, h)
		}
	}
	return out, nil
}

func (r *fakeTramiteRepo) FindComments(ctx context.Context, id uuid.UUID, publicOnly bool) ([]entities.Comentario, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entities.Comentario, 0)
	for _, c := range r.comments {
		if c.TramiteID == id && (!publicOnly || c.Publico) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeTramiteRepo) FindDocuments(ctx context.Context, id uuid.UUID) ([]entities.Documento, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entities.Documento, 0)
	for _, d := range r.documents {
		if d.TramiteID == id {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeTramiteRepo) ListByFechaInicio(ctx context.Context, from, to time.Time) ([]entities.Tramite, error) {
	if r.failListing != nil {
		return nil, r.failListing
	}
	return r.filter(func(t entities.Tramite) bool {
		return !t.FechaInicio.Before(from) && t.FechaInicio.Before(to)
	}), nil
}

func (r *fakeTramiteRepo) ListCompletedBetween(ctx context.Context, from, to time.Time) ([]entities.Tramite, error) {
	return r.filter(func(t entities.Tramite) bool {
		return t.Estado == entities.EstadoCompletado && t.FechaCompletado.Valid &&
			!t.FechaCompletado.Time.Before(from) && t.FechaCompletado.Time.Before(to)
	}), nil
}

func (r *fakeTramiteRepo) CountByFechaInicio(ctx context.Context, from, to time.Time) (int, error) {
	list, _ := r.ListByFechaInicio(ctx, from, to)
	return len(list), nil
}

func (r *fakeTramiteRepo) GetAggregate(ctx context.Context, from, to time.Time) (*entities.TramiteAggregate, error) {
	list, err := r.ListByFechaInicio(ctx, from, to)
	if err != nil {
		return nil, err
	}
	counts := make(map[entities.Estado]int)
	for _, t := range list {
		counts[t.Estado]++
	}
	return repositories.BuildAggregate(counts), nil
}

// fakeTxManager откатывает изменения фейкового хранилища, если fn вернула ошибку.
type fakeTxManager struct {
	repo *fakeTramiteRepo
}

func (m *fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	snap := m.repo.snapshot()
	if err := fn(ctx); err != nil {
		m.repo.restore(snap)
		return err
	}
	return nil
}

type fakeTipoRepo struct {
	tipos map[string]*entities.TipoTramite
}

func newFakeTipoRepo(tipos ...*entities.TipoTramite) *fakeTipoRepo {
	r := &fakeTipoRepo{tipos: make(map[string]*entities.TipoTramite)}
	for _, t := range tipos {
		r.tipos[t.Codigo] = t
	}
	return r
}

func (r *fakeTipoRepo) FindByID(ctx context.Context, id uuid.UUID) (*entities.TipoTramite, error) {
	for _, t := range r.tipos {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeTipoRepo) FindByCodigo(ctx context.Context, codigo string) (*entities.TipoTramite, error) {
	t, ok := r.tipos[codigo]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return t, nil
}

func (r *fakeTipoRepo) ListActive(ctx context.Context) ([]entities.TipoTramite, error) {
	out := make([]entities.TipoTramite, 0)
	for _, t := range r.tipos {
		if t.Activo {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *fakeTipoRepo) Upsert(ctx context.Context, t *entities.TipoTramite) error {
	r.tipos[t.Codigo] = t
	return nil
}

// recordingPublisher запоминает события вместо шины.
type recordingPublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event eventbus.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) named(name string) []eventbus.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []eventbus.Event
	for _, e := range p.events {
		if e.Name() == name {
			out = append(out, e)
		}
	}
	return out
}

type seqNumeros struct {
	mu  sync.Mutex
	seq int64
}

func (g *seqNumeros) Next(ctx context.Context, now time.Time) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return entities.FormatNumero(now.Year(), g.seq), nil
}

type fakeMetricRepo struct {
	mu       sync.Mutex
	metricas []entities.Metrica
	failTipo string
}

func (r *fakeMetricRepo) Insert(ctx context.Context, m *entities.Metrica) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failTipo != "" && m.TipoMetrica == r.failTipo {
		return apperrors.NewPersistenceError("запись метрики", errors.New("connection reset"))
	}
	m.ID = uuid.New()
	r.metricas = append(r.metricas, *m)
	return nil
}

func (r *fakeMetricRepo) Query(ctx context.Context, f entities.MetricFilter) ([]entities.Metrica, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entities.Metrica, 0)
	for _, m := range r.metricas {
		if f.TipoMetrica != "" && m.TipoMetrica != f.TipoMetrica {
			continue
		}
		if f.Desde != nil && m.Fecha.Before(*f.Desde) {
			continue
		}
		if f.Hasta != nil && m.Fecha.After(*f.Hasta) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *fakeMetricRepo) byTipo(tipo string) []entities.Metrica {
	list, _ := r.Query(context.Background(), entities.MetricFilter{TipoMetrica: tipo})
	return list
}

// clock - управляемое время для сервисов.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
