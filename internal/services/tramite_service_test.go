package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"tramite-system/internal/dto"
	"tramite-system/internal/entities"
	"tramite-system/internal/events"
	"tramite-system/pkg/constants"
	apperrors "tramite-system/pkg/errors"
)

type TramiteServiceTestSuite struct {
	suite.Suite
	repo      *fakeTramiteRepo
	publisher *recordingPublisher
	clock     *clock
	svc       *TramiteService

	licencia *entities.TipoTramite
	citizen  entities.Actor
	staff    entities.Actor
}

func (s *TramiteServiceTestSuite) SetupTest() {
	s.repo = newFakeTramiteRepo()
	s.publisher = &recordingPublisher{}
	s.clock = &clock{t: time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)}

	s.licencia = &entities.TipoTramite{
		ID:                   uuid.New(),
		Codigo:               constants.TipoLicenciaConstruccion,
		Nombre:               "Licencia de Construcción",
		DocumentosRequeridos: []string{"Planos arquitectónicos", "Título de propiedad"},
		TiempoEstimadoDias:   30,
		Costo:                150,
		Activo:               true,
	}
	inactivo := &entities.TipoTramite{ID: uuid.New(), Codigo: "permiso_antiguo", TiempoEstimadoDias: 5, Activo: false}

	s.svc = NewTramiteService(s.repo, newFakeTipoRepo(s.licencia, inactivo), &fakeTxManager{repo: s.repo},
		&seqNumeros{}, s.publisher, nil, zap.NewNop())
	s.svc.now = s.clock.Now

	s.citizen = entities.Actor{ID: uuid.New(), Role: constants.RoleCiudadano}
	s.staff = entities.Actor{ID: uuid.New(), Role: constants.RoleAdministrativo}
}

func TestTramiteServiceSuite(t *testing.T) {
	suite.Run(t, new(TramiteServiceTestSuite))
}

func (s *TramiteServiceTestSuite) create() *entities.Tramite {
	numero, err := s.svc.CreateTramite(context.Background(), s.citizen, dto.CreateTramiteDTO{
		TipoCodigo:  constants.TipoLicenciaConstruccion,
		Descripcion: "Ampliación de vivienda unifamiliar",
		Email:       "vecino@example.com",
	}, nil)
	s.Require().NoError(err)
	t, err := s.svc.GetByNumero(context.Background(), numero)
	s.Require().NoError(err)
	return t
}

func (s *TramiteServiceTestSuite) TestCreateTramite_Licencia() {
	t := s.create()

	s.Regexp(regexp.MustCompile(`^TRM-\d{4}-\d{6}$`), t.NumeroTramite)
	s.Equal("TRM-2025-000001", t.NumeroTramite)
	s.Equal(entities.EstadoRecibido, t.Estado)
	s.Equal(entities.PrioridadMedia, t.Prioridad)
	s.True(t.FechaLimite.Valid)
	s.Equal(t.FechaInicio.AddDate(0, 0, 30), t.FechaLimite.Time)
	s.Equal(150.0, t.CostoTotal)
	s.False(t.FechaCompletado.Valid)
	s.Equal("vecino@example.com", t.DatosAdicionales.Email)

	history, err := s.svc.GetHistory(context.Background(), t.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.False(history[0].EstadoAnterior.Valid)
	s.Equal(entities.EstadoRecibido, history[0].EstadoNuevo)
	s.False(history[0].UsuarioID.Valid, "строка создания - системная")
}

func (s *TramiteServiceTestSuite) TestCreateTramite_PersistsSuppliedDocuments() {
	files := map[string]entities.FileRef{
		"Planos arquitectónicos": {NombreArchivo: "planos.pdf", URL: "/uploads/planos.pdf", TipoMime: "application/pdf", TamanoBytes: 2048},
		"Foto de fachada":        {NombreArchivo: "fachada.jpg", URL: "/uploads/fachada.jpg"},
	}
	numero, err := s.svc.CreateTramite(context.Background(), s.citizen, dto.CreateTramiteDTO{
		TipoCodigo:  constants.TipoLicenciaConstruccion,
		Descripcion: "Obra nueva",
	}, files)
	s.Require().NoError(err)

	t, err := s.svc.GetByNumero(context.Background(), numero)
	s.Require().NoError(err)
	docs, err := s.svc.GetDocuments(context.Background(), t.ID)
	s.Require().NoError(err)
	s.Require().Len(docs, 2)

	required := map[string]bool{}
	for _, d := range docs {
		required[d.NombreDocumento] = d.Requerido
		s.Equal(s.citizen.ID, d.SubidoPor)
	}
	s.True(required["Planos arquitectónicos"])
	s.False(required["Foto de fachada"])

	// "Título de propiedad" не загружен: это не ошибка, документ ждёт дозагрузки.
	s.Equal([]string{"Título de propiedad"}, MissingRequiredDocuments(t.TipoTramite, docs))
}

func (s *TramiteServiceTestSuite) TestCreateTramite_UnknownOrInactiveType() {
	for _, codigo := range []string{"no_existe", "permiso_antiguo"} {
		_, err := s.svc.CreateTramite(context.Background(), s.citizen, dto.CreateTramiteDTO{
			TipoCodigo:  codigo,
			Descripcion: "Algo",
		}, nil)
		s.ErrorIs(err, apperrors.ErrUnknownTramiteType, codigo)
	}
	all, _ := s.repo.ListAll(context.Background())
	s.Empty(all)
}

func (s *TramiteServiceTestSuite) TestCreateTramite_EmptyDescription() {
	_, err := s.svc.CreateTramite(context.Background(), s.citizen, dto.CreateTramiteDTO{
		TipoCodigo:  constants.TipoLicenciaConstruccion,
		Descripcion: "   ",
	}, nil)
	var inputErr *apperrors.InvalidInputError
	s.ErrorAs(err, &inputErr)
}

func (s *TramiteServiceTestSuite) TestTransition_FullHappyPath() {
	ctx := context.Background()
	t := s.create()
	path := []entities.Estado{
		entities.EstadoEnRevision,
		entities.EstadoEnProceso,
		entities.EstadoAprobado,
		entities.EstadoCompletado,
	}

	actor := uuid.NullUUID{UUID: s.staff.ID, Valid: true}
	var last *entities.Tramite
	for _, next := range path {
		s.clock.Advance(3 * 24 * time.Hour)
		var err error
		last, err = s.svc.TransitionState(ctx, t.ID, next, "avance", actor)
		s.Require().NoError(err, next)
		s.Require().NoError(last.CheckInvariants())
	}

	s.Equal(entities.EstadoCompletado, last.Estado)
	s.True(last.FechaCompletado.Valid)
	s.Equal(12, last.TiempoResolucionDias.Int)
	s.Equal(actor, last.AsignadoA)

	history, err := s.svc.GetHistory(ctx, t.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 5, "строка создания и четыре перехода")
	for i, next := range path {
		s.Equal(next, history[i+1].EstadoNuevo)
		s.Equal(history[i].EstadoNuevo.String(), history[i+1].EstadoAnterior.String)
		s.Equal(actor, history[i+1].UsuarioID)
	}

	changed := s.publisher.named(events.TramiteStateChangedName)
	s.Require().Len(changed, 4)
	for i, e := range changed {
		ev := e.(events.TramiteStateChangedEvent)
		s.Equal(path[i], ev.To)
		s.Equal(s.citizen.ID, ev.Tramite.UsuarioID)
	}
}

func (s *TramiteServiceTestSuite) TestTransition_DirectToCompletadoRejected() {
	ctx := context.Background()
	t := s.create()

	_, err := s.svc.TransitionState(ctx, t.ID, entities.EstadoCompletado, "", uuid.NullUUID{})
	s.ErrorIs(err, apperrors.ErrInvalidTransition)

	var te *apperrors.InvalidTransitionError
	s.Require().ErrorAs(err, &te)
	s.Equal("recibido", te.From)
	s.Equal("completado", te.To)

	history, _ := s.svc.GetHistory(ctx, t.ID)
	s.Len(history, 1)
	s.Empty(s.publisher.named(events.TramiteStateChangedName))

	stored, _ := s.svc.GetTramite(ctx, t.ID)
	s.Equal(entities.EstadoRecibido, stored.Estado)
	s.False(stored.FechaCompletado.Valid)
}

func (s *TramiteServiceTestSuite) TestTransition_TerminalStatesHaveNoExits() {
	ctx := context.Background()
	t := s.create()
	_, err := s.svc.TransitionState(ctx, t.ID, entities.EstadoEnRevision, "", uuid.NullUUID{})
	s.Require().NoError(err)
	_, err = s.svc.TransitionState(ctx, t.ID, entities.EstadoRechazado, "faltan planos", uuid.NullUUID{})
	s.Require().NoError(err)

	for _, next := range entities.AllEstados {
		_, err := s.svc.TransitionState(ctx, t.ID, next, "", uuid.NullUUID{})
		s.ErrorIs(err, apperrors.ErrInvalidTransition, next)
	}
}

func (s *TramiteServiceTestSuite) TestTransition_UnknownEstadoRejected() {
	t := s.create()
	_, err := s.svc.TransitionState(context.Background(), t.ID, entities.Estado("archivado"), "", uuid.NullUUID{})
	s.ErrorIs(err, apperrors.ErrInvalidTransition)
}

func (s *TramiteServiceTestSuite) TestTransition_AssignOnlyOnFirstAction() {
	ctx := context.Background()
	t := s.create()
	first := uuid.NullUUID{UUID: s.staff.ID, Valid: true}
	second := uuid.NullUUID{UUID: uuid.New(), Valid: true}

	updated, err := s.svc.TransitionState(ctx, t.ID, entities.EstadoEnRevision, "", first)
	s.Require().NoError(err)
	s.Equal(first, updated.AsignadoA)

	updated, err = s.svc.TransitionState(ctx, t.ID, entities.EstadoEnProceso, "", second)
	s.Require().NoError(err)
	s.Equal(first, updated.AsignadoA, "назначение не перезаписывается")
}

func (s *TramiteServiceTestSuite) TestTransition_SystemActorDoesNotAssign() {
	t := s.create()
	updated, err := s.svc.TransitionState(context.Background(), t.ID, entities.EstadoEnRevision, "", uuid.NullUUID{})
	s.Require().NoError(err)
	s.False(updated.AsignadoA.Valid)
}

func (s *TramiteServiceTestSuite) TestTransition_StaleVersionIsConcurrentModification() {
	ctx := context.Background()
	t := s.create()
	stale := t.UpdatedAt.Add(-time.Minute)

	_, err := s.svc.TransitionStateAt(ctx, t.ID, entities.EstadoEnRevision, "", uuid.NullUUID{}, &stale)
	s.ErrorIs(err, apperrors.ErrConcurrentModification)

	history, _ := s.svc.GetHistory(ctx, t.ID)
	s.Len(history, 1)
	s.Empty(s.publisher.named(events.TramiteStateChangedName))

	current := t.UpdatedAt
	_, err = s.svc.TransitionStateAt(ctx, t.ID, entities.EstadoEnRevision, "", uuid.NullUUID{}, &current)
	s.NoError(err)
}

func (s *TramiteServiceTestSuite) TestTransition_NotFound() {
	_, err := s.svc.TransitionState(context.Background(), uuid.New(), entities.EstadoEnRevision, "", uuid.NullUUID{})
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *TramiteServiceTestSuite) TestTransition_PersistenceErrorPropagatesAndRollsBack() {
	ctx := context.Background()
	t := s.create()
	s.repo.failUpdate = apperrors.NewPersistenceError("обновление трамита", assert.AnError)

	_, err := s.svc.TransitionState(ctx, t.ID, entities.EstadoEnRevision, "", uuid.NullUUID{})
	var pe *apperrors.PersistenceError
	s.ErrorAs(err, &pe)

	history, _ := s.svc.GetHistory(ctx, t.ID)
	s.Len(history, 1)
	s.Empty(s.publisher.named(events.TramiteStateChangedName))
}

func (s *TramiteServiceTestSuite) TestAddComment_StaffOnForeignTramiteNotifiesOwner() {
	ctx := context.Background()
	t := s.create()

	_, err := s.svc.AddComment(ctx, t.ID, s.staff, "Falta la firma del arquitecto", entities.ComentarioTipoObservacion, true)
	s.Require().NoError(err)
	s.Len(s.publisher.named(events.TramiteCommentAddedName), 1)

	_, err = s.svc.AddComment(ctx, t.ID, s.citizen, "Ya la adjunté", "", true)
	s.Require().NoError(err)
	s.Len(s.publisher.named(events.TramiteCommentAddedName), 1, "комментарий владельца не уведомляет")

	comments, err := s.svc.GetComments(ctx, t.ID, false)
	s.Require().NoError(err)
	s.Require().Len(comments, 2)
	s.Equal(entities.ComentarioTipoComentario, comments[1].Tipo)
}

func (s *TramiteServiceTestSuite) TestAddComment_PrivateHiddenFromPublicListing() {
	ctx := context.Background()
	t := s.create()
	_, err := s.svc.AddComment(ctx, t.ID, s.staff, "nota interna", entities.ComentarioTipoObservacion, false)
	s.Require().NoError(err)

	public, err := s.svc.GetComments(ctx, t.ID, true)
	s.Require().NoError(err)
	s.Empty(public)
}

func (s *TramiteServiceTestSuite) TestAddComment_Validation() {
	t := s.create()
	_, err := s.svc.AddComment(context.Background(), t.ID, s.staff, "  ", "", true)
	s.Error(err)
	_, err = s.svc.AddComment(context.Background(), t.ID, s.staff, "hola", entities.ComentarioTipo("queja"), true)
	s.Error(err)
}

func (s *TramiteServiceTestSuite) TestAddDocument_DoesNotChangeEstado() {
	ctx := context.Background()
	t := s.create()

	doc, err := s.svc.AddDocument(ctx, t.ID, "Título de propiedad",
		entities.FileRef{NombreArchivo: "titulo.pdf", URL: "/uploads/titulo.pdf"}, s.citizen.ID, true)
	s.Require().NoError(err)
	s.True(doc.Requerido)
	s.False(doc.Aprobado)

	stored, _ := s.svc.GetTramite(ctx, t.ID)
	s.Equal(entities.EstadoRecibido, stored.Estado)
	s.Empty(s.publisher.named(events.TramiteStateChangedName))
}

func (s *TramiteServiceTestSuite) TestRequestDocument() {
	ctx := context.Background()
	t := s.create()

	s.Require().NoError(s.svc.RequestDocument(ctx, t.ID, "Certificado de zonificación"))
	requested := s.publisher.named(events.DocumentRequestedName)
	s.Require().Len(requested, 1)
	s.Equal("Certificado de zonificación", requested[0].(events.DocumentRequestedEvent).NombreDocumento)

	s.ErrorIs(s.svc.RequestDocument(ctx, uuid.New(), "x"), apperrors.ErrNotFound)
}

func (s *TramiteServiceTestSuite) TestApplyPriority_NoHistoryNoEvent() {
	ctx := context.Background()
	t := s.create()

	s.Require().NoError(s.svc.ApplyPriority(ctx, t.ID, entities.PrioridadAlta))
	stored, _ := s.svc.GetTramite(ctx, t.ID)
	s.Equal(entities.PrioridadAlta, stored.Prioridad)

	history, _ := s.svc.GetHistory(ctx, t.ID)
	s.Len(history, 1)
	s.Empty(s.publisher.events)
	s.Error(s.svc.ApplyPriority(ctx, t.ID, entities.Prioridad("critica")))
}

// Для любой допустимой последовательности completado достигается только через aprobado.
func TestTramiteService_CompletadoOnlyThroughAprobado(t *testing.T) {
	var walk func(path []entities.Estado)
	walk = func(path []entities.Estado) {
		last := path[len(path)-1]
		if last == entities.EstadoCompletado {
			require.GreaterOrEqual(t, len(path), 2)
			assert.Equal(t, entities.EstadoAprobado, path[len(path)-2], path)
			return
		}
		if len(path) > 12 {
			return
		}
		for _, next := range last.AllowedTransitions() {
			walk(append(append([]entities.Estado{}, path...), next))
		}
	}
	walk([]entities.Estado{entities.EstadoRecibido})
}
