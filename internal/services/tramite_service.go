package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"tramite-system/internal/dto"
	"tramite-system/internal/entities"
	"tramite-system/internal/events"
	"tramite-system/internal/metrics"
	"tramite-system/internal/repositories"
	apperrors "tramite-system/pkg/errors"
	"tramite-system/pkg/eventbus"
	"tramite-system/pkg/utils"
)

type TramiteServiceInterface interface {
	CreateTramite(ctx context.Context, actor entities.Actor, in dto.CreateTramiteDTO, files map[string]entities.FileRef) (string, error)
	TransitionState(ctx context.Context, tramiteID uuid.UUID, nuevo entities.Estado, comentario string, actorID uuid.NullUUID) (*entities.Tramite, error)
	TransitionStateAt(ctx context.Context, tramiteID uuid.UUID, nuevo entities.Estado, comentario string, actorID uuid.NullUUID, expectedUpdatedAt *time.Time) (*entities.Tramite, error)
	AddComment(ctx context.Context, tramiteID uuid.UUID, author entities.Actor, contenido string, tipo entities.ComentarioTipo, publico bool) (*entities.Comentario, error)
	AddDocument(ctx context.Context, tramiteID uuid.UUID, nombre string, file entities.FileRef, uploaderID uuid.UUID, requerido bool) (*entities.Documento, error)
	RequestDocument(ctx context.Context, tramiteID uuid.UUID, nombreDocumento string) error
	ApplyPriority(ctx context.Context, tramiteID uuid.UUID, p entities.Prioridad) error

	GetTramite(ctx context.Context, id uuid.UUID) (*entities.Tramite, error)
	GetByNumero(ctx context.Context, numero string) (*entities.Tramite, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]entities.Tramite, error)
	ListAll(ctx context.Context) ([]entities.Tramite, error)
	ListOpen(ctx context.Context) ([]entities.Tramite, error)
	Search(ctx context.Context, filter entities.TramiteFilter) ([]entities.Tramite, uint64, error)
	GetHistory(ctx context.Context, id uuid.UUID) ([]entities.HistorialTramite, error)
	GetComments(ctx context.Context, id uuid.UUID, publicOnly bool) ([]entities.Comentario, error)
	GetDocuments(ctx context.Context, id uuid.UUID) ([]entities.Documento, error)
}

// TramiteService - движок жизненного цикла. Пишет только через репозитории, уведомления
// отправляет событиями после фиксации изменений.
type TramiteService struct {
	tramiteRepo repositories.TramiteRepositoryInterface
	tipoRepo    repositories.TipoTramiteRepositoryInterface
	txManager   repositories.TxManagerInterface
	numeros     NumeroGeneratorInterface
	publisher   eventbus.Publisher
	metrics     *metrics.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

func NewTramiteService(
	tramiteRepo repositories.TramiteRepositoryInterface,
	tipoRepo repositories.TipoTramiteRepositoryInterface,
	txManager repositories.TxManagerInterface,
	numeros NumeroGeneratorInterface,
	publisher eventbus.Publisher,
	m *metrics.Metrics,
	logger *zap.Logger,
) *TramiteService {
	return &TramiteService{
		tramiteRepo: tramiteRepo,
		tipoRepo:    tipoRepo,
		txManager:   txManager,
		numeros:     numeros,
		publisher:   publisher,
		metrics:     m,
		logger:      logger,
		now:         time.Now,
	}
}

// CreateTramite регистрирует новую заявку в состоянии recibido и возвращает её номер.
// Обязательные документы, которых нет в files, считаются ещё не загруженными.
func (s *TramiteService) CreateTramite(ctx context.Context, actor entities.Actor, in dto.CreateTramiteDTO, files map[string]entities.FileRef) (string, error) {
	if strings.TrimSpace(in.Descripcion) == "" {
		return "", apperrors.NewInvalidInputError("описание трамита не может быть пустым")
	}

	tipo, err := s.tipoRepo.FindByCodigo(ctx, in.TipoCodigo)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", apperrors.ErrUnknownTramiteType
		}
		return "", err
	}
	if !tipo.Activo {
		return "", apperrors.ErrUnknownTramiteType
	}

	now := s.now()
	numero, err := s.numeros.Next(ctx, now)
	if err != nil {
		return "", err
	}

	tramite := &entities.Tramite{
		ID:            uuid.New(),
		NumeroTramite: numero,
		UsuarioID:     actor.ID,
		TipoTramiteID: tipo.ID,
		Estado:        entities.EstadoRecibido,
		Prioridad:     entities.PrioridadMedia,
		Descripcion:   strings.TrimSpace(in.Descripcion),
		DatosAdicionales: entities.DatosAdicionales{
			Telefono: in.Telefono,
			Email:    in.Email,
			Urgencia: in.Urgencia,
		},
		FechaInicio: now,
		FechaLimite: null.TimeFrom(now.AddDate(0, 0, tipo.TiempoEstimadoDias)),
		CostoTotal:  tipo.Costo,
		TipoTramite: tipo,
	}
	if in.Direccion != "" {
		tramite.DireccionTramite = null.StringFrom(in.Direccion)
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.tramiteRepo.Create(ctx, tramite); err != nil {
			return err
		}

		if err := s.tramiteRepo.AppendHistory(ctx, &entities.HistorialTramite{
			TramiteID:   tramite.ID,
			EstadoNuevo: entities.EstadoRecibido,
			Comentario:  null.StringFrom("Trámite creado"),
			FechaCambio: now,
		}); err != nil {
			return err
		}

		for nombre, file := range files {
			doc := newDocumento(tramite.ID, nombre, file, actor.ID, tipo.RequiresDocument(nombre), now)
			if err := s.tramiteRepo.AppendDocument(ctx, doc); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Не удалось создать трамит", zap.String("numero", numero), zap.Error(err))
		return "", err
	}

	s.metrics.IncCreated(tipo.Codigo)
	s.logger.Info("Трамит создан",
		zap.String("numero", numero),
		zap.String("tipo", tipo.Codigo),
		zap.Int("documentos", len(files)))
	return numero, nil
}

// TransitionState переводит трамит в новое состояние без проверки версии.
func (s *TramiteService) TransitionState(ctx context.Context, tramiteID uuid.UUID, nuevo entities.Estado, comentario string, actorID uuid.NullUUID) (*entities.Tramite, error) {
	return s.TransitionStateAt(ctx, tramiteID, nuevo, comentario, actorID, nil)
}

// TransitionStateAt проверяет ребро по таблице переходов, пишет состояние и строку истории
// одной транзакцией и только после фиксации публикует уведомление.
// expectedUpdatedAt, если задан, должен совпасть с версией трамита, иначе ErrConcurrentModification.
func (s *TramiteService) TransitionStateAt(
	ctx context.Context,
	tramiteID uuid.UUID,
	nuevo entities.Estado,
	comentario string,
	actorID uuid.NullUUID,
	expectedUpdatedAt *time.Time,
) (*entities.Tramite, error) {
	var (
		updated *entities.Tramite
		from    entities.Estado
	)

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		current, err := s.tramiteRepo.FindByID(ctx, tramiteID)
		if err != nil {
			return err
		}
		from = current.Estado

		if !nuevo.Valid() || !from.CanTransitionTo(nuevo) {
			return apperrors.NewInvalidTransitionError(from.String(), nuevo.String())
		}

		version := current.UpdatedAt
		if expectedUpdatedAt != nil {
			version = *expectedUpdatedAt
		}

		now := s.now()
		patch := entities.TramitePatch{
			Estado:            &nuevo,
			ExpectedUpdatedAt: &version,
		}
		if nuevo == entities.EstadoCompletado {
			patch.FechaCompletado = null.TimeFrom(now)
			patch.TiempoResolucionDias = null.IntFrom(utils.WholeDays(current.FechaInicio, now))
		}
		if actorID.Valid && !current.AsignadoA.Valid {
			patch.AsignadoA = actorID
		}
		if comentario != "" {
			patch.Observaciones = null.StringFrom(comentario)
		}

		updated, err = s.tramiteRepo.Update(ctx, tramiteID, patch)
		if err != nil {
			return err
		}
		if err := updated.CheckInvariants(); err != nil {
			return apperrors.NewPersistenceError("проверка инвариантов", err)
		}

		entry := &entities.HistorialTramite{
			TramiteID:      tramiteID,
			EstadoAnterior: null.StringFrom(from.String()),
			EstadoNuevo:    nuevo,
			UsuarioID:      actorID,
			FechaCambio:    now,
		}
		if comentario != "" {
			entry.Comentario = null.StringFrom(comentario)
		}
		return s.tramiteRepo.AppendHistory(ctx, entry)
	})
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidTransition):
			s.metrics.IncRejectedTransition("invalid_transition")
		case errors.Is(err, apperrors.ErrConcurrentModification):
			s.metrics.IncRejectedTransition("concurrent_modification")
		}
		s.logger.Warn("Переход отклонён",
			zap.String("tramite_id", tramiteID.String()),
			zap.String("estado", nuevo.String()),
			zap.Error(err))
		return nil, err
	}

	s.metrics.IncTransition(from.String(), nuevo.String())
	s.logger.Info("Состояние трамита изменено",
		zap.String("numero", updated.NumeroTramite),
		zap.String("from", from.String()),
		zap.String("to", nuevo.String()))

	s.publisher.Publish(ctx, events.TramiteStateChangedEvent{
		Tramite:    *updated,
		From:       from,
		To:         nuevo,
		Actor:      actorID,
		Comentario: comentario,
	})
	return updated, nil
}

// AddComment добавляет комментарий. Комментарий сотрудника в чужом трамите уведомляет владельца.
func (s *TramiteService) AddComment(ctx context.Context, tramiteID uuid.UUID, author entities.Actor, contenido string, tipo entities.ComentarioTipo, publico bool) (*entities.Comentario, error) {
	contenido = strings.TrimSpace(contenido)
	if contenido == "" {
		return nil, apperrors.NewInvalidInputError("комментарий не может быть пустым")
	}
	if tipo == "" {
		tipo = entities.ComentarioTipoComentario
	}
	if !tipo.Valid() {
		return nil, apperrors.NewInvalidInputError("неизвестный тип комментария: %s", tipo)
	}

	tramite, err := s.tramiteRepo.FindByID(ctx, tramiteID)
	if err != nil {
		return nil, err
	}

	comment := &entities.Comentario{
		ID:              uuid.New(),
		TramiteID:       tramiteID,
		UsuarioID:       author.ID,
		Contenido:       contenido,
		Tipo:            tipo,
		Publico:         publico,
		FechaComentario: s.now(),
	}
	if err := s.tramiteRepo.AppendComment(ctx, comment); err != nil {
		return nil, err
	}

	if author.IsStaff() && author.ID != tramite.UsuarioID {
		s.publisher.Publish(ctx, events.TramiteCommentAddedEvent{Tramite: *tramite, Comentario: *comment})
	}
	return comment, nil
}

// AddDocument прикладывает файл к трамиту. Состояние трамита не меняется.
func (s *TramiteService) AddDocument(ctx context.Context, tramiteID uuid.UUID, nombre string, file entities.FileRef, uploaderID uuid.UUID, requerido bool) (*entities.Documento, error) {
	if strings.TrimSpace(nombre) == "" {
		return nil, apperrors.NewInvalidInputError("не указано имя документа")
	}
	if _, err := s.tramiteRepo.FindByID(ctx, tramiteID); err != nil {
		return nil, err
	}

	doc := newDocumento(tramiteID, nombre, file, uploaderID, requerido, s.now())
	if err := s.tramiteRepo.AppendDocument(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// RequestDocument просит владельца дозагрузить документ (уведомление documento_requerido).
func (s *TramiteService) RequestDocument(ctx context.Context, tramiteID uuid.UUID, nombreDocumento string) error {
	nombreDocumento = strings.TrimSpace(nombreDocumento)
	if nombreDocumento == "" {
		return apperrors.NewInvalidInputError("не указано имя документа")
	}
	tramite, err := s.tramiteRepo.FindByID(ctx, tramiteID)
	if err != nil {
		return err
	}
	if tramite.Estado.IsTerminal() {
		return apperrors.NewInvalidInputError("трамит %s уже закрыт", tramite.NumeroTramite)
	}

	s.publisher.Publish(ctx, events.DocumentRequestedEvent{Tramite: *tramite, NombreDocumento: nombreDocumento})
	return nil
}

// ApplyPriority меняет только приоритет: это не переход, история и уведомления не пишутся.
func (s *TramiteService) ApplyPriority(ctx context.Context, tramiteID uuid.UUID, p entities.Prioridad) error {
	if !p.Valid() {
		return apperrors.NewInvalidInputError("неизвестный приоритет: %s", p)
	}
	_, err := s.tramiteRepo.Update(ctx, tramiteID, entities.TramitePatch{Prioridad: &p})
	return err
}

func (s *TramiteService) GetTramite(ctx context.Context, id uuid.UUID) (*entities.Tramite, error) {
	return s.tramiteRepo.FindByID(ctx, id)
}

func (s *TramiteService) GetByNumero(ctx context.Context, numero string) (*entities.Tramite, error) {
	return s.tramiteRepo.FindByNumero(ctx, numero)
}

func (s *TramiteService) ListByUser(ctx context.Context, userID uuid.UUID) ([]entities.Tramite, error) {
	return s.tramiteRepo.ListByUser(ctx, userID)
}

func (s *TramiteService) ListAll(ctx context.Context) ([]entities.Tramite, error) {
	return s.tramiteRepo.ListAll(ctx)
}

func (s *TramiteService) ListOpen(ctx context.Context) ([]entities.Tramite, error) {
	return s.tramiteRepo.ListOpen(ctx)
}

func (s *TramiteService) Search(ctx context.Context, filter entities.TramiteFilter) ([]entities.Tramite, uint64, error) {
	if filter.Estado != nil && !filter.Estado.Valid() {
		return nil, 0, apperrors.NewInvalidInputError("неизвестное состояние: %s", *filter.Estado)
	}
	if filter.Limit == 0 {
		filter.Limit = 50
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	return s.tramiteRepo.Search(ctx, filter)
}

func (s *TramiteService) GetHistory(ctx context.Context, id uuid.UUID) ([]entities.HistorialTramite, error) {
	if _, err := s.tramiteRepo.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return s.tramiteRepo.FindHistory(ctx, id)
}

func (s *TramiteService) GetComments(ctx context.Context, id uuid.UUID, publicOnly bool) ([]entities.Comentario, error) {
	if _, err := s.tramiteRepo.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return s.tramiteRepo.FindComments(ctx, id, publicOnly)
}

func (s *TramiteService) GetDocuments(ctx context.Context, id uuid.UUID) ([]entities.Documento, error) {
	if _, err := s.tramiteRepo.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return s.tramiteRepo.FindDocuments(ctx, id)
}

func newDocumento(tramiteID uuid.UUID, nombre string, file entities.FileRef, uploaderID uuid.UUID, requerido bool, now time.Time) *entities.Documento {
	doc := &entities.Documento{
		ID:              uuid.New(),
		TramiteID:       tramiteID,
		NombreDocumento: nombre,
		NombreArchivo:   file.NombreArchivo,
		URLArchivo:      file.URL,
		Requerido:       requerido,
		SubidoPor:       uploaderID,
		FechaSubida:     now,
	}
	if file.TipoMime != "" {
		doc.TipoMime = null.StringFrom(file.TipoMime)
	}
	if file.TamanoBytes > 0 {
		doc.TamanoBytes = null.Int64From(file.TamanoBytes)
	}
	return doc
}
