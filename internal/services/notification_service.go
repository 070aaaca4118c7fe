// Файл: internal/services/notification_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"tramite-system/internal/entities"
	"tramite-system/internal/metrics"
	"tramite-system/internal/repositories"
	apperrors "tramite-system/pkg/errors"
	"tramite-system/pkg/notify"
)

// NotificationRequest - одно уведомление одному получателю по одному каналу.
type NotificationRequest struct {
	UsuarioID     uuid.UUID
	TramiteID     uuid.NullUUID
	NumeroTramite string
	Tipo          entities.NotificacionTipo
	Titulo        string
	Mensaje       string
	Canal         entities.Canal

	// Адреса для внешних каналов, берутся из datos_adicionales трамита.
	Email    string
	Telefono string
}

// NotificationServiceInterface - диспетчер уведомлений и их чтение на стороне пользователя.
type NotificationServiceInterface interface {
	Send(ctx context.Context, req NotificationRequest) (*entities.Notificacion, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit uint64, unreadOnly bool) ([]entities.Notificacion, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

type NotificationService struct {
	repo    repositories.NotificationRepositoryInterface
	senders map[entities.Canal]notify.Sender
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewNotificationService. senders - транспорты для каналов кроме plataforma; канал без
// транспорта записывается с enviado=false и ошибкой доставки.
func NewNotificationService(
	repo repositories.NotificationRepositoryInterface,
	senders map[entities.Canal]notify.Sender,
	m *metrics.Metrics,
	logger *zap.Logger,
) *NotificationService {
	if senders == nil {
		senders = map[entities.Canal]notify.Sender{}
	}
	return &NotificationService{
		repo:    repo,
		senders: senders,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// Send сохраняет уведомление и, для внешних каналов, передаёт его транспорту.
// Запись остаётся даже при сбое доставки; тогда вместе с ней возвращается *NotificationDeliveryError.
func (s *NotificationService) Send(ctx context.Context, req NotificationRequest) (*entities.Notificacion, error) {
	if req.UsuarioID == uuid.Nil {
		return nil, apperrors.NewInvalidInputError("не указан получатель уведомления")
	}
	if req.Canal == "" {
		req.Canal = entities.CanalPlataforma
	}
	if !req.Canal.Valid() {
		return nil, apperrors.NewInvalidInputError("неизвестный канал уведомления: %s", req.Canal)
	}

	now := s.now()
	n := &entities.Notificacion{
		ID:        uuid.New(),
		UsuarioID: req.UsuarioID,
		TramiteID: req.TramiteID,
		Tipo:      req.Tipo,
		Titulo:    req.Titulo,
		Mensaje:   req.Mensaje,
		Canal:     req.Canal,
	}
	// Внутри портала доставлять нечего: запись сама и есть доставка.
	if req.Canal == entities.CanalPlataforma {
		n.Enviado = true
		n.FechaEnvio = null.TimeFrom(now)
	}

	if err := s.repo.Create(ctx, n); err != nil {
		s.metrics.IncNotification(string(req.Canal), "failed")
		return nil, err
	}
	if n.Enviado {
		s.metrics.IncNotification(string(req.Canal), "sent")
		return n, nil
	}

	acked, err := s.deliver(ctx, req)
	if err != nil {
		s.metrics.IncNotification(string(req.Canal), "failed")
		return n, &apperrors.NotificationDeliveryError{Channel: string(req.Canal), Err: err}
	}
	if !acked {
		s.metrics.IncNotification(string(req.Canal), "pending")
		return n, nil
	}

	sentAt := s.now()
	if err := s.repo.MarkSent(ctx, n.ID, sentAt); err != nil {
		s.logger.Warn("Доставка подтверждена, но отметить уведомление не удалось",
			zap.String("id", n.ID.String()), zap.Error(err))
		return n, nil
	}
	n.Enviado = true
	n.FechaEnvio = null.TimeFrom(sentAt)
	s.metrics.IncNotification(string(req.Canal), "sent")
	return n, nil
}

func (s *NotificationService) deliver(ctx context.Context, req NotificationRequest) (bool, error) {
	sender, ok := s.senders[req.Canal]
	if !ok {
		return false, fmt.Errorf("для канала %s не настроен транспорт", req.Canal)
	}
	return sender.Deliver(ctx, notify.Message{
		UsuarioID:     req.UsuarioID,
		Email:         req.Email,
		Telefono:      req.Telefono,
		NumeroTramite: req.NumeroTramite,
		Tipo:          string(req.Tipo),
		Titulo:        req.Titulo,
		Mensaje:       req.Mensaje,
	})
}

func (s *NotificationService) ListForUser(ctx context.Context, userID uuid.UUID, limit uint64, unreadOnly bool) ([]entities.Notificacion, error) {
	if limit == 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListByUser(ctx, userID, limit, unreadOnly)
}

func (s *NotificationService) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.repo.MarkRead(ctx, id, userID, s.now())
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID, s.now())
}

func (s *NotificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *NotificationService) Delete(ctx context.Context, id, userID uuid.UUID) error {
	return s.repo.Delete(ctx, id, userID)
}

// IsDeliveryError - ошибка относится к доставке, а не к записи уведомления.
func IsDeliveryError(err error) bool {
	var de *apperrors.NotificationDeliveryError
	return errors.As(err, &de)
}

//============== ШАБЛОНЫ ==============

var stateMessages = map[entities.Estado]string{
	entities.EstadoRecibido:                "Su trámite ha sido recibido y está siendo procesado.",
	entities.EstadoEnRevision:              "Su trámite está siendo revisado por nuestro equipo.",
	entities.EstadoDocumentacionIncompleta: "Se requiere documentación adicional para continuar con su trámite.",
	entities.EstadoEnProceso:               "Su trámite está en proceso de aprobación.",
	entities.EstadoAprobado:                "¡Felicitaciones! Su trámite ha sido aprobado.",
	entities.EstadoRechazado:               "Su trámite ha sido rechazado. Revise los comentarios para más información.",
	entities.EstadoCompletado:              "Su trámite ha sido completado exitosamente.",
}

// StateChangeTemplate - тип, заголовок и текст уведомления о переходе в estado.
func StateChangeTemplate(numero string, estado entities.Estado) (entities.NotificacionTipo, string, string) {
	tipo := entities.NotificacionEstadoCambio
	switch estado {
	case entities.EstadoAprobado:
		tipo = entities.NotificacionAprobacion
	case entities.EstadoRechazado:
		tipo = entities.NotificacionRechazo
	}

	mensaje, ok := stateMessages[estado]
	if !ok {
		mensaje = "El estado de su trámite ha cambiado."
	}
	return tipo, "Actualización de trámite " + numero, mensaje
}

func CommentTemplate(numero, autor string) (string, string) {
	return "Nuevo comentario en trámite " + numero,
		fmt.Sprintf("%s ha agregado un comentario a su trámite.", autor)
}

func DocumentRequiredTemplate(numero, documento string) (string, string) {
	return "Documento requerido - Trámite " + numero,
		"Se requiere el siguiente documento para continuar con su trámite: " + documento
}

func ReminderTemplate(numero string, diasRestantes int) (string, string) {
	plazo := fmt.Sprintf("%d días", diasRestantes)
	if diasRestantes == 1 {
		plazo = "1 día"
	}
	return "Recordatorio - Trámite " + numero,
		fmt.Sprintf("Su trámite vence en %s. Por favor, complete los pasos pendientes.", plazo)
}
