package listeners

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tramite-system/internal/entities"
	"tramite-system/internal/events"
	"tramite-system/internal/services"
	"tramite-system/pkg/eventbus"
)

// autorPersonal - подпись комментария сотрудника в уведомлении владельцу.
const autorPersonal = "El personal municipal"

// NotificationListener превращает события жизненного цикла в уведомления владельцу трамита.
// Каждое уведомление уходит в plataforma и во все дополнительные каналы из конфигурации.
type NotificationListener struct {
	notificationService services.NotificationServiceInterface
	channels            []entities.Canal
	logger              *zap.Logger
}

func NewNotificationListener(
	notificationService services.NotificationServiceInterface,
	extraChannels []string,
	logger *zap.Logger,
) *NotificationListener {
	channels := []entities.Canal{entities.CanalPlataforma}
	for _, c := range extraChannels {
		canal := entities.Canal(c)
		if !canal.Valid() || canal == entities.CanalPlataforma {
			logger.Warn("Пропущен неизвестный канал уведомлений", zap.String("canal", c))
			continue
		}
		channels = append(channels, canal)
	}
	return &NotificationListener{
		notificationService: notificationService,
		channels:            channels,
		logger:              logger,
	}
}

func (l *NotificationListener) Register(bus *eventbus.Bus) {
	bus.Subscribe(events.TramiteStateChangedName, l.handleStateChanged)
	bus.Subscribe(events.TramiteCommentAddedName, l.handleCommentAdded)
	bus.Subscribe(events.DocumentRequestedName, l.handleDocumentRequested)
	bus.Subscribe(events.TramiteReminderName, l.handleReminder)
	l.logger.Info("NotificationListener подписан на события трамитов", zap.Int("canales", len(l.channels)))
}

func (l *NotificationListener) handleStateChanged(ctx context.Context, event eventbus.Event) error {
	e, ok := event.(events.TramiteStateChangedEvent)
	if !ok {
		return nil
	}
	tipo, titulo, mensaje := services.StateChangeTemplate(e.Tramite.NumeroTramite, e.To)
	l.dispatch(ctx, e.Tramite, tipo, titulo, mensaje)
	return nil
}

func (l *NotificationListener) handleCommentAdded(ctx context.Context, event eventbus.Event) error {
	e, ok := event.(events.TramiteCommentAddedEvent)
	if !ok {
		return nil
	}
	titulo, mensaje := services.CommentTemplate(e.Tramite.NumeroTramite, autorPersonal)
	l.dispatch(ctx, e.Tramite, entities.NotificacionComentario, titulo, mensaje)
	return nil
}

func (l *NotificationListener) handleDocumentRequested(ctx context.Context, event eventbus.Event) error {
	e, ok := event.(events.DocumentRequestedEvent)
	if !ok {
		return nil
	}
	titulo, mensaje := services.DocumentRequiredTemplate(e.Tramite.NumeroTramite, e.NombreDocumento)
	l.dispatch(ctx, e.Tramite, entities.NotificacionDocumentoRequerido, titulo, mensaje)
	return nil
}

func (l *NotificationListener) handleReminder(ctx context.Context, event eventbus.Event) error {
	e, ok := event.(events.TramiteReminderEvent)
	if !ok {
		return nil
	}
	titulo, mensaje := services.ReminderTemplate(e.Tramite.NumeroTramite, e.DiasRestantes)
	l.dispatch(ctx, e.Tramite, entities.NotificacionRecordatorio, titulo, mensaje)
	return nil
}

// dispatch не возвращает ошибок: сбой одного канала не мешает остальным и не касается перехода.
func (l *NotificationListener) dispatch(ctx context.Context, t entities.Tramite, tipo entities.NotificacionTipo, titulo, mensaje string) {
	for _, canal := range l.channels {
		_, err := l.notificationService.Send(ctx, services.NotificationRequest{
			UsuarioID:     t.UsuarioID,
			TramiteID:     uuid.NullUUID{UUID: t.ID, Valid: true},
			NumeroTramite: t.NumeroTramite,
			Tipo:          tipo,
			Titulo:        titulo,
			Mensaje:       mensaje,
			Canal:         canal,
			Email:         t.DatosAdicionales.Email,
			Telefono:      t.DatosAdicionales.Telefono,
		})
		if err == nil {
			continue
		}
		fields := []zap.Field{
			zap.String("numero", t.NumeroTramite),
			zap.String("canal", string(canal)),
			zap.String("tipo", string(tipo)),
			zap.Error(err),
		}
		if services.IsDeliveryError(err) {
			l.logger.Warn("Уведомление записано, но не доставлено", fields...)
		} else {
			l.logger.Error("Не удалось отправить уведомление", fields...)
		}
	}
}
