package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"tramite-system/internal/events"
	"tramite-system/internal/repositories"
	"tramite-system/pkg/eventbus"
	"tramite-system/pkg/types"
	"tramite-system/pkg/utils"
)

// reminderDays - за сколько суток до fecha_limite напоминать.
var reminderDays = map[int]struct{}{3: {}, 1: {}}

type ReminderServiceInterface interface {
	SendDueReminders(ctx context.Context, now time.Time) (types.BatchSummary, error)
}

type ReminderService struct {
	tramiteRepo repositories.TramiteRepositoryInterface
	publisher   eventbus.Publisher
	logger      *zap.Logger
}

func NewReminderService(tramiteRepo repositories.TramiteRepositoryInterface, publisher eventbus.Publisher, logger *zap.Logger) *ReminderService {
	return &ReminderService{tramiteRepo: tramiteRepo, publisher: publisher, logger: logger}
}

// SendDueReminders публикует напоминание по открытым трамитам, до срока которых ровно 3 или 1 сутки.
func (s *ReminderService) SendDueReminders(ctx context.Context, now time.Time) (types.BatchSummary, error) {
	var summary types.BatchSummary

	tramites, err := s.tramiteRepo.ListOpen(ctx)
	if err != nil {
		return summary, err
	}

	for _, t := range tramites {
		summary.Procesados++
		if !t.FechaLimite.Valid || t.Estado.IsTerminal() {
			continue
		}
		dias := utils.DaysUntil(now, t.FechaLimite.Time)
		if _, due := reminderDays[dias]; !due {
			continue
		}
		s.publisher.Publish(ctx, events.TramiteReminderEvent{Tramite: t, DiasRestantes: dias})
		summary.Actualizados++
	}

	s.logger.Info("Напоминания разосланы",
		zap.Int("procesados", summary.Procesados),
		zap.Int("enviados", summary.Actualizados))
	return summary, nil
}
