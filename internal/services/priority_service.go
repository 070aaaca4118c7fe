package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tramite-system/internal/entities"
	"tramite-system/internal/repositories"
	"tramite-system/pkg/constants"
	"tramite-system/pkg/types"
	"tramite-system/pkg/utils"
)

// PriorityStrategy - правило пересчёта приоритета. Должно быть чистой функцией от (трамит, now).
type PriorityStrategy interface {
	RecomputePriority(t entities.Tramite, now time.Time) entities.Prioridad
}

// WeightedPriorityStrategy - взвешенная оценка: вес типа плюс надбавка за возраст.
// Счёт >= 5 - alta, >= 3 - media, иначе baja.
type WeightedPriorityStrategy struct {
	TypeWeights   map[string]int
	DefaultWeight int
}

func NewWeightedPriorityStrategy() *WeightedPriorityStrategy {
	return &WeightedPriorityStrategy{
		TypeWeights: map[string]int{
			constants.TipoLicenciaConstruccion:  3,
			constants.TipoReclamoServicios:      3,
			constants.TipoPermisoComercial:      2,
			constants.TipoPermisoEvento:         2,
			constants.TipoCertificadoResidencia: 1,
		},
		DefaultWeight: 1,
	}
}

func (s *WeightedPriorityStrategy) Score(t entities.Tramite, now time.Time) int {
	score, ok := s.TypeWeights[t.TipoCodigo()]
	if !ok {
		score = s.DefaultWeight
	}

	age := utils.WholeDays(t.FechaInicio, now)
	switch {
	case age > 7:
		score += 2
	case age > 3:
		score++
	}
	return score
}

func (s *WeightedPriorityStrategy) RecomputePriority(t entities.Tramite, now time.Time) entities.Prioridad {
	score := s.Score(t, now)
	switch {
	case score >= 5:
		return entities.PrioridadAlta
	case score >= 3:
		return entities.PrioridadMedia
	default:
		return entities.PrioridadBaja
	}
}

// priorityApplier - то, что пересчёту нужно от сервиса трамитов.
type priorityApplier interface {
	ApplyPriority(ctx context.Context, id uuid.UUID, p entities.Prioridad) error
}

type PriorityServiceInterface interface {
	RecomputeAll(ctx context.Context) (types.BatchSummary, error)
}

type PriorityService struct {
	tramiteRepo repositories.TramiteRepositoryInterface
	applier     priorityApplier
	strategy    PriorityStrategy
	logger      *zap.Logger
	now         func() time.Time
}

func NewPriorityService(
	tramiteRepo repositories.TramiteRepositoryInterface,
	applier priorityApplier,
	strategy PriorityStrategy,
	logger *zap.Logger,
) *PriorityService {
	return &PriorityService{
		tramiteRepo: tramiteRepo,
		applier:     applier,
		strategy:    strategy,
		logger:      logger,
		now:         time.Now,
	}
}

// RecomputeAll пересчитывает приоритет всех открытых трамитов и записывает только изменившиеся.
// Ошибка по одному трамиту попадает в сводку и не прерывает проход.
func (s *PriorityService) RecomputeAll(ctx context.Context) (types.BatchSummary, error) {
	var summary types.BatchSummary

	tramites, err := s.tramiteRepo.ListOpen(ctx)
	if err != nil {
		return summary, err
	}

	now := s.now()
	for _, t := range tramites {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Procesados++

		next := s.strategy.RecomputePriority(t, now)
		if next == t.Prioridad {
			continue
		}
		if err := s.applier.ApplyPriority(ctx, t.ID, next); err != nil {
			s.logger.Warn("Не удалось применить приоритет",
				zap.String("numero", t.NumeroTramite), zap.Error(err))
			summary.Fail(t.NumeroTramite, err)
			continue
		}
		summary.Actualizados++
	}

	s.logger.Info("Пересчёт приоритетов завершён",
		zap.Int("procesados", summary.Procesados),
		zap.Int("actualizados", summary.Actualizados),
		zap.Int("fallidos", summary.Fallidos))
	return summary, nil
}
