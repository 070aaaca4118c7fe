// Package jobs - периодические пакетные задачи: дневные метрики, пересчёт приоритетов, напоминания.
package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tramite-system/internal/metrics"
	"tramite-system/internal/repositories"
	"tramite-system/pkg/constants"
	"tramite-system/pkg/types"
)

const (
	JobDailyMetrics = "daily_metrics"
	JobPriorities   = "priorities"
	JobReminders    = "reminders"

	dailyGuardTTL = 72 * time.Hour
)

type dailyMetricsRecorder interface {
	RecordDailyMetrics(ctx context.Context, targetDate time.Time) (types.BatchSummary, error)
}

type priorityRecomputer interface {
	RecomputeAll(ctx context.Context) (types.BatchSummary, error)
}

type reminderSender interface {
	SendDueReminders(ctx context.Context, now time.Time) (types.BatchSummary, error)
}

// Scheduler раз в сутки, в час runHour (UTC), запускает задачи. Дата дневных метрик
// захватывается через SETNX, поэтому несколько экземпляров не запишут её дважды.
type Scheduler struct {
	analytics  dailyMetricsRecorder
	priorities priorityRecomputer
	reminders  reminderSender
	cache      repositories.CacheRepositoryInterface
	metrics    *metrics.Metrics
	logger     *zap.Logger
	runHour    int
	now        func() time.Time

	lastRun time.Time
}

func NewScheduler(
	analytics dailyMetricsRecorder,
	priorities priorityRecomputer,
	reminders reminderSender,
	cache repositories.CacheRepositoryInterface,
	m *metrics.Metrics,
	runHour int,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		analytics:  analytics,
		priorities: priorities,
		reminders:  reminders,
		cache:      cache,
		metrics:    m,
		logger:     logger,
		runHour:    runHour,
		now:        time.Now,
	}
}

// Start блокируется до отмены ctx. Проверка раз в interval.
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("Планировщик запущен", zap.Int("hora", s.runHour), zap.Duration("intervalo", interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Планировщик остановлен")
			return
		case <-ticker.C:
			now := s.now().UTC()
			if now.Hour() != s.runHour || types.DateOnly(now).Equal(s.lastRun) {
				continue
			}
			s.lastRun = types.DateOnly(now)
			s.RunDaily(ctx, now)
		}
	}
}

// RunDaily - один проход всех задач. Сбой одной задачи не отменяет остальные.
func (s *Scheduler) RunDaily(ctx context.Context, now time.Time) {
	yesterday := types.DateOnly(now).AddDate(0, 0, -1)

	if _, err := s.RecordMetricsOnce(ctx, yesterday); err != nil {
		s.logger.Error("Задача дневных метрик завершилась с ошибкой", zap.Error(err))
	}

	s.run(ctx, JobPriorities, func(ctx context.Context) (types.BatchSummary, error) {
		return s.priorities.RecomputeAll(ctx)
	})
	s.run(ctx, JobReminders, func(ctx context.Context) (types.BatchSummary, error) {
		return s.reminders.SendDueReminders(ctx, now)
	})
}

// RecordMetricsOnce записывает метрики за дату, только если эту дату ещё никто не захватил.
// recorded=false - дата уже обработана. Если не записалась ни одна метрика, захват снимается.
func (s *Scheduler) RecordMetricsOnce(ctx context.Context, date time.Time) (recorded bool, err error) {
	key := fmt.Sprintf(constants.CacheKeyDailyMetricsGuard, types.DateOnly(date).Format(constants.DateLayout))

	acquired, err := s.cache.SetNX(ctx, key, "1", dailyGuardTTL)
	if err != nil {
		return false, fmt.Errorf("не удалось захватить дату %s: %w", key, err)
	}
	if !acquired {
		s.logger.Info("Дневные метрики уже записаны", zap.String("key", key))
		return false, nil
	}

	summary := s.run(ctx, JobDailyMetrics, func(ctx context.Context) (types.BatchSummary, error) {
		return s.analytics.RecordDailyMetrics(ctx, date)
	})
	if summary.Actualizados == 0 && summary.HasFailures() {
		if err := s.cache.Del(ctx, key); err != nil {
			s.logger.Warn("Не удалось снять захват даты", zap.String("key", key), zap.Error(err))
		}
		return false, fmt.Errorf("ни одна метрика не записана: %v", summary.Errores)
	}
	return true, nil
}

func (s *Scheduler) run(ctx context.Context, job string, fn func(ctx context.Context) (types.BatchSummary, error)) types.BatchSummary {
	start := time.Now()
	summary, err := fn(ctx)
	s.metrics.ObserveJob(job, time.Since(start), summary.Fallidos)

	if err != nil {
		s.logger.Error("Задача завершилась с ошибкой", zap.String("job", job), zap.Error(err))
		return summary
	}
	if summary.HasFailures() {
		s.logger.Warn("Задача завершилась с частичными ошибками",
			zap.String("job", job),
			zap.Int("fallidos", summary.Fallidos),
			zap.Strings("errores", summary.Errores))
	}
	return summary
}
