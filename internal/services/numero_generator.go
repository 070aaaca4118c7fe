package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tramite-system/internal/entities"
	"tramite-system/internal/repositories"
	"tramite-system/pkg/constants"
)

// NumeroGeneratorInterface выдаёт человекочитаемые номера TRM-<год>-<6 цифр>.
// Уникальность гарантирует хранилище (UNIQUE на numero_tramite), генератор лишь старается не повторяться.
type NumeroGeneratorInterface interface {
	Next(ctx context.Context, now time.Time) (string, error)
}

type NumeroGenerator struct {
	cache  repositories.CacheRepositoryInterface
	logger *zap.Logger
}

func NewNumeroGenerator(cache repositories.CacheRepositoryInterface, logger *zap.Logger) NumeroGeneratorInterface {
	return &NumeroGenerator{cache: cache, logger: logger}
}

// Next берёт счётчик года из Redis. Если Redis недоступен, хвост берётся из миллисекунд текущего времени.
func (g *NumeroGenerator) Next(ctx context.Context, now time.Time) (string, error) {
	year := now.Year()
	key := fmt.Sprintf(constants.CacheKeyTramiteSequence, year)

	if g.cache != nil {
		seq, err := g.cache.Incr(ctx, key)
		if err == nil {
			if seq == 1 {
				// Счётчик года живёт чуть дольше самого года.
				if _, err := g.cache.Expire(ctx, key, 400*24*time.Hour); err != nil {
					g.logger.Warn("Не удалось задать TTL счётчика номеров", zap.String("key", key), zap.Error(err))
				}
			}
			return entities.FormatNumero(year, seq), nil
		}
		g.logger.Warn("Счётчик номеров недоступен, используется время", zap.Error(err))
	}

	return entities.FormatNumero(year, now.UnixMilli()), nil
}
