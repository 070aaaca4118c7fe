package repositories

import (
	"context"
	"time"
)

// CacheRepositoryInterface - счётчики и разовые флаги в общем кэше.
// Номера трамитов берутся из Incr, защита дневной задачи - из SetNX.
type CacheRepositoryInterface interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, expiration time.Duration) (bool, error)
	// SetNX записывает ключ, только если его ещё нет. true - ключ записан этим вызовом.
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}
