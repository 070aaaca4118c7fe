package eventbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event представляет собой любое событие в системе.
type Event interface {
	Name() string
}

// Listener - это обработчик (слушатель) событий.
type Listener func(ctx context.Context, event Event) error

// Publisher - то, что нужно сервисам: опубликовать и сразу вернуть управление.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Bus - это наша шина событий.
type Bus struct {
	listeners      map[string][]Listener
	mu             sync.RWMutex
	inflight       sync.WaitGroup
	handlerTimeout time.Duration
	logger         *zap.Logger
}

// New создает новую шину событий. handlerTimeout <= 0 означает одну минуту.
func New(logger *zap.Logger, handlerTimeout time.Duration) *Bus {
	if handlerTimeout <= 0 {
		handlerTimeout = time.Minute
	}
	return &Bus{
		listeners:      make(map[string][]Listener),
		handlerTimeout: handlerTimeout,
		logger:         logger,
	}
}

// Subscribe подписывает слушателя на определенное событие.
func (b *Bus) Subscribe(eventName string, listener Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[eventName] = append(b.listeners[eventName], listener)
}

// Publish публикует событие и не ждёт обработчиков. Каждый слушатель работает в своей горутине
// с собственным таймаутом, ошибки и паники только логируются.
func (b *Bus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	listeners := append([]Listener(nil), b.listeners[event.Name()]...)
	b.mu.RUnlock()

	if len(listeners) == 0 {
		b.logger.Debug("Нет подписчиков на событие", zap.String("event", event.Name()))
		return
	}

	for _, listener := range listeners {
		b.inflight.Add(1)
		go func(l Listener) {
			defer b.inflight.Done()
			// Контекст запроса не наследуем: он будет отменён, как только HTTP-ответ уйдёт.
			ctxWithTimeout, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.handlerTimeout)
			defer cancel()

			if err := b.safeCall(ctxWithTimeout, l, event); err != nil {
				b.logger.Error("Ошибка в обработчике события",
					zap.String("event", event.Name()),
					zap.Error(err),
				)
			}
		}(listener)
	}
}

// Wait блокируется, пока не завершатся все запущенные обработчики. Нужен при остановке и в тестах.
func (b *Bus) Wait() {
	b.inflight.Wait()
}

func (b *Bus) safeCall(ctx context.Context, l Listener, event Event) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("паника в обработчике: %v", p)
		}
	}()
	return l(ctx, event)
}
