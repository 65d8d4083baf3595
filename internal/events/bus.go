package events

import (
	"context"
	"sync"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Handler consumes a single domain event. Handlers must be fast; slow work
// belongs behind the handler's own queue.
type Handler func(ctx context.Context, event Event)

// Bus dispatches domain events to registered handlers, synchronously and in
// registration order.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Type][]Handler
	log      *zap.Logger
}

func NewBus(log *zap.Logger) *Bus {
	return &Bus{
		handlers: map[Type][]Handler{},
		log:      log.Named("events"),
	}
}

func (b *Bus) Subscribe(t Type, h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	b.handlers[t] = append(b.handlers[t], h)
	b.mu.Unlock()
}

func (b *Bus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := b.handlers[event.Type]
	b.mu.RUnlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.log.Error("event handler panicked",
						zap.String("type", string(event.Type)),
						zap.Any("panic", r),
					)
				}
			}()
			h(ctx, event)
		}()
	}
}

var Module = fx.Module("events",
	fx.Provide(NewBus),
)
