package memory

import (
	"context"
	"sync"

	"classroom-quiz-service/internal/domain"
)

// ChangeBus delivers change events synchronously to in-process handlers.
type ChangeBus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]func(domain.ChangeEvent)
}

func NewChangeBus() *ChangeBus {
	return &ChangeBus{handlers: make(map[int]func(domain.ChangeEvent))}
}

func (b *ChangeBus) Publish(_ context.Context, event domain.ChangeEvent) error {
	b.mu.RLock()
	handlers := make([]func(domain.ChangeEvent), 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
	return nil
}

func (b *ChangeBus) Subscribe(_ context.Context, handle func(domain.ChangeEvent)) (func(), error) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = handle
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}, nil
}
