package events

import (
	"context"
	"sync"

	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
	"github.com/zatekoja/patientcare/backend/internal/domain/providers"
)

// MemoryEventBus is a single-process EventBus used when Redis is disabled
type MemoryEventBus struct {
	fanout *fanout
	once   sync.Once
	done   chan struct{}
}

// NewMemoryEventBus creates an in-process event bus
func NewMemoryEventBus() providers.EventBus {
	return &MemoryEventBus{
		fanout: newFanout(),
		done:   make(chan struct{}),
	}
}

// Publish delivers event to current subscribers of channel
func (b *MemoryEventBus) Publish(_ context.Context, channel string, event *entities.PortalEvent) error {
	b.fanout.deliver(channel, event)
	return nil
}

// Subscribe subscribes to events on a channel until ctx is done
func (b *MemoryEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.PortalEvent, error) {
	ch, _ := b.fanout.add(channel)
	go func() {
		select {
		case <-ctx.Done():
		case <-b.done:
		}
		b.fanout.remove(channel, ch)
	}()
	return ch, nil
}

// Unsubscribe drops every subscriber of a channel
func (b *MemoryEventBus) Unsubscribe(_ context.Context, channel string) error {
	b.fanout.drop(channel)
	return nil
}

// Close drops every subscriber
func (b *MemoryEventBus) Close() error {
	b.once.Do(func() {
		close(b.done)
		for _, channel := range b.fanout.channels() {
			b.fanout.drop(channel)
		}
	})
	return nil
}
