package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
	"github.com/zatekoja/patientcare/backend/internal/domain/providers"
)

// Broadcaster delivers an event to push-channel clients subscribed to any of topics
type Broadcaster interface {
	Broadcast(topics []string, event *entities.PortalEvent)
}

// EventRelay forwards portal events from the event bus to push-channel clients
type EventRelay struct {
	eventBus    providers.EventBus
	broadcaster Broadcaster
	ctx         context.Context
	cancel      context.CancelFunc
	done        chan struct{}
	started     bool
}

// NewEventRelay creates a new event relay
func NewEventRelay(eventBus providers.EventBus, broadcaster Broadcaster) *EventRelay {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventRelay{
		eventBus:    eventBus,
		broadcaster: broadcaster,
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
}

// Start subscribes to the portal channel and relays in arrival order
func (r *EventRelay) Start() error {
	events, err := r.eventBus.Subscribe(r.ctx, providers.EventChannelPortal)
	if err != nil {
		return fmt.Errorf("failed to subscribe to portal events: %w", err)
	}

	r.started = true
	go func() {
		defer close(r.done)
		for {
			select {
			case <-r.ctx.Done():
				return
			case event, ok := <-events:
				if !ok {
					return
				}
				if event == nil || len(event.Topics) == 0 {
					continue
				}
				r.broadcaster.Broadcast(event.Topics, event)
			}
		}
	}()

	log.Info().Msg("event relay started")
	return nil
}

// Stop stops relaying and waits for the relay loop to exit
func (r *EventRelay) Stop() {
	r.cancel()
	if r.started {
		<-r.done
	}
	log.Info().Msg("event relay stopped")
}
