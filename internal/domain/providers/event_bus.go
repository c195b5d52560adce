package providers

import (
	"context"

	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to portal events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.PortalEvent) error

	// Subscribe subscribes to events on a channel until ctx is done
	Subscribe(ctx context.Context, channel string) (<-chan *entities.PortalEvent, error)

	// Unsubscribe drops every subscriber of a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

// EventChannelPortal carries every appointment, consultation and prescription event
const EventChannelPortal = "portal:events"
