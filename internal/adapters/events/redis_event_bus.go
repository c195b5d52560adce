package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
	"github.com/zatekoja/patientcare/backend/internal/domain/providers"
	redisclient "github.com/zatekoja/patientcare/backend/internal/infrastructure/clients/redis"
)

// RedisEventBus implements the EventBus interface using Redis Pub/Sub, so
// every API replica sees events published by any other
type RedisEventBus struct {
	client        *redisclient.Client
	fanout        *fanout
	subscriptions map[string]*redis.PubSub
	mu            sync.Mutex
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewRedisEventBus creates a new Redis-based event bus
func NewRedisEventBus(client *redisclient.Client) providers.EventBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisEventBus{
		client:        client,
		fanout:        newFanout(),
		subscriptions: make(map[string]*redis.PubSub),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Publish publishes an event to all subscribers
func (b *RedisEventBus) Publish(ctx context.Context, channel string, event *entities.PortalEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.client.Client().Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	log.Debug().Str("channel", channel).Str("event_id", event.ID).Str("type", string(event.Type)).Msg("published event")
	return nil
}

// Subscribe subscribes to events on a channel
func (b *RedisEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.PortalEvent, error) {
	b.mu.Lock()
	if _, exists := b.subscriptions[channel]; !exists {
		pubsub := b.client.Client().Subscribe(b.ctx, channel)
		if _, err := pubsub.Receive(ctx); err != nil {
			b.mu.Unlock()
			_ = pubsub.Close()
			return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
		}
		b.subscriptions[channel] = pubsub
		go b.receiveMessages(channel, pubsub)
	}
	eventChan, count := b.fanout.add(channel)
	b.mu.Unlock()

	log.Info().Str("channel", channel).Int("subscribers", count).Msg("subscribed to event channel")

	go func() {
		select {
		case <-ctx.Done():
		case <-b.ctx.Done():
		}
		if b.fanout.remove(channel, eventChan) {
			b.closeSubscription(channel)
		}
	}()

	return eventChan, nil
}

// receiveMessages receives messages from Redis and broadcasts them to subscribers
func (b *RedisEventBus) receiveMessages(channel string, pubsub *redis.PubSub) {
	ch := pubsub.Channel()
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event entities.PortalEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Error().Err(err).Str("channel", channel).Msg("failed to unmarshal event")
				continue
			}
			b.fanout.deliver(channel, &event)
		}
	}
}

func (b *RedisEventBus) closeSubscription(channel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	pubsub, ok := b.subscriptions[channel]
	if !ok {
		return nil
	}
	delete(b.subscriptions, channel)
	if err := pubsub.Close(); err != nil {
		return fmt.Errorf("failed to close subscription %s: %w", channel, err)
	}
	log.Info().Str("channel", channel).Msg("closed event subscription")
	return nil
}

// Unsubscribe drops every subscriber of a channel
func (b *RedisEventBus) Unsubscribe(ctx context.Context, channel string) error {
	b.fanout.drop(channel)
	return b.closeSubscription(channel)
}

// Close closes the event bus and all subscriptions
func (b *RedisEventBus) Close() error {
	b.cancel()

	b.mu.Lock()
	channels := make([]string, 0, len(b.subscriptions))
	for channel := range b.subscriptions {
		channels = append(channels, channel)
	}
	b.mu.Unlock()

	var errs []error
	for _, channel := range channels {
		b.fanout.drop(channel)
		if err := b.closeSubscription(channel); err != nil {
			errs = append(errs, err)
		}
	}

	log.Info().Msg("event bus closed")
	return errors.Join(errs...)
}
