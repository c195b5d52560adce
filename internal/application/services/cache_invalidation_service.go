package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
	"github.com/zatekoja/patientcare/backend/internal/domain/providers"
)

// CacheInvalidationService drops cached dashboard stats when portal events arrive
type CacheInvalidationService struct {
	cache    providers.CacheProvider
	eventBus providers.EventBus
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewCacheInvalidationService creates a new cache invalidation service
func NewCacheInvalidationService(cache providers.CacheProvider, eventBus providers.EventBus) *CacheInvalidationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &CacheInvalidationService{
		cache:    cache,
		eventBus: eventBus,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start begins listening for events and invalidating cache
func (s *CacheInvalidationService) Start() error {
	eventChan, err := s.eventBus.Subscribe(s.ctx, providers.EventChannelPortal)
	if err != nil {
		return fmt.Errorf("failed to subscribe to portal events: %w", err)
	}

	go s.processEvents(eventChan)
	log.Info().Msg("cache invalidation service started")
	return nil
}

// Stop stops the cache invalidation service
func (s *CacheInvalidationService) Stop() {
	s.cancel()
	log.Info().Msg("cache invalidation service stopped")
}

func (s *CacheInvalidationService) processEvents(eventChan <-chan *entities.PortalEvent) {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if event == nil {
				continue
			}
			s.handleEvent(event)
		}
	}
}

// handleEvent invalidates the clinic-wide stats and the stats of every
// patient and doctor the event is addressed to
func (s *CacheInvalidationService) handleEvent(event *entities.PortalEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, key := range StatsKeysForEvent(event) {
		if err := s.cache.Delete(ctx, key); err != nil {
			log.Warn().Err(err).Str("key", key).Str("event_id", event.ID).Msg("failed to invalidate stats cache")
		}
	}
}

// StatsKeysForEvent lists the stats cache keys an event makes stale
func StatsKeysForEvent(event *entities.PortalEvent) []string {
	keys := []string{StatsCacheKey(entities.StatsScope{})}
	for _, topic := range event.Topics {
		switch {
		case strings.HasPrefix(topic, entities.TopicPatientPrefix):
			keys = append(keys, StatsCacheKey(entities.StatsScope{PatientID: strings.TrimPrefix(topic, entities.TopicPatientPrefix)}))
		case strings.HasPrefix(topic, entities.TopicDoctorPrefix):
			keys = append(keys, StatsCacheKey(entities.StatsScope{DoctorID: strings.TrimPrefix(topic, entities.TopicDoctorPrefix)}))
		}
	}
	return keys
}

// InvalidateAllStats drops every cached stats entry
func (s *CacheInvalidationService) InvalidateAllStats(ctx context.Context) error {
	if err := s.cache.DeletePattern(ctx, statsKeyPrefix+"*"); err != nil {
		return fmt.Errorf("failed to invalidate stats caches: %w", err)
	}
	log.Info().Msg("invalidated all stats caches")
	return nil
}
