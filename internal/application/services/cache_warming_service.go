package services

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
)

// DoctorLister is the slice of DoctorService used to warm the directory cache
type DoctorLister interface {
	List(ctx context.Context, limit int) ([]*entities.Doctor, error)
}

// StatsReader is the slice of StatsService used to warm dashboard counts
type StatsReader interface {
	DashboardStats(ctx context.Context, scope entities.StatsScope) (*entities.DashboardStats, error)
}

// CacheWarmingService primes the read-through caches at startup
type CacheWarmingService struct {
	doctors DoctorLister
	stats   StatsReader
}

// NewCacheWarmingService creates a new cache warming service
func NewCacheWarmingService(doctors DoctorLister, stats StatsReader) *CacheWarmingService {
	return &CacheWarmingService{
		doctors: doctors,
		stats:   stats,
	}
}

// WarmCache loads the default doctor list page and the staff-wide stats.
// Failures are logged; a cold cache only costs a slower first request.
func (s *CacheWarmingService) WarmCache(ctx context.Context) error {
	log.Info().Msg("Starting cache warming...")

	if doctors, err := s.doctors.List(ctx, 0); err != nil {
		log.Warn().Err(err).Msg("Failed to warm doctor list")
	} else {
		log.Debug().Int("count", len(doctors)).Msg("Warmed doctor list")
	}

	if _, err := s.stats.DashboardStats(ctx, entities.StatsScope{}); err != nil {
		log.Warn().Err(err).Msg("Failed to warm dashboard stats")
	}

	log.Info().Msg("Cache warming completed")
	return ctx.Err()
}
