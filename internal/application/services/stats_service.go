package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
	"github.com/zatekoja/patientcare/backend/internal/domain/providers"
	"github.com/zatekoja/patientcare/backend/internal/domain/repositories"
)

const statsKeyPrefix = "stats:"

// StatsService computes dashboard counts, cached per scope
type StatsService struct {
	appointmentRepo  repositories.AppointmentRepository
	prescriptionRepo repositories.PrescriptionRepository
	cache            providers.CacheProvider
	ttl              time.Duration
	now              func() time.Time
}

// NewStatsService creates a new stats service. cache may be nil.
func NewStatsService(
	appointmentRepo repositories.AppointmentRepository,
	prescriptionRepo repositories.PrescriptionRepository,
	cache providers.CacheProvider,
	ttl time.Duration,
) *StatsService {
	return &StatsService{
		appointmentRepo:  appointmentRepo,
		prescriptionRepo: prescriptionRepo,
		cache:            cache,
		ttl:              ttl,
		now:              time.Now,
	}
}

// StatsCacheKey returns the cache key for a scope
func StatsCacheKey(scope entities.StatsScope) string {
	switch {
	case scope.PatientID != "":
		return fmt.Sprintf("%spatient:%s", statsKeyPrefix, scope.PatientID)
	case scope.DoctorID != "":
		return fmt.Sprintf("%sdoctor:%s", statsKeyPrefix, scope.DoctorID)
	default:
		return statsKeyPrefix + "all"
	}
}

// DashboardStats returns counts for the scope
func (s *StatsService) DashboardStats(ctx context.Context, scope entities.StatsScope) (*entities.DashboardStats, error) {
	key := StatsCacheKey(scope)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil {
			var stats entities.DashboardStats
			if json.Unmarshal(data, &stats) == nil {
				return &stats, nil
			}
		} else if !errors.Is(err, providers.ErrCacheMiss) {
			log.Warn().Err(err).Str("key", key).Msg("stats cache read failed")
		}
	}

	var (
		byStatus      map[entities.AppointmentStatus]int
		prescriptions int
		active        int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		byStatus, err = s.appointmentRepo.CountByStatus(gctx, scope)
		return err
	})
	g.Go(func() error {
		var err error
		prescriptions, err = s.prescriptionRepo.Count(gctx, scope)
		return err
	})
	g.Go(func() error {
		var err error
		active, err = s.appointmentRepo.CountActiveConsultations(gctx, scope)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := &entities.DashboardStats{
		Pending:             byStatus[entities.AppointmentStatusPending],
		Upcoming:            byStatus[entities.AppointmentStatusScheduled] + byStatus[entities.AppointmentStatusConfirmed],
		Completed:           byStatus[entities.AppointmentStatusCompleted],
		Cancelled:           byStatus[entities.AppointmentStatusCancelled],
		Prescriptions:       prescriptions,
		ActiveConsultations: active,
		GeneratedAt:         s.now().UTC(),
	}
	for _, n := range byStatus {
		stats.TotalAppointments += n
	}

	if s.cache != nil && s.ttl > 0 {
		if data, err := json.Marshal(stats); err == nil {
			if err := s.cache.Set(ctx, key, data, int(s.ttl.Seconds())); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("stats cache write failed")
			}
		}
	}
	return stats, nil
}
