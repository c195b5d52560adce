package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/patientcare/backend/internal/domain/entities"
	"github.com/zatekoja/patientcare/backend/internal/domain/providers"
	"github.com/zatekoja/patientcare/backend/internal/domain/repositories"
)

const (
	defaultDoctorLimit = 100
	maxDoctorLimit     = 500

	doctorListKeyPrefix = "doctors:list:"
)

// DoctorService serves the bookable doctor list through a read-through cache
type DoctorService struct {
	repo  repositories.DoctorRepository
	cache providers.CacheProvider
	ttl   time.Duration
}

// NewDoctorService creates a new doctor service. cache may be nil.
func NewDoctorService(repo repositories.DoctorRepository, cache providers.CacheProvider, ttl time.Duration) *DoctorService {
	return &DoctorService{repo: repo, cache: cache, ttl: ttl}
}

// List returns up to limit active doctors ordered by name
func (s *DoctorService) List(ctx context.Context, limit int) ([]*entities.Doctor, error) {
	if limit <= 0 {
		limit = defaultDoctorLimit
	}
	if limit > maxDoctorLimit {
		limit = maxDoctorLimit
	}

	key := fmt.Sprintf("%s%d", doctorListKeyPrefix, limit)
	if s.cache != nil {
		data, err := s.cache.Get(ctx, key)
		if err == nil {
			var doctors []*entities.Doctor
			if err := json.Unmarshal(data, &doctors); err == nil {
				return doctors, nil
			}
			log.Warn().Str("key", key).Msg("discarding undecodable doctor list cache entry")
		} else if !errors.Is(err, providers.ErrCacheMiss) {
			log.Warn().Err(err).Str("key", key).Msg("doctor list cache read failed")
		}
	}

	doctors, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && s.ttl > 0 {
		if data, err := json.Marshal(doctors); err == nil {
			if err := s.cache.Set(ctx, key, data, int(s.ttl.Seconds())); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("doctor list cache write failed")
			}
		}
	}
	return doctors, nil
}

// Get returns one doctor
func (s *DoctorService) Get(ctx context.Context, id string) (*entities.Doctor, error) {
	return s.repo.GetByID(ctx, id)
}

// InvalidateList drops every cached doctor list
func (s *DoctorService) InvalidateList(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.DeletePattern(ctx, doctorListKeyPrefix+"*")
}
