package cache

import (
	"context"
	"errors"
	"strings"

	"github.com/zatekoja/patientcare/backend/internal/domain/providers"
	"github.com/zatekoja/patientcare/backend/internal/infrastructure/observability"
)

// Instrumented counts hits and misses of the wrapped cache, grouped by the
// key's first segment ("doctors", "stats", ...)
type Instrumented struct {
	providers.CacheProvider
	metrics *observability.Metrics
}

// NewInstrumented wraps inner; a nil metrics set disables recording
func NewInstrumented(inner providers.CacheProvider, metrics *observability.Metrics) *Instrumented {
	return &Instrumented{CacheProvider: inner, metrics: metrics}
}

// Get retrieves a value and records the outcome
func (c *Instrumented) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := c.CacheProvider.Get(ctx, key)
	switch {
	case err == nil:
		observability.RecordCacheResult(ctx, c.metrics, keyFamily(key), true)
	case errors.Is(err, providers.ErrCacheMiss):
		observability.RecordCacheResult(ctx, c.metrics, keyFamily(key), false)
	}
	return value, err
}

func keyFamily(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}
