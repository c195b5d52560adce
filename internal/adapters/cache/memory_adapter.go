package cache

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/zatekoja/patientcare/backend/internal/domain/providers"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryAdapter is an in-process CacheProvider used when Redis is disabled
type MemoryAdapter struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryAdapter creates an empty in-process cache
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get retrieves a value from cache
func (m *MemoryAdapter) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || (!entry.expiresAt.IsZero() && m.now().After(entry.expiresAt)) {
		return nil, providers.ErrCacheMiss
	}
	return append([]byte(nil), entry.value...), nil
}

// Set stores a value; a non-positive expiration keeps it until deleted
func (m *MemoryAdapter) Set(_ context.Context, key string, value []byte, expirationSeconds int) error {
	entry := memoryEntry{value: append([]byte(nil), value...)}
	if expirationSeconds > 0 {
		entry.expiresAt = m.now().Add(time.Duration(expirationSeconds) * time.Second)
	}

	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
	return nil
}

// Delete removes a value from cache
func (m *MemoryAdapter) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// DeletePattern removes every key matching a glob pattern
func (m *MemoryAdapter) DeletePattern(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.entries, key)
		}
	}
	return nil
}
