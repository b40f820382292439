package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/surfkit/surfkit/internal/catalog"
)

// MemoryStore keeps sessions in process memory. It is the default backend
// for development and tests. Expired entries are reaped lazily on read.
//
// Safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

type memoryEntry struct {
	cat       catalog.Catalog
	expiresAt time.Time // zero means no expiry
}

// NewMemoryStore creates an in-memory store. ttl of zero disables expiry.
func NewMemoryStore(ttl time.Duration, logger *slog.Logger) *MemoryStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
		logger:  logger,
	}
}

// Put stores the catalog under id, replacing any previous value and
// restarting its TTL.
func (s *MemoryStore) Put(_ context.Context, id string, cat catalog.Catalog) error {
	entry := memoryEntry{cat: cat}
	if s.ttl > 0 {
		entry.expiresAt = s.now().Add(s.ttl)
	}

	s.mu.Lock()
	s.entries[id] = entry
	s.mu.Unlock()

	s.logger.Debug("stored session catalog", "session_id", id)
	return nil
}

// Get returns the catalog for id, or ErrSessionNotFound if the id is unknown
// or its TTL has elapsed.
func (s *MemoryStore) Get(_ context.Context, id string) (catalog.Catalog, error) {
	s.mu.RLock()
	entry, ok := s.entries[id]
	s.mu.RUnlock()

	if !ok {
		return catalog.Catalog{}, ErrSessionNotFound
	}

	if !entry.expiresAt.IsZero() && s.now().After(entry.expiresAt) {
		s.mu.Lock()
		// Re-check under the write lock; another Put may have refreshed it.
		if cur, ok := s.entries[id]; ok && cur.expiresAt.Equal(entry.expiresAt) {
			delete(s.entries, id)
		}
		s.mu.Unlock()
		s.logger.Debug("session expired", "session_id", id)
		return catalog.Catalog{}, ErrSessionNotFound
	}

	return entry.cat, nil
}

// Len reports the number of stored sessions, counting entries whose TTL has
// elapsed but which have not been reaped yet.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
