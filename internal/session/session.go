// Package session binds opaque session ids to immutable widget catalogs.
//
// The Store interface is the persistence seam: backends exist for memory,
// PostgreSQL and Redis, selected by configuration. A catalog never changes
// after creation; sessions disappear only through TTL expiry.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/surfkit/surfkit/internal/catalog"
)

// Sentinel errors, checked with errors.Is.
var (
	// ErrSessionNotFound indicates the session id is unknown or expired.
	ErrSessionNotFound = errors.New("session not found")

	// ErrStoreUnavailable wraps backend faults (connection loss, timeouts).
	ErrStoreUnavailable = errors.New("session store unavailable")
)

// Store is the persistence contract for sessions. Implementations must be
// safe for concurrent use; per-id reads and writes are atomic.
type Store interface {
	// Put writes the catalog under id, overwriting any previous value.
	Put(ctx context.Context, id string, cat catalog.Catalog) error

	// Get returns the catalog bound to id, or ErrSessionNotFound.
	Get(ctx context.Context, id string) (catalog.Catalog, error)
}

// Lifecycle creates sessions: it mints a fresh id and seeds the store.
// Collisions between freshly generated UUIDs are treated as negligible, so
// no uniqueness check is made against the store.
type Lifecycle struct {
	store  Store
	newID  func() string
	logger *slog.Logger
}

// LifecycleOption adjusts Lifecycle construction.
type LifecycleOption func(*Lifecycle)

// WithIDGenerator replaces the id source. Tests stub this to get
// deterministic session ids.
func WithIDGenerator(fn func() string) LifecycleOption {
	return func(l *Lifecycle) { l.newID = fn }
}

// NewLifecycle creates a Lifecycle backed by store.
func NewLifecycle(store Store, logger *slog.Logger, opts ...LifecycleOption) *Lifecycle {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Lifecycle{
		store:  store,
		newID:  uuid.NewString,
		logger: logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start creates a session for cat and returns its id. It fails only when
// the store write fails; catalog content is never inspected beyond New's
// syntax check at construction.
func (l *Lifecycle) Start(ctx context.Context, cat catalog.Catalog) (string, error) {
	l.logger.Info("starting new session")
	id := l.newID()
	l.logger.Debug("generated session id", "session_id", id)

	if err := l.store.Put(ctx, id, cat); err != nil {
		return "", fmt.Errorf("seeding session %s: %w", id, err)
	}

	l.logger.Info("session started", "session_id", id)
	return id, nil
}
