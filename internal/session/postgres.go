package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/surfkit/surfkit/internal/catalog"
)

// PostgresStore persists sessions in a PostgreSQL table. The schema lives in
// db/migrations and is applied with db.Migrate before the pool is handed in.
//
// Ids are stored as text, not uuid: they are opaque to the store, and tests
// stub the generator with non-UUID values.
type PostgresStore struct {
	pool   *pgxpool.Pool
	ttl    time.Duration
	logger *slog.Logger
}

// NewPostgresStore creates a store on top of an existing connection pool.
// ttl of zero disables expiry.
func NewPostgresStore(pool *pgxpool.Pool, ttl time.Duration, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{pool: pool, ttl: ttl, logger: logger}
}

// Put upserts the catalog under id. Overwrites restart the TTL.
func (s *PostgresStore) Put(ctx context.Context, id string, cat catalog.Catalog) error {
	var expiresAt *time.Time
	if s.ttl > 0 {
		t := time.Now().Add(s.ttl)
		expiresAt = &t
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (id, catalog, expires_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE
		 SET catalog = EXCLUDED.catalog, expires_at = EXCLUDED.expires_at`,
		id, cat.Raw(), expiresAt,
	)
	if err != nil {
		return fmt.Errorf("%w: writing session %s: %w", ErrStoreUnavailable, id, err)
	}

	s.logger.Debug("stored session catalog", "session_id", id)
	return nil
}

// Get returns the catalog for id. Expired rows are filtered in the query and
// reported as ErrSessionNotFound like absent ones.
func (s *PostgresStore) Get(ctx context.Context, id string) (catalog.Catalog, error) {
	var raw json.RawMessage
	err := s.pool.QueryRow(ctx,
		`SELECT catalog FROM sessions
		 WHERE id = $1 AND (expires_at IS NULL OR expires_at > now())`,
		id,
	).Scan(&raw)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return catalog.Catalog{}, ErrSessionNotFound
	case err != nil:
		return catalog.Catalog{}, fmt.Errorf("%w: reading session %s: %w", ErrStoreUnavailable, id, err)
	}

	cat, err := catalog.New(raw)
	if err != nil {
		// A row that no longer parses is corrupt storage, not a missing session.
		return catalog.Catalog{}, fmt.Errorf("%w: session %s holds invalid catalog: %w", ErrStoreUnavailable, id, err)
	}
	return cat, nil
}

// Sweep deletes expired rows. Intended for a periodic maintenance call; Get
// correctness does not depend on it.
func (s *PostgresStore) Sweep(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at IS NOT NULL AND expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("%w: sweeping sessions: %w", ErrStoreUnavailable, err)
	}
	return tag.RowsAffected(), nil
}
