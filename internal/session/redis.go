package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/surfkit/surfkit/internal/catalog"
)

// redisKeyPrefix namespaces session keys in a shared Redis instance.
const redisKeyPrefix = "surfkit:session:"

// RedisStore persists sessions in Redis, with expiry delegated to Redis
// key TTLs.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisStore creates a store on top of an existing Redis client.
// ttl of zero stores keys without expiry.
func NewRedisStore(client redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{client: client, ttl: ttl, logger: logger}
}

// Put stores the catalog under id. SET replaces any previous value and
// restarts the TTL.
func (s *RedisStore) Put(ctx context.Context, id string, cat catalog.Catalog) error {
	if err := s.client.Set(ctx, redisKeyPrefix+id, []byte(cat.Raw()), s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: writing session %s: %w", ErrStoreUnavailable, id, err)
	}
	s.logger.Debug("stored session catalog", "session_id", id)
	return nil
}

// Get returns the catalog for id. Expired keys vanish in Redis, so absent
// and expired sessions are indistinguishable here, as intended.
func (s *RedisStore) Get(ctx context.Context, id string) (catalog.Catalog, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+id).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return catalog.Catalog{}, ErrSessionNotFound
	case err != nil:
		return catalog.Catalog{}, fmt.Errorf("%w: reading session %s: %w", ErrStoreUnavailable, id, err)
	}

	cat, err := catalog.New(raw)
	if err != nil {
		return catalog.Catalog{}, fmt.Errorf("%w: session %s holds invalid catalog: %w", ErrStoreUnavailable, id, err)
	}
	return cat, nil
}
