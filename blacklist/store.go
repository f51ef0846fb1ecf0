package blacklist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable is an exported constant or variable used by the token lifecycle engine.
var ErrUnavailable = errors.New("revocation cache unavailable")

// DefaultPrefix is the key namespace for revocation entries.
const DefaultPrefix = "blacklist"

const revokedValue = "1"

// Store is the Redis-backed revocation cache. An entry under
// "blacklist:<id>" marks a jti (or an opaque third-party token) revoked
// until its natural expiry; entries are never a source of truth, only a
// fast-path denial for outstanding access tokens.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a revocation cache over the given Redis client. prefix
// defaults to [DefaultPrefix] when empty.
func NewStore(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{
		redis:  client,
		prefix: prefix,
	}
}

func (s *Store) key(id string) string {
	return s.prefix + ":" + id
}

// Revoke records id as revoked for ttl. A non-positive ttl is a no-op: the
// thing being revoked has already expired naturally.
func (s *Store) Revoke(ctx context.Context, id string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := s.redis.Set(ctx, s.key(id), revokedValue, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// IsRevoked reports whether id carries a live revocation entry. Cache
// unavailability surfaces as a distinguishable error, never as a silent
// false negative.
func (s *Store) IsRevoked(ctx context.Context, id string) (bool, error) {
	err := s.redis.Get(ctx, s.key(id)).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return true, nil
}

// TTL returns the remaining lifetime of a revocation entry, or zero when no
// entry exists.
func (s *Store) TTL(ctx context.Context, id string) (time.Duration, error) {
	d, err := s.redis.TTL(ctx, s.key(id)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if d < 0 {
		return 0, nil
	}
	return d, nil
}

// Ping returns a point-in-time cache availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return time.Since(start), nil
}

// Close releases the underlying client connection.
func (s *Store) Close() error {
	return s.redis.Close()
}
