package blacklist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewStore(rdb, "")

	return s, mr, func() {
		_ = rdb.Close()
		mr.Close()
	}
}

func TestRevokeAndCheck(t *testing.T) {
	s, _, done := newTestStore(t)
	defer done()
	ctx := context.Background()

	if err := s.Revoke(ctx, "jti-1", time.Minute); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	revoked, err := s.IsRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("IsRevoked failed: %v", err)
	}
	if !revoked {
		t.Fatal("expected jti-1 revoked")
	}

	revoked, err = s.IsRevoked(ctx, "jti-2")
	if err != nil {
		t.Fatalf("IsRevoked failed: %v", err)
	}
	if revoked {
		t.Fatal("jti-2 must not be revoked")
	}
}

func TestRevocationExpires(t *testing.T) {
	s, mr, done := newTestStore(t)
	defer done()
	ctx := context.Background()

	if err := s.Revoke(ctx, "jti-1", time.Minute); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	ttl, err := s.TTL(ctx, "jti-1")
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	mr.FastForward(2 * time.Minute)

	revoked, err := s.IsRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("IsRevoked failed: %v", err)
	}
	if revoked {
		t.Fatal("entry must expire with its ttl")
	}
}

func TestRevokeNonPositiveTTLIsNoOp(t *testing.T) {
	s, _, done := newTestStore(t)
	defer done()
	ctx := context.Background()

	if err := s.Revoke(ctx, "jti-1", 0); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if err := s.Revoke(ctx, "jti-1", -time.Second); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	revoked, err := s.IsRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("IsRevoked failed: %v", err)
	}
	if revoked {
		t.Fatal("expired input must not create an entry")
	}
}

func TestKeyPrefix(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	s := NewStore(rdb, "revoked")
	if err := s.Revoke(context.Background(), "jti-1", time.Minute); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if !mr.Exists("revoked:jti-1") {
		t.Fatal("expected key under the configured prefix")
	}

	d := NewStore(rdb, "")
	if err := d.Revoke(context.Background(), "jti-2", time.Minute); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if !mr.Exists("blacklist:jti-2") {
		t.Fatal("expected key under the default prefix")
	}
}

func TestUnavailableCacheSurfacesTypedError(t *testing.T) {
	s, mr, done := newTestStore(t)
	defer done()
	ctx := context.Background()

	mr.SetError("boom")
	defer mr.SetError("")

	if err := s.Revoke(ctx, "jti-1", time.Minute); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if _, err := s.IsRevoked(ctx, "jti-1"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
