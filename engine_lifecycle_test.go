package authgate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/authgate/authgate/store/memstore"
)

func TestLogoutEndsSession(t *testing.T) {
	engine, credentials, _, done := newTestEngine(t)
	defer done()

	seedAccount(t, credentials, "a1", "alice@example.com", false)
	ctx := agentContext(testAgent)
	pair := loginPair(t, engine, "a1")

	if err := engine.Logout(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	// The access token dies on the fast path.
	if _, err := engine.Authenticate(ctx, bearer(pair.AccessToken)); !errors.Is(err, ErrTokenBlacklisted) {
		t.Fatalf("expected ErrTokenBlacklisted after logout, got %v", err)
	}

	// The refresh family is revoked.
	if _, err := engine.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrReuseDetected) {
		t.Fatalf("expected ErrReuseDetected after logout, got %v", err)
	}
}

func TestLogoutTokensMismatch(t *testing.T) {
	engine, credentials, _, done := newTestEngine(t)
	defer done()

	seedAccount(t, credentials, "a1", "alice@example.com", false)
	seedAccount(t, credentials, "a2", "bob@example.com", false)
	ctx := agentContext(testAgent)

	alice := loginPair(t, engine, "a1")
	bob := loginPair(t, engine, "a2")

	err := engine.Logout(ctx, alice.AccessToken, bob.RefreshToken)
	if !errors.Is(err, ErrTokensMismatch) {
		t.Fatalf("expected ErrTokensMismatch, got %v", err)
	}

	// The presented access token is cut off even on mismatch.
	if _, err := engine.Authenticate(ctx, bearer(alice.AccessToken)); !errors.Is(err, ErrTokenBlacklisted) {
		t.Fatalf("expected ErrTokenBlacklisted after mismatch logout, got %v", err)
	}

	// Bob's session is untouched.
	if _, err := engine.Refresh(ctx, bob.RefreshToken); err != nil {
		t.Fatalf("unrelated session must survive, got %v", err)
	}
}

func TestLogoutRejectsSwappedTokenRoles(t *testing.T) {
	engine, credentials, _, done := newTestEngine(t)
	defer done()

	seedAccount(t, credentials, "a1", "alice@example.com", false)
	ctx := agentContext(testAgent)
	pair := loginPair(t, engine, "a1")

	if err := engine.Logout(ctx, pair.RefreshToken, pair.AccessToken); !errors.Is(err, ErrInvalidTokenType) {
		t.Fatalf("expected ErrInvalidTokenType, got %v", err)
	}
}

func TestLogoutFailClosedSurfacesCachePushFailure(t *testing.T) {
	cfg := testConfig()
	cfg.Blacklist.FailClosed = true
	engine, credentials, mr, done := newTestEngineWithConfig(t, cfg)
	defer done()

	seedAccount(t, credentials, "a1", "alice@example.com", false)
	ctx := agentContext(testAgent)
	pair := loginPair(t, engine, "a1")

	mr.SetError("cache down")
	if err := engine.Logout(ctx, pair.AccessToken, pair.RefreshToken); !errors.Is(err, ErrCacheUnavailable) {
		t.Fatalf("expected ErrCacheUnavailable, got %v", err)
	}
}

func TestSignoutRemovesAccountAndTokens(t *testing.T) {
	engine, credentials, _, done := newTestEngine(t)
	defer done()

	seedAccount(t, credentials, "a1", "alice@example.com", false)
	ctx := agentContext(testAgent)
	pair := loginPair(t, engine, "a1")

	if err := engine.Signout(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
		t.Fatalf("Signout failed: %v", err)
	}

	if !credentials.RemovedAccount("a1") {
		t.Fatal("expected the account in the removed set")
	}
	if got := credentials.TokenCount(); got != 0 {
		t.Fatalf("expected all records deleted, got %d", got)
	}
	if _, err := engine.Login(ctx, "a1"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound after signout, got %v", err)
	}
}

func TestRevokeOpaqueToken(t *testing.T) {
	engine, _, _, done := newTestEngine(t)
	defer done()

	const token = "ya29.opaque-provider-token"
	if err := engine.RevokeOpaque(context.Background(), token, time.Minute); err != nil {
		t.Fatalf("RevokeOpaque failed: %v", err)
	}

	revoked, err := engine.blacklist.IsRevoked(context.Background(), token)
	if err != nil {
		t.Fatalf("IsRevoked failed: %v", err)
	}
	if !revoked {
		t.Fatal("expected the opaque token in the revocation cache")
	}
}

func TestAuditEventsFlowToSink(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	cfg := testConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 16
	cfg.Audit.DropIfFull = false

	sink := NewChannelSink(16)
	credentials := memstore.New()

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithStore(credentials).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("engine build failed: %v", err)
	}
	defer engine.Close()

	seedAccount(t, credentials, "a1", "alice@example.com", false)
	ctx := WithClientIP(agentContext(testAgent), "198.51.100.7")

	if _, err := engine.Login(ctx, "a1"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	select {
	case event := <-sink.Events():
		if event.EventType != auditEventLoginSuccess {
			t.Fatalf("expected %s event, got %s", auditEventLoginSuccess, event.EventType)
		}
		if event.AccountID != "a1" || !event.Success {
			t.Fatalf("unexpected event payload: %+v", event)
		}
		if event.IP != "198.51.100.7" {
			t.Fatalf("expected client IP in event, got %q", event.IP)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for audit event")
	}
}
