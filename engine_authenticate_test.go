package authgate

import (
	"context"
	"errors"
	"testing"
	"time"
)

func bearer(token string) string {
	return "Bearer " + token
}

func TestAuthenticateAdmitsValidAccessToken(t *testing.T) {
	engine, credentials, _, done := newTestEngine(t)
	defer done()

	seedAccount(t, credentials, "a1", "alice@example.com", false)
	ctx := agentContext(testAgent)
	pair := loginPair(t, engine, "a1")

	identity, err := engine.Authenticate(ctx, bearer(pair.AccessToken))
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if identity.AccountID != "a1" {
		t.Fatalf("expected account a1, got %s", identity.AccountID)
	}
	if identity.TokenID == "" {
		t.Fatal("expected a jti in the identity")
	}
	if identity.ExpiresAt.IsZero() || identity.ExpiresAt.Before(time.Now()) {
		t.Fatal("expected a future expiry in the identity")
	}
}

func TestAuthenticateHeaderShapes(t *testing.T) {
	engine, credentials, _, done := newTestEngine(t)
	defer done()

	seedAccount(t, credentials, "a1", "alice@example.com", false)
	ctx := agentContext(testAgent)
	pair := loginPair(t, engine, "a1")

	cases := []struct {
		name   string
		header string
		want   error
	}{
		{"missing", "", ErrNoAuthToken},
		{"wrong scheme", "Basic abc123", ErrNoAuthToken},
		{"bare token", pair.AccessToken, ErrNoAuthToken},
		{"garbage token", "Bearer not-a-jwt", ErrTokenMalformed},
		{"lowercase scheme", "bearer " + pair.AccessToken, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.Authenticate(ctx, tc.header)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestAuthenticateRejectsRefreshToken(t *testing.T) {
	engine, credentials, _, done := newTestEngine(t)
	defer done()

	seedAccount(t, credentials, "a1", "alice@example.com", false)
	ctx := agentContext(testAgent)
	pair := loginPair(t, engine, "a1")

	_, err := engine.Authenticate(ctx, bearer(pair.RefreshToken))
	if !errors.Is(err, ErrInvalidTokenType) {
		t.Fatalf("expected ErrInvalidTokenType, got %v", err)
	}
}

func TestAuthenticateAgentMismatch(t *testing.T) {
	engine, credentials, _, done := newTestEngine(t)
	defer done()

	seedAccount(t, credentials, "a1", "alice@example.com", false)
	pair := loginPair(t, engine, "a1")

	_, err := engine.Authenticate(agentContext(otherAgent), bearer(pair.AccessToken))
	if !errors.Is(err, ErrAgentMismatch) {
		t.Fatalf("expected ErrAgentMismatch, got %v", err)
	}
	if got := engine.metrics.Value(MetricAgentMismatch); got != 1 {
		t.Fatalf("expected 1 agent mismatch, got %d", got)
	}
}

func TestAuthenticateBlacklistedToken(t *testing.T) {
	engine, credentials, _, done := newTestEngine(t)
	defer done()

	seedAccount(t, credentials, "a1", "alice@example.com", false)
	ctx := agentContext(testAgent)
	pair := loginPair(t, engine, "a1")

	claims, err := engine.jwtManager.Parse(pair.AccessToken)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if err := engine.blacklist.Revoke(context.Background(), claims.ID, time.Minute); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	_, err = engine.Authenticate(ctx, bearer(pair.AccessToken))
	if !errors.Is(err, ErrTokenBlacklisted) {
		t.Fatalf("expected ErrTokenBlacklisted, got %v", err)
	}
	if got := engine.metrics.Value(MetricBlacklistHit); got != 1 {
		t.Fatalf("expected 1 blacklist hit, got %d", got)
	}
}

func TestAuthenticateCacheOutageFailOpen(t *testing.T) {
	engine, credentials, mr, done := newTestEngine(t)
	defer done()

	seedAccount(t, credentials, "a1", "alice@example.com", false)
	ctx := agentContext(testAgent)
	pair := loginPair(t, engine, "a1")

	mr.SetError("cache down")
	defer mr.SetError("")

	identity, err := engine.Authenticate(ctx, bearer(pair.AccessToken))
	if err != nil {
		t.Fatalf("fail-open Authenticate failed: %v", err)
	}
	if identity.AccountID != "a1" {
		t.Fatalf("expected account a1, got %s", identity.AccountID)
	}
	if got := engine.metrics.Value(MetricBlacklistDegraded); got != 1 {
		t.Fatalf("expected 1 degraded acceptance, got %d", got)
	}
}

func TestAuthenticateCacheOutageFailClosed(t *testing.T) {
	cfg := testConfig()
	cfg.Blacklist.FailClosed = true

	engine, credentials, mr, done := newTestEngineWithConfig(t, cfg)
	defer done()

	seedAccount(t, credentials, "a1", "alice@example.com", false)
	ctx := agentContext(testAgent)
	pair := loginPair(t, engine, "a1")

	mr.SetError("cache down")
	defer mr.SetError("")

	_, err := engine.Authenticate(ctx, bearer(pair.AccessToken))
	if !errors.Is(err, ErrCacheUnavailable) {
		t.Fatalf("expected ErrCacheUnavailable, got %v", err)
	}
}

func TestAuthenticateRemovedAccount(t *testing.T) {
	engine, credentials, _, done := newTestEngine(t)
	defer done()

	seedAccount(t, credentials, "a1", "alice@example.com", false)
	ctx := agentContext(testAgent)
	pair := loginPair(t, engine, "a1")

	if err := credentials.RemoveAccount(context.Background(), "a1"); err != nil {
		t.Fatalf("RemoveAccount failed: %v", err)
	}

	_, err := engine.Authenticate(ctx, bearer(pair.AccessToken))
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestAuthenticateDisabledAccount(t *testing.T) {
	engine, credentials, _, done := newTestEngine(t)
	defer done()

	seedAccount(t, credentials, "a1", "alice@example.com", false)
	ctx := agentContext(testAgent)
	pair := loginPair(t, engine, "a1")

	account, err := credentials.FindAccountByID(context.Background(), "a1")
	if err != nil {
		t.Fatalf("FindAccountByID failed: %v", err)
	}
	account.Disabled = true
	if err := credentials.UpdateAccount(context.Background(), account); err != nil {
		t.Fatalf("UpdateAccount failed: %v", err)
	}

	_, err = engine.Authenticate(ctx, bearer(pair.AccessToken))
	if !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
}
