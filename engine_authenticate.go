package authgate

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/authgate/authgate/internal"
	"github.com/authgate/authgate/jwt"
	"github.com/authgate/authgate/store"
)

const bearerPrefix = "Bearer "

// bearerToken extracts the token from an Authorization header value.
// Returns "" when the header is absent or not a bearer scheme.
func bearerToken(header string) string {
	if len(header) <= len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(header[len(bearerPrefix):])
}

// Authenticate describes the authenticate operation and its observable behavior.
//
// Authenticate may return an error when input validation, dependency calls, or security checks fail.
// Authenticate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Authenticate is the per-request guard over an Authorization header. The
// checks run in a fixed order; the first failure short-circuits the rest:
//
//  1. Bearer token present.
//  2. Signature and registered claims verify.
//  3. The token is an access token.
//  4. The account still exists.
//  5. The account is not disabled.
//  6. The user-agent fingerprint matches the one signed at issuance.
//  7. The jti carries no revocation entry (fail-open or fail-closed on
//     cache outage per [BlacklistConfig.FailClosed]).
//  8. The request is admitted with its decoded identity.
func (e *Engine) Authenticate(ctx context.Context, authorizationHeader string) (*Identity, error) {
	if e == nil || e.credentials == nil {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	identity, err := e.authenticate(ctx, authorizationHeader)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricAuthenticateLatency, time.Since(start))
	}
	if err != nil {
		e.metricInc(MetricAuthenticateFailure)
		return nil, err
	}

	e.metricInc(MetricAuthenticateSuccess)
	return identity, nil
}

func (e *Engine) authenticate(ctx context.Context, authorizationHeader string) (*Identity, error) {
	token := bearerToken(authorizationHeader)
	if token == "" {
		return nil, ErrNoAuthToken
	}

	claims, err := e.jwtManager.Parse(token)
	if err != nil {
		return nil, mapTokenError(err)
	}
	if claims.Kind != jwt.KindAccess {
		return nil, ErrInvalidTokenType
	}

	account, err := e.credentials.FindAccountByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, errStoreUnavailable(err)
	}
	if account.Disabled {
		return nil, ErrAccountDisabled
	}

	if claims.Agent != internal.FingerprintAgent(userAgentFromContext(ctx)) {
		e.metricInc(MetricAgentMismatch)
		e.emitAudit(ctx, auditEventAgentMismatch, false, claims.Subject, claims.ID, "", ErrAgentMismatch, nil)
		return nil, ErrAgentMismatch
	}

	revoked, err := e.blacklist.IsRevoked(ctx, claims.ID)
	switch {
	case err != nil:
		if e.config.Blacklist.FailClosed {
			return nil, errCacheUnavailable(err)
		}
		// Degraded acceptance: signature and expiry still hold, only early
		// revocation is unavailable.
		e.metricInc(MetricBlacklistDegraded)
		log.Printf("authgate: revocation check degraded for jti %s: %v", claims.ID, err)
	case revoked:
		e.metricInc(MetricBlacklistHit)
		e.emitAudit(ctx, auditEventBlacklistHit, false, claims.Subject, claims.ID, "", ErrTokenBlacklisted, nil)
		return nil, ErrTokenBlacklisted
	}

	identity := &Identity{
		AccountID: claims.Subject,
		TokenID:   claims.ID,
		Agent:     claims.Agent,
	}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}

	return identity, nil
}
