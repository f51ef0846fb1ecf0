package authgate

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/authgate/authgate/internal"
	"github.com/authgate/authgate/jwt"
	"github.com/authgate/authgate/store"
)

// rotate is the refresh-token state machine. The persisted record is the
// source of truth: a signed, unexpired refresh token whose record is gone
// has already been spent, and spending a token twice is treated as theft.
//
// The delete of the presented record is the serialization point. Two
// concurrent rotations of the same token both pass the lookup, but the
// store's single-document delete admits exactly one of them; the loser gets
// ErrTokenNotValid, not a reuse escalation.
func (e *Engine) rotate(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if e == nil || e.credentials == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.jwtManager.Parse(refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, mapTokenError(err)
	}
	if claims.Kind != jwt.KindRefresh {
		e.metricInc(MetricRefreshFailure)
		return nil, ErrInvalidTokenType
	}

	record, err := e.credentials.FindToken(ctx, claims.Subject, refreshToken, store.KindRefresh)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Valid signature, no record: this token was already spent.
			return nil, e.handleReuse(ctx, claims, false)
		}
		e.metricInc(MetricRefreshFailure)
		return nil, errStoreUnavailable(err)
	}
	if record.Blacklisted {
		// The family is quarantined and the attacker (or victim) is still
		// replaying into it. Escalate to the terminal tier.
		return nil, e.handleReuse(ctx, claims, true)
	}

	fingerprint := internal.FingerprintAgent(userAgentFromContext(ctx))
	if claims.Agent != fingerprint {
		// Suspicious but not proven theft: reject without any family action.
		e.metricInc(MetricAgentMismatch)
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshFailure, false, claims.Subject, claims.ID, claims.Family, ErrAgentMismatch, nil)
		return nil, ErrAgentMismatch
	}

	// Account status gates come before any record mutation: a disabled
	// account's refresh attempt must leave its stored tokens untouched.
	account, err := e.credentials.FindAccountByID(ctx, claims.Subject)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, errStoreUnavailable(err)
	}
	if account.Disabled {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshFailure, false, claims.Subject, claims.ID, claims.Family, ErrAccountDisabled, nil)
		return nil, ErrAccountDisabled
	}

	if err := e.credentials.DeleteTokenByID(ctx, record.JTI); err != nil {
		e.metricInc(MetricRefreshFailure)
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTokenNotValid
		}
		return nil, errStoreUnavailable(err)
	}

	pair, _, err := e.issuePair(ctx, claims.Subject, claims.Family)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, claims.Subject, claims.ID, claims.Family, nil, nil)

	return pair, nil
}

// handleReuse applies the two-tier reuse policy to the presented token's
// family.
//
// First order (the presented record is gone): the family still has live
// records, so the legitimate client still holds a working chain somewhere.
// Quarantine: blacklist every record and push their jtis into the
// revocation cache so outstanding access tokens die with them.
//
// Second order (the presented record survives but is blacklisted, or the
// family has no live records left): someone is replaying into a quarantined
// family. Purge its records entirely; from here every future presentation
// fails as an already-spent token.
func (e *Engine) handleReuse(ctx context.Context, claims *jwt.Claims, quarantined bool) error {
	e.metricInc(MetricReuseDetected)
	e.metricInc(MetricRefreshFailure)

	records, err := e.credentials.FindTokensByFamily(ctx, claims.Family)
	if err != nil {
		return errStoreUnavailable(err)
	}

	escalate := quarantined || len(records) == 0
	if !escalate {
		escalate = true
		for _, r := range records {
			if !r.Blacklisted {
				escalate = false
				break
			}
		}
	}

	if escalate {
		if err := e.credentials.DeleteTokensByFamily(ctx, claims.Family); err != nil {
			return errStoreUnavailable(err)
		}
		e.metricInc(MetricFamilyPurged)
		e.emitAudit(ctx, auditEventFamilyPurged, false, claims.Subject, claims.ID, claims.Family, ErrReuseDetected, nil)
		return ErrReuseDetected
	}

	if err := e.credentials.BlacklistFamily(ctx, claims.Family); err != nil {
		return errStoreUnavailable(err)
	}
	if err := e.pushFamilyToCache(ctx, records); err != nil {
		return err
	}

	e.metricInc(MetricFamilyRevoked)
	e.emitAudit(ctx, auditEventReuseDetected, false, claims.Subject, claims.ID, claims.Family, ErrReuseDetected, nil)

	return ErrReuseDetected
}

// RevokeFamily describes the revokefamily operation and its observable behavior.
//
// RevokeFamily may return an error when input validation, dependency calls, or security checks fail.
// RevokeFamily does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// RevokeFamily blacklists every record in familyID and pushes their jtis to
// the revocation cache. Logout uses it for the session's own family; it is
// also the administrative kill switch for a single device's session chain.
func (e *Engine) RevokeFamily(ctx context.Context, familyID string) error {
	if e == nil || e.credentials == nil {
		return ErrEngineNotReady
	}
	if familyID == "" {
		return nil
	}

	records, err := e.credentials.FindTokensByFamily(ctx, familyID)
	if err != nil {
		return errStoreUnavailable(err)
	}
	if err := e.credentials.BlacklistFamily(ctx, familyID); err != nil {
		return errStoreUnavailable(err)
	}
	if err := e.pushFamilyToCache(ctx, records); err != nil {
		return err
	}

	e.metricInc(MetricFamilyRevoked)

	return nil
}

// pushFamilyToCache mirrors family revocation into the fast path: every
// refresh jti and its paired access jti go to the revocation cache. The
// store records already carry the blacklist flag and remain authoritative,
// so under the default fail-open policy push failures are only logged.
// With Blacklist.FailClosed the failure surfaces as ErrCacheUnavailable
// after the full sweep.
func (e *Engine) pushFamilyToCache(ctx context.Context, records []*store.TokenRecord) error {
	now := time.Now()
	var failed error
	for _, r := range records {
		if err := e.blacklist.Revoke(ctx, r.JTI, r.RemainingLifetime(now)); err != nil {
			log.Printf("authgate: blacklist push failed for jti %s: %v", r.JTI, err)
			failed = err
		}
		if r.AccessJTI == "" {
			continue
		}
		if err := e.blacklist.Revoke(ctx, r.AccessJTI, r.RemainingAccessLifetime(now)); err != nil {
			log.Printf("authgate: blacklist push failed for jti %s: %v", r.AccessJTI, err)
			failed = err
		}
	}
	if failed != nil && e.config.Blacklist.FailClosed {
		return errCacheUnavailable(failed)
	}
	return nil
}
