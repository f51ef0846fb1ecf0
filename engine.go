package authgate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/authgate/authgate/blacklist"
	"github.com/authgate/authgate/internal"
	"github.com/authgate/authgate/jwt"
	"github.com/authgate/authgate/store"
)

// Engine defines a public type used by authgate APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config      Config
	credentials store.CredentialStore
	blacklist   *blacklist.Store
	jwtManager  *jwt.Manager
	audit       *auditDispatcher
	metrics     *Metrics
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Login describes the login operation and its observable behavior.
//
// Login may return an error when input validation, dependency calls, or security checks fail.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Login issues a fresh access+refresh pair in a brand-new token family. The
// caller has already authenticated the account (password check, OAuth
// exchange); the engine only gates on account existence and status.
func (e *Engine) Login(ctx context.Context, accountID string) (*TokenPair, error) {
	if e == nil || e.credentials == nil {
		return nil, ErrEngineNotReady
	}

	account, err := e.credentials.FindAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, accountID, "", "", ErrAccountNotFound, nil)
			return nil, ErrAccountNotFound
		}
		e.metricInc(MetricLoginFailure)
		return nil, errStoreUnavailable(err)
	}
	if account.Disabled {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, accountID, "", "", ErrAccountDisabled, nil)
		return nil, ErrAccountDisabled
	}

	pair, family, err := e.issuePair(ctx, account.ID, uuid.NewString())
	if err != nil {
		e.metricInc(MetricLoginFailure)
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, account.ID, "", family, nil, nil)

	return pair, nil
}

// Refresh describes the refresh operation and its observable behavior.
//
// Refresh may return an error when input validation, dependency calls, or security checks fail.
// Refresh does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Refresh rotates refreshToken: the presented token is consumed and a new
// pair is issued inside the same family. Presenting an already-consumed
// token is treated as theft and revokes the whole family.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	return e.rotate(ctx, refreshToken)
}

// Logout describes the logout operation and its observable behavior.
//
// Logout may return an error when input validation, dependency calls, or security checks fail.
// Logout does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Logout ends the session behind the presented pair: the access token's jti
// goes to the revocation cache for its remaining lifetime, and the refresh
// token's family is revoked. The access jti is blacklisted even when the
// refresh token turns out to be invalid, so a suspect session is cut off as
// far as the presented credentials allow.
func (e *Engine) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if e == nil || e.credentials == nil {
		return ErrEngineNotReady
	}

	access, err := e.jwtManager.Parse(accessToken)
	if err != nil {
		return mapTokenError(err)
	}

	return e.logout(ctx, access, refreshToken)
}

// logout is Logout after the access token has been parsed; Signout reuses
// it so the pair is parsed once.
func (e *Engine) logout(ctx context.Context, access *jwt.Claims, refreshToken string) error {
	if access.Kind != jwt.KindAccess {
		return ErrInvalidTokenType
	}

	if revokeErr := e.blacklist.Revoke(ctx, access.ID, remainingClaimLifetime(access)); revokeErr != nil {
		log.Printf("authgate: logout blacklist push failed for jti %s: %v", access.ID, revokeErr)
		if e.config.Blacklist.FailClosed {
			return errCacheUnavailable(revokeErr)
		}
	}

	refresh, err := e.jwtManager.Parse(refreshToken)
	if err != nil {
		return mapTokenError(err)
	}
	if refresh.Kind != jwt.KindRefresh {
		return ErrInvalidTokenType
	}
	if refresh.Subject != access.Subject {
		e.emitAudit(ctx, auditEventLogout, false, access.Subject, access.ID, refresh.Family, ErrTokensMismatch, nil)
		return ErrTokensMismatch
	}

	if err := e.RevokeFamily(ctx, refresh.Family); err != nil {
		return err
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, access.Subject, access.ID, refresh.Family, nil, nil)

	return nil
}

// Signout describes the signout operation and its observable behavior.
//
// Signout may return an error when input validation, dependency calls, or security checks fail.
// Signout does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Signout is account removal: the session behind the presented pair ends,
// every stored token for the account is deleted, and the account record
// moves to the removed set.
func (e *Engine) Signout(ctx context.Context, accessToken, refreshToken string) error {
	if e == nil || e.credentials == nil {
		return ErrEngineNotReady
	}

	access, err := e.jwtManager.Parse(accessToken)
	if err != nil {
		return mapTokenError(err)
	}

	if err := e.logout(ctx, access, refreshToken); err != nil {
		return err
	}

	if err := e.credentials.DeleteTokensForAccount(ctx, access.Subject); err != nil {
		return errStoreUnavailable(err)
	}
	if err := e.credentials.RemoveAccount(ctx, access.Subject); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAccountNotFound
		}
		return errStoreUnavailable(err)
	}

	e.metricInc(MetricSignout)
	e.emitAudit(ctx, auditEventSignout, true, access.Subject, access.ID, "", nil, nil)

	return nil
}

// RevokeOpaque describes the revokeopaque operation and its observable behavior.
//
// RevokeOpaque may return an error when input validation, dependency calls, or security checks fail.
// RevokeOpaque does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// RevokeOpaque pushes a token the engine did not issue (a third-party OAuth
// access token, for example) into the revocation cache so downstream checks
// reject it until expiresIn elapses.
func (e *Engine) RevokeOpaque(ctx context.Context, token string, expiresIn time.Duration) error {
	if e == nil || e.blacklist == nil {
		return ErrEngineNotReady
	}
	if err := e.blacklist.Revoke(ctx, token, expiresIn); err != nil {
		return errCacheUnavailable(err)
	}
	return nil
}

// issuePair signs a fresh access+refresh pair and persists the refresh
// record, which also carries the paired access jti so family revocation can
// reach the access token. The fingerprint of the request's user agent is
// embedded in both tokens.
func (e *Engine) issuePair(ctx context.Context, accountID, familyID string) (*TokenPair, string, error) {
	fingerprint := internal.FingerprintAgent(userAgentFromContext(ctx))

	access, err := e.jwtManager.CreateAccess(accountID, fingerprint)
	if err != nil {
		return nil, familyID, err
	}
	refresh, err := e.jwtManager.CreateRefresh(accountID, fingerprint, familyID)
	if err != nil {
		return nil, familyID, err
	}

	record := &store.TokenRecord{
		JTI:             refresh.ID,
		Value:           refresh.Value,
		AccountID:       accountID,
		Kind:            store.KindRefresh,
		Family:          familyID,
		AccessJTI:       access.ID,
		AccessExpiresAt: access.ExpiresAt,
		ExpiresAt:       refresh.ExpiresAt,
	}
	if err := e.credentials.InsertToken(ctx, record); err != nil {
		return nil, familyID, errStoreUnavailable(err)
	}

	return &TokenPair{
		AccessToken:      access.Value,
		RefreshToken:     refresh.Value,
		AccessExpiresAt:  access.ExpiresAt,
		RefreshExpiresAt: refresh.ExpiresAt,
	}, familyID, nil
}

// mapTokenError converts the jwt package's typed verification failures into
// the engine's public sentinels.
func mapTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrMalformed):
		return ErrTokenMalformed
	case errors.Is(err, jwt.ErrSignature):
		return ErrTokenSignature
	case errors.Is(err, jwt.ErrNotYetValid):
		return ErrTokenNotYetValid
	default:
		return ErrTokenNotValid
	}
}

func remainingClaimLifetime(claims *jwt.Claims) time.Duration {
	if claims == nil || claims.ExpiresAt == nil {
		return 0
	}
	return time.Until(claims.ExpiresAt.Time)
}

func errStoreUnavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

func errCacheUnavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
}
