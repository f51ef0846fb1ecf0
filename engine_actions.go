package authgate

import (
	"context"
	"errors"
	"time"

	"github.com/authgate/authgate/store"
)

func (e *Engine) actionTTL(kind store.TokenKind) time.Duration {
	switch kind {
	case store.KindPasswordReset:
		return e.config.Action.PasswordResetTTL
	case store.KindEmailVerification:
		return e.config.Action.EmailVerificationTTL
	case store.KindSignupVerification:
		return e.config.Action.SignupVerificationTTL
	default:
		return 0
	}
}

// IssueActionToken describes the issueactiontoken operation and its observable behavior.
//
// IssueActionToken may return an error when input validation, dependency calls, or security checks fail.
// IssueActionToken does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// IssueActionToken mints a single-use out-of-band token (password reset,
// email or signup verification) for accountID. The token is persisted so
// consumption can burn it; it carries no family and no agent binding since
// it travels over email, not the issuing client.
func (e *Engine) IssueActionToken(ctx context.Context, accountID string, kind TokenKind) (*ActionToken, error) {
	if e == nil || e.credentials == nil {
		return nil, ErrEngineNotReady
	}

	ttl := e.actionTTL(kind)
	if ttl <= 0 {
		return nil, ErrInvalidTokenType
	}

	account, err := e.credentials.FindAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, errStoreUnavailable(err)
	}
	if account.Disabled && kind != store.KindSignupVerification {
		return nil, ErrAccountDisabled
	}

	issued, err := e.jwtManager.CreateAction(account.ID, string(kind), ttl)
	if err != nil {
		return nil, err
	}

	record := &store.TokenRecord{
		JTI:       issued.ID,
		Value:     issued.Value,
		AccountID: account.ID,
		Kind:      kind,
		ExpiresAt: issued.ExpiresAt,
	}
	if err := e.credentials.InsertToken(ctx, record); err != nil {
		return nil, errStoreUnavailable(err)
	}

	e.metricInc(MetricActionIssued)
	e.emitAudit(ctx, auditEventActionIssued, true, account.ID, issued.ID, "", nil, func() map[string]string {
		return map[string]string{"kind": string(kind)}
	})

	return &ActionToken{Token: issued.Value, ExpiresAt: issued.ExpiresAt}, nil
}

// ConsumeActionToken describes the consumeactiontoken operation and its observable behavior.
//
// ConsumeActionToken may return an error when input validation, dependency calls, or security checks fail.
// ConsumeActionToken does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// ConsumeActionToken verifies and burns a single-use token of the expected
// kind and returns the account it belongs to. The record delete is the
// single-use gate: two concurrent consumers race on it and exactly one
// wins. Consuming a verification kind also marks the account's email
// verified.
func (e *Engine) ConsumeActionToken(ctx context.Context, token string, kind TokenKind) (string, error) {
	if e == nil || e.credentials == nil {
		return "", ErrEngineNotReady
	}

	claims, err := e.jwtManager.Parse(token)
	if err != nil {
		return "", mapTokenError(err)
	}
	if claims.Kind != string(kind) || e.actionTTL(kind) <= 0 {
		return "", ErrInvalidTokenType
	}

	record, err := e.credentials.FindToken(ctx, claims.Subject, token, kind)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrTokenNotValid
		}
		return "", errStoreUnavailable(err)
	}

	if err := e.credentials.DeleteTokenByID(ctx, record.JTI); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrTokenNotValid
		}
		return "", errStoreUnavailable(err)
	}

	account, err := e.credentials.FindAccountByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrAccountNotFound
		}
		return "", errStoreUnavailable(err)
	}

	if kind == store.KindEmailVerification || kind == store.KindSignupVerification {
		if !account.EmailVerified {
			account.EmailVerified = true
			if err := e.credentials.UpdateAccount(ctx, account); err != nil {
				return "", errStoreUnavailable(err)
			}
		}
	}

	e.metricInc(MetricActionConsumed)
	e.emitAudit(ctx, auditEventActionConsumed, true, account.ID, claims.ID, "", nil, func() map[string]string {
		return map[string]string{"kind": string(kind)}
	})

	return account.ID, nil
}
