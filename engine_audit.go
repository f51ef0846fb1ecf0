package authgate

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventLoginSuccess   = "login_success"
	auditEventLoginFailure   = "login_failure"
	auditEventRefreshSuccess = "refresh_success"
	auditEventRefreshFailure = "refresh_failure"
	auditEventReuseDetected  = "refresh_reuse_detected"
	auditEventFamilyPurged   = "token_family_purged"
	auditEventAgentMismatch  = "agent_mismatch"
	auditEventBlacklistHit   = "blacklist_hit"
	auditEventLogout         = "logout"
	auditEventSignout        = "signout"
	auditEventActionIssued   = "action_token_issued"
	auditEventActionConsumed = "action_token_consumed"
)

// AuditErrorCode defines a public type used by authgate APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrNoToken         AuditErrorCode = "no_token"
	auditErrInvalidToken    AuditErrorCode = "invalid_token"
	auditErrExpiredToken    AuditErrorCode = "expired_token"
	auditErrWrongTokenType  AuditErrorCode = "wrong_token_type"
	auditErrAgentMismatch   AuditErrorCode = "agent_mismatch"
	auditErrBlacklisted     AuditErrorCode = "blacklisted"
	auditErrReuse           AuditErrorCode = "refresh_reuse"
	auditErrTokensMismatch  AuditErrorCode = "tokens_mismatch"
	auditErrAccountNotFound AuditErrorCode = "account_not_found"
	auditErrAccountDisabled AuditErrorCode = "account_disabled"
	auditErrUnavailable     AuditErrorCode = "backend_unavailable"
	auditErrInternal        AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	accountID string,
	tokenID string,
	family string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		AccountID: accountID,
		TokenID:   tokenID,
		Family:    family,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrNoAuthToken):
		return auditErrNoToken
	case errors.Is(err, ErrTokenExpired):
		return auditErrExpiredToken
	case errors.Is(err, ErrTokenMalformed),
		errors.Is(err, ErrTokenSignature),
		errors.Is(err, ErrTokenNotYetValid),
		errors.Is(err, ErrTokenNotValid):
		return auditErrInvalidToken
	case errors.Is(err, ErrInvalidTokenType):
		return auditErrWrongTokenType
	case errors.Is(err, ErrAgentMismatch):
		return auditErrAgentMismatch
	case errors.Is(err, ErrTokenBlacklisted):
		return auditErrBlacklisted
	case errors.Is(err, ErrReuseDetected):
		return auditErrReuse
	case errors.Is(err, ErrTokensMismatch):
		return auditErrTokensMismatch
	case errors.Is(err, ErrAccountNotFound):
		return auditErrAccountNotFound
	case errors.Is(err, ErrAccountDisabled):
		return auditErrAccountDisabled
	case errors.Is(err, ErrCacheUnavailable),
		errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
