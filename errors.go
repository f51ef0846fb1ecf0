package authgate

import (
	"errors"
	"net/http"
)

var (
	// ErrNoAuthToken is an exported constant or variable used by the token lifecycle engine.
	ErrNoAuthToken = errors.New("authorization token missing")
	// ErrTokenExpired is an exported constant or variable used by the token lifecycle engine.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMalformed is an exported constant or variable used by the token lifecycle engine.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenSignature is an exported constant or variable used by the token lifecycle engine.
	ErrTokenSignature = errors.New("token signature invalid")
	// ErrTokenNotYetValid is an exported constant or variable used by the token lifecycle engine.
	ErrTokenNotYetValid = errors.New("token not yet valid")
	// ErrTokenNotValid is an exported constant or variable used by the token lifecycle engine.
	ErrTokenNotValid = errors.New("token not valid")
	// ErrInvalidTokenType is an exported constant or variable used by the token lifecycle engine.
	ErrInvalidTokenType = errors.New("invalid token type")
	// ErrAccountNotFound is an exported constant or variable used by the token lifecycle engine.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountDisabled is an exported constant or variable used by the token lifecycle engine.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrAgentMismatch is an exported constant or variable used by the token lifecycle engine.
	ErrAgentMismatch = errors.New("user agent mismatch")
	// ErrTokenBlacklisted is an exported constant or variable used by the token lifecycle engine.
	ErrTokenBlacklisted = errors.New("token blacklisted")
	// ErrReuseDetected is an exported constant or variable used by the token lifecycle engine.
	ErrReuseDetected = errors.New("refresh token reuse detected")
	// ErrTokensMismatch is an exported constant or variable used by the token lifecycle engine.
	ErrTokensMismatch = errors.New("access and refresh tokens belong to different accounts")
	// ErrCacheUnavailable is an exported constant or variable used by the token lifecycle engine.
	ErrCacheUnavailable = errors.New("revocation cache unavailable")
	// ErrStoreUnavailable is an exported constant or variable used by the token lifecycle engine.
	ErrStoreUnavailable = errors.New("credential store unavailable")
	// ErrEngineNotReady is an exported constant or variable used by the token lifecycle engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// HTTPStatus maps an engine error to the HTTP status the routing layer should
// render. Credential and replay failures are 401, authorization-state
// failures are 403, infrastructure failures are 500. Unknown errors map to
// 500 so internal detail is never leaked as a client fault.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNoAuthToken),
		errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrTokenMalformed),
		errors.Is(err, ErrTokenSignature),
		errors.Is(err, ErrTokenNotYetValid),
		errors.Is(err, ErrTokenNotValid),
		errors.Is(err, ErrInvalidTokenType),
		errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrAgentMismatch),
		errors.Is(err, ErrReuseDetected),
		errors.Is(err, ErrTokensMismatch):
		return http.StatusUnauthorized
	case errors.Is(err, ErrAccountDisabled),
		errors.Is(err, ErrTokenBlacklisted):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
