package authgate

import (
	"time"

	"github.com/authgate/authgate/store"
)

// TokenPair is returned by [Engine.Login] and [Engine.Refresh]: one access
// token and one refresh token issued together for the same account and
// user-agent fingerprint.
type TokenPair struct {
	AccessToken  string
	RefreshToken string

	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Identity is returned by [Engine.Authenticate]. It contains the
// authenticated account's ID and the decoded access token metadata.
type Identity struct {
	AccountID string
	TokenID   string
	Agent     string
	ExpiresAt time.Time
}

// ActionToken is returned by [Engine.IssueActionToken]: a single-use
// out-of-band token (password reset, email/signup verification) plus its
// expiry.
type ActionToken struct {
	Token     string
	ExpiresAt time.Time
}

// TokenKind re-exports the persisted token kinds for callers that issue or
// consume action tokens without importing the store package directly.
type TokenKind = store.TokenKind

const (
	// KindPasswordReset is an exported constant or variable used by the token lifecycle engine.
	KindPasswordReset = store.KindPasswordReset
	// KindEmailVerification is an exported constant or variable used by the token lifecycle engine.
	KindEmailVerification = store.KindEmailVerification
	// KindSignupVerification is an exported constant or variable used by the token lifecycle engine.
	KindSignupVerification = store.KindSignupVerification
)
