package store

import (
	"strings"
	"time"
)

// TokenKind discriminates persisted token records. Only refresh tokens carry
// a family; action kinds (reset/verification) are single-use and family-less.
type TokenKind string

const (
	// KindRefresh is an exported constant or variable used by the token lifecycle engine.
	KindRefresh TokenKind = "refresh"
	// KindPasswordReset is an exported constant or variable used by the token lifecycle engine.
	KindPasswordReset TokenKind = "password_reset"
	// KindEmailVerification is an exported constant or variable used by the token lifecycle engine.
	KindEmailVerification TokenKind = "email_verification"
	// KindSignupVerification is an exported constant or variable used by the token lifecycle engine.
	KindSignupVerification TokenKind = "signup_verification"
)

// Account is the identity record held in the document store.
//
// PasswordHash is empty for OAuth-only accounts. Providers maps a provider
// name to its external account id ("registered" for the local password
// provider); an account must keep at least one provider linked at all times.
type Account struct {
	ID            string            `bson:"_id"`
	Email         string            `bson:"email"`
	PasswordHash  string            `bson:"passwordHash,omitempty"`
	Providers     map[string]string `bson:"providers"`
	EmailVerified bool              `bson:"emailVerified"`
	Disabled      bool              `bson:"disabled"`
	CreatedAt     time.Time         `bson:"createdAt"`
	UpdatedAt     time.Time         `bson:"updatedAt"`
}

// LocalProvider is the provider key recording that the account registered
// with an email and password.
const LocalProvider = "local"

// NormalizeEmail lower-cases and trims an email for unique lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// TokenRecord represents one issued refresh or action token. Access tokens
// never get records of their own; a refresh record carries the jti and
// expiry of the access token issued alongside it, so revoking a family
// reaches the outstanding access tokens too.
type TokenRecord struct {
	JTI             string    `bson:"_id"`
	Value           string    `bson:"value"`
	AccountID       string    `bson:"accountId"`
	Kind            TokenKind `bson:"kind"`
	Family          string    `bson:"family,omitempty"`
	AccessJTI       string    `bson:"accessJti,omitempty"`
	AccessExpiresAt time.Time `bson:"accessExpiresAt,omitempty"`
	ExpiresAt       time.Time `bson:"expiresAt"`
	Blacklisted     bool      `bson:"blacklisted"`
	CreatedAt       time.Time `bson:"createdAt"`
	UpdatedAt       time.Time `bson:"updatedAt"`
}

// RemainingLifetime returns how long the record's token stays naturally
// valid after now. Used as the revocation-cache TTL so cache entries never
// outlive the tokens they revoke.
func (r *TokenRecord) RemainingLifetime(now time.Time) time.Duration {
	if r == nil {
		return 0
	}
	d := r.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// RemainingAccessLifetime is [TokenRecord.RemainingLifetime] for the paired
// access token. Zero when the record carries no access expiry.
func (r *TokenRecord) RemainingAccessLifetime(now time.Time) time.Duration {
	if r == nil || r.AccessExpiresAt.IsZero() {
		return 0
	}
	d := r.AccessExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
