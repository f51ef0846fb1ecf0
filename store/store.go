package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is an exported constant or variable used by the token lifecycle engine.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail is an exported constant or variable used by the token lifecycle engine.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrLastProvider is an exported constant or variable used by the token lifecycle engine.
	ErrLastProvider = errors.New("cannot unlink the last auth provider")
	// ErrNoProviders is an exported constant or variable used by the token lifecycle engine.
	ErrNoProviders = errors.New("account must have at least one auth provider")
)

// AccountStore is the account side of the credential-store contract.
//
// RemoveAccount soft-deletes: the record moves to a removed-accounts
// collection and becomes unreachable through the find methods. Accounts are
// never hard-deleted in place.
type AccountStore interface {
	FindAccountByID(ctx context.Context, id string) (*Account, error)
	FindAccountByEmail(ctx context.Context, email string) (*Account, error)
	InsertAccount(ctx context.Context, account *Account) error
	UpdateAccount(ctx context.Context, account *Account) error
	LinkProvider(ctx context.Context, accountID, provider, externalID string) error
	UnlinkProvider(ctx context.Context, accountID, provider string) error
	RemoveAccount(ctx context.Context, id string) error
}

// TokenStore is the token-record side of the credential-store contract.
type TokenStore interface {
	InsertToken(ctx context.Context, record *TokenRecord) error
	// FindToken looks a record up by exact token value, kind, and owning
	// account. A miss means the token was never issued here or was already
	// consumed by a prior rotation.
	FindToken(ctx context.Context, accountID, value string, kind TokenKind) (*TokenRecord, error)
	FindTokensByFamily(ctx context.Context, familyID string) ([]*TokenRecord, error)
	// BlacklistFamily sets blacklisted=true on every record in the family.
	BlacklistFamily(ctx context.Context, familyID string) error
	// DeleteTokenByID atomically consumes one record. Returns ErrNotFound
	// when the record is already gone; callers rely on this to decide races.
	DeleteTokenByID(ctx context.Context, jti string) error
	DeleteTokensByFamily(ctx context.Context, familyID string) error
	DeleteTokensForAccount(ctx context.Context, accountID string) error
}

// CredentialStore is the full collaborator the engine is built with.
type CredentialStore interface {
	AccountStore
	TokenStore
}
