// Package memstore is an in-memory [store.CredentialStore]. It backs the
// engine's test suite and small embedded deployments that do not need a
// durable document store.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/authgate/authgate/store"
)

// Store is a mutex-guarded in-memory credential store. The zero value is not
// usable; construct with [New].
type Store struct {
	mu       sync.Mutex
	accounts map[string]*store.Account
	removed  map[string]*store.Account
	byEmail  map[string]string
	tokens   map[string]*store.TokenRecord
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		accounts: make(map[string]*store.Account),
		removed:  make(map[string]*store.Account),
		byEmail:  make(map[string]string),
		tokens:   make(map[string]*store.TokenRecord),
	}
}

func cloneAccount(a *store.Account) *store.Account {
	out := *a
	out.Providers = make(map[string]string, len(a.Providers))
	for k, v := range a.Providers {
		out.Providers[k] = v
	}
	return &out
}

func cloneToken(r *store.TokenRecord) *store.TokenRecord {
	out := *r
	return &out
}

// FindAccountByID implements [store.AccountStore].
func (s *Store) FindAccountByID(_ context.Context, id string) (*store.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneAccount(a), nil
}

// FindAccountByEmail implements [store.AccountStore].
func (s *Store) FindAccountByEmail(_ context.Context, email string) (*store.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[store.NormalizeEmail(email)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneAccount(s.accounts[id]), nil
}

// InsertAccount implements [store.AccountStore]. The account must carry at
// least one linked provider and a unique normalized email.
func (s *Store) InsertAccount(_ context.Context, account *store.Account) error {
	if len(account.Providers) == 0 {
		return store.ErrNoProviders
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	email := store.NormalizeEmail(account.Email)
	if _, ok := s.byEmail[email]; ok {
		return store.ErrDuplicateEmail
	}

	stored := cloneAccount(account)
	stored.Email = email
	now := time.Now()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	s.accounts[stored.ID] = stored
	s.byEmail[email] = stored.ID
	return nil
}

// UpdateAccount implements [store.AccountStore].
func (s *Store) UpdateAccount(_ context.Context, account *store.Account) error {
	if len(account.Providers) == 0 {
		return store.ErrNoProviders
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.accounts[account.ID]
	if !ok {
		return store.ErrNotFound
	}

	stored := cloneAccount(account)
	stored.Email = store.NormalizeEmail(account.Email)
	stored.CreatedAt = current.CreatedAt
	stored.UpdatedAt = time.Now()

	if stored.Email != current.Email {
		if _, taken := s.byEmail[stored.Email]; taken {
			return store.ErrDuplicateEmail
		}
		delete(s.byEmail, current.Email)
		s.byEmail[stored.Email] = stored.ID
	}

	s.accounts[stored.ID] = stored
	return nil
}

// LinkProvider implements [store.AccountStore].
func (s *Store) LinkProvider(_ context.Context, accountID, provider, externalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[accountID]
	if !ok {
		return store.ErrNotFound
	}
	if externalID == "" {
		externalID = "registered"
	}
	a.Providers[provider] = externalID
	a.UpdatedAt = time.Now()
	return nil
}

// UnlinkProvider implements [store.AccountStore]. Removing the last linked
// provider is refused: an account with zero providers is unreachable and
// must not exist.
func (s *Store) UnlinkProvider(_ context.Context, accountID, provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[accountID]
	if !ok {
		return store.ErrNotFound
	}
	if _, linked := a.Providers[provider]; !linked {
		return store.ErrNotFound
	}
	if len(a.Providers) == 1 {
		return store.ErrLastProvider
	}
	delete(a.Providers, provider)
	a.UpdatedAt = time.Now()
	return nil
}

// RemoveAccount implements [store.AccountStore]: the record moves to the
// removed set and stops resolving through the find methods.
func (s *Store) RemoveAccount(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return store.ErrNotFound
	}

	delete(s.accounts, id)
	delete(s.byEmail, a.Email)
	a.UpdatedAt = time.Now()
	s.removed[id] = a
	return nil
}

// RemovedAccount reports whether an account id sits in the removed-accounts
// set. Test hook; not part of [store.CredentialStore].
func (s *Store) RemovedAccount(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.removed[id]
	return ok
}

// InsertToken implements [store.TokenStore].
func (s *Store) InsertToken(_ context.Context, record *store.TokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := cloneToken(record)
	now := time.Now()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	s.tokens[stored.JTI] = stored
	return nil
}

// FindToken implements [store.TokenStore].
func (s *Store) FindToken(_ context.Context, accountID, value string, kind store.TokenKind) (*store.TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.tokens {
		if r.AccountID == accountID && r.Value == value && r.Kind == kind {
			return cloneToken(r), nil
		}
	}
	return nil, store.ErrNotFound
}

// FindTokensByFamily implements [store.TokenStore].
func (s *Store) FindTokensByFamily(_ context.Context, familyID string) ([]*store.TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*store.TokenRecord
	for _, r := range s.tokens {
		if r.Family != "" && r.Family == familyID {
			out = append(out, cloneToken(r))
		}
	}
	return out, nil
}

// BlacklistFamily implements [store.TokenStore].
func (s *Store) BlacklistFamily(_ context.Context, familyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, r := range s.tokens {
		if r.Family != "" && r.Family == familyID && !r.Blacklisted {
			r.Blacklisted = true
			r.UpdatedAt = now
		}
	}
	return nil
}

// DeleteTokenByID implements [store.TokenStore]. The delete is atomic under
// the store mutex: concurrent rotations of one token see exactly one nil
// return and ErrNotFound for the rest.
func (s *Store) DeleteTokenByID(_ context.Context, jti string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tokens[jti]; !ok {
		return store.ErrNotFound
	}
	delete(s.tokens, jti)
	return nil
}

// DeleteTokensByFamily implements [store.TokenStore].
func (s *Store) DeleteTokensByFamily(_ context.Context, familyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for jti, r := range s.tokens {
		if r.Family != "" && r.Family == familyID {
			delete(s.tokens, jti)
		}
	}
	return nil
}

// DeleteTokensForAccount implements [store.TokenStore]: every kind, every
// family.
func (s *Store) DeleteTokensForAccount(_ context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for jti, r := range s.tokens {
		if r.AccountID == accountID {
			delete(s.tokens, jti)
		}
	}
	return nil
}

// TokenCount returns the number of stored token records. Test hook.
func (s *Store) TokenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.tokens)
}
