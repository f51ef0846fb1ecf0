// Package mongostore is a MongoDB-backed [store.CredentialStore]. It owns
// collection naming and index layout but not the client lifecycle: callers
// connect, pass in a database handle, and disconnect at process shutdown.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/authgate/authgate/store"
)

const (
	accountsCollection = "accounts"
	removedCollection  = "removed_accounts"
	tokensCollection   = "tokens"
)

// Store implements [store.CredentialStore] over three collections: accounts,
// removed_accounts (soft-delete target), and tokens.
type Store struct {
	accounts *mongo.Collection
	removed  *mongo.Collection
	tokens   *mongo.Collection
}

// New wraps the given database. Call [Store.EnsureIndexes] once at startup.
func New(db *mongo.Database) *Store {
	return &Store{
		accounts: db.Collection(accountsCollection),
		removed:  db.Collection(removedCollection),
		tokens:   db.Collection(tokensCollection),
	}
}

// EnsureIndexes creates the unique email index and the token lookup indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.accounts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create accounts email index: %w", err)
	}

	_, err = s.tokens.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "accountId", Value: 1}, {Key: "value", Value: 1}, {Key: "kind", Value: 1}}},
		{Keys: bson.D{{Key: "family", Value: 1}}},
		{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
	})
	if err != nil {
		return fmt.Errorf("create token indexes: %w", err)
	}
	return nil
}

func mapFindErr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	return err
}

// FindAccountByID implements [store.AccountStore].
func (s *Store) FindAccountByID(ctx context.Context, id string) (*store.Account, error) {
	var a store.Account
	if err := s.accounts.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		return nil, mapFindErr(err)
	}
	return &a, nil
}

// FindAccountByEmail implements [store.AccountStore].
func (s *Store) FindAccountByEmail(ctx context.Context, email string) (*store.Account, error) {
	var a store.Account
	filter := bson.M{"email": store.NormalizeEmail(email)}
	if err := s.accounts.FindOne(ctx, filter).Decode(&a); err != nil {
		return nil, mapFindErr(err)
	}
	return &a, nil
}

// InsertAccount implements [store.AccountStore].
func (s *Store) InsertAccount(ctx context.Context, account *store.Account) error {
	if len(account.Providers) == 0 {
		return store.ErrNoProviders
	}

	doc := *account
	doc.Email = store.NormalizeEmail(account.Email)
	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	if _, err := s.accounts.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// UpdateAccount implements [store.AccountStore].
func (s *Store) UpdateAccount(ctx context.Context, account *store.Account) error {
	if len(account.Providers) == 0 {
		return store.ErrNoProviders
	}

	update := bson.M{"$set": bson.M{
		"email":         store.NormalizeEmail(account.Email),
		"passwordHash":  account.PasswordHash,
		"providers":     account.Providers,
		"emailVerified": account.EmailVerified,
		"disabled":      account.Disabled,
		"updatedAt":     time.Now(),
	}}

	res, err := s.accounts.UpdateOne(ctx, bson.M{"_id": account.ID}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrDuplicateEmail
		}
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// LinkProvider implements [store.AccountStore].
func (s *Store) LinkProvider(ctx context.Context, accountID, provider, externalID string) error {
	if externalID == "" {
		externalID = "registered"
	}
	update := bson.M{"$set": bson.M{
		"providers." + provider: externalID,
		"updatedAt":             time.Now(),
	}}

	res, err := s.accounts.UpdateOne(ctx, bson.M{"_id": accountID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// UnlinkProvider implements [store.AccountStore]. The last linked provider
// cannot be removed.
func (s *Store) UnlinkProvider(ctx context.Context, accountID, provider string) error {
	account, err := s.FindAccountByID(ctx, accountID)
	if err != nil {
		return err
	}
	if _, linked := account.Providers[provider]; !linked {
		return store.ErrNotFound
	}
	if len(account.Providers) == 1 {
		return store.ErrLastProvider
	}

	update := bson.M{
		"$unset": bson.M{"providers." + provider: ""},
		"$set":   bson.M{"updatedAt": time.Now()},
	}
	// Guard against a concurrent unlink emptying the provider set: require a
	// second provider to still be present at update time.
	filter := bson.M{
		"_id":                    accountID,
		"providers." + provider: bson.M{"$exists": true},
	}
	res, err := s.accounts.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// RemoveAccount implements [store.AccountStore]: copy into removed_accounts,
// then delete in place.
func (s *Store) RemoveAccount(ctx context.Context, id string) error {
	account, err := s.FindAccountByID(ctx, id)
	if err != nil {
		return err
	}
	account.UpdatedAt = time.Now()

	if _, err := s.removed.InsertOne(ctx, account); err != nil && !mongo.IsDuplicateKeyError(err) {
		return err
	}
	if _, err := s.accounts.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return err
	}
	return nil
}

// InsertToken implements [store.TokenStore].
func (s *Store) InsertToken(ctx context.Context, record *store.TokenRecord) error {
	doc := *record
	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	_, err := s.tokens.InsertOne(ctx, doc)
	return err
}

// FindToken implements [store.TokenStore].
func (s *Store) FindToken(ctx context.Context, accountID, value string, kind store.TokenKind) (*store.TokenRecord, error) {
	var r store.TokenRecord
	filter := bson.M{"accountId": accountID, "value": value, "kind": kind}
	if err := s.tokens.FindOne(ctx, filter).Decode(&r); err != nil {
		return nil, mapFindErr(err)
	}
	return &r, nil
}

// FindTokensByFamily implements [store.TokenStore].
func (s *Store) FindTokensByFamily(ctx context.Context, familyID string) ([]*store.TokenRecord, error) {
	cur, err := s.tokens.Find(ctx, bson.M{"family": familyID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*store.TokenRecord
	for cur.Next(ctx) {
		var r store.TokenRecord
		if err := cur.Decode(&r); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, cur.Err()
}

// BlacklistFamily implements [store.TokenStore].
func (s *Store) BlacklistFamily(ctx context.Context, familyID string) error {
	update := bson.M{"$set": bson.M{"blacklisted": true, "updatedAt": time.Now()}}
	_, err := s.tokens.UpdateMany(ctx, bson.M{"family": familyID}, update)
	return err
}

// DeleteTokenByID implements [store.TokenStore]. MongoDB's single-document
// delete is atomic, so concurrent rotations of one token see exactly one
// deleted count of 1.
func (s *Store) DeleteTokenByID(ctx context.Context, jti string) error {
	res, err := s.tokens.DeleteOne(ctx, bson.M{"_id": jti})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteTokensByFamily implements [store.TokenStore].
func (s *Store) DeleteTokensByFamily(ctx context.Context, familyID string) error {
	_, err := s.tokens.DeleteMany(ctx, bson.M{"family": familyID})
	return err
}

// DeleteTokensForAccount implements [store.TokenStore].
func (s *Store) DeleteTokensForAccount(ctx context.Context, accountID string) error {
	_, err := s.tokens.DeleteMany(ctx, bson.M{"accountId": accountID})
	return err
}
