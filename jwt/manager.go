package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod defines a public type used by authgate APIs.
//
// SigningMethod instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SigningMethod string

const (
	// MethodEd25519 is an exported constant or variable used by the token lifecycle engine.
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 is an exported constant or variable used by the token lifecycle engine.
	MethodHS256 SigningMethod = "hs256"
)

// Token kind claim values.
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

// Typed verification failures. Signing failure is not among them: it is a
// configuration error and surfaces raw.
var (
	// ErrExpired is an exported constant or variable used by the token lifecycle engine.
	ErrExpired = errors.New("token expired")
	// ErrMalformed is an exported constant or variable used by the token lifecycle engine.
	ErrMalformed = errors.New("token malformed")
	// ErrSignature is an exported constant or variable used by the token lifecycle engine.
	ErrSignature = errors.New("token signature invalid")
	// ErrNotYetValid is an exported constant or variable used by the token lifecycle engine.
	ErrNotYetValid = errors.New("token not yet valid")
)

// Config defines a public type used by authgate APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
}

// Manager issues and verifies the signed tokens of the lifecycle protocol.
// Every token embeds a kind discriminator, a unique jti, and the user-agent
// fingerprint captured at issuance; refresh tokens additionally carry their
// family id.
type Manager struct {
	config Config
}

// Claims is the authgate claim set on top of the registered JWT claims.
// Subject is the account id, ID the jti.
type Claims struct {
	Kind   string `json:"knd"`
	Agent  string `json:"fp,omitempty"`
	Family string `json:"fam,omitempty"`
	jwt.RegisteredClaims
}

// IssuedToken is one signed token plus the metadata the engine persists or
// pushes to the revocation cache.
type IssuedToken struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}

// NewManager validates cfg and returns a ready manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("hs256 requires private key")
		}
	case MethodEd25519:
		if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
			return nil, err
		}
		if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return &Manager{config: cfg}, nil
}

// CreateAccess issues a short-lived access token bound to accountID and the
// request's user-agent fingerprint.
func (j *Manager) CreateAccess(accountID, fingerprint string) (IssuedToken, error) {
	return j.create(KindAccess, accountID, fingerprint, "", j.config.AccessTTL)
}

// CreateRefresh issues a long-lived refresh token in the given family. The
// caller persists the matching token record.
func (j *Manager) CreateRefresh(accountID, fingerprint, familyID string) (IssuedToken, error) {
	if familyID == "" {
		return IssuedToken{}, errors.New("refresh token requires a family id")
	}
	return j.create(KindRefresh, accountID, fingerprint, familyID, j.config.RefreshTTL)
}

// CreateAction issues a family-less single-purpose token (password reset,
// email/signup verification) with the caller-chosen kind and TTL.
func (j *Manager) CreateAction(accountID, kind string, ttl time.Duration) (IssuedToken, error) {
	if kind == KindAccess || kind == KindRefresh {
		return IssuedToken{}, errors.New("action token cannot reuse a session kind")
	}
	if ttl <= 0 {
		return IssuedToken{}, errors.New("action token requires a positive ttl")
	}
	return j.create(kind, accountID, "", "", ttl)
}

func (j *Manager) create(kind, accountID, fingerprint, familyID string, ttl time.Duration) (IssuedToken, error) {
	now := time.Now()
	expiry := now.Add(ttl)
	jti := uuid.NewString()

	claims := Claims{
		Kind:   kind,
		Agent:  fingerprint,
		Family: familyID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   accountID,
			ExpiresAt: jwt.NewNumericDate(expiry),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    j.config.Issuer,
		},
	}

	token := jwt.NewWithClaims(j.getMethod(), claims)
	signKey, err := j.getSignKey()
	if err != nil {
		return IssuedToken{}, err
	}

	signed, err := token.SignedString(signKey)
	if err != nil {
		return IssuedToken{}, err
	}

	return IssuedToken{Value: signed, ID: jti, ExpiresAt: expiry}, nil
}

// Parse verifies signature and registered claims and returns the decoded
// claim set. Failures are the typed errors above; callers check the Kind
// claim themselves.
func (j *Manager) Parse(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{j.getMethod().Alg()}),
	}
	if j.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(j.config.Leeway))
	}
	if j.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(j.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != j.getMethod().Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return j.getVerifyKey()
	})
	if err != nil {
		return nil, mapParseError(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrMalformed
	}
	if claims.ID == "" || claims.Subject == "" || claims.Kind == "" {
		return nil, ErrMalformed
	}

	return claims, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrNotYetValid
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrSignature
	default:
		return ErrMalformed
	}
}

func (j *Manager) getMethod() jwt.SigningMethod {
	switch j.config.SigningMethod {
	case MethodHS256:
		return jwt.SigningMethodHS256
	default:
		return jwt.SigningMethodEdDSA
	}
}

func (j *Manager) getSignKey() (interface{}, error) {
	switch j.config.SigningMethod {
	case MethodHS256:
		return j.config.PrivateKey, nil
	default:
		return parseEdPrivateKey(j.config.PrivateKey)
	}
}

func (j *Manager) getVerifyKey() (interface{}, error) {
	switch j.config.SigningMethod {
	case MethodHS256:
		return j.config.PrivateKey, nil
	default:
		return parseEdPublicKey(j.config.PublicKey)
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
