// Package auth implements the credential primitives of the session
// subsystem: signed access/refresh tokens, password hashing and the
// refresh-token rotation policy.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/donationhub/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind distinguishes short-lived access tokens from persisted refresh tokens.
type TokenKind string

const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
)

// Claims is the payload of every token. Subject carries the user id; ID is a
// random jti so that two tokens minted in the same second still differ.
type Claims struct {
	jwt.RegisteredClaims
	Kind TokenKind `json:"kind"`
}

// UserID returns the subject of the token.
func (c *Claims) UserID() string { return c.Subject }

// KeyConfig holds the signing secret and lifetime of one token kind.
type KeyConfig struct {
	Secret   []byte
	Validity time.Duration
}

// IssuerConfig configures an Issuer.
type IssuerConfig struct {
	Issuer  string
	Access  KeyConfig
	Refresh KeyConfig
}

// Issuer mints and verifies HS256 tokens for both kinds.
type Issuer struct {
	issuer string
	keys   map[TokenKind]KeyConfig
	now    func() time.Time
}

type IssuerOption func(*Issuer)

// WithClock overrides the time source used for iat/exp and for verification.
func WithClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) { i.now = now }
}

func NewIssuer(cfg IssuerConfig, opts ...IssuerOption) *Issuer {
	i := &Issuer{
		issuer: cfg.Issuer,
		keys: map[TokenKind]KeyConfig{
			AccessToken:  cfg.Access,
			RefreshToken: cfg.Refresh,
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Validity returns the configured lifetime for kind.
func (i *Issuer) Validity(kind TokenKind) time.Duration {
	return i.keys[kind].Validity
}

// Issue signs a new token of the given kind for subject.
func (i *Issuer) Issue(subject string, kind TokenKind) (string, *Claims, error) {
	key, ok := i.keys[kind]
	if !ok {
		return "", nil, fmt.Errorf("unknown token kind %q", kind)
	}

	now := i.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(key.Validity)),
		},
		Kind: kind,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key.Secret)
	if err != nil {
		return "", nil, err
	}
	return token, claims, nil
}

// Verify checks signature, expiry, issuer and kind of tokenString.
// Expired tokens yield common.ErrTokenExpired; every other failure yields
// common.ErrInvalidToken.
func (i *Issuer) Verify(tokenString string, kind TokenKind) (*Claims, error) {
	key, ok := i.keys[kind]
	if !ok {
		return nil, common.ErrInvalidToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) { return key.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(i.issuer),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.Kind != kind || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
