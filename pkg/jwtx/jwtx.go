// Package jwtx wraps HS256 JWT signing and verification for the three token
// families the service issues: access, refresh and pending-2FA. Each family
// gets its own Signer with its own secret and lifetime, so a token signed for
// one purpose never verifies against another.
package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrExpired     = errors.New("jwtx: token expired")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")
	ErrMalformed   = errors.New("jwtx: token malformed")
)

// Claims is the payload carried by every token.
type Claims struct {
	jwt.RegisteredClaims
	UserID   int64  `json:"userId"`
	Username string `json:"userName"`
}

// Verifier checks a compact token string and returns its claims.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// Signer signs and verifies tokens for a single purpose.
type Signer struct {
	secret []byte
	ttl    time.Duration
}

func NewSigner(secret string, ttl time.Duration) (Signer, error) {
	if secret == "" {
		return Signer{}, errors.New("jwtx: empty signing secret")
	}
	if ttl <= 0 {
		return Signer{}, errors.New("jwtx: non-positive token lifetime")
	}
	return Signer{secret: []byte(secret), ttl: ttl}, nil
}

// Sign issues a token for the given identity, valid from now for the
// signer's lifetime.
func (s Signer) Sign(username string, userID int64) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		UserID:   userID,
		Username: username,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify parses and validates a compact token. Failures map onto the three
// sentinel errors so callers can distinguish an expired token from a
// premature or tampered one.
func (s Signer) Verify(token string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return Claims{}, ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return Claims{}, ErrNotYetValid
	default:
		// Bad signature, wrong algorithm and garbage input all land here.
		return Claims{}, ErrMalformed
	}
}
