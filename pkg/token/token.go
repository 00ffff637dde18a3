// Package token issues and verifies the signed session tokens that carry a
// user's identity between requests. Tokens are stateless HS256 JWTs; the
// server keeps only the signing secret.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the fixed session lifetime; tokens are non-renewable
const DefaultTTL = 24 * time.Hour

var (
	// ErrInvalidToken covers malformed tokens and signature mismatches
	ErrInvalidToken = errors.New("token is invalid")
	// ErrTokenExpired is returned for well-signed tokens past their expiry
	ErrTokenExpired = errors.New("token has expired")
)

// Claims is the signed claim set carried by a session token
type Claims struct {
	jwt.RegisteredClaims
}

// Issuer signs and verifies session tokens with a process-wide secret.
// Construct it explicitly from configuration so tests can inject a fixed secret.
type Issuer struct {
	secret []byte
}

// NewIssuer creates a token issuer. The secret must be non-empty; its absence
// is a startup error, checked in config before this is ever reached.
func NewIssuer(secret []byte) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("token signing secret must not be empty")
	}
	return &Issuer{secret: secret}, nil
}

// Issue builds and signs a token binding userID for the given ttl
func (i *Issuer) Issue(userID string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature integrity, then expiry, and returns the encoded
// user id. Failure kinds are distinct so callers can count them, but the
// middleware reports both as the same 401.
func (i *Issuer) Verify(tokenString string) (string, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return "", ErrInvalidToken
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", ErrTokenExpired
		default:
			return "", ErrInvalidToken
		}
	}

	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
