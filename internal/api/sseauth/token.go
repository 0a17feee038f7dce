// Package sseauth issues and checks the short-lived tokens that let an
// EventSource connect to the stream without Basic Auth headers.
package sseauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// Issuer is the iss claim of every token.
	Issuer = "suiticket-companion"

	// DefaultTTL is the default token validity duration.
	DefaultTTL = 5 * time.Minute

	// ScopeSSE is the scope claim for SSE tokens.
	ScopeSSE = "sse"
)

// Errors returned by token validation.
var (
	ErrInvalidFormat    = errors.New("invalid token format")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrTokenExpired     = errors.New("token expired")
	ErrInvalidScope     = errors.New("invalid token scope")
	ErrEmptySecret      = errors.New("secret cannot be empty")
)

// Claims is the token payload: the registered claims plus a scope.
type Claims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// GenerateToken signs an HS256 JWT valid for DefaultTTL from now.
func GenerateToken(secret []byte, scope string, now time.Time) (string, error) {
	if len(secret) == 0 {
		return "", ErrEmptySecret
	}

	claims := Claims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(DefaultTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies a token as of now and returns its claims.
func ValidateToken(token string, secret []byte, expectedScope string, now time.Time) (Claims, error) {
	if len(secret) == 0 {
		return Claims{}, ErrEmptySecret
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return Claims{}, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return Claims{}, ErrInvalidSignature
	default:
		return Claims{}, ErrInvalidFormat
	}

	if claims.Scope != expectedScope {
		return Claims{}, ErrInvalidScope
	}
	return claims, nil
}
