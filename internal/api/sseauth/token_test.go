package sseauth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateToken(t *testing.T) {
	secret := []byte("test-secret-32-bytes-long-key!!")
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	token, err := GenerateToken(secret, ScopeSSE, now)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	// Compact JWS: header.payload.signature
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Errorf("expected 3 parts, got %d", len(parts))
	}

	// Two tokens issued at the same instant still differ by jti.
	other, err := GenerateToken(secret, ScopeSSE, now)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if other == token {
		t.Error("expected distinct tokens")
	}
}

func TestGenerateToken_EmptySecret(t *testing.T) {
	now := time.Now()
	_, err := GenerateToken(nil, ScopeSSE, now)
	if err == nil {
		t.Error("expected error for empty secret")
	}
}

func TestValidateToken_Success(t *testing.T) {
	secret := []byte("test-secret-32-bytes-long-key!!")
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	token, err := GenerateToken(secret, ScopeSSE, now)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	// Validate within TTL
	validateTime := now.Add(2 * time.Minute)
	claims, err := ValidateToken(token, secret, ScopeSSE, validateTime)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}

	if claims.Scope != ScopeSSE {
		t.Errorf("expected scope %q, got %q", ScopeSSE, claims.Scope)
	}

	if !claims.ExpiresAt.Equal(now.Add(DefaultTTL)) {
		t.Errorf("expected exp %v, got %v", now.Add(DefaultTTL), claims.ExpiresAt)
	}

	if !claims.IssuedAt.Equal(now) {
		t.Errorf("expected iat %v, got %v", now, claims.IssuedAt)
	}

	if claims.Issuer != Issuer {
		t.Errorf("expected issuer %q, got %q", Issuer, claims.Issuer)
	}
}

func TestValidateToken_Expired(t *testing.T) {
	secret := []byte("test-secret-32-bytes-long-key!!")
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	token, err := GenerateToken(secret, ScopeSSE, now)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	// Validate after TTL
	validateTime := now.Add(DefaultTTL + time.Minute)
	_, err = ValidateToken(token, secret, ScopeSSE, validateTime)
	if err != ErrTokenExpired {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestValidateToken_InvalidSignature(t *testing.T) {
	secret := []byte("test-secret-32-bytes-long-key!!")
	wrongSecret := []byte("wrong-secret-32-bytes-long-key!")
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	token, err := GenerateToken(secret, ScopeSSE, now)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	_, err = ValidateToken(token, wrongSecret, ScopeSSE, now)
	if err != ErrInvalidSignature {
		t.Errorf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestValidateToken_InvalidScope(t *testing.T) {
	secret := []byte("test-secret-32-bytes-long-key!!")
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	token, err := GenerateToken(secret, ScopeSSE, now)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	_, err = ValidateToken(token, secret, "other-scope", now)
	if err != ErrInvalidScope {
		t.Errorf("expected ErrInvalidScope, got %v", err)
	}
}

func TestValidateToken_InvalidFormat(t *testing.T) {
	secret := []byte("test-secret-32-bytes-long-key!!")
	now := time.Now()

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"no dots", "nodots"},
		{"one dot", "one.dot"},
		{"garbage parts", "xxx.payload.sig"},
		{"invalid base64 payload", "eyJhbGciOiJIUzI1NiJ9.!!!.sig"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateToken(tt.token, secret, ScopeSSE, now)
			if err != ErrInvalidFormat {
				t.Errorf("expected ErrInvalidFormat, got %v", err)
			}
		})
	}
}

func TestValidateToken_EmptySecret(t *testing.T) {
	now := time.Now()
	_, err := ValidateToken("a.b.c", nil, ScopeSSE, now)
	if err != ErrEmptySecret {
		t.Errorf("expected ErrEmptySecret, got %v", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("test-secret-32-bytes-long-key!!")

	// Generate at time T
	genTime := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	token, err := GenerateToken(secret, ScopeSSE, genTime)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	// Should be valid at T+1min
	claims, err := ValidateToken(token, secret, ScopeSSE, genTime.Add(time.Minute))
	if err != nil {
		t.Fatalf("ValidateToken at T+1min failed: %v", err)
	}
	if claims.Scope != ScopeSSE {
		t.Errorf("wrong scope: %v", claims.Scope)
	}

	// Should be valid at T+4min (before expiry)
	_, err = ValidateToken(token, secret, ScopeSSE, genTime.Add(4*time.Minute))
	if err != nil {
		t.Fatalf("ValidateToken at T+4min failed: %v", err)
	}

	// Should be invalid at T+6min (after expiry)
	_, err = ValidateToken(token, secret, ScopeSSE, genTime.Add(6*time.Minute))
	if err != ErrTokenExpired {
		t.Errorf("expected ErrTokenExpired at T+6min, got %v", err)
	}
}

func TestValidateToken_WrongAlgorithm(t *testing.T) {
	secret := []byte("test-secret-32-bytes-long-key!!")
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	claims := Claims{
		Scope: ScopeSSE,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := ValidateToken(token, secret, ScopeSSE, now); err != ErrInvalidSignature {
		t.Errorf("expected ErrInvalidSignature for HS512 token, got %v", err)
	}
}
