// Package auth provides the authentication primitives of the backend: bearer
// token issuing/verification, password hashing, and the membership role model.
// See internal/middleware/auth.go for the request-time authentication logic that
// uses these primitives.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultTokenTTL is used when the issuer is built with a zero lifetime.
	DefaultTokenTTL = 30 * time.Minute

	tokenIssuer = "blokid-backend"
)

var (
	// ErrMissingSecret is returned when no signing secret is configured outside dev mode.
	ErrMissingSecret = errors.New("jwt secret is required")
	// ErrInvalidToken covers every parse, signature, and expiry failure.
	ErrInvalidToken = errors.New("invalid token")
)

// Claims represents the JWT claims structure. The subject carries the user's
// email, which is how the bearer is resolved back to a user row.
type Claims struct {
	UserID string `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

// Email returns the identity the token was issued for.
func (c *Claims) Email() string {
	return c.Subject
}

// TokenIssuer signs and verifies HS256 bearer tokens with one secret. It holds
// no mutable state and is safe for concurrent use.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer builds an issuer from an explicit secret. When the secret is
// empty and devMode is set, a random secret is generated; tokens then do not
// survive a restart.
func NewTokenIssuer(secret string, ttl time.Duration, devMode bool) (*TokenIssuer, error) {
	if secret == "" {
		if !devMode {
			return nil, ErrMissingSecret
		}
		generated, err := generateRandomSecret()
		if err != nil {
			return nil, err
		}
		slog.Warn("jwt secret not set; using auto-generated secret for development")
		secret = generated
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// generateRandomSecret creates a cryptographically secure random secret
func generateRandomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate jwt secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// TTL returns the lifetime applied to issued tokens.
func (i *TokenIssuer) TTL() time.Duration {
	return i.ttl
}

// Issue creates a signed token for the given user.
func (i *TokenIssuer) Issue(userID, email string) (string, error) {
	now := i.now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   email,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a token, returning its claims. Only HS256 is
// accepted, and tokens without a subject are rejected.
func (i *TokenIssuer) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return claims, nil
}
