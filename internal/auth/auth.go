// Package auth verifies the bearer tokens issued by the external
// authentication subsystem and maps them to a user identity.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthorized indicates invalid or missing credentials.
var ErrUnauthorized = errors.New("unauthorized")

// Claims defines the JWT claims carried by access tokens. The subject is the
// durable user identifier.
type Claims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the verified caller behind a token.
type Identity struct {
	UserID string
	Name   string
	Email  string
}

// Verifier validates HMAC-signed tokens.
type Verifier struct {
	secret []byte
	ttl    time.Duration
}

// NewVerifier creates a Verifier for the shared secret. ttl is used by Issue.
func NewVerifier(secret string, ttl time.Duration) *Verifier {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Verifier{secret: []byte(secret), ttl: ttl}
}

// Verify parses and validates a token and returns the identity it carries.
func (v *Verifier) Verify(tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, ErrUnauthorized
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrUnauthorized)
	}

	return Identity{UserID: claims.Subject, Name: claims.Name, Email: claims.Email}, nil
}

// Issue signs a token for the identity. The production issuer is external;
// this exists for local tooling and tests.
func (v *Verifier) Issue(id Identity) (string, error) {
	now := time.Now()
	claims := Claims{
		Name:  id.Name,
		Email: id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// TokenFromRequest extracts a bearer token from the Authorization header, or
// from the "token" query parameter for browser WebSocket clients that cannot
// set headers.
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}
