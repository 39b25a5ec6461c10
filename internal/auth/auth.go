// Package auth provides password hashing and the JWT cookie scheme used
// by the HTTP API: HS256 tokens carrying the user id and name, held in an
// httpOnly cookie.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// CookieName is the cookie carrying the session token.
const CookieName = "token"

// MinPasswordLen is the minimum accepted password length.
const MinPasswordLen = 4

// ErrUnauthorized is returned when no credential is present.
var ErrUnauthorized = errors.New("auth: authentication required")

// ErrInvalidToken is returned when a credential is present but unusable.
var ErrInvalidToken = errors.New("auth: invalid token")

// Identity is the authenticated principal attached to a request.
type Identity struct {
	UserID   int64
	Username string
}

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the stored hash.
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Manager issues and verifies session tokens.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

// NewManager creates a token manager. ttl defaults to 30 days, matching
// the cookie lifetime.
func NewManager(secret string, ttl time.Duration) *Manager {
	if ttl == 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Manager{secret: []byte(secret), ttl: ttl}
}

// TTL returns the token lifetime, for callers setting cookie expiry.
func (m *Manager) TTL() time.Duration { return m.ttl }

type claims struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Issue signs a token for the given identity.
func (m *Manager) Issue(id Identity) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		ID:       id.UserID,
		Username: id.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a token and returns the identity it asserts.
func (m *Manager) Verify(tokenString string) (Identity, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: c.ID, Username: c.Username}, nil
}
