// Package session encapsulates the persisted authentication state of a
// client process behind a storage-agnostic Store interface.
package session

import (
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/evep-health/evep/internal/entity"
)

// ExpiryMargin is the safety window before the claimed expiry within which
// a token is already treated as expired, so it cannot lapse mid-request.
const ExpiryMargin = 300 * time.Second

// Store owns the process-wide session singleton. Only its own setters write
// it; readers get an immutable snapshot at read time.
type Store interface {
	Token() string
	RefreshToken() string
	SessionHash() string
	User() *entity.User
	Session() entity.Session
	SetSession(tokens entity.UserTokens, user entity.User) error
	Clear() error
	IsTokenExpired() bool
}

// tokenExpiringWithin decodes the token's exp claim without verifying the
// signature. A token that cannot be decoded, carries no expiry, or expires
// inside the margin counts as expired.
func tokenExpiringWithin(token string, margin time.Duration) bool {
	if token == "" {
		return true
	}

	parser := jwt.NewParser()

	var claims jwt.RegisteredClaims

	_, _, err := parser.ParseUnverified(token, &claims)
	if err != nil {
		return true
	}

	if claims.ExpiresAt == nil {
		return true
	}

	return time.Until(claims.ExpiresAt.Time) < margin
}
