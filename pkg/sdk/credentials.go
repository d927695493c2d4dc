package sdk

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credentials represents the token material persisted for a signed-in user.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	User         *User
}

// Restorable reports whether the credentials carry enough to restore a session.
func (c *Credentials) Restorable() bool {
	return c != nil && c.AccessToken != "" && c.User != nil
}

// ExpiresAt returns the exp claim of the access token when it is a JWT.
func (c *Credentials) ExpiresAt() (time.Time, bool) {
	if c == nil {
		return time.Time{}, false
	}
	return TokenExpiry(c.AccessToken)
}

// IsExpired reports whether the access token carries an exp claim in the past.
// Opaque tokens are never considered expired locally; the server decides.
func (c *Credentials) IsExpired() bool {
	exp, ok := c.ExpiresAt()
	return ok && time.Now().After(exp)
}

// TokenExpiry reads the exp claim of a JWT without verifying its signature.
// The server remains the authority on validity; this is only used for display
// and diagnostics.
func TokenExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
