// Package domain defines the Canvas OAuth token and authorization state models.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Token is the persisted credential pair of one user in one environment.
// At most one Token exists per (UserID, EnvironmentID).
type Token struct {
	ID            uuid.UUID // Unique identifier (UUIDv7)
	UserID        string    // Host application user identity
	EnvironmentID uuid.UUID
	AccessToken   string //nolint:gosec // bearer credential stored for the Canvas API
	RefreshToken  string //nolint:gosec // empty when Canvas issued none
	ExpiresAt     time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ExpiresWithin reports whether the token expires within buffer of now.
// A token without an expiry never expires.
func (t *Token) ExpiresWithin(now time.Time, buffer time.Duration) bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return !t.ExpiresAt.After(now.Add(buffer))
}

// ExchangeResult is the outcome of a token endpoint call.
type ExchangeResult struct {
	AccessToken  string
	RefreshToken string // empty when the server did not rotate or issue one
	ExpiresAt    time.Time
}

// GetTokenOutput is returned to callers holding a valid access token.
type GetTokenOutput struct {
	AccessToken string
	ExpiresAt   time.Time
	Domain      string
}
