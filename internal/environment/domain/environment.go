// Package domain defines the Canvas environment model and the pure helpers
// that derive a Canvas domain from LTI launch claims.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Environment is one configured Canvas instance. Only active environments
// take part in resolution. Token operations never modify an Environment.
type Environment struct {
	ID        uuid.UUID // Unique identifier (UUIDv7)
	Name      string    // Operator label, unique
	Domain    string    // Canvas host name, unique (e.g. canvas.example.edu)
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BaseURL returns the HTTPS origin of the environment.
func (e *Environment) BaseURL() string {
	return "https://" + e.Domain
}

// Credentials are the OAuth client credentials registered for a Canvas domain.
type Credentials struct {
	ClientID     string
	ClientSecret string //nolint:gosec // operator-provided developer key secret
	BaseURL      string
}

// CreateEnvironmentInput contains the parameters for registering a Canvas environment.
type CreateEnvironmentInput struct {
	Name     string
	Domain   string
	IsActive bool
}

// UpdateEnvironmentInput contains the mutable fields of an environment.
type UpdateEnvironmentInput struct {
	Name     string
	Domain   string
	IsActive bool
}
