// Package usecase implements Canvas environment resolution and administration.
package usecase

import (
	"context"

	envDomain "github.com/allisson/canvas-oauth/internal/environment/domain"
)

// EnvironmentRepository defines persistence operations for Canvas environments.
// Implementations must support transaction-aware operations via context propagation.
type EnvironmentRepository interface {
	// Create stores a new environment. Returns ErrEnvironmentAlreadyExists on a duplicate name or domain.
	Create(ctx context.Context, env *envDomain.Environment) error

	// Update modifies an existing environment. Returns ErrEnvironmentNotFound if it doesn't exist.
	Update(ctx context.Context, env *envDomain.Environment) error

	// GetByDomain retrieves an environment by domain regardless of its active flag.
	GetByDomain(ctx context.Context, domain string) (*envDomain.Environment, error)

	// GetByName retrieves an environment by its operator label.
	GetByName(ctx context.Context, name string) (*envDomain.Environment, error)

	// List retrieves environments ordered by name with pagination.
	List(ctx context.Context, offset, limit int) ([]*envDomain.Environment, error)
}

// EnvironmentUseCase defines administration and lookup of Canvas environments.
type EnvironmentUseCase interface {
	// Create validates the input and registers a new environment.
	Create(ctx context.Context, input *envDomain.CreateEnvironmentInput) (*envDomain.Environment, error)

	// Update replaces the mutable fields of the environment identified by name.
	Update(
		ctx context.Context,
		name string,
		input *envDomain.UpdateEnvironmentInput,
	) (*envDomain.Environment, error)

	// GetByName retrieves an environment by its operator label.
	GetByName(ctx context.Context, name string) (*envDomain.Environment, error)

	// List retrieves environments ordered by name with pagination.
	List(ctx context.Context, offset, limit int) ([]*envDomain.Environment, error)

	// ResolveActive returns the active environment registered for domain.
	// Inactive or unknown domains return ErrEnvironmentNotFound.
	ResolveActive(ctx context.Context, domain string) (*envDomain.Environment, error)
}

// SessionValues is the subset of a browser session used to cache the resolved domain.
type SessionValues interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// RequestContext carries the per-request signals a Resolver may inspect.
// Both fields are optional.
type RequestContext struct {
	Session SessionValues
	Launch  envDomain.LaunchContext
}

// Resolver determines which Canvas domain a request belongs to.
type Resolver interface {
	// Resolve returns the Canvas domain for rc. Callers must not substitute a
	// default domain when an error is returned.
	Resolve(ctx context.Context, rc *RequestContext) (string, error)
}

// CredentialProvider resolves OAuth client credentials for a Canvas domain.
type CredentialProvider interface {
	// Resolve returns the credentials registered for domain or ErrCredentialsNotFound.
	Resolve(domain string) (*envDomain.Credentials, error)
}
