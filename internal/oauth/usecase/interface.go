// Package usecase implements the Canvas OAuth token lifecycle and the
// authorization handshake.
package usecase

import (
	"context"

	"github.com/google/uuid"

	envDomain "github.com/allisson/canvas-oauth/internal/environment/domain"
	oauthDomain "github.com/allisson/canvas-oauth/internal/oauth/domain"
)

// TokenRepository defines persistence operations for Canvas tokens.
// Implementations must support transaction-aware operations via context propagation.
type TokenRepository interface {
	// Upsert inserts the token or replaces the row for the same (user, environment).
	Upsert(ctx context.Context, token *oauthDomain.Token) error

	// Update replaces the credential fields of an existing token.
	Update(ctx context.Context, token *oauthDomain.Token) error

	// Get retrieves a token. Returns ErrTokenNotFound if none exists.
	Get(ctx context.Context, userID string, environmentID uuid.UUID) (*oauthDomain.Token, error)

	// GetForUpdate retrieves a token and locks its row for the current transaction.
	GetForUpdate(ctx context.Context, userID string, environmentID uuid.UUID) (*oauthDomain.Token, error)

	// Delete removes a token. Deleting a missing token is not an error.
	Delete(ctx context.Context, userID string, environmentID uuid.UUID) error

	// DeleteByEnvironment removes every token of an environment.
	DeleteByEnvironment(ctx context.Context, environmentID uuid.UUID) (int64, error)
}

// StateUseCase issues and validates single-use authorization states.
type StateUseCase interface {
	// Begin stores the handshake context under a new random state and returns the state.
	Begin(ctx context.Context, input *oauthDomain.BeginAuthorizationInput) (string, error)

	// Consume atomically fetches and invalidates a state. Unknown, expired or
	// already consumed states return ErrInvalidState.
	Consume(ctx context.Context, state string) (*oauthDomain.AuthorizationState, error)
}

// TokenUseCase manages the stored token of each (user, environment) pair.
type TokenUseCase interface {
	// GetToken returns a valid access token, refreshing it first when it expires
	// within the configured buffer. Returns ErrMissingToken when the pair has no
	// token or the refresh failed.
	GetToken(ctx context.Context, userID string, env *envDomain.Environment) (*oauthDomain.GetTokenOutput, error)

	// Refresh forces a refresh_token grant for the pair.
	Refresh(ctx context.Context, userID string, env *envDomain.Environment) (*oauthDomain.GetTokenOutput, error)

	// Store persists the result of an authorization_code exchange.
	Store(
		ctx context.Context,
		userID string,
		env *envDomain.Environment,
		result *oauthDomain.ExchangeResult,
	) (*oauthDomain.Token, error)

	// Purge deletes every token of an environment, forcing users to re-authorize.
	Purge(ctx context.Context, env *envDomain.Environment) (int64, error)
}

// AuthorizationUseCase drives the authorization_code handshake.
type AuthorizationUseCase interface {
	// Begin records a new state and returns the Canvas authorize URL.
	Begin(
		ctx context.Context,
		input *oauthDomain.BeginAuthorizationInput,
	) (*oauthDomain.BeginAuthorizationOutput, error)

	// HandleCallback validates the state, exchanges the code with the redirect
	// URI recorded at Begin, persists the token and returns the resume location.
	HandleCallback(ctx context.Context, input *oauthDomain.CallbackInput) (*oauthDomain.CallbackOutput, error)
}
