package dto

import (
	"time"

	envDomain "github.com/allisson/canvas-oauth/internal/environment/domain"
	oauthDomain "github.com/allisson/canvas-oauth/internal/oauth/domain"
)

// TokenResponse is returned to host services asking for a user's access token.
type TokenResponse struct {
	AccessToken string     `json:"access_token"` //nolint:gosec // returned to an authenticated host service
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Domain      string     `json:"domain"`
}

// MapTokenToResponse converts a GetTokenOutput to an API response.
func MapTokenToResponse(output *oauthDomain.GetTokenOutput) TokenResponse {
	response := TokenResponse{
		AccessToken: output.AccessToken,
		Domain:      output.Domain,
	}
	if !output.ExpiresAt.IsZero() {
		expiresAt := output.ExpiresAt
		response.ExpiresAt = &expiresAt
	}
	return response
}

// MissingTokenResponse tells a host service where to send the user to authorize.
type MissingTokenResponse struct {
	Error        string `json:"error"`
	Message      string `json:"message"`
	AuthorizeURL string `json:"authorize_url"`
}

// EnvironmentResponse represents an environment in API responses.
type EnvironmentResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Domain    string    `json:"domain"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MapEnvironmentToResponse converts a domain environment to an API response.
func MapEnvironmentToResponse(env *envDomain.Environment) EnvironmentResponse {
	return EnvironmentResponse{
		ID:        env.ID.String(),
		Name:      env.Name,
		Domain:    env.Domain,
		IsActive:  env.IsActive,
		CreatedAt: env.CreatedAt,
		UpdatedAt: env.UpdatedAt,
	}
}

// ListEnvironmentsResponse represents a paginated list of environments.
type ListEnvironmentsResponse struct {
	Data []EnvironmentResponse `json:"data"`
}

// MapEnvironmentsToListResponse converts a slice of environments to a list API response.
func MapEnvironmentsToListResponse(envs []*envDomain.Environment) ListEnvironmentsResponse {
	responses := make([]EnvironmentResponse, 0, len(envs))
	for _, env := range envs {
		responses = append(responses, MapEnvironmentToResponse(env))
	}
	return ListEnvironmentsResponse{Data: responses}
}
