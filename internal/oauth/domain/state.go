package domain

import (
	"time"
)

// AuthorizationState binds a callback to the handshake that initiated it.
// It lives in the state store only and is consumed at most once.
type AuthorizationState struct {
	State        string            `json:"state"`
	ResumeURI    string            `json:"resume_uri"`
	RedirectURI  string            `json:"redirect_uri"`
	Domain       string            `json:"domain"`
	UserID       string            `json:"user_id"`
	IssuedAt     time.Time         `json:"issued_at"`
	ExpiresAt    time.Time         `json:"expires_at"`
	ResumeParams map[string]string `json:"resume_params,omitempty"`
}

// BeginAuthorizationInput contains the handshake context recorded with a new state.
type BeginAuthorizationInput struct {
	Domain       string
	UserID       string
	ResumeURI    string
	RedirectURI  string
	ResumeParams map[string]string
}

// BeginAuthorizationOutput holds the authorize URL the browser must be sent to.
type BeginAuthorizationOutput struct {
	AuthorizeURL string
	State        string
}

// CallbackInput is the query of the Canvas redirect back to the service.
type CallbackInput struct {
	Code  string
	State string
	Error string
}

// CallbackOutput describes where to resume the user after a successful callback.
type CallbackOutput struct {
	RedirectURL string
	Token       *Token
}
