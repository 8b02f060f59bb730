// Package dto provides data transfer objects for the Canvas OAuth HTTP handlers.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/canvas-oauth/internal/validation"
)

// LaunchRequest carries the launch assertion the host's LTI layer signed
// after validating the Canvas id_token.
type LaunchRequest struct {
	LaunchToken string `form:"launch_token" json:"launch_token"`
}

// Validate checks if the launch request is valid.
func (r *LaunchRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.LaunchToken,
			validation.Required,
			customValidation.NotBlank,
			validation.Length(1, 8192),
		),
	)
}

// AuthorizeRequest holds the query parameters of GET /oauth/authorize.
type AuthorizeRequest struct {
	Domain string `form:"domain"`
	Next   string `form:"next"`
}

// Validate checks if the authorize request is valid.
func (r *AuthorizeRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Domain, customValidation.CanvasDomain),
		validation.Field(&r.Next, customValidation.RedirectTarget),
	)
}

// TokenRequest holds the query parameters of GET /v1/token.
type TokenRequest struct {
	UserID string `form:"user_id"`
	Domain string `form:"domain"`
}

// Validate checks if the token request is valid.
func (r *TokenRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.UserID,
			validation.Required,
			customValidation.NotBlank,
			validation.Length(1, 255),
		),
		validation.Field(&r.Domain, customValidation.CanvasDomain),
	)
}
