package domain

import (
	"github.com/allisson/canvas-oauth/internal/errors"
)

// OAuth errors.
var (
	// ErrMissingToken indicates no usable token exists and a new authorization is required.
	ErrMissingToken = errors.Wrap(errors.ErrUnauthorized, "canvas oauth token missing")

	// ErrTokenNotFound indicates no token row exists for the (user, environment) pair.
	ErrTokenNotFound = errors.Wrap(errors.ErrNotFound, "token not found")

	// ErrInvalidState indicates the callback state is unknown, expired or already consumed.
	ErrInvalidState = errors.Wrap(errors.ErrForbidden, "oauth state mismatch")

	// ErrAuthorizationDenied indicates Canvas redirected back with an error parameter.
	ErrAuthorizationDenied = errors.Wrap(errors.ErrForbidden, "authorization denied")

	// ErrUpstreamExchange indicates Canvas rejected or failed a token exchange.
	ErrUpstreamExchange = errors.Wrap(errors.ErrBadGateway, "canvas token exchange failed")

	// ErrInvalidLaunch indicates a launch assertion that is unsigned, forged, expired or replayed.
	ErrInvalidLaunch = errors.Wrap(errors.ErrUnauthorized, "invalid launch assertion")

	// ErrMissingUserID indicates the request carries no host user identity.
	ErrMissingUserID = errors.Wrap(errors.ErrInvalidInput, "user id is required")
)
