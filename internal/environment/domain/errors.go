package domain

import (
	"github.com/allisson/canvas-oauth/internal/errors"
)

// Environment resolution errors.
var (
	// ErrEnvironmentNotFound indicates no active environment exists for a domain.
	ErrEnvironmentNotFound = errors.Wrap(errors.ErrNotFound, "environment not found")

	// ErrEnvironmentAlreadyExists indicates the name or domain is already taken.
	ErrEnvironmentAlreadyExists = errors.Wrap(errors.ErrConflict, "environment already exists")

	// ErrDomainNotResolved indicates the request carried no signal identifying a Canvas domain.
	// Callers must not fall back to a default environment.
	ErrDomainNotResolved = errors.Wrap(errors.ErrInvalidInput, "canvas domain could not be resolved")

	// ErrCredentialsNotFound indicates no client credentials are configured for a domain.
	ErrCredentialsNotFound = errors.Wrap(errors.ErrConfiguration, "canvas oauth credentials not found")

	// ErrLegacyDomainNotConfigured indicates the legacy resolver has no domain setting.
	ErrLegacyDomainNotConfigured = errors.Wrap(errors.ErrConfiguration, "CANVAS_OAUTH_CANVAS_DOMAIN setting is empty")
)
