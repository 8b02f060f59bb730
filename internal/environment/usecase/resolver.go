package usecase

import (
	"context"
	"strings"

	"github.com/allisson/canvas-oauth/internal/config"
	envDomain "github.com/allisson/canvas-oauth/internal/environment/domain"
	apperrors "github.com/allisson/canvas-oauth/internal/errors"
	"github.com/allisson/canvas-oauth/internal/session"
)

// legacyResolver serves single-environment deployments from static configuration.
type legacyResolver struct {
	domain string
}

// Resolve returns the configured domain.
func (r *legacyResolver) Resolve(_ context.Context, _ *RequestContext) (string, error) {
	if r.domain == "" {
		return "", envDomain.ErrLegacyDomainNotConfigured
	}
	return r.domain, nil
}

// contextResolver derives the domain from the session and the LTI launch.
type contextResolver struct{}

// Resolve checks the session cache first, then extracts the domain from the
// launch claims and caches it back onto the session.
func (r *contextResolver) Resolve(ctx context.Context, rc *RequestContext) (string, error) {
	if rc == nil {
		return "", envDomain.ErrDomainNotResolved
	}

	if rc.Session != nil {
		cached, found, err := rc.Session.Get(ctx, session.KeyCanvasDomain)
		if err != nil {
			return "", apperrors.Wrap(err, "failed to read session domain")
		}
		if found && cached != "" {
			return cached, nil
		}
	}

	domain, ok := envDomain.ExtractDomain(rc.Launch)
	if !ok {
		return "", envDomain.ErrDomainNotResolved
	}
	domain = strings.ToLower(domain)

	if rc.Session != nil {
		if err := rc.Session.Set(ctx, session.KeyCanvasDomain, domain); err != nil {
			return "", apperrors.Wrap(err, "failed to cache session domain")
		}
	}

	return domain, nil
}

// NewResolver returns the resolver selected by kind.
func NewResolver(kind, legacyDomain string) (Resolver, error) {
	switch kind {
	case config.ResolverLegacy, "":
		return &legacyResolver{domain: legacyDomain}, nil
	case config.ResolverContext:
		return &contextResolver{}, nil
	default:
		return nil, apperrors.Wrapf(apperrors.ErrConfiguration, "unknown environment resolver %q", kind)
	}
}
