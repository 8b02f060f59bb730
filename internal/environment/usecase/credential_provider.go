package usecase

import (
	"sort"
	"strings"

	"github.com/allisson/canvas-oauth/internal/config"
	envDomain "github.com/allisson/canvas-oauth/internal/environment/domain"
	apperrors "github.com/allisson/canvas-oauth/internal/errors"
)

var domainSettingReplacer = strings.NewReplacer(".", "_", "-", "_", ":", "_")

// credentialProvider implements CredentialProvider over values captured by config.Load.
type credentialProvider struct {
	environments       map[string]config.CanvasEnvironment
	domainCredentials  map[string]string
	legacyClientID     string
	legacyClientSecret string
}

// Resolve looks up credentials in the environments table, then the per-domain
// settings, then the legacy settings. Per-domain id and secret fall back to the
// legacy values independently.
func (p *credentialProvider) Resolve(domain string) (*envDomain.Credentials, error) {
	baseURL := "https://" + domain

	keys := make([]string, 0, len(p.environments))
	for key := range p.environments {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		env := p.environments[key]
		if env.Domain != domain {
			continue
		}
		if env.ClientID != "" && env.ClientSecret != "" {
			return &envDomain.Credentials{
				ClientID:     env.ClientID,
				ClientSecret: env.ClientSecret,
				BaseURL:      baseURL,
			}, nil
		}
	}

	clientID := p.domainCredentials[DomainSettingName(domain, "CLIENT_ID")]
	if clientID == "" {
		clientID = p.legacyClientID
	}
	clientSecret := p.domainCredentials[DomainSettingName(domain, "CLIENT_SECRET")]
	if clientSecret == "" {
		clientSecret = p.legacyClientSecret
	}

	if clientID == "" || clientSecret == "" {
		return nil, apperrors.Wrapf(
			envDomain.ErrCredentialsNotFound,
			"no credentials for domain %s: configure CANVAS_OAUTH_ENVIRONMENTS or domain-specific settings",
			domain,
		)
	}

	return &envDomain.Credentials{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		BaseURL:      baseURL,
	}, nil
}

// DomainSettingName returns the per-domain setting for suffix, e.g.
// CANVAS_OAUTH_CANVAS_EXAMPLE_EDU_CLIENT_ID for canvas.example.edu.
func DomainSettingName(domain, suffix string) string {
	return "CANVAS_OAUTH_" + domainSettingReplacer.Replace(strings.ToUpper(domain)) + "_" + suffix
}

// NewCredentialProvider creates a CredentialProvider from the loaded configuration.
func NewCredentialProvider(cfg *config.Config) CredentialProvider {
	return &credentialProvider{
		environments:       cfg.CanvasEnvironments,
		domainCredentials:  cfg.DomainCredentials,
		legacyClientID:     cfg.CanvasClientID,
		legacyClientSecret: cfg.CanvasClientSecret,
	}
}
