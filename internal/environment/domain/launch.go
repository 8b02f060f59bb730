package domain

import (
	"net/url"
	"strings"
)

// LTI 1.3 claim names read from a launch.
const (
	ClaimCustom             = "https://purl.imsglobal.org/spec/lti/claim/custom"
	ClaimAGSEndpoint        = "https://purl.imsglobal.org/spec/lti-ags/claim/endpoint"
	ClaimNRPS               = "https://purl.imsglobal.org/spec/lti-nrps/claim/namesroleservice"
	ClaimLaunchPresentation = "https://purl.imsglobal.org/spec/lti/claim/launch_presentation"
	ClaimTargetLinkURI      = "https://purl.imsglobal.org/spec/lti/claim/target_link_uri"
)

// LaunchContext is a decoded set of LTI launch claims.
type LaunchContext map[string]any

// domainURLClaims lists the service URLs whose host identifies the Canvas
// domain, in lookup order.
var domainURLClaims = []struct {
	claim string
	field string
}{
	{ClaimAGSEndpoint, "lineitems"},
	{ClaimNRPS, "context_memberships_url"},
	{ClaimLaunchPresentation, "return_url"},
}

// ExtractDomain returns the Canvas domain carried by launch. The custom
// api_domain field wins; otherwise the host of the first parseable service URL
// is used. A missing or malformed context yields ("", false).
func ExtractDomain(launch LaunchContext) (string, bool) {
	if launch == nil {
		return "", false
	}

	if custom, ok := launch[ClaimCustom].(map[string]any); ok {
		if apiDomain, ok := custom["api_domain"].(string); ok {
			if apiDomain = strings.TrimSpace(apiDomain); apiDomain != "" {
				return apiDomain, true
			}
		}
	}

	for _, source := range domainURLClaims {
		claim, ok := launch[source.claim].(map[string]any)
		if !ok {
			continue
		}
		raw, ok := claim[source.field].(string)
		if !ok {
			continue
		}
		if domain, ok := DomainFromURL(raw); ok {
			return domain, true
		}
	}

	return "", false
}

// DomainFromURL returns the authority of rawURL with a leading "www." removed.
func DomainFromURL(rawURL string) (string, bool) {
	if rawURL == "" {
		return "", false
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", false
	}
	host := strings.TrimPrefix(u.Host, "www.")
	if host == "" {
		return "", false
	}
	return host, true
}

// Value returns the string claim at key, looking inside the custom claim
// when it is not a top-level claim.
func (l LaunchContext) Value(key string) string {
	if v, ok := l[key].(string); ok {
		return v
	}
	if custom, ok := l[ClaimCustom].(map[string]any); ok {
		if v, ok := custom[key].(string); ok {
			return v
		}
	}
	return ""
}
