package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	oauthDomain "github.com/allisson/canvas-oauth/internal/oauth/domain"
	oauthUseCase "github.com/allisson/canvas-oauth/internal/oauth/usecase"
)

// CallbackPath is where Canvas redirects the browser after authorization.
const CallbackPath = "/oauth/callback"

// Handshake starts the authorization_code flow for a browser request.
type Handshake struct {
	authUseCase oauthUseCase.AuthorizationUseCase
	callbackURL string
}

// NewHandshake creates a Handshake. An empty callbackURL is derived from each request.
func NewHandshake(authUseCase oauthUseCase.AuthorizationUseCase, callbackURL string) *Handshake {
	return &Handshake{
		authUseCase: authUseCase,
		callbackURL: callbackURL,
	}
}

// RedirectURI returns the redirect_uri sent to Canvas for r.
func (h *Handshake) RedirectURI(r *http.Request) string {
	if h.callbackURL != "" {
		return h.callbackURL
	}
	return requestOrigin(r) + CallbackPath
}

// Start records a state and redirects the browser to the Canvas authorize URL.
func (h *Handshake) Start(
	c *gin.Context,
	domain, userID, resumeURI string,
	resumeParams map[string]string,
) error {
	output, err := h.authUseCase.Begin(c.Request.Context(), &oauthDomain.BeginAuthorizationInput{
		Domain:       domain,
		UserID:       userID,
		ResumeURI:    resumeURI,
		RedirectURI:  h.RedirectURI(c.Request),
		ResumeParams: resumeParams,
	})
	if err != nil {
		return err
	}

	c.Redirect(http.StatusFound, output.AuthorizeURL)
	return nil
}

// requestOrigin returns scheme://host of r, honoring X-Forwarded-Proto from a proxy.
func requestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
