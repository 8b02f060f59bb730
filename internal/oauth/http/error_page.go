package http

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	envDomain "github.com/allisson/canvas-oauth/internal/environment/domain"
	apperrors "github.com/allisson/canvas-oauth/internal/errors"
	oauthDomain "github.com/allisson/canvas-oauth/internal/oauth/domain"
)

// errorPageData is passed to the configured error template.
type errorPageData struct {
	Status  int
	Message string
}

// ErrorPage renders failures of the browser-facing OAuth flow.
type ErrorPage struct {
	tmpl   *template.Template
	logger *slog.Logger
}

// LoadErrorPage parses the html/template at path. An empty path renders plain text.
func LoadErrorPage(path string, logger *slog.Logger) (*ErrorPage, error) {
	page := &ErrorPage{logger: logger}
	if path == "" {
		return page, nil
	}

	content, err := os.ReadFile(path) //nolint:gosec // operator-provided template path
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrConfiguration, "failed to read error template %s: %v", path, err)
	}

	tmpl, err := template.New("oauth_error").Parse(string(content))
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrConfiguration, "failed to parse error template %s: %v", path, err)
	}
	page.tmpl = tmpl
	return page, nil
}

// Render writes message with status, using the template when one is loaded.
func (p *ErrorPage) Render(c *gin.Context, status int, message string) {
	if p.tmpl != nil {
		var buf bytes.Buffer
		err := p.tmpl.Execute(&buf, errorPageData{Status: status, Message: message})
		if err == nil {
			c.Data(status, "text/html; charset=utf-8", buf.Bytes())
			return
		}
		if p.logger != nil {
			p.logger.Error("failed to render error template", slog.Any("error", err))
		}
	}
	c.Data(status, "text/plain; charset=utf-8", []byte(fmt.Sprintf("OAuth Error: %s", message)))
}

// RenderError maps err to a status and a user-facing message and renders it.
func (p *ErrorPage) RenderError(c *gin.Context, err error) {
	status, message := pageFor(err)
	p.renderError(c, err, status, message)
}

// RenderCallbackError renders a failed callback. Client-side failures are
// reported as 403; upstream and internal failures keep their status.
func (p *ErrorPage) RenderCallbackError(c *gin.Context, err error) {
	status, message := pageFor(err)
	if status < http.StatusInternalServerError {
		status = http.StatusForbidden
	}
	p.renderError(c, err, status, message)
}

func (p *ErrorPage) renderError(c *gin.Context, err error, status int, message string) {
	if p.logger != nil {
		p.logger.Warn("oauth flow failed",
			slog.Int("status_code", status),
			slog.Any("error", err),
		)
	}
	p.Render(c, status, message)
}

func pageFor(err error) (int, string) {
	switch {
	case apperrors.Is(err, oauthDomain.ErrInvalidState):
		return http.StatusForbidden, "oauth state mismatch"
	case apperrors.Is(err, oauthDomain.ErrAuthorizationDenied):
		return http.StatusForbidden, "authorization was denied in Canvas"
	case apperrors.Is(err, apperrors.ErrBadGateway):
		return http.StatusBadGateway, "Canvas could not complete the token exchange"
	case apperrors.Is(err, apperrors.ErrConfiguration):
		return http.StatusInternalServerError, "this Canvas environment is not configured"
	case apperrors.Is(err, envDomain.ErrDomainNotResolved):
		return http.StatusForbidden, "the Canvas environment could not be determined, launch the tool from Canvas"
	case apperrors.Is(err, apperrors.ErrNotFound):
		return http.StatusForbidden, "unknown Canvas environment"
	case apperrors.Is(err, apperrors.ErrInvalidInput):
		return http.StatusBadRequest, "invalid request"
	case apperrors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized, "launch the tool from Canvas to sign in"
	case apperrors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden, "access denied"
	default:
		return http.StatusInternalServerError, "an internal error occurred"
	}
}
