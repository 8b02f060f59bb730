// Package service provides the Canvas token endpoint client and the
// cryptographic helpers used by the OAuth usecases.
package service

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	envDomain "github.com/allisson/canvas-oauth/internal/environment/domain"
	apperrors "github.com/allisson/canvas-oauth/internal/errors"
	oauthDomain "github.com/allisson/canvas-oauth/internal/oauth/domain"
)

// Canvas OAuth2 endpoint paths relative to the environment base URL.
const (
	AuthorizePath = "/login/oauth2/auth"
	TokenPath     = "/login/oauth2/token" //nolint:gosec // endpoint path, not a credential
)

// Exchanger talks to the Canvas authorization server.
type Exchanger interface {
	// AuthCodeURL builds the authorize URL the browser is redirected to.
	AuthCodeURL(creds *envDomain.Credentials, redirectURI, state string, scopes []string) string

	// ExchangeCode performs the authorization_code grant.
	ExchangeCode(
		ctx context.Context,
		creds *envDomain.Credentials,
		redirectURI, code string,
	) (*oauthDomain.ExchangeResult, error)

	// Refresh performs the refresh_token grant.
	Refresh(
		ctx context.Context,
		creds *envDomain.Credentials,
		refreshToken string,
	) (*oauthDomain.ExchangeResult, error)
}

// canvasExchanger implements Exchanger with golang.org/x/oauth2.
type canvasExchanger struct {
	httpClient *http.Client
}

// NewCanvasExchanger creates an Exchanger whose outbound calls are bounded by timeout.
func NewCanvasExchanger(timeout time.Duration) Exchanger {
	return &canvasExchanger{httpClient: &http.Client{Timeout: timeout}}
}

// NewCanvasExchangerWithClient creates an Exchanger that uses httpClient for token calls.
func NewCanvasExchangerWithClient(httpClient *http.Client) Exchanger {
	return &canvasExchanger{httpClient: httpClient}
}

func (e *canvasExchanger) config(creds *envDomain.Credentials, redirectURI string, scopes []string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   creds.BaseURL + AuthorizePath,
			TokenURL:  creds.BaseURL + TokenPath,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// AuthCodeURL returns {base}/login/oauth2/auth?client_id&redirect_uri&response_type=code&scope&state.
func (e *canvasExchanger) AuthCodeURL(
	creds *envDomain.Credentials,
	redirectURI, state string,
	scopes []string,
) string {
	return e.config(creds, redirectURI, scopes).AuthCodeURL(state)
}

// ExchangeCode posts the authorization code with the redirect URI recorded at handshake start.
func (e *canvasExchanger) ExchangeCode(
	ctx context.Context,
	creds *envDomain.Credentials,
	redirectURI, code string,
) (*oauthDomain.ExchangeResult, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)

	token, err := e.config(creds, redirectURI, nil).Exchange(ctx, code)
	if err != nil {
		return nil, upstreamError("authorization_code", err)
	}
	return toExchangeResult(token), nil
}

// Refresh posts the refresh token. The returned RefreshToken is empty unless
// Canvas issued a new one.
func (e *canvasExchanger) Refresh(
	ctx context.Context,
	creds *envDomain.Credentials,
	refreshToken string,
) (*oauthDomain.ExchangeResult, error) {
	if refreshToken == "" {
		return nil, apperrors.Wrap(oauthDomain.ErrUpstreamExchange, "refresh_token grant: no refresh token stored")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)

	source := e.config(creds, "", nil).TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return nil, upstreamError("refresh_token", err)
	}

	result := toExchangeResult(token)
	// x/oauth2 copies the submitted refresh token into the response when none is returned.
	if result.RefreshToken == refreshToken {
		result.RefreshToken = ""
	}
	return result, nil
}

func toExchangeResult(token *oauth2.Token) *oauthDomain.ExchangeResult {
	result := &oauthDomain.ExchangeResult{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}
	if !token.Expiry.IsZero() {
		result.ExpiresAt = token.Expiry.UTC()
	}
	return result
}

func upstreamError(grant string, err error) error {
	var retrieveErr *oauth2.RetrieveError
	if apperrors.As(err, &retrieveErr) {
		if retrieveErr.ErrorCode != "" {
			return apperrors.Wrapf(oauthDomain.ErrUpstreamExchange, "%s grant: %s", grant, retrieveErr.ErrorCode)
		}
		return apperrors.Wrapf(
			oauthDomain.ErrUpstreamExchange,
			"%s grant: status %d",
			grant,
			retrieveErr.Response.StatusCode,
		)
	}
	return apperrors.Wrapf(oauthDomain.ErrUpstreamExchange, "%s grant: %v", grant, err)
}
