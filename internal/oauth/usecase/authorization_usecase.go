package usecase

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	envUseCase "github.com/allisson/canvas-oauth/internal/environment/usecase"
	apperrors "github.com/allisson/canvas-oauth/internal/errors"
	oauthDomain "github.com/allisson/canvas-oauth/internal/oauth/domain"
	oauthService "github.com/allisson/canvas-oauth/internal/oauth/service"
	customValidation "github.com/allisson/canvas-oauth/internal/validation"
)

// errResumeNotLocal rejects resume locations that would leave this host.
var errResumeNotLocal = apperrors.Wrap(apperrors.ErrInvalidInput, "resume uri must be a local path")

// AuthorizationConfig holds handshake settings.
type AuthorizationConfig struct {
	// Scopes requested from Canvas. Empty requests the developer key's full access.
	Scopes []string
	// ExchangeTimeout bounds the code exchange and the token write that follows it.
	ExchangeTimeout time.Duration
}

// authorizationUseCase implements AuthorizationUseCase.
type authorizationUseCase struct {
	config       AuthorizationConfig
	environments envUseCase.EnvironmentUseCase
	credentials  envUseCase.CredentialProvider
	states       StateUseCase
	tokens       TokenUseCase
	exchanger    oauthService.Exchanger
	logger       *slog.Logger
}

// Begin checks that the domain is an active environment with credentials,
// records a state and builds the authorize URL.
func (a *authorizationUseCase) Begin(
	ctx context.Context,
	input *oauthDomain.BeginAuthorizationInput,
) (*oauthDomain.BeginAuthorizationOutput, error) {
	if input.UserID == "" {
		return nil, oauthDomain.ErrMissingUserID
	}
	if input.ResumeURI != "" && !customValidation.IsLocalPath(input.ResumeURI) {
		return nil, errResumeNotLocal
	}

	env, err := a.environments.ResolveActive(ctx, input.Domain)
	if err != nil {
		return nil, err
	}

	creds, err := a.credentials.Resolve(env.Domain)
	if err != nil {
		return nil, err
	}

	stateInput := *input
	stateInput.Domain = env.Domain
	state, err := a.states.Begin(ctx, &stateInput)
	if err != nil {
		return nil, err
	}

	authorizeURL := a.exchanger.AuthCodeURL(creds, input.RedirectURI, state, a.config.Scopes)
	if a.logger != nil {
		a.logger.Info("redirecting to canvas for authorization",
			slog.String("canvas_domain", env.Domain),
			slog.String("user_id", input.UserID),
		)
	}

	return &oauthDomain.BeginAuthorizationOutput{
		AuthorizeURL: authorizeURL,
		State:        state,
	}, nil
}

// HandleCallback consumes the state before anything else, so a state can never
// be replayed even when a later step fails.
func (a *authorizationUseCase) HandleCallback(
	ctx context.Context,
	input *oauthDomain.CallbackInput,
) (*oauthDomain.CallbackOutput, error) {
	if input.Error != "" {
		return nil, apperrors.Wrap(oauthDomain.ErrAuthorizationDenied, input.Error)
	}

	authState, err := a.states.Consume(ctx, input.State)
	if err != nil {
		if a.logger != nil && apperrors.Is(err, oauthDomain.ErrInvalidState) {
			a.logger.Warn("oauth state mismatch")
		}
		return nil, err
	}

	if input.Code == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "authorization code is required")
	}
	if authState.ResumeURI != "" && !customValidation.IsLocalPath(authState.ResumeURI) {
		return nil, errResumeNotLocal
	}

	env, err := a.environments.ResolveActive(ctx, authState.Domain)
	if err != nil {
		return nil, err
	}

	creds, err := a.credentials.Resolve(env.Domain)
	if err != nil {
		return nil, err
	}

	// The exchange and the write are not abandoned when the browser goes away.
	workCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.config.ExchangeTimeout)
	defer cancel()

	result, err := a.exchanger.ExchangeCode(workCtx, creds, authState.RedirectURI, input.Code)
	if err != nil {
		return nil, err
	}

	token, err := a.tokens.Store(workCtx, authState.UserID, env, result)
	if err != nil {
		return nil, err
	}

	redirectURL, err := resumeURL(authState.ResumeURI, authState.ResumeParams)
	if err != nil {
		return nil, err
	}

	if a.logger != nil {
		a.logger.Info("canvas token stored",
			slog.String("canvas_domain", env.Domain),
			slog.String("user_id", authState.UserID),
		)
	}

	return &oauthDomain.CallbackOutput{
		RedirectURL: redirectURL,
		Token:       token,
	}, nil
}

// resumeURL appends the non-empty resume params to resumeURI, keeping its
// existing query parameters. The params identify the user, so resumeURI must
// stay on this host.
func resumeURL(resumeURI string, params map[string]string) (string, error) {
	if resumeURI == "" {
		resumeURI = "/"
	}
	if !customValidation.IsLocalPath(resumeURI) {
		return "", errResumeNotLocal
	}

	u, err := url.Parse(resumeURI)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrInvalidInput, "invalid resume uri")
	}

	query := u.Query()
	added := false
	for key, value := range params {
		if value == "" {
			continue
		}
		query.Set(key, value)
		added = true
	}
	if added {
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}

// NewAuthorizationUseCase creates a new AuthorizationUseCase.
func NewAuthorizationUseCase(
	config AuthorizationConfig,
	environments envUseCase.EnvironmentUseCase,
	credentials envUseCase.CredentialProvider,
	states StateUseCase,
	tokens TokenUseCase,
	exchanger oauthService.Exchanger,
	logger *slog.Logger,
) AuthorizationUseCase {
	if config.ExchangeTimeout <= 0 {
		config.ExchangeTimeout = 30 * time.Second
	}
	return &authorizationUseCase{
		config:       config,
		environments: environments,
		credentials:  credentials,
		states:       states,
		tokens:       tokens,
		exchanger:    exchanger,
		logger:       logger,
	}
}
