package http

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	envDomain "github.com/allisson/canvas-oauth/internal/environment/domain"
	envUseCase "github.com/allisson/canvas-oauth/internal/environment/usecase"
	apperrors "github.com/allisson/canvas-oauth/internal/errors"
	"github.com/allisson/canvas-oauth/internal/httputil"
	oauthDomain "github.com/allisson/canvas-oauth/internal/oauth/domain"
	"github.com/allisson/canvas-oauth/internal/oauth/http/dto"
	oauthService "github.com/allisson/canvas-oauth/internal/oauth/service"
	oauthUseCase "github.com/allisson/canvas-oauth/internal/oauth/usecase"
	"github.com/allisson/canvas-oauth/internal/session"
	customValidation "github.com/allisson/canvas-oauth/internal/validation"
)

// AuthorizePath starts the authorization_code flow for the session user.
const AuthorizePath = "/oauth/authorize"

// OAuthHandler handles the browser-facing launch and authorization endpoints.
type OAuthHandler struct {
	launches     oauthService.LaunchVerifier
	sessions     *session.Manager
	resolver     envUseCase.Resolver
	environments envUseCase.EnvironmentUseCase
	authUseCase  oauthUseCase.AuthorizationUseCase
	handshake    *Handshake
	errorPage    *ErrorPage
	logger       *slog.Logger
}

// NewOAuthHandler creates a new OAuth handler with required dependencies.
func NewOAuthHandler(
	launches oauthService.LaunchVerifier,
	sessions *session.Manager,
	resolver envUseCase.Resolver,
	environments envUseCase.EnvironmentUseCase,
	authUseCase oauthUseCase.AuthorizationUseCase,
	handshake *Handshake,
	errorPage *ErrorPage,
	logger *slog.Logger,
) *OAuthHandler {
	return &OAuthHandler{
		launches:     launches,
		sessions:     sessions,
		resolver:     resolver,
		environments: environments,
		authUseCase:  authUseCase,
		handshake:    handshake,
		errorPage:    errorPage,
		logger:       logger,
	}
}

// LaunchHandler records an LTI launch on a fresh browser session.
// POST /lti/launch - launch_token is an HS256 assertion signed by the host's LTI
// layer (form or JSON body). Verifies it, resolves the Canvas domain, stores
// domain, user and course on a new session and redirects (303) to next or a
// same-host target_link_uri. Returns 200 when there is no target and 401 when
// the assertion does not verify.
func (h *OAuthHandler) LaunchHandler(c *gin.Context) {
	var req dto.LaunchRequest

	if err := c.ShouldBind(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	ctx := c.Request.Context()
	launch, err := h.launches.Verify(ctx, req.LaunchToken)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	// Identity changes here, so the browser never keeps a session id it
	// presented before the launch.
	sess, err := h.sessions.Renew(c)
	if err != nil {
		httputil.HandleErrorGin(c, apperrors.Wrap(err, "failed to renew session"), h.logger)
		return
	}
	ctx = c.Request.Context()

	domain, err := h.resolver.Resolve(ctx, &envUseCase.RequestContext{Session: sess, Launch: launch.Claims})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	env, err := h.environments.ResolveActive(ctx, domain)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	if err := sess.Set(ctx, session.KeyUserID, launch.UserID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	if courseID := launch.Claims.Value(session.KeyCourseID); courseID != "" {
		if err := sess.Set(ctx, session.KeyCourseID, courseID); err != nil {
			httputil.HandleErrorGin(c, err, h.logger)
			return
		}
	}

	h.logger.Info("lti launch recorded",
		slog.String("canvas_domain", env.Domain),
		slog.String("user_id", launch.UserID),
		slog.String("launch_id", launch.ID),
	)

	target := launchTarget(c.Request, launch)
	if target == "" {
		c.JSON(http.StatusOK, gin.H{"domain": env.Domain})
		return
	}
	c.Redirect(http.StatusSeeOther, target)
}

// launchTarget returns the local path the browser continues to after a
// launch: next when given, otherwise target_link_uri when it points at this
// host. Anything else yields "".
func launchTarget(r *http.Request, launch *oauthDomain.Launch) string {
	if launch.Next != "" {
		if customValidation.IsLocalPath(launch.Next) {
			return launch.Next
		}
		return ""
	}

	raw := launch.Claims.Value(envDomain.ClaimTargetLinkURI)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	switch {
	case u.Scheme == "" && u.Host == "":
	case (u.Scheme == "http" || u.Scheme == "https") && strings.EqualFold(u.Host, r.Host):
	default:
		return ""
	}

	target := u.EscapedPath()
	if target == "" {
		target = "/"
	}
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}
	if !customValidation.IsLocalPath(target) {
		return ""
	}
	return target
}

// AuthorizeHandler starts the authorization_code flow for the session user.
// GET /oauth/authorize?domain=&next= - domain defaults to the resolver's answer,
// next (the resume location) defaults to "/". Responds 302 to Canvas.
func (h *OAuthHandler) AuthorizeHandler(c *gin.Context) {
	var req dto.AuthorizeRequest

	if err := c.ShouldBindQuery(&req); err != nil {
		h.errorPage.Render(c, http.StatusBadRequest, "invalid request")
		return
	}
	if err := req.Validate(); err != nil {
		h.errorPage.RenderError(c, customValidation.WrapValidationError(err))
		return
	}

	ctx := c.Request.Context()
	sess, ok := session.FromContext(ctx)
	if !ok {
		h.errorPage.RenderError(c, ErrSessionRequired)
		return
	}

	domain := req.Domain
	if domain == "" {
		resolved, err := h.resolver.Resolve(ctx, &envUseCase.RequestContext{Session: sess})
		if err != nil {
			h.errorPage.RenderError(c, err)
			return
		}
		domain = resolved
	}

	identity, err := readIdentity(c, sess)
	if err != nil {
		h.errorPage.RenderError(c, err)
		return
	}

	next := req.Next
	if next == "" {
		next = "/"
	}

	if err := h.handshake.Start(c, domain, identity.userID, next, identity.resumeParams()); err != nil {
		h.errorPage.RenderError(c, err)
	}
}

// CallbackHandler completes the authorization_code flow.
// GET /oauth/callback?code=&state=[&error=] - On success the token is stored and
// the browser is redirected (302) to the resume location. Failures render the
// error page with 403, or 502 when Canvas failed the exchange.
func (h *OAuthHandler) CallbackHandler(c *gin.Context) {
	input := &oauthDomain.CallbackInput{
		Code:  c.Query("code"),
		State: c.Query("state"),
		Error: c.Query("error"),
	}

	output, err := h.authUseCase.HandleCallback(c.Request.Context(), input)
	if err != nil {
		h.errorPage.RenderCallbackError(c, err)
		return
	}

	c.Redirect(http.StatusFound, output.RedirectURL)
}

// SessionTokenHandler returns the token RequireCanvasToken attached to the request.
// GET /oauth/token - lets a same-origin front end call Canvas directly.
func (h *OAuthHandler) SessionTokenHandler(c *gin.Context) {
	output, ok := GetCanvasToken(c.Request.Context())
	if !ok {
		h.errorPage.RenderError(c, ErrSessionRequired)
		return
	}

	c.JSON(http.StatusOK, dto.MapTokenToResponse(output))
}

// HostHandler serves host services authenticated with the API key.
type HostHandler struct {
	resolver     envUseCase.Resolver
	environments envUseCase.EnvironmentUseCase
	tokens       oauthUseCase.TokenUseCase
	logger       *slog.Logger
}

// NewHostHandler creates a new host handler with required dependencies.
func NewHostHandler(
	resolver envUseCase.Resolver,
	environments envUseCase.EnvironmentUseCase,
	tokens oauthUseCase.TokenUseCase,
	logger *slog.Logger,
) *HostHandler {
	return &HostHandler{
		resolver:     resolver,
		environments: environments,
		tokens:       tokens,
		logger:       logger,
	}
}

// GetTokenHandler returns a valid access token for a user.
// GET /v1/token?user_id=&domain= - domain defaults to the resolver's answer.
// Returns 200 with the token, or 401 with an authorize_url when the user must
// authorize (again).
func (h *HostHandler) GetTokenHandler(c *gin.Context) {
	var req dto.TokenRequest

	if err := c.ShouldBindQuery(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	ctx := c.Request.Context()
	domain := req.Domain
	if domain == "" {
		resolved, err := h.resolver.Resolve(ctx, &envUseCase.RequestContext{})
		if err != nil {
			httputil.HandleErrorGin(c, err, h.logger)
			return
		}
		domain = resolved
	}

	env, err := h.environments.ResolveActive(ctx, domain)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	output, err := h.tokens.GetToken(ctx, req.UserID, env)
	if err != nil {
		if apperrors.Is(err, oauthDomain.ErrMissingToken) {
			c.JSON(http.StatusUnauthorized, dto.MissingTokenResponse{
				Error:        "missing_token",
				Message:      "The user must authorize this tool in Canvas",
				AuthorizeURL: requestOrigin(c.Request) + AuthorizePath + "?" + url.Values{"domain": {env.Domain}}.Encode(),
			})
			return
		}
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapTokenToResponse(output))
}

// ListEnvironmentsHandler lists registered environments with pagination.
// GET /v1/environments?offset=0&limit=50
func (h *HostHandler) ListEnvironmentsHandler(c *gin.Context) {
	page, err := httputil.ParsePage(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	envs, err := h.environments.List(c.Request.Context(), page.Offset, page.Limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapEnvironmentsToListResponse(envs))
}
