package http

import (
	"crypto/subtle"
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	envUseCase "github.com/allisson/canvas-oauth/internal/environment/usecase"
	apperrors "github.com/allisson/canvas-oauth/internal/errors"
	"github.com/allisson/canvas-oauth/internal/httputil"
	oauthDomain "github.com/allisson/canvas-oauth/internal/oauth/domain"
	oauthUseCase "github.com/allisson/canvas-oauth/internal/oauth/usecase"
	"github.com/allisson/canvas-oauth/internal/session"
)

// ErrSessionRequired indicates the browser has no launch session identifying the user.
var ErrSessionRequired = apperrors.Wrap(apperrors.ErrUnauthorized, "launch session required")

// RequireCanvasToken guards browser routes that call the Canvas API on the
// user's behalf.
//
// The middleware:
// 1. Resolves the Canvas domain with the configured Resolver
// 2. Loads the active environment for that domain
// 3. Reads the host user id established by the LTI launch from the session
// 4. Fetches a valid token, refreshing it when near expiry
// 5. Stores the token in the request context, see GetCanvasToken
//
// When the user has no usable token the browser is redirected to Canvas to
// authorize, resuming at the current request URI afterwards.
func RequireCanvasToken(
	resolver envUseCase.Resolver,
	environments envUseCase.EnvironmentUseCase,
	tokens oauthUseCase.TokenUseCase,
	handshake *Handshake,
	errorPage *ErrorPage,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		sess, hasSession := session.FromContext(ctx)
		rc := &envUseCase.RequestContext{}
		if hasSession {
			rc.Session = sess
		}

		domain, err := resolver.Resolve(ctx, rc)
		if err != nil {
			errorPage.RenderError(c, err)
			c.Abort()
			return
		}

		env, err := environments.ResolveActive(ctx, domain)
		if err != nil {
			errorPage.RenderError(c, err)
			c.Abort()
			return
		}

		if !hasSession {
			errorPage.RenderError(c, ErrSessionRequired)
			c.Abort()
			return
		}
		identity, err := readIdentity(c, sess)
		if err != nil {
			errorPage.RenderError(c, err)
			c.Abort()
			return
		}

		token, err := tokens.GetToken(ctx, identity.userID, env)
		if err != nil {
			if !apperrors.Is(err, oauthDomain.ErrMissingToken) {
				errorPage.RenderError(c, err)
				c.Abort()
				return
			}

			logger.Debug("canvas token missing, starting authorization",
				slog.String("canvas_domain", env.Domain),
				slog.String("user_id", identity.userID),
			)
			resumeURI := c.Request.URL.RequestURI()
			if err := handshake.Start(c, env.Domain, identity.userID, resumeURI, identity.resumeParams()); err != nil {
				errorPage.RenderError(c, err)
			}
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(WithCanvasToken(ctx, token))
		c.Next()
	}
}

// launchIdentity is what the LTI launch recorded on the session.
type launchIdentity struct {
	userID   string
	courseID string
}

func (i launchIdentity) resumeParams() map[string]string {
	return map[string]string{
		session.KeyUserID:   i.userID,
		session.KeyCourseID: i.courseID,
	}
}

func readIdentity(c *gin.Context, sess *session.Session) (launchIdentity, error) {
	ctx := c.Request.Context()

	userID, found, err := sess.Get(ctx, session.KeyUserID)
	if err != nil {
		return launchIdentity{}, apperrors.Wrap(err, "failed to read session user")
	}
	if !found || userID == "" {
		return launchIdentity{}, ErrSessionRequired
	}

	courseID, _, err := sess.Get(ctx, session.KeyCourseID)
	if err != nil {
		return launchIdentity{}, apperrors.Wrap(err, "failed to read session course")
	}

	return launchIdentity{userID: userID, courseID: courseID}, nil
}

// APIKeyMiddleware authenticates host services with a static bearer key.
//
// Authorization header format: "Bearer <key>" (case-insensitive "bearer").
// Missing, malformed or wrong keys → 401 Unauthorized.
func APIKeyMiddleware(apiKey string, logger *slog.Logger) gin.HandlerFunc {
	expected := []byte(apiKey)

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")

		const bearerPrefix = "bearer "
		if len(authHeader) < len(bearerPrefix) ||
			!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
			logger.Debug("api key authentication failed: missing or malformed authorization header")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		provided := []byte(authHeader[len(bearerPrefix):])
		if len(expected) == 0 || subtle.ConstantTimeCompare(provided, expected) != 1 {
			logger.Debug("api key authentication failed: key mismatch")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		c.Next()
	}
}
