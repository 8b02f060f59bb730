// Package http provides HTTP server implementation and request handlers.
package http

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/canvas-oauth/internal/config"
	"github.com/allisson/canvas-oauth/internal/metrics"
	oauthHTTP "github.com/allisson/canvas-oauth/internal/oauth/http"
	"github.com/allisson/canvas-oauth/internal/session"
)

// Server represents the HTTP server
type Server struct {
	server *http.Server
	router *gin.Engine
	db     *sql.DB
	logger *slog.Logger
}

// NewServer creates a new HTTP server
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: newHTTPServer(host, port, nil, 30*time.Second),
	}
}

// newHTTPServer returns a server for host:port with the timeouts shared by
// the public and metrics listeners. Handler may be set later.
func newHTTPServer(host string, port int, handler http.Handler, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}
}

// listenAndServe blocks until srv stops. A graceful Shutdown is not an error.
func listenAndServe(srv *http.Server, logger *slog.Logger, name string) error {
	logger.Info("starting "+name, slog.String("addr", srv.Addr))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start %s: %w", name, err)
	}
	return nil
}

// RouterHandlers groups the handlers and middleware mounted by SetupRouter.
type RouterHandlers struct {
	OAuth          *oauthHTTP.OAuthHandler
	Host           *oauthHTTP.HostHandler
	Sessions       *session.Manager
	RequireToken   gin.HandlerFunc
	MetricsEnabled bool
}

// SetupRouter configures the Gin router with all routes and middleware.
// ctx bounds background work started by middleware, such as rate limiter cleanup.
func (s *Server) SetupRouter(
	ctx context.Context,
	cfg *config.Config,
	handlers RouterHandlers,
	metricsProvider *metrics.Provider,
) {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if handlers.MetricsEnabled && metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	if corsMiddleware := newCORSMiddleware(cfg, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	// Browser-facing routes share the cookie session established at launch.
	browser := router.Group("")
	browser.Use(handlers.Sessions.Middleware())
	if cfg.RateLimitEnabled {
		browser.Use(oauthHTTP.IPRateLimitMiddleware(ctx, cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, s.logger))
	}
	{
		if cfg.LaunchSecret == "" {
			s.logger.Warn("LTI_LAUNCH_SECRET is empty - /lti/launch is disabled")
		} else {
			browser.POST("/lti/launch", handlers.OAuth.LaunchHandler)
		}
		browser.GET(oauthHTTP.AuthorizePath, handlers.OAuth.AuthorizeHandler)
		browser.GET(oauthHTTP.CallbackPath, handlers.OAuth.CallbackHandler)
		browser.GET("/oauth/token", handlers.RequireToken, handlers.OAuth.SessionTokenHandler)
	}

	if cfg.APIKey == "" {
		s.logger.Warn("API_KEY is empty - /v1 endpoints are disabled")
	} else {
		v1 := router.Group("/v1")
		v1.Use(oauthHTTP.APIKeyMiddleware(cfg.APIKey, s.logger))
		{
			v1.GET("/token", handlers.Host.GetTokenHandler)
			v1.GET("/environments", handlers.Host.ListEnvironmentsHandler)
		}
	}

	s.router = router
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		return fmt.Errorf("router not configured: call SetupRouter first")
	}
	s.server.Handler = s.router

	return listenAndServe(s.server, s.logger, "http server")
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

// healthHandler reports that the process is alive.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the database is reachable.
func (s *Server) readinessHandler(c *gin.Context) {
	database := "ok"
	if s.db == nil {
		database = "error"
	} else {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.PingContext(ctx); err != nil {
			s.logger.Warn("readiness check failed", slog.Any("error", err))
			database = "error"
		}
	}

	status, code := "ready", http.StatusOK
	if database != "ok" {
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":     status,
		"components": gin.H{"database": database},
	})
}
