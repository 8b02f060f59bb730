// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/allisson/canvas-oauth/internal/cache"
	"github.com/allisson/canvas-oauth/internal/config"
	"github.com/allisson/canvas-oauth/internal/database"
	envUseCase "github.com/allisson/canvas-oauth/internal/environment/usecase"
	"github.com/allisson/canvas-oauth/internal/http"
	"github.com/allisson/canvas-oauth/internal/metrics"
	oauthHTTP "github.com/allisson/canvas-oauth/internal/oauth/http"
	oauthService "github.com/allisson/canvas-oauth/internal/oauth/service"
	oauthUseCase "github.com/allisson/canvas-oauth/internal/oauth/usecase"
	"github.com/allisson/canvas-oauth/internal/session"
)

// connectTimeout bounds startup calls to external services (Redis, key keepers).
const connectTimeout = 10 * time.Second

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// ctx bounds background goroutines owned by container components.
	ctx    context.Context
	cancel context.CancelFunc

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	cacheStore      cache.Store
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	// Managers
	txManager      database.TxManager
	sessionManager *session.Manager

	// Environment components
	environmentRepo    envUseCase.EnvironmentRepository
	environmentUseCase envUseCase.EnvironmentUseCase
	resolver           envUseCase.Resolver
	credentialProvider envUseCase.CredentialProvider

	// OAuth components
	tokenCipher          oauthService.TokenCipher
	tokenRepo            oauthUseCase.TokenRepository
	exchanger            oauthService.Exchanger
	launchVerifier       oauthService.LaunchVerifier
	stateUseCase         oauthUseCase.StateUseCase
	tokenUseCase         oauthUseCase.TokenUseCase
	authorizationUseCase oauthUseCase.AuthorizationUseCase
	errorPage            *oauthHTTP.ErrorPage
	oauthHandler         *oauthHTTP.OAuthHandler
	hostHandler          *oauthHTTP.HostHandler

	// Servers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	// Initialization flags and mutex for thread-safety
	mu                       sync.Mutex
	loggerInit               sync.Once
	dbInit                   sync.Once
	txManagerInit            sync.Once
	cacheStoreInit           sync.Once
	sessionManagerInit       sync.Once
	metricsProviderInit      sync.Once
	businessMetricsInit      sync.Once
	environmentRepoInit      sync.Once
	environmentUseCaseInit   sync.Once
	resolverInit             sync.Once
	credentialProviderInit   sync.Once
	tokenCipherInit          sync.Once
	tokenRepoInit            sync.Once
	exchangerInit            sync.Once
	launchVerifierInit       sync.Once
	stateUseCaseInit         sync.Once
	tokenUseCaseInit         sync.Once
	authorizationUseCaseInit sync.Once
	errorPageInit            sync.Once
	oauthHandlerInit         sync.Once
	hostHandlerInit          sync.Once
	httpServerInit           sync.Once
	metricsServerInit        sync.Once
	initErrors               map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	ctx, cancel := context.WithCancel(context.Background())
	return &Container{
		config:     cfg,
		ctx:        ctx,
		cancel:     cancel,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
// It creates and configures the database connection on first access.
func (c *Container) DB() (*sql.DB, error) {
	var err error
	c.dbInit.Do(func() {
		c.db, err = c.initDB()
		if err != nil {
			c.initErrors["db"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// TxManager returns the transaction manager.
// It requires a database connection to be initialized first.
func (c *Container) TxManager() (database.TxManager, error) {
	var err error
	c.txManagerInit.Do(func() {
		c.txManager, err = c.initTxManager()
		if err != nil {
			c.initErrors["txManager"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["txManager"]; exists {
		return nil, storedErr
	}
	return c.txManager, nil
}

// CacheStore returns the key/value store holding authorization states and sessions.
func (c *Container) CacheStore() (cache.Store, error) {
	var err error
	c.cacheStoreInit.Do(func() {
		c.cacheStore, err = c.initCacheStore()
		if err != nil {
			c.initErrors["cacheStore"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["cacheStore"]; exists {
		return nil, storedErr
	}
	return c.cacheStore, nil
}

// SessionManager returns the browser session manager.
func (c *Container) SessionManager() (*session.Manager, error) {
	var err error
	c.sessionManagerInit.Do(func() {
		c.sessionManager, err = c.initSessionManager()
		if err != nil {
			c.initErrors["sessionManager"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["sessionManager"]; exists {
		return nil, storedErr
	}
	return c.sessionManager, nil
}

// MetricsProvider returns the OpenTelemetry metrics provider.
// Returns nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	var err error
	c.metricsProviderInit.Do(func() {
		c.metricsProvider, err = c.initMetricsProvider()
		if err != nil {
			c.initErrors["metricsProvider"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder.
// Returns a no-op implementation when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	var err error
	c.businessMetricsInit.Do(func() {
		c.businessMetrics, err = c.initBusinessMetrics()
		if err != nil {
			c.initErrors["businessMetrics"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// HTTPServer returns the HTTP server instance with its router configured.
func (c *Container) HTTPServer() (*http.Server, error) {
	var err error
	c.httpServerInit.Do(func() {
		c.httpServer, err = c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the Prometheus metrics server.
// Returns nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	var err error
	c.metricsServerInit.Do(func() {
		c.metricsServer, err = c.initMetricsServer()
		if err != nil {
			c.initErrors["metricsServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancel()

	var shutdownErrors []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.cacheStore != nil {
		if err := c.cacheStore.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("cache store close: %w", err))
		}
	}

	if c.tokenCipher != nil {
		if err := c.tokenCipher.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("token cipher close: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(shutdownErrors...))
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(c.ctx, database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
		PingTimeout:        connectTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initTxManager creates the transaction manager using the database connection.
func (c *Container) initTxManager() (database.TxManager, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
	}
	return database.NewTxManager(db), nil
}

// initCacheStore selects the state store backend from configuration.
func (c *Container) initCacheStore() (cache.Store, error) {
	switch c.config.StateStoreDriver {
	case config.StoreDriverRedis:
		ctx, cancel := context.WithTimeout(c.ctx, connectTimeout)
		defer cancel()

		client, err := cache.OpenRedis(ctx, c.config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open redis: %w", err)
		}
		return cache.NewRedisStore(client, "canvas_oauth:"), nil
	case config.StoreDriverMemory, "":
		c.Logger().Warn("using in-memory state store - states and sessions are not shared between instances")
		return cache.NewMemoryStore(time.Minute), nil
	default:
		return nil, fmt.Errorf("unsupported state store driver: %s", c.config.StateStoreDriver)
	}
}

// initSessionManager creates the cookie session manager on top of the cache store.
func (c *Container) initSessionManager() (*session.Manager, error) {
	store, err := c.CacheStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get cache store for session manager: %w", err)
	}
	return session.NewManager(
		store,
		c.config.SessionCookieName,
		c.config.SessionTTL,
		c.config.SessionCookieSecure,
	), nil
}

// initMetricsProvider creates the Prometheus-backed provider when metrics are enabled.
func (c *Container) initMetricsProvider() (*metrics.Provider, error) {
	if !c.config.MetricsEnabled {
		return nil, nil
	}
	provider, err := metrics.NewProvider(c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics provider: %w", err)
	}
	return provider, nil
}

// initBusinessMetrics creates the business metrics recorder.
func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for business metrics: %w", err)
	}
	if provider == nil {
		return metrics.NewNoOpBusinessMetrics(), nil
	}
	return metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
}

// initHTTPServer creates the HTTP server and mounts every route.
func (c *Container) initHTTPServer() (*http.Server, error) {
	logger := c.Logger()

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for http server: %w", err)
	}

	oauthHandler, err := c.OAuthHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get oauth handler for http server: %w", err)
	}

	hostHandler, err := c.HostHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get host handler for http server: %w", err)
	}

	sessionManager, err := c.SessionManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get session manager for http server: %w", err)
	}

	requireToken, err := c.RequireCanvasTokenMiddleware()
	if err != nil {
		return nil, fmt.Errorf("failed to get token middleware for http server: %w", err)
	}

	metricsProvider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}

	server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, logger)
	server.SetupRouter(c.ctx, c.config, http.RouterHandlers{
		OAuth:          oauthHandler,
		Host:           hostHandler,
		Sessions:       sessionManager,
		RequireToken:   requireToken,
		MetricsEnabled: c.config.MetricsEnabled,
	}, metricsProvider)

	return server, nil
}

// initMetricsServer creates the metrics server when metrics are enabled.
func (c *Container) initMetricsServer() (*http.MetricsServer, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
	}
	if provider == nil {
		return nil, nil
	}
	return http.NewMetricsServer(c.config.ServerHost, c.config.MetricsPort, c.Logger(), provider), nil
}
