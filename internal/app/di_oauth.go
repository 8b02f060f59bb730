package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/allisson/canvas-oauth/internal/database"
	oauthHTTP "github.com/allisson/canvas-oauth/internal/oauth/http"
	oauthRepository "github.com/allisson/canvas-oauth/internal/oauth/repository"
	oauthService "github.com/allisson/canvas-oauth/internal/oauth/service"
	oauthUseCase "github.com/allisson/canvas-oauth/internal/oauth/usecase"
)

// TokenCipher returns the cipher sealing stored tokens.
func (c *Container) TokenCipher() (oauthService.TokenCipher, error) {
	var err error
	c.tokenCipherInit.Do(func() {
		c.tokenCipher, err = c.initTokenCipher()
		if err != nil {
			c.initErrors["tokenCipher"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tokenCipher"]; exists {
		return nil, storedErr
	}
	return c.tokenCipher, nil
}

// TokenRepository returns the encrypted token repository based on database driver.
func (c *Container) TokenRepository() (oauthUseCase.TokenRepository, error) {
	var err error
	c.tokenRepoInit.Do(func() {
		c.tokenRepo, err = c.initTokenRepository()
		if err != nil {
			c.initErrors["tokenRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tokenRepository"]; exists {
		return nil, storedErr
	}
	return c.tokenRepo, nil
}

// Exchanger returns the Canvas token endpoint client.
func (c *Container) Exchanger() oauthService.Exchanger {
	c.exchangerInit.Do(func() {
		c.exchanger = oauthService.NewCanvasExchanger(c.config.ExchangeTimeout)
	})
	return c.exchanger
}

// LaunchVerifier returns the verifier for host-signed launch assertions.
func (c *Container) LaunchVerifier() (oauthService.LaunchVerifier, error) {
	var err error
	c.launchVerifierInit.Do(func() {
		c.launchVerifier, err = c.initLaunchVerifier()
		if err != nil {
			c.initErrors["launchVerifier"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["launchVerifier"]; exists {
		return nil, storedErr
	}
	return c.launchVerifier, nil
}

// StateUseCase returns the authorization state use case.
func (c *Container) StateUseCase() (oauthUseCase.StateUseCase, error) {
	var err error
	c.stateUseCaseInit.Do(func() {
		c.stateUseCase, err = c.initStateUseCase()
		if err != nil {
			c.initErrors["stateUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["stateUseCase"]; exists {
		return nil, storedErr
	}
	return c.stateUseCase, nil
}

// TokenUseCase returns the token lifecycle use case.
func (c *Container) TokenUseCase() (oauthUseCase.TokenUseCase, error) {
	var err error
	c.tokenUseCaseInit.Do(func() {
		c.tokenUseCase, err = c.initTokenUseCase()
		if err != nil {
			c.initErrors["tokenUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tokenUseCase"]; exists {
		return nil, storedErr
	}
	return c.tokenUseCase, nil
}

// AuthorizationUseCase returns the authorization handshake use case.
func (c *Container) AuthorizationUseCase() (oauthUseCase.AuthorizationUseCase, error) {
	var err error
	c.authorizationUseCaseInit.Do(func() {
		c.authorizationUseCase, err = c.initAuthorizationUseCase()
		if err != nil {
			c.initErrors["authorizationUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["authorizationUseCase"]; exists {
		return nil, storedErr
	}
	return c.authorizationUseCase, nil
}

// ErrorPage returns the OAuth error page renderer.
func (c *Container) ErrorPage() (*oauthHTTP.ErrorPage, error) {
	var err error
	c.errorPageInit.Do(func() {
		c.errorPage, err = oauthHTTP.LoadErrorPage(c.config.ErrorTemplate, c.Logger())
		if err != nil {
			c.initErrors["errorPage"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["errorPage"]; exists {
		return nil, storedErr
	}
	return c.errorPage, nil
}

// OAuthHandler returns the browser-facing OAuth handler.
func (c *Container) OAuthHandler() (*oauthHTTP.OAuthHandler, error) {
	var err error
	c.oauthHandlerInit.Do(func() {
		c.oauthHandler, err = c.initOAuthHandler()
		if err != nil {
			c.initErrors["oauthHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["oauthHandler"]; exists {
		return nil, storedErr
	}
	return c.oauthHandler, nil
}

// HostHandler returns the API-key protected handler for host services.
func (c *Container) HostHandler() (*oauthHTTP.HostHandler, error) {
	var err error
	c.hostHandlerInit.Do(func() {
		c.hostHandler, err = c.initHostHandler()
		if err != nil {
			c.initErrors["hostHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["hostHandler"]; exists {
		return nil, storedErr
	}
	return c.hostHandler, nil
}

// RequireCanvasTokenMiddleware builds the middleware guarding routes that need a Canvas token.
func (c *Container) RequireCanvasTokenMiddleware() (gin.HandlerFunc, error) {
	resolver, err := c.Resolver()
	if err != nil {
		return nil, fmt.Errorf("failed to get resolver for token middleware: %w", err)
	}

	environmentUseCase, err := c.EnvironmentUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get environment use case for token middleware: %w", err)
	}

	tokenUseCase, err := c.TokenUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get token use case for token middleware: %w", err)
	}

	handshake, err := c.handshake()
	if err != nil {
		return nil, err
	}

	errorPage, err := c.ErrorPage()
	if err != nil {
		return nil, fmt.Errorf("failed to get error page for token middleware: %w", err)
	}

	return oauthHTTP.RequireCanvasToken(
		resolver,
		environmentUseCase,
		tokenUseCase,
		handshake,
		errorPage,
		c.Logger(),
	), nil
}

func (c *Container) handshake() (*oauthHTTP.Handshake, error) {
	authorizationUseCase, err := c.AuthorizationUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get authorization use case for handshake: %w", err)
	}
	return oauthHTTP.NewHandshake(authorizationUseCase, c.config.CallbackURL), nil
}

// initTokenCipher opens the key keeper configured by CANVAS_OAUTH_TOKEN_KEY_URI.
func (c *Container) initTokenCipher() (oauthService.TokenCipher, error) {
	if c.config.TokenKeyURI == "" {
		c.Logger().Warn("CANVAS_OAUTH_TOKEN_KEY_URI is empty - tokens are stored unencrypted")
	}

	ctx, cancel := context.WithTimeout(c.ctx, connectTimeout)
	defer cancel()

	cipher, err := oauthService.OpenTokenCipher(ctx, c.config.TokenKeyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open token cipher: %w", err)
	}
	return cipher, nil
}

// initTokenRepository creates the token repository for the configured driver
// and wraps it with at-rest encryption.
func (c *Container) initTokenRepository() (oauthUseCase.TokenRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for token repository: %w", err)
	}

	cipher, err := c.TokenCipher()
	if err != nil {
		return nil, fmt.Errorf("failed to get token cipher for token repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverMySQL:
		return oauthRepository.NewEncryptedTokenRepository(oauthRepository.NewMySQLTokenRepository(db), cipher), nil
	case database.DriverPostgres:
		return oauthRepository.NewEncryptedTokenRepository(
			oauthRepository.NewPostgreSQLTokenRepository(db),
			cipher,
		), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initStateUseCase creates the state use case on top of the cache store.
func (c *Container) initStateUseCase() (oauthUseCase.StateUseCase, error) {
	store, err := c.CacheStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get cache store for state use case: %w", err)
	}
	return oauthUseCase.NewStateUseCase(store, oauthService.NewStateService(), c.config.StateTTL, nil), nil
}

// initTokenUseCase creates the token use case with all its dependencies.
func (c *Container) initTokenUseCase() (oauthUseCase.TokenUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for token use case: %w", err)
	}

	tokenRepo, err := c.TokenRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get token repository for token use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for token use case: %w", err)
	}

	baseUseCase := oauthUseCase.NewTokenUseCase(
		oauthUseCase.TokenConfig{
			ExpirationBuffer: c.config.TokenExpirationBuffer,
			// The exchange plus the row write.
			RefreshTimeout: 2 * c.config.ExchangeTimeout,
		},
		txManager,
		tokenRepo,
		c.CredentialProvider(),
		c.Exchanger(),
		businessMetrics,
		c.Logger(),
	)

	if c.config.MetricsEnabled {
		return oauthUseCase.NewTokenUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// initAuthorizationUseCase creates the authorization use case with all its dependencies.
func (c *Container) initAuthorizationUseCase() (oauthUseCase.AuthorizationUseCase, error) {
	environmentUseCase, err := c.EnvironmentUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get environment use case for authorization use case: %w", err)
	}

	stateUseCase, err := c.StateUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get state use case for authorization use case: %w", err)
	}

	tokenUseCase, err := c.TokenUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get token use case for authorization use case: %w", err)
	}

	baseUseCase := oauthUseCase.NewAuthorizationUseCase(
		oauthUseCase.AuthorizationConfig{
			Scopes:          c.config.Scopes,
			ExchangeTimeout: 2 * c.config.ExchangeTimeout,
		},
		environmentUseCase,
		c.CredentialProvider(),
		stateUseCase,
		tokenUseCase,
		c.Exchanger(),
		c.Logger(),
	)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for authorization use case: %w", err)
		}
		return oauthUseCase.NewAuthorizationUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// initLaunchVerifier creates the launch verifier recording used assertion ids
// in the cache store.
func (c *Container) initLaunchVerifier() (oauthService.LaunchVerifier, error) {
	store, err := c.CacheStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get cache store for launch verifier: %w", err)
	}

	return oauthService.NewLaunchVerifier(oauthService.LaunchVerifierConfig{
		Secret:   c.config.LaunchSecret,
		Audience: c.config.LaunchAudience,
		MaxAge:   c.config.LaunchMaxAge,
	}, store, nil), nil
}

// initOAuthHandler creates the browser-facing handler with all its dependencies.
func (c *Container) initOAuthHandler() (*oauthHTTP.OAuthHandler, error) {
	launchVerifier, err := c.LaunchVerifier()
	if err != nil {
		return nil, fmt.Errorf("failed to get launch verifier for oauth handler: %w", err)
	}

	sessionManager, err := c.SessionManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get session manager for oauth handler: %w", err)
	}

	resolver, err := c.Resolver()
	if err != nil {
		return nil, fmt.Errorf("failed to get resolver for oauth handler: %w", err)
	}

	environmentUseCase, err := c.EnvironmentUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get environment use case for oauth handler: %w", err)
	}

	authorizationUseCase, err := c.AuthorizationUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get authorization use case for oauth handler: %w", err)
	}

	handshake, err := c.handshake()
	if err != nil {
		return nil, err
	}

	errorPage, err := c.ErrorPage()
	if err != nil {
		return nil, fmt.Errorf("failed to get error page for oauth handler: %w", err)
	}

	return oauthHTTP.NewOAuthHandler(
		launchVerifier,
		sessionManager,
		resolver,
		environmentUseCase,
		authorizationUseCase,
		handshake,
		errorPage,
		c.Logger(),
	), nil
}

// initHostHandler creates the host service handler with all its dependencies.
func (c *Container) initHostHandler() (*oauthHTTP.HostHandler, error) {
	resolver, err := c.Resolver()
	if err != nil {
		return nil, fmt.Errorf("failed to get resolver for host handler: %w", err)
	}

	environmentUseCase, err := c.EnvironmentUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get environment use case for host handler: %w", err)
	}

	tokenUseCase, err := c.TokenUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get token use case for host handler: %w", err)
	}

	return oauthHTTP.NewHostHandler(resolver, environmentUseCase, tokenUseCase, c.Logger()), nil
}
