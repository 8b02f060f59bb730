package app

import (
	"fmt"

	"github.com/allisson/canvas-oauth/internal/database"
	envRepository "github.com/allisson/canvas-oauth/internal/environment/repository"
	envUseCase "github.com/allisson/canvas-oauth/internal/environment/usecase"
)

// EnvironmentRepository returns the environment repository based on database driver.
func (c *Container) EnvironmentRepository() (envUseCase.EnvironmentRepository, error) {
	var err error
	c.environmentRepoInit.Do(func() {
		c.environmentRepo, err = c.initEnvironmentRepository()
		if err != nil {
			c.initErrors["environmentRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["environmentRepository"]; exists {
		return nil, storedErr
	}
	return c.environmentRepo, nil
}

// EnvironmentUseCase returns the environment use case.
func (c *Container) EnvironmentUseCase() (envUseCase.EnvironmentUseCase, error) {
	var err error
	c.environmentUseCaseInit.Do(func() {
		c.environmentUseCase, err = c.initEnvironmentUseCase()
		if err != nil {
			c.initErrors["environmentUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["environmentUseCase"]; exists {
		return nil, storedErr
	}
	return c.environmentUseCase, nil
}

// Resolver returns the environment resolver selected by configuration.
func (c *Container) Resolver() (envUseCase.Resolver, error) {
	var err error
	c.resolverInit.Do(func() {
		c.resolver, err = envUseCase.NewResolver(c.config.EnvironmentResolver, c.config.CanvasDomain)
		if err != nil {
			c.initErrors["resolver"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["resolver"]; exists {
		return nil, storedErr
	}
	return c.resolver, nil
}

// CredentialProvider returns the Canvas client credential provider.
func (c *Container) CredentialProvider() envUseCase.CredentialProvider {
	c.credentialProviderInit.Do(func() {
		c.credentialProvider = envUseCase.NewCredentialProvider(c.config)
	})
	return c.credentialProvider
}

// initEnvironmentRepository creates the environment repository for the configured driver.
func (c *Container) initEnvironmentRepository() (envUseCase.EnvironmentRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for environment repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverMySQL:
		return envRepository.NewMySQLEnvironmentRepository(db), nil
	case database.DriverPostgres:
		return envRepository.NewPostgreSQLEnvironmentRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initEnvironmentUseCase creates the environment use case with all its dependencies.
func (c *Container) initEnvironmentUseCase() (envUseCase.EnvironmentUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for environment use case: %w", err)
	}

	environmentRepo, err := c.EnvironmentRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get environment repository for environment use case: %w", err)
	}

	baseUseCase := envUseCase.NewEnvironmentUseCase(txManager, environmentRepo)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for environment use case: %w", err)
		}
		return envUseCase.NewEnvironmentUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}
