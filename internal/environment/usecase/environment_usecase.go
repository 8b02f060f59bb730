package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	"github.com/allisson/canvas-oauth/internal/database"
	envDomain "github.com/allisson/canvas-oauth/internal/environment/domain"
	customValidation "github.com/allisson/canvas-oauth/internal/validation"
)

// environmentUseCase implements EnvironmentUseCase.
type environmentUseCase struct {
	txManager database.TxManager
	envRepo   EnvironmentRepository
}

// Create validates the input and persists a new environment with a UUIDv7 id.
func (e *environmentUseCase) Create(
	ctx context.Context,
	input *envDomain.CreateEnvironmentInput,
) (*envDomain.Environment, error) {
	name := strings.TrimSpace(input.Name)
	domain := strings.ToLower(strings.TrimSpace(input.Domain))
	if err := validateEnvironment(name, domain); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	env := &envDomain.Environment{
		ID:        uuid.Must(uuid.NewV7()),
		Name:      name,
		Domain:    domain,
		IsActive:  input.IsActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := e.envRepo.Create(ctx, env); err != nil {
		return nil, err
	}
	return env, nil
}

// Update loads the environment by name and replaces its mutable fields.
func (e *environmentUseCase) Update(
	ctx context.Context,
	name string,
	input *envDomain.UpdateEnvironmentInput,
) (*envDomain.Environment, error) {
	newName := strings.TrimSpace(input.Name)
	domain := strings.ToLower(strings.TrimSpace(input.Domain))
	if err := validateEnvironment(newName, domain); err != nil {
		return nil, err
	}

	var env *envDomain.Environment
	err := e.txManager.WithTx(ctx, func(ctx context.Context) error {
		current, err := e.envRepo.GetByName(ctx, name)
		if err != nil {
			return err
		}

		current.Name = newName
		current.Domain = domain
		current.IsActive = input.IsActive
		current.UpdatedAt = time.Now().UTC()

		if err := e.envRepo.Update(ctx, current); err != nil {
			return err
		}
		env = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return env, nil
}

// GetByName retrieves an environment by its operator label.
func (e *environmentUseCase) GetByName(ctx context.Context, name string) (*envDomain.Environment, error) {
	return e.envRepo.GetByName(ctx, name)
}

// List retrieves environments ordered by name.
func (e *environmentUseCase) List(ctx context.Context, offset, limit int) ([]*envDomain.Environment, error) {
	return e.envRepo.List(ctx, offset, limit)
}

// ResolveActive returns the environment for domain when it is active.
func (e *environmentUseCase) ResolveActive(ctx context.Context, domain string) (*envDomain.Environment, error) {
	env, err := e.envRepo.GetByDomain(ctx, strings.ToLower(domain))
	if err != nil {
		return nil, err
	}
	if !env.IsActive {
		return nil, envDomain.ErrEnvironmentNotFound
	}
	return env, nil
}

func validateEnvironment(name, domain string) error {
	err := validation.Errors{
		"name": validation.Validate(name,
			validation.Required,
			customValidation.NotBlank,
			validation.Length(1, 255),
		),
		"domain": validation.Validate(domain,
			validation.Required,
			customValidation.CanvasDomain,
			validation.Length(1, 255),
		),
	}.Filter()
	return customValidation.WrapValidationError(err)
}

// NewEnvironmentUseCase creates a new EnvironmentUseCase.
func NewEnvironmentUseCase(txManager database.TxManager, envRepo EnvironmentRepository) EnvironmentUseCase {
	return &environmentUseCase{
		txManager: txManager,
		envRepo:   envRepo,
	}
}
