package usecase

import (
	"context"
	"time"

	envDomain "github.com/allisson/canvas-oauth/internal/environment/domain"
	"github.com/allisson/canvas-oauth/internal/metrics"
)

// environmentUseCaseWithMetrics decorates EnvironmentUseCase with metrics instrumentation.
type environmentUseCaseWithMetrics struct {
	next    EnvironmentUseCase
	metrics metrics.BusinessMetrics
}

// NewEnvironmentUseCaseWithMetrics wraps an EnvironmentUseCase with metrics recording.
func NewEnvironmentUseCaseWithMetrics(useCase EnvironmentUseCase, m metrics.BusinessMetrics) EnvironmentUseCase {
	return &environmentUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (e *environmentUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	e.metrics.RecordOperation(ctx, "environment", operation, status)
	e.metrics.RecordDuration(ctx, "environment", operation, time.Since(start), status)
}

// Create records metrics for environment creation.
func (e *environmentUseCaseWithMetrics) Create(
	ctx context.Context,
	input *envDomain.CreateEnvironmentInput,
) (*envDomain.Environment, error) {
	start := time.Now()
	env, err := e.next.Create(ctx, input)
	e.record(ctx, "environment_create", start, err)
	return env, err
}

// Update records metrics for environment updates.
func (e *environmentUseCaseWithMetrics) Update(
	ctx context.Context,
	name string,
	input *envDomain.UpdateEnvironmentInput,
) (*envDomain.Environment, error) {
	start := time.Now()
	env, err := e.next.Update(ctx, name, input)
	e.record(ctx, "environment_update", start, err)
	return env, err
}

// GetByName records metrics for environment lookups by name.
func (e *environmentUseCaseWithMetrics) GetByName(ctx context.Context, name string) (*envDomain.Environment, error) {
	start := time.Now()
	env, err := e.next.GetByName(ctx, name)
	e.record(ctx, "environment_get", start, err)
	return env, err
}

// List records metrics for environment listing.
func (e *environmentUseCaseWithMetrics) List(
	ctx context.Context,
	offset, limit int,
) ([]*envDomain.Environment, error) {
	start := time.Now()
	envs, err := e.next.List(ctx, offset, limit)
	e.record(ctx, "environment_list", start, err)
	return envs, err
}

// ResolveActive records metrics for active environment resolution.
func (e *environmentUseCaseWithMetrics) ResolveActive(
	ctx context.Context,
	domain string,
) (*envDomain.Environment, error) {
	start := time.Now()
	env, err := e.next.ResolveActive(ctx, domain)
	e.record(ctx, "environment_resolve", start, err)
	return env, err
}
