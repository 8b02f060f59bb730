package usecase

import (
	"context"
	"time"

	envDomain "github.com/allisson/canvas-oauth/internal/environment/domain"
	"github.com/allisson/canvas-oauth/internal/metrics"
	oauthDomain "github.com/allisson/canvas-oauth/internal/oauth/domain"
)

const metricsDomain = "oauth"

func recordOperation(
	ctx context.Context,
	m metrics.BusinessMetrics,
	operation string,
	start time.Time,
	err error,
) {
	status := "success"
	if err != nil {
		status = "error"
	}

	m.RecordOperation(ctx, metricsDomain, operation, status)
	m.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}

// tokenUseCaseWithMetrics decorates TokenUseCase with metrics instrumentation.
type tokenUseCaseWithMetrics struct {
	next    TokenUseCase
	metrics metrics.BusinessMetrics
}

// NewTokenUseCaseWithMetrics wraps a TokenUseCase with metrics recording.
func NewTokenUseCaseWithMetrics(useCase TokenUseCase, m metrics.BusinessMetrics) TokenUseCase {
	return &tokenUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// GetToken records metrics for token retrieval.
func (t *tokenUseCaseWithMetrics) GetToken(
	ctx context.Context,
	userID string,
	env *envDomain.Environment,
) (*oauthDomain.GetTokenOutput, error) {
	start := time.Now()
	output, err := t.next.GetToken(ctx, userID, env)
	recordOperation(ctx, t.metrics, "token_get", start, err)
	return output, err
}

// Refresh records metrics for forced refreshes.
func (t *tokenUseCaseWithMetrics) Refresh(
	ctx context.Context,
	userID string,
	env *envDomain.Environment,
) (*oauthDomain.GetTokenOutput, error) {
	start := time.Now()
	output, err := t.next.Refresh(ctx, userID, env)
	recordOperation(ctx, t.metrics, "token_refresh", start, err)
	return output, err
}

// Store records metrics for token persistence.
func (t *tokenUseCaseWithMetrics) Store(
	ctx context.Context,
	userID string,
	env *envDomain.Environment,
	result *oauthDomain.ExchangeResult,
) (*oauthDomain.Token, error) {
	start := time.Now()
	token, err := t.next.Store(ctx, userID, env, result)
	recordOperation(ctx, t.metrics, "token_store", start, err)
	return token, err
}

// Purge records metrics for environment-wide token deletion.
func (t *tokenUseCaseWithMetrics) Purge(ctx context.Context, env *envDomain.Environment) (int64, error) {
	start := time.Now()
	count, err := t.next.Purge(ctx, env)
	recordOperation(ctx, t.metrics, "token_purge", start, err)
	return count, err
}

// authorizationUseCaseWithMetrics decorates AuthorizationUseCase with metrics instrumentation.
type authorizationUseCaseWithMetrics struct {
	next    AuthorizationUseCase
	metrics metrics.BusinessMetrics
}

// NewAuthorizationUseCaseWithMetrics wraps an AuthorizationUseCase with metrics recording.
func NewAuthorizationUseCaseWithMetrics(useCase AuthorizationUseCase, m metrics.BusinessMetrics) AuthorizationUseCase {
	return &authorizationUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Begin records metrics for handshake starts.
func (a *authorizationUseCaseWithMetrics) Begin(
	ctx context.Context,
	input *oauthDomain.BeginAuthorizationInput,
) (*oauthDomain.BeginAuthorizationOutput, error) {
	start := time.Now()
	output, err := a.next.Begin(ctx, input)
	recordOperation(ctx, a.metrics, "authorization_begin", start, err)
	return output, err
}

// HandleCallback records metrics for callback handling.
func (a *authorizationUseCaseWithMetrics) HandleCallback(
	ctx context.Context,
	input *oauthDomain.CallbackInput,
) (*oauthDomain.CallbackOutput, error) {
	start := time.Now()
	output, err := a.next.HandleCallback(ctx, input)
	recordOperation(ctx, a.metrics, "authorization_callback", start, err)
	return output, err
}
