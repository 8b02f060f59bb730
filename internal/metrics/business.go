package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Refresh outcomes recorded by RecordRefresh.
const (
	RefreshOutcomeRefreshed = "refreshed"
	RefreshOutcomeSkipped   = "skipped"
	RefreshOutcomeFailed    = "failed"
)

// BusinessMetrics records operation counts and durations per business domain.
type BusinessMetrics interface {
	// RecordOperation records a business operation with its status.
	// Domain examples: "oauth", "environment"
	// Operation examples: "token_get", "authorization_callback", "environment_create"
	// Status examples: "success", "error"
	RecordOperation(ctx context.Context, domain, operation, status string)

	// RecordDuration records the duration of a business operation with its status.
	// Duration is recorded in seconds as a histogram for percentile calculations.
	RecordDuration(ctx context.Context, domain, operation string, duration time.Duration, status string)

	// RecordRefresh counts how a near-expiry token was handled for an environment domain.
	// Outcome is one of the RefreshOutcome constants.
	RecordRefresh(ctx context.Context, canvasDomain, outcome string)
}

type businessMetrics struct {
	operationCounter metric.Int64Counter
	durationHisto    metric.Float64Histogram
	refreshCounter   metric.Int64Counter
}

// NewBusinessMetrics creates a BusinessMetrics implementation backed by the given meter provider.
// The namespace is used as a prefix for all metric names (e.g., "canvas_oauth").
func NewBusinessMetrics(meterProvider metric.MeterProvider, namespace string) (BusinessMetrics, error) {
	meter := meterProvider.Meter(namespace)

	operationCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_operations_total", namespace),
		metric.WithDescription("Total number of business operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation counter: %w", err)
	}

	durationHisto, err := meter.Float64Histogram(
		fmt.Sprintf("%s_operation_duration_seconds", namespace),
		metric.WithDescription("Duration of business operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	refreshCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_token_refreshes_total", namespace),
		metric.WithDescription("Near-expiry token refresh attempts by outcome"),
		metric.WithUnit("{refresh}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh counter: %w", err)
	}

	return &businessMetrics{
		operationCounter: operationCounter,
		durationHisto:    durationHisto,
		refreshCounter:   refreshCounter,
	}, nil
}

func (b *businessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	b.operationCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("domain", domain),
			attribute.String("operation", operation),
			attribute.String("status", status),
		),
	)
}

func (b *businessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	b.durationHisto.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("domain", domain),
			attribute.String("operation", operation),
			attribute.String("status", status),
		),
	)
}

func (b *businessMetrics) RecordRefresh(ctx context.Context, canvasDomain, outcome string) {
	b.refreshCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("canvas_domain", canvasDomain),
			attribute.String("outcome", outcome),
		),
	)
}

// NoOpBusinessMetrics is a no-op implementation of BusinessMetrics for when metrics are disabled.
type NoOpBusinessMetrics struct{}

// NewNoOpBusinessMetrics creates a no-op BusinessMetrics implementation.
func NewNoOpBusinessMetrics() BusinessMetrics {
	return &NoOpBusinessMetrics{}
}

// RecordOperation does nothing when metrics are disabled.
func (n *NoOpBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {}

// RecordDuration does nothing when metrics are disabled.
func (n *NoOpBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
}

// RecordRefresh does nothing when metrics are disabled.
func (n *NoOpBusinessMetrics) RecordRefresh(ctx context.Context, canvasDomain, outcome string) {}
