// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package metrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("churnmap.metrics")
	meter  = otel.Meter("churnmap.metrics")
)

var (
	computeLatency metric.Float64Histogram
	computeTotal   metric.Int64Counter
	degradedTotal  metric.Int64Counter

	telemetryOnce sync.Once
	telemetryErr  error
)

// initTelemetry creates the instruments. Safe to call multiple times.
func initTelemetry() error {
	telemetryOnce.Do(func() {
		var err error

		computeLatency, err = meter.Float64Histogram(
			"churnmap_metrics_duration_seconds",
			metric.WithDescription("Duration of metrics computations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			telemetryErr = err
			return
		}

		computeTotal, err = meter.Int64Counter(
			"churnmap_metrics_total",
			metric.WithDescription("Total number of metrics computations"),
		)
		if err != nil {
			telemetryErr = err
			return
		}

		degradedTotal, err = meter.Int64Counter(
			"churnmap_metrics_degraded_lookups_total",
			metric.WithDescription("Dependents lookups that degraded to an empty set"),
		)
		if err != nil {
			telemetryErr = err
		}
	})
	return telemetryErr
}

func recordCompute(ctx context.Context, op string, duration time.Duration, success bool) {
	if err := initTelemetry(); err != nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("op", op),
		attribute.Bool("success", success),
	)
	computeLatency.Record(ctx, duration.Seconds(), attrs)
	computeTotal.Add(ctx, 1, attrs)
}

func recordDegraded(ctx context.Context, count int) {
	if count == 0 {
		return
	}
	if err := initTelemetry(); err != nil {
		return
	}
	degradedTotal.Add(ctx, int64(count))
}

func startSpan(ctx context.Context, op string, window int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "metrics."+op,
		trace.WithAttributes(attribute.Int("metrics.window", window)),
	)
}
