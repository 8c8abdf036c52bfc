// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package lint

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for lint operations.
var (
	tracer = otel.Tracer("lintsweep.lint")
	meter  = otel.Meter("lintsweep.lint")
)

// Metrics for lint operations.
var (
	categoryLatency metric.Float64Histogram
	filesScanned    metric.Int64Counter
	warningsFound   metric.Int64Counter
	errorsFound     metric.Int64Counter
	launchFailures  metric.Int64Counter
	categorySkipped metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		categoryLatency, err = meter.Float64Histogram(
			"lint_category_duration_seconds",
			metric.WithDescription("Duration of one lint category"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		filesScanned, err = meter.Int64Counter(
			"lint_files_total",
			metric.WithDescription("Files handed to a linter"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		warningsFound, err = meter.Int64Counter(
			"lint_warnings_found_total",
			metric.WithDescription("Warning lines reported by linters"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		errorsFound, err = meter.Int64Counter(
			"lint_errors_found_total",
			metric.WithDescription("Error lines reported by linters, plus launch failures"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		launchFailures, err = meter.Int64Counter(
			"lint_launch_failures_total",
			metric.WithDescription("Linter processes that could not be started"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		categorySkipped, err = meter.Int64Counter(
			"lint_categories_skipped_total",
			metric.WithDescription("Categories skipped because their linter is missing"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// startCategorySpan creates a span for one category.
func startCategorySpan(ctx context.Context, category, root string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Scanner.Scan",
		trace.WithAttributes(
			attribute.String("lint.category", category),
			attribute.String("lint.root", root),
		),
	)
}

// setCategorySpanResult sets the result attributes on a category span.
func setCategorySpanResult(span trace.Span, r CategoryResult) {
	span.SetAttributes(
		attribute.Int("lint.files", r.ItemsSeen),
		attribute.Int("lint.warning_count", r.Warnings),
		attribute.Int("lint.error_count", r.Errors),
		attribute.Int("lint.launch_failures", r.LaunchFailures),
		attribute.Bool("lint.skipped", r.Skipped),
	)
	if r.Err != nil {
		span.RecordError(r.Err)
	}
}

// recordCategoryMetrics records metrics for one category.
func recordCategoryMetrics(ctx context.Context, r CategoryResult) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("category", r.Category),
		attribute.String("tool", r.Tool),
	)

	if r.Skipped {
		categorySkipped.Add(ctx, 1, attrs)
		return
	}

	categoryLatency.Record(ctx, r.Duration.Seconds(), attrs)
	filesScanned.Add(ctx, int64(r.ItemsSeen), attrs)
	warningsFound.Add(ctx, int64(r.Warnings), attrs)
	errorsFound.Add(ctx, int64(r.Errors), attrs)
	launchFailures.Add(ctx, int64(r.LaunchFailures), attrs)
}
