package engine

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xmrt-ecosystem/learning/experience"
)

// instrumentationName scopes the engine's tracer and meter.
const instrumentationName = "github.com/xmrt-ecosystem/learning/engine"

// otelState holds the optional instrumentation. All methods are nil-safe:
// an engine built without WithOTel records nothing.
type otelState struct {
	tracer trace.Tracer
	meter  metric.Meter

	processed       metric.Int64Counter
	failed          metric.Int64Counter
	rewardHist      metric.Float64Histogram
	improvementHist metric.Float64Histogram
}

// initOTel creates the metric instruments once at engine construction.
func (e *Engine) initOTel() error {
	if e.otel.meter == nil {
		return nil
	}

	var err error

	e.otel.processed, err = e.otel.meter.Int64Counter(
		"learning.experiences.processed",
		metric.WithDescription("Number of experiences successfully processed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("engine: create processed counter: %w", err)
	}

	e.otel.failed, err = e.otel.meter.Int64Counter(
		"learning.experiences.failed",
		metric.WithDescription("Number of experiences whose processing failed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("engine: create failed counter: %w", err)
	}

	e.otel.rewardHist, err = e.otel.meter.Float64Histogram(
		"learning.reward",
		metric.WithDescription("Reward attached to processed experiences"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("engine: create reward histogram: %w", err)
	}

	e.otel.improvementHist, err = e.otel.meter.Float64Histogram(
		"learning.performance.improvement",
		metric.WithDescription("Performance delta between consecutive experiences"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("engine: create improvement histogram: %w", err)
	}

	return nil
}

// startSpan opens the span wrapping one Process call. The returned finish
// func sets the span status from the call's outcome and ends it. When no
// tracer is configured the context passes through and finish is a no-op end.
func (e *Engine) startSpan(ctx context.Context) (context.Context, func(error)) {
	if e.otel.tracer == nil {
		return ctx, func(error) {}
	}

	ctx, span := e.otel.tracer.Start(ctx, "engine.Process")
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

// recordSuccess updates the metric instruments for a processed experience.
func (e *Engine) recordSuccess(ctx context.Context, exp experience.Experience, result Result) {
	if e.otel.meter == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("strategy", result.Strategy.String()),
	)
	e.otel.processed.Add(ctx, 1, attrs)
	e.otel.rewardHist.Record(ctx, exp.Reward, attrs)
	e.otel.improvementHist.Record(ctx, result.PerformanceImprovement, attrs)
}

// recordFailure counts a failed Process call.
func (e *Engine) recordFailure(ctx context.Context) {
	if e.otel.meter == nil {
		return
	}
	e.otel.failed.Add(ctx, 1)
}
