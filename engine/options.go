package engine

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Option configures an Engine at construction.
type Option func(*Engine)

// WithLogger sets the logger for isolated-failure warnings. A nil logger is
// ignored and the slog default stays in place.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithAdmissionRule gates processing on the rule: experiences the rule
// rejects are reported back without touching learning state.
func WithAdmissionRule(rule AdmissionRule) Option {
	return func(e *Engine) {
		e.rule = rule
	}
}

// WithJournal records every processed experience to the journal. Journal
// failures are logged and surfaced as result warnings, never as call
// failures.
func WithJournal(j Journal) Option {
	return func(e *Engine) {
		e.journal = j
	}
}

// WithAgent replaces the default Q-learning agent. Intended for tests and
// for callers that pre-train or share an agent across engines.
func WithAgent(a Agent) Option {
	return func(e *Engine) {
		if a != nil {
			e.agent = a
		}
	}
}

// WithClock replaces the time source used to stamp experiences.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// OTelOptions carries the OpenTelemetry providers for engine
// instrumentation. Either field may be nil to disable that signal.
type OTelOptions struct {
	// TracerProvider creates the span wrapping each Process call.
	TracerProvider trace.TracerProvider

	// MeterProvider creates the engine's metric instruments.
	MeterProvider metric.MeterProvider
}

// WithOTel enables OpenTelemetry instrumentation: a span per Process call,
// counters for processed and failed experiences, and histograms for reward
// and performance improvement.
func WithOTel(opts OTelOptions) Option {
	return func(e *Engine) {
		if opts.TracerProvider != nil {
			e.otel.tracer = opts.TracerProvider.Tracer(instrumentationName)
		}
		if opts.MeterProvider != nil {
			e.otel.meter = opts.MeterProvider.Meter(instrumentationName)
		}
	}
}
