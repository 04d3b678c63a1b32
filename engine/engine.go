package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xmrt-ecosystem/learning/experience"
	"github.com/xmrt-ecosystem/learning/qlearn"
	"github.com/xmrt-ecosystem/learning/strategy"
)

// Defaults applied by New for zero-valued config fields.
const (
	// DefaultHistoryCapacity bounds the retained experience history.
	DefaultHistoryCapacity = 10000

	// DefaultAnalyticsWindow is how many recent experiences analytics
	// summarize.
	DefaultAnalyticsWindow = 100
)

// Sentinel errors Process wraps its failure modes with. Match with errors.Is
// to distinguish why a call failed.
var (
	// ErrInvalidExperience indicates the submitted experience could not be
	// constructed.
	ErrInvalidExperience = errors.New("invalid experience")

	// ErrStrategyUpdate indicates the active strategy failed to fold in
	// the observation.
	ErrStrategyUpdate = errors.New("strategy update failed")
)

// bayesianSpace is the parameter space the Bayesian strategy searches.
// Fixed at engine construction and immutable thereafter.
var bayesianSpace = map[string]strategy.Bounds{
	"learning_rate":        {Min: 0.001, Max: 0.1},
	"confidence_threshold": {Min: 0.5, Max: 0.95},
}

// Config holds engine construction parameters.
type Config struct {
	// LearningRate seeds the gradient strategy's base rate.
	// Default: strategy.DefaultLearningRate.
	LearningRate float64 `json:"learning_rate,omitempty" yaml:"learning_rate,omitempty"`

	// InitialStrategy selects the strategy active at construction.
	// Default: strategy.KindGradient.
	InitialStrategy strategy.Kind `json:"initial_strategy,omitempty" yaml:"initial_strategy,omitempty"`

	// HistoryCapacity bounds the experience history.
	// Default: DefaultHistoryCapacity.
	HistoryCapacity int `json:"history_capacity,omitempty" yaml:"history_capacity,omitempty"`

	// AnalyticsWindow is the number of recent experiences analytics
	// summarize. Default: DefaultAnalyticsWindow.
	AnalyticsWindow int `json:"analytics_window,omitempty" yaml:"analytics_window,omitempty"`

	// RL configures the Q-learning agent. Zero fields take the agent's
	// defaults.
	RL qlearn.Config `json:"rl,omitempty" yaml:"rl,omitempty"`
}

// Agent is the reinforcement-learning collaborator the engine feeds. It is
// satisfied by *qlearn.Agent; the engine only needs this slice of its API.
type Agent interface {
	ActionIndex(action string) int
	Update(context map[string]any, action int, reward float64, nextContext map[string]any, done bool) error
	PolicyStrength() float64
	Epsilon() float64
}

// AdmissionRule decides whether an experience should be learned from.
// Satisfied by *admission.Rule.
type AdmissionRule interface {
	Admit(exp experience.Experience) (bool, error)
}

// Journal records processed experiences outside the engine.
// Satisfied by the journal package's implementations.
type Journal interface {
	Append(ctx context.Context, exp experience.Experience) error
}

// MetricPoint is one observation in a named metric series.
type MetricPoint struct {
	Value     float64   `json:"value" yaml:"value"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// Result summarizes one successfully processed experience.
type Result struct {
	// Iteration is the learning iteration this experience completed.
	Iteration uint64 `json:"learning_iteration" yaml:"learning_iteration"`

	// Admitted is false when an admission rule rejected the experience;
	// no learning state was touched in that case.
	Admitted bool `json:"admitted" yaml:"admitted"`

	// PerformanceImprovement is the outcome's performance minus the
	// previous call's.
	PerformanceImprovement float64 `json:"performance_improvement" yaml:"performance_improvement"`

	// Strategy is the strategy that handled this experience.
	Strategy strategy.Kind `json:"strategy" yaml:"strategy"`

	// Report is the strategy's adaptation summary.
	Report strategy.Report `json:"report" yaml:"report"`

	// PolicyStrength is the agent's confidence proxy after this update.
	PolicyStrength float64 `json:"rl_policy_strength" yaml:"rl_policy_strength"`

	// Confidence echoes the experience's confidence.
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// Timestamp echoes the experience's timestamp.
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`

	// Warnings reports isolated failures (agent or journal) that did not
	// fail the call.
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// RLStats is the agent slice of an analytics snapshot.
type RLStats struct {
	PolicyStrength float64 `json:"policy_strength" yaml:"policy_strength"`
	Epsilon        float64 `json:"epsilon" yaml:"epsilon"`
}

// Analytics is a read-only snapshot of engine state.
type Analytics struct {
	TotalExperiences int                `json:"total_experiences" yaml:"total_experiences"`
	Iteration        uint64             `json:"learning_iteration" yaml:"learning_iteration"`
	Strategy         strategy.Kind      `json:"strategy" yaml:"strategy"`
	Performance      experience.Summary `json:"performance_trend" yaml:"performance_trend"`
	Confidence       experience.Summary `json:"confidence_trend" yaml:"confidence_trend"`
	RL               RLStats            `json:"rl_agent_stats" yaml:"rl_agent_stats"`
}

// Engine is the learning orchestrator. Construct with New.
type Engine struct {
	mu sync.Mutex

	cfg      Config
	gradient *strategy.Gradient
	bayes    *strategy.Bayes
	agent    Agent

	history *experience.History[experience.Experience]
	metrics map[string][]MetricPoint

	active          strategy.Kind
	iteration       uint64
	lastPerformance float64

	logger  *slog.Logger
	rule    AdmissionRule
	journal Journal
	now     func() time.Time

	otel otelState
}

// New constructs an engine from the config, applying defaults for zero
// fields. The Bayesian parameter space and the agent's Q-table are fixed
// here and never change afterwards.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if cfg.LearningRate == 0 {
		cfg.LearningRate = strategy.DefaultLearningRate
	}
	if cfg.InitialStrategy == "" {
		cfg.InitialStrategy = strategy.KindGradient
	}
	if cfg.HistoryCapacity == 0 {
		cfg.HistoryCapacity = DefaultHistoryCapacity
	}
	if cfg.AnalyticsWindow == 0 {
		cfg.AnalyticsWindow = DefaultAnalyticsWindow
	}
	if cfg.InitialStrategy != strategy.KindGradient && cfg.InitialStrategy != strategy.KindBayesian {
		return nil, fmt.Errorf("engine: unknown initial strategy %q", cfg.InitialStrategy)
	}
	if cfg.HistoryCapacity < 0 || cfg.AnalyticsWindow < 0 {
		return nil, fmt.Errorf("engine: history capacity and analytics window must be non-negative")
	}

	bayes, err := strategy.NewBayes(bayesianSpace)
	if err != nil {
		return nil, fmt.Errorf("engine: build bayesian strategy: %w", err)
	}

	e := &Engine{
		cfg:      cfg,
		gradient: strategy.NewGradient(cfg.LearningRate),
		bayes:    bayes,
		history:  experience.NewHistory[experience.Experience](cfg.HistoryCapacity),
		metrics:  make(map[string][]MetricPoint),
		active:   cfg.InitialStrategy,
		logger:   slog.Default(),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.agent == nil {
		agent, err := qlearn.New(cfg.RL)
		if err != nil {
			return nil, fmt.Errorf("engine: build agent: %w", err)
		}
		e.agent = agent
	}

	if err := e.initOTel(); err != nil {
		return nil, err
	}

	return e, nil
}

// Process runs one experience through the pipeline: admission, history and
// metric appends, strategy dispatch, the isolated agent feed, the isolated
// journal append, and the iteration increment.
//
// On a construction or strategy failure the returned error is the call's
// outcome and the iteration counter does not advance; appends committed
// before the failure stay committed.
func (e *Engine) Process(ctx context.Context, raw experience.Raw) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ctx, finish := e.startSpan(ctx)

	exp, err := experience.NewAt(raw, e.now())
	if err != nil {
		err = fmt.Errorf("engine: %w: %w", ErrInvalidExperience, err)
		e.recordFailure(ctx)
		finish(err)
		return Result{}, err
	}

	if e.rule != nil {
		admitted, err := e.rule.Admit(exp)
		if err != nil {
			e.recordFailure(ctx)
			finish(err)
			return Result{}, fmt.Errorf("engine: admission: %w", err)
		}
		if !admitted {
			finish(nil)
			return Result{
				Admitted:   false,
				Iteration:  e.iteration,
				Strategy:   e.active,
				Confidence: exp.Confidence,
				Timestamp:  exp.Timestamp,
			}, nil
		}
	}

	e.history.Append(exp)
	e.appendMetric("overall", exp.Outcome.Performance, exp.Timestamp)

	report, err := e.dispatch(exp)
	if err != nil {
		// History and metrics already committed; documented
		// at-least-once partial-apply semantics.
		err = fmt.Errorf("engine: %w: %w", ErrStrategyUpdate, err)
		e.recordFailure(ctx)
		finish(err)
		return Result{}, err
	}

	improvement := exp.Outcome.Performance - e.lastPerformance
	e.lastPerformance = exp.Outcome.Performance

	var warnings []string
	if err := e.feedAgent(exp); err != nil {
		e.logger.Warn("rl agent update failed",
			"experience_id", exp.ID,
			"error", err)
		warnings = append(warnings, fmt.Sprintf("rl agent update failed: %v", err))
	}

	if e.journal != nil {
		if err := e.journal.Append(ctx, exp); err != nil {
			e.logger.Warn("journal append failed",
				"experience_id", exp.ID,
				"error", err)
			warnings = append(warnings, fmt.Sprintf("journal append failed: %v", err))
		}
	}

	e.iteration++

	result := Result{
		Iteration:              e.iteration,
		Admitted:               true,
		PerformanceImprovement: improvement,
		Strategy:               e.active,
		Report:                 report,
		PolicyStrength:         e.agent.PolicyStrength(),
		Confidence:             exp.Confidence,
		Timestamp:              exp.Timestamp,
		Warnings:               warnings,
	}

	e.recordSuccess(ctx, exp, result)
	finish(nil)
	return result, nil
}

// dispatch routes the experience to the active strategy.
func (e *Engine) dispatch(exp experience.Experience) (strategy.Report, error) {
	state := strategy.State{
		Parameters:  contextParameters(exp.Context),
		Performance: exp.Outcome.Performance,
	}
	feedback := strategy.Feedback{
		Performance: exp.Outcome.Performance,
		Reward:      exp.Reward,
		Gradients:   exp.Outcome.Gradients,
		Confidence:  exp.Confidence,
	}

	switch e.active {
	case strategy.KindGradient:
		return e.gradient.Update(state, feedback)
	case strategy.KindBayesian:
		return e.bayes.Update(state, feedback)
	default:
		return strategy.Report{}, fmt.Errorf("no strategy registered for kind %q", e.active)
	}
}

// feedAgent applies the Q-learning update derived from the experience.
func (e *Engine) feedAgent(exp experience.Experience) error {
	action := e.agent.ActionIndex(exp.ActionTaken)
	next := exp.Outcome.NextState
	if next == nil {
		next = map[string]any{}
	}
	return e.agent.Update(exp.Context, action, exp.Reward, next, exp.Outcome.EpisodeDone)
}

// SetStrategy switches the strategy that future experiences dispatch to.
func (e *Engine) SetStrategy(kind strategy.Kind) error {
	if kind != strategy.KindGradient && kind != strategy.KindBayesian {
		return fmt.Errorf("engine: unknown strategy %q", kind)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.active = kind
	return nil
}

// ActiveStrategy returns the strategy currently receiving experiences.
func (e *Engine) ActiveStrategy() strategy.Kind {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// ProposeParameters returns the active strategy's next-parameter suggestion.
func (e *Engine) ProposeParameters() map[string]float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.active {
	case strategy.KindBayesian:
		return e.bayes.Propose()
	default:
		return e.gradient.Propose()
	}
}

// Iteration returns the number of successfully processed experiences.
func (e *Engine) Iteration() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.iteration
}

// Analytics summarizes performance and confidence over the most recent
// experiences (up to the configured window) together with agent statistics.
// It never mutates engine state.
func (e *Engine) Analytics() Analytics {
	e.mu.Lock()
	defer e.mu.Unlock()

	recent := e.history.Last(e.cfg.AnalyticsWindow)
	performance := make([]float64, len(recent))
	confidence := make([]float64, len(recent))
	for i, exp := range recent {
		performance[i] = exp.Outcome.Performance
		confidence[i] = exp.Confidence
	}

	return Analytics{
		TotalExperiences: e.history.Len(),
		Iteration:        e.iteration,
		Strategy:         e.active,
		Performance:      experience.Summarize(performance),
		Confidence:       experience.Summarize(confidence),
		RL: RLStats{
			PolicyStrength: e.agent.PolicyStrength(),
			Epsilon:        e.agent.Epsilon(),
		},
	}
}

// Metric returns a copy of the named metric series, oldest first.
func (e *Engine) Metric(name string) []MetricPoint {
	e.mu.Lock()
	defer e.mu.Unlock()

	series := e.metrics[name]
	out := make([]MetricPoint, len(series))
	copy(out, series)
	return out
}

func (e *Engine) appendMetric(name string, value float64, ts time.Time) {
	e.metrics[name] = append(e.metrics[name], MetricPoint{Value: value, Timestamp: ts})
}

// contextParameters extracts the "parameters" sub-map of a context as named
// floats, tolerating the numeric types JSON decoding produces.
func contextParameters(ctx map[string]any) map[string]float64 {
	raw, ok := ctx["parameters"]
	if !ok {
		return map[string]float64{}
	}

	out := map[string]float64{}
	switch params := raw.(type) {
	case map[string]float64:
		for k, v := range params {
			out[k] = v
		}
	case map[string]any:
		for k, v := range params {
			switch n := v.(type) {
			case float64:
				out[k] = n
			case float32:
				out[k] = float64(n)
			case int:
				out[k] = float64(n)
			case int64:
				out[k] = float64(n)
			}
		}
	}
	return out
}
