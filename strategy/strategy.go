package strategy

import "fmt"

// Kind identifies one of the closed set of strategy variants.
type Kind string

const (
	// KindGradient selects the adaptive momentum gradient strategy.
	KindGradient Kind = "gradient"

	// KindBayesian selects the bounded-space Bayesian strategy.
	KindBayesian Kind = "bayesian"
)

// ParseKind converts a strategy name into a Kind, rejecting anything outside
// the closed set.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindGradient:
		return KindGradient, nil
	case KindBayesian:
		return KindBayesian, nil
	default:
		return "", fmt.Errorf("strategy: unknown kind %q", s)
	}
}

// String returns the wire name of the kind.
func (k Kind) String() string {
	return string(k)
}

// State is the view of the current situation a strategy updates against.
type State struct {
	// Parameters are the parameter values in effect when the feedback was
	// produced.
	Parameters map[string]float64 `json:"parameters,omitempty" yaml:"parameters,omitempty"`

	// Performance is the current performance measurement.
	Performance float64 `json:"performance" yaml:"performance"`
}

// Feedback carries the observation a strategy learns from.
type Feedback struct {
	// Performance is the scalar performance measurement.
	Performance float64 `json:"performance" yaml:"performance"`

	// Reward is the reinforcement signal attached to the experience.
	Reward float64 `json:"reward" yaml:"reward"`

	// Gradients are named scalar gradients, consumed by the gradient
	// strategy only.
	Gradients map[string]float64 `json:"gradients,omitempty" yaml:"gradients,omitempty"`

	// Confidence is the confidence attached to the observation.
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// Report summarizes one strategy update. Fields are populated according to
// the strategy that produced the report; the engine forwards it to callers
// and never writes strategy state through it.
type Report struct {
	// Strategy is the kind that produced this report.
	Strategy Kind `json:"strategy" yaml:"strategy"`

	// LearningRate is the gradient strategy's rate after adaptation.
	LearningRate float64 `json:"learning_rate,omitempty" yaml:"learning_rate,omitempty"`

	// Momentum is the gradient strategy's momentum coefficient.
	Momentum float64 `json:"momentum,omitempty" yaml:"momentum,omitempty"`

	// Velocity is a copy of the gradient strategy's per-parameter velocities.
	Velocity map[string]float64 `json:"velocity,omitempty" yaml:"velocity,omitempty"`

	// BestScore is the Bayesian strategy's best observed performance.
	BestScore float64 `json:"best_score,omitempty" yaml:"best_score,omitempty"`

	// BestParams is a copy of the parameters that produced BestScore.
	BestParams map[string]float64 `json:"best_params,omitempty" yaml:"best_params,omitempty"`

	// Observations is the Bayesian strategy's observation count.
	Observations int `json:"observations,omitempty" yaml:"observations,omitempty"`
}

// Strategy is the common contract of the parameter-adaptation variants.
type Strategy interface {
	// Kind identifies the variant.
	Kind() Kind

	// Update folds one feedback observation into the strategy's state and
	// returns a report of the adaptation. A non-finite performance value
	// is rejected before any state changes.
	Update(state State, feedback Feedback) (Report, error)

	// Propose returns the next parameter set the strategy would try.
	// It does not mutate state.
	Propose() map[string]float64
}
