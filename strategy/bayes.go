package strategy

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// coldStartObservations is the number of observations below which Propose
// samples the parameter space uniformly instead of perturbing the best point.
const coldStartObservations = 3

// perturbationScale sizes the Gaussian proposal noise relative to each
// parameter's declared range.
const perturbationScale = 0.1

// Bounds declares the inclusive range of one tunable parameter.
type Bounds struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Bayes is a black-box optimizer over a bounded parameter space. Updates
// record every observed (parameters, performance) pair and track the best
// score seen so far; proposals either explore the space uniformly (cold
// start) or perturb the best-known point with range-scaled Gaussian noise.
//
// The parameter space is fixed at construction. Observation storage grows
// for the process lifetime, which is accepted for session-scoped engines.
type Bayes struct {
	space        map[string]Bounds
	observations []float64
	paramHistory []map[string]float64
	bestParams   map[string]float64
	bestScore    float64
	rng          *rand.Rand
}

// BayesOption configures a Bayes optimizer at construction.
type BayesOption func(*Bayes)

// WithBayesRand replaces the random source, typically for reproducible tests.
func WithBayesRand(rng *rand.Rand) BayesOption {
	return func(b *Bayes) {
		if rng != nil {
			b.rng = rng
		}
	}
}

// NewBayes returns a Bayesian strategy over the given parameter space.
// The space must be non-empty and every bound must satisfy Min <= Max.
func NewBayes(space map[string]Bounds, opts ...BayesOption) (*Bayes, error) {
	if len(space) == 0 {
		return nil, fmt.Errorf("strategy: bayes: empty parameter space")
	}

	owned := make(map[string]Bounds, len(space))
	for name, b := range space {
		if b.Min > b.Max {
			return nil, fmt.Errorf("strategy: bayes: parameter %q has min %v greater than max %v", name, b.Min, b.Max)
		}
		owned[name] = b
	}

	b := &Bayes{
		space:     owned,
		bestScore: math.Inf(-1),
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Kind identifies the variant.
func (b *Bayes) Kind() Kind {
	return KindBayesian
}

// Update records the observed performance and the parameters that produced
// it, and advances the best-known point when the performance strictly
// exceeds the best score seen so far.
func (b *Bayes) Update(state State, feedback Feedback) (Report, error) {
	if !isFinite(feedback.Performance) {
		return Report{}, fmt.Errorf("strategy: bayes update: performance %v is not finite", feedback.Performance)
	}

	b.observations = append(b.observations, feedback.Performance)
	b.paramHistory = append(b.paramHistory, copyFloats(state.Parameters))

	if feedback.Performance > b.bestScore {
		b.bestScore = feedback.Performance
		b.bestParams = copyFloats(state.Parameters)
	}

	return Report{
		Strategy:     KindBayesian,
		BestScore:    b.bestScore,
		BestParams:   copyFloats(b.bestParams),
		Observations: len(b.observations),
	}, nil
}

// Propose returns the next parameter set to try. With fewer than three
// observations, or while no best parameters have been recorded, it samples
// each parameter uniformly within its bounds; after that it perturbs the
// best-known parameters with Gaussian noise scaled to a tenth of each
// parameter's range, clamped back into bounds.
func (b *Bayes) Propose() map[string]float64 {
	if len(b.observations) < coldStartObservations || len(b.bestParams) == 0 {
		return b.sampleUniform()
	}

	params := make(map[string]float64, len(b.bestParams))
	for name, value := range b.bestParams {
		bounds, ok := b.space[name]
		if !ok {
			// Parameters outside the declared space never enter
			// bestParams through Update against this space, so this
			// is unreachable for well-formed callers; skip rather
			// than invent bounds.
			continue
		}
		noise := b.rng.NormFloat64() * (bounds.Max - bounds.Min) * perturbationScale
		params[name] = clamp(value+noise, bounds.Min, bounds.Max)
	}
	return params
}

// BestScore returns the best performance observed so far, or -Inf before
// the first observation.
func (b *Bayes) BestScore() float64 {
	return b.bestScore
}

// BestParams returns a copy of the parameters that produced the best score,
// or nil before the first observation.
func (b *Bayes) BestParams() map[string]float64 {
	if b.bestParams == nil {
		return nil
	}
	return copyFloats(b.bestParams)
}

// Observations returns the number of recorded observations.
func (b *Bayes) Observations() int {
	return len(b.observations)
}

func (b *Bayes) sampleUniform() map[string]float64 {
	params := make(map[string]float64, len(b.space))
	for name, bounds := range b.space {
		params[name] = bounds.Min + b.rng.Float64()*(bounds.Max-bounds.Min)
	}
	return params
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
