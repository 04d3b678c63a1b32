package strategy

import (
	"fmt"
	"math"

	"github.com/xmrt-ecosystem/learning/experience"
)

// Gradient strategy defaults.
const (
	// DefaultLearningRate seeds the gradient strategy when no rate is
	// configured.
	DefaultLearningRate = 0.01

	defaultMomentum       = 0.9
	defaultAdaptiveFactor = 1.1
	defaultDecayFactor    = 0.95

	// gradientWindow is the capacity of the rolling performance window
	// driving learning-rate adaptation.
	gradientWindow = 50
)

// Gradient is a momentum gradient-descent optimizer whose learning rate
// adapts to the recent performance trend: two consecutive improvements scale
// the rate up, a regression decays it. The rate never exceeds twice the base
// rate and is never written by callers directly.
type Gradient struct {
	learningRate     float64
	baseLearningRate float64
	momentum         float64
	adaptiveFactor   float64
	decayFactor      float64
	velocity         map[string]float64
	perfWindow       *experience.History[float64]
}

// GradientOption configures a Gradient at construction.
type GradientOption func(*Gradient)

// WithMomentum overrides the momentum coefficient. Values outside [0, 1]
// are ignored.
func WithMomentum(m float64) GradientOption {
	return func(g *Gradient) {
		if m >= 0 && m <= 1 {
			g.momentum = m
		}
	}
}

// WithAdaptation overrides the scale-up and decay factors applied to the
// learning rate. The adaptive factor must exceed 1 and the decay factor must
// lie in (0, 1); invalid pairs are ignored.
func WithAdaptation(adaptive, decay float64) GradientOption {
	return func(g *Gradient) {
		if adaptive > 1 && decay > 0 && decay < 1 {
			g.adaptiveFactor = adaptive
			g.decayFactor = decay
		}
	}
}

// NewGradient returns a gradient strategy with the given base learning rate.
// A non-positive rate falls back to DefaultLearningRate.
func NewGradient(learningRate float64, opts ...GradientOption) *Gradient {
	if learningRate <= 0 {
		learningRate = DefaultLearningRate
	}

	g := &Gradient{
		learningRate:     learningRate,
		baseLearningRate: learningRate,
		momentum:         defaultMomentum,
		adaptiveFactor:   defaultAdaptiveFactor,
		decayFactor:      defaultDecayFactor,
		velocity:         make(map[string]float64),
		perfWindow:       experience.NewHistory[float64](gradientWindow),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Kind identifies the variant.
func (g *Gradient) Kind() Kind {
	return KindGradient
}

// Update appends the performance observation to the rolling window, adapts
// the learning rate from the two most recent observations, and advances the
// momentum-weighted velocity of every named gradient. Gradient names absent
// from the feedback are left untouched.
func (g *Gradient) Update(state State, feedback Feedback) (Report, error) {
	if !isFinite(feedback.Performance) {
		return Report{}, fmt.Errorf("strategy: gradient update: performance %v is not finite", feedback.Performance)
	}

	prev, hasPrev := g.perfWindow.Latest()
	g.perfWindow.Append(feedback.Performance)

	if hasPrev {
		if feedback.Performance > prev {
			g.learningRate = math.Min(g.learningRate*g.adaptiveFactor, g.baseLearningRate*2)
		} else {
			g.learningRate *= g.decayFactor
		}
	}

	for name, gradient := range feedback.Gradients {
		g.velocity[name] = g.momentum*g.velocity[name] + g.learningRate*gradient
	}

	return Report{
		Strategy:     KindGradient,
		LearningRate: g.learningRate,
		Momentum:     g.momentum,
		Velocity:     copyFloats(g.velocity),
	}, nil
}

// Propose returns the parameters the strategy would apply next: its current
// learning rate.
func (g *Gradient) Propose() map[string]float64 {
	return map[string]float64{"learning_rate": g.learningRate}
}

// LearningRate returns the current adapted learning rate.
func (g *Gradient) LearningRate() float64 {
	return g.learningRate
}

// Velocity returns a copy of the per-parameter velocity map.
func (g *Gradient) Velocity() map[string]float64 {
	return copyFloats(g.velocity)
}

func copyFloats(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
