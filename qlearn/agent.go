package qlearn

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/xmrt-ecosystem/learning/experience"
)

// MinEpsilon is the exploration floor; epsilon decay never goes below it.
const MinEpsilon = 0.01

// ErrInvalidConfig is wrapped by New when the hyperparameters are rejected.
var ErrInvalidConfig = errors.New("invalid agent configuration")

// bufferCapacity bounds the retained transition history.
const bufferCapacity = 10000

// Config holds the agent's hyperparameters.
type Config struct {
	// StateSpaceSize is the number of rows in the Q-table. Contexts hash
	// into [0, StateSpaceSize).
	StateSpaceSize int `json:"state_space_size" yaml:"state_space_size"`

	// ActionSpaceSize is the number of columns in the Q-table.
	ActionSpaceSize int `json:"action_space_size" yaml:"action_space_size"`

	// LearningRate is the TD step size.
	LearningRate float64 `json:"learning_rate" yaml:"learning_rate"`

	// DiscountFactor weights future value. Convergence guarantees assume
	// a value in [0, 1); the agent does not enforce this.
	DiscountFactor float64 `json:"discount_factor" yaml:"discount_factor"`

	// Epsilon is the initial exploration probability.
	Epsilon float64 `json:"epsilon" yaml:"epsilon"`

	// EpsilonDecay multiplies epsilon after every update.
	EpsilonDecay float64 `json:"epsilon_decay" yaml:"epsilon_decay"`
}

// DefaultConfig returns the standard agent hyperparameters.
func DefaultConfig() Config {
	return Config{
		StateSpaceSize:  1000,
		ActionSpaceSize: 10,
		LearningRate:    0.1,
		DiscountFactor:  0.95,
		Epsilon:         0.1,
		EpsilonDecay:    0.995,
	}
}

// Transition is one recorded (state, action, reward, next state) step.
type Transition struct {
	State     int     `json:"state"`
	Action    int     `json:"action"`
	Reward    float64 `json:"reward"`
	NextState int     `json:"next_state"`
	Done      bool    `json:"done"`
}

// Agent is a tabular Q-learning agent with epsilon-greedy exploration.
type Agent struct {
	cfg     Config
	epsilon float64
	qTable  [][]float64
	buffer  *experience.History[Transition]
	rng     *rand.Rand
}

// Option configures an Agent at construction.
type Option func(*Agent)

// WithRand replaces the random source, typically for reproducible tests.
func WithRand(rng *rand.Rand) Option {
	return func(a *Agent) {
		if rng != nil {
			a.rng = rng
		}
	}
}

// New returns an agent with a zeroed Q-table. Zero-valued config fields fall
// back to DefaultConfig; out-of-range epsilon or decay values are rejected.
func New(cfg Config, opts ...Option) (*Agent, error) {
	def := DefaultConfig()
	if cfg.StateSpaceSize == 0 {
		cfg.StateSpaceSize = def.StateSpaceSize
	}
	if cfg.ActionSpaceSize == 0 {
		cfg.ActionSpaceSize = def.ActionSpaceSize
	}
	if cfg.LearningRate == 0 {
		cfg.LearningRate = def.LearningRate
	}
	if cfg.DiscountFactor == 0 {
		cfg.DiscountFactor = def.DiscountFactor
	}
	if cfg.Epsilon == 0 {
		cfg.Epsilon = def.Epsilon
	}
	if cfg.EpsilonDecay == 0 {
		cfg.EpsilonDecay = def.EpsilonDecay
	}

	if cfg.StateSpaceSize < 0 || cfg.ActionSpaceSize < 0 {
		return nil, fmt.Errorf("qlearn: %w: state and action space sizes must be positive", ErrInvalidConfig)
	}
	if cfg.Epsilon < 0 || cfg.Epsilon > 1 {
		return nil, fmt.Errorf("qlearn: %w: epsilon %v outside [0, 1]", ErrInvalidConfig, cfg.Epsilon)
	}
	if cfg.EpsilonDecay <= 0 || cfg.EpsilonDecay >= 1 {
		return nil, fmt.Errorf("qlearn: %w: epsilon decay %v outside (0, 1)", ErrInvalidConfig, cfg.EpsilonDecay)
	}

	table := make([][]float64, cfg.StateSpaceSize)
	for i := range table {
		table[i] = make([]float64, cfg.ActionSpaceSize)
	}

	a := &Agent{
		cfg:     cfg,
		epsilon: cfg.Epsilon,
		qTable:  table,
		buffer:  experience.NewHistory[Transition](bufferCapacity),
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// StateHash reduces a context to a state index in [0, StateSpaceSize).
// The digest is computed over the sorted key/value pairs, so it is
// independent of map iteration order and stable across processes. Distinct
// contexts may collide; collisions are accepted.
func (a *Agent) StateHash(context map[string]any) int {
	keys := make([]string, 0, len(context))
	for k := range context {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	d := xxhash.New()
	for _, k := range keys {
		_, _ = d.WriteString(k)
		_, _ = d.WriteString("=")
		_, _ = d.WriteString(fmt.Sprintf("%v", context[k]))
		_, _ = d.WriteString(";")
	}
	return int(d.Sum64() % uint64(a.cfg.StateSpaceSize))
}

// ActionIndex reduces an action name to an action index in
// [0, ActionSpaceSize) using the same stable digest as StateHash.
func (a *Agent) ActionIndex(action string) int {
	return int(xxhash.Sum64String(action) % uint64(a.cfg.ActionSpaceSize))
}

// SelectAction picks an action for the given context: with probability
// epsilon a uniformly random action, otherwise the action with the maximal
// Q-value for the hashed state, ties broken by the lowest action index.
func (a *Agent) SelectAction(context map[string]any) int {
	if a.rng.Float64() < a.epsilon {
		return a.rng.IntN(a.cfg.ActionSpaceSize)
	}
	return argmax(a.qTable[a.StateHash(context)])
}

// Update applies the one-step Q-learning rule for the observed transition
// and decays epsilon. For terminal transitions the target is the reward
// alone; otherwise the discounted maximum of the successor row is added.
func (a *Agent) Update(context map[string]any, action int, reward float64, nextContext map[string]any, done bool) error {
	if action < 0 || action >= a.cfg.ActionSpaceSize {
		return fmt.Errorf("qlearn: action %d outside [0, %d)", action, a.cfg.ActionSpaceSize)
	}

	state := a.StateHash(context)
	next := a.StateHash(nextContext)

	target := reward
	if !done {
		target += a.cfg.DiscountFactor * maxValue(a.qTable[next])
	}

	a.qTable[state][action] += a.cfg.LearningRate * (target - a.qTable[state][action])
	a.buffer.Append(Transition{State: state, Action: action, Reward: reward, NextState: next, Done: done})

	a.epsilon *= a.cfg.EpsilonDecay
	if a.epsilon < MinEpsilon {
		a.epsilon = MinEpsilon
	}
	return nil
}

// PolicyStrength is a coarse confidence proxy in [0, 1]: the ratio of the
// Q-table's population variance to its maximum value, clamped. An untouched
// table (maximum exactly zero) scores 0.
func (a *Agent) PolicyStrength() float64 {
	var sum float64
	n := a.cfg.StateSpaceSize * a.cfg.ActionSpaceSize
	maxQ := a.qTable[0][0]
	for _, row := range a.qTable {
		for _, q := range row {
			sum += q
			if q > maxQ {
				maxQ = q
			}
		}
	}
	if maxQ == 0 {
		return 0
	}

	mean := sum / float64(n)
	var sq float64
	for _, row := range a.qTable {
		for _, q := range row {
			d := q - mean
			sq += d * d
		}
	}
	variance := sq / float64(n)

	strength := variance / maxQ
	if strength < 0 {
		return 0
	}
	if strength > 1 {
		return 1
	}
	return strength
}

// Epsilon returns the current exploration probability.
func (a *Agent) Epsilon() float64 {
	return a.epsilon
}

// Transitions returns the number of retained transitions.
func (a *Agent) Transitions() int {
	return a.buffer.Len()
}

func argmax(row []float64) int {
	best := 0
	for i, v := range row {
		if v > row[best] {
			best = i
		}
	}
	return best
}

func maxValue(row []float64) float64 {
	max := row[0]
	for _, v := range row[1:] {
		if v > max {
			max = v
		}
	}
	return max
}
