package learning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/xmrt-ecosystem/learning/engine"
	"github.com/xmrt-ecosystem/learning/qlearn"
	"github.com/xmrt-ecosystem/learning/strategy"
)

// Config is the construction-time configuration of a learning handler.
// Zero fields take documented defaults; the zero Config is fully usable.
type Config struct {
	// LearningRate seeds the gradient strategy's base rate. Default: 0.01.
	LearningRate float64 `yaml:"learning_rate,omitempty" json:"learning_rate,omitempty"`

	// Strategy names the strategy active at construction:
	// "gradient" or "bayesian". Default: "gradient".
	Strategy string `yaml:"strategy,omitempty" json:"strategy,omitempty"`

	// HistoryCapacity bounds the retained experience history.
	// Default: 10000.
	HistoryCapacity int `yaml:"history_capacity,omitempty" json:"history_capacity,omitempty"`

	// AnalyticsWindow is how many recent experiences analytics summarize.
	// Default: 100.
	AnalyticsWindow int `yaml:"analytics_window,omitempty" json:"analytics_window,omitempty"`

	// AdmissionRule is an optional CEL expression gating which experiences
	// are learned from. Empty means every experience is admitted.
	AdmissionRule string `yaml:"admission_rule,omitempty" json:"admission_rule,omitempty"`

	// RL configures the Q-learning agent.
	RL RLConfig `yaml:"rl,omitempty" json:"rl,omitempty"`
}

// RLConfig configures the Q-learning agent. Zero fields take the agent's
// defaults (1000 states, 10 actions, rate 0.1, discount 0.95, epsilon 0.1,
// decay 0.995).
type RLConfig struct {
	StateSpaceSize  int     `yaml:"state_space_size,omitempty" json:"state_space_size,omitempty"`
	ActionSpaceSize int     `yaml:"action_space_size,omitempty" json:"action_space_size,omitempty"`
	LearningRate    float64 `yaml:"learning_rate,omitempty" json:"learning_rate,omitempty"`
	DiscountFactor  float64 `yaml:"discount_factor,omitempty" json:"discount_factor,omitempty"`
	Epsilon         float64 `yaml:"epsilon,omitempty" json:"epsilon,omitempty"`
	EpsilonDecay    float64 `yaml:"epsilon_decay,omitempty" json:"epsilon_decay,omitempty"`
}

// LoadConfig reads and parses a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig parses YAML configuration data and validates it.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for values that cannot be defaulted
// away.
func (c *Config) Validate() error {
	if c.LearningRate < 0 {
		return NewConfigurationError("Config.Validate",
			fmt.Errorf("%w: learning_rate must be non-negative, got %v", ErrInvalidConfig, c.LearningRate))
	}
	if c.Strategy != "" {
		if _, err := strategy.ParseKind(c.Strategy); err != nil {
			return NewConfigurationError("Config.Validate", fmt.Errorf("%w: %v", ErrInvalidConfig, err))
		}
	}
	if c.HistoryCapacity < 0 {
		return NewConfigurationError("Config.Validate",
			fmt.Errorf("%w: history_capacity must be non-negative, got %d", ErrInvalidConfig, c.HistoryCapacity))
	}
	return nil
}

// engineConfig translates the public configuration into the engine's.
func (c *Config) engineConfig() engine.Config {
	return engine.Config{
		LearningRate:    c.LearningRate,
		InitialStrategy: strategy.Kind(c.Strategy),
		HistoryCapacity: c.HistoryCapacity,
		AnalyticsWindow: c.AnalyticsWindow,
		RL: qlearn.Config{
			StateSpaceSize:  c.RL.StateSpaceSize,
			ActionSpaceSize: c.RL.ActionSpaceSize,
			LearningRate:    c.RL.LearningRate,
			DiscountFactor:  c.RL.DiscountFactor,
			Epsilon:         c.RL.Epsilon,
			EpsilonDecay:    c.RL.EpsilonDecay,
		},
	}
}
