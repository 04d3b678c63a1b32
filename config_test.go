package learning

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	data := []byte(`
learning_rate: 0.02
strategy: bayesian
history_capacity: 500
analytics_window: 50
admission_rule: "reward > 0.0"
rl:
  state_space_size: 100
  action_space_size: 4
  epsilon: 0.2
`)

	cfg, err := ParseConfig(data)
	require.NoError(t, err)

	assert.Equal(t, 0.02, cfg.LearningRate)
	assert.Equal(t, "bayesian", cfg.Strategy)
	assert.Equal(t, 500, cfg.HistoryCapacity)
	assert.Equal(t, 50, cfg.AnalyticsWindow)
	assert.Equal(t, "reward > 0.0", cfg.AdmissionRule)
	assert.Equal(t, 100, cfg.RL.StateSpaceSize)
	assert.Equal(t, 4, cfg.RL.ActionSpaceSize)
	assert.Equal(t, 0.2, cfg.RL.Epsilon)
}

func TestParseConfigInvalidYAML(t *testing.T) {
	_, err := ParseConfig([]byte("learning_rate: [nope"))
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "zero config is valid", cfg: Config{}},
		{name: "known strategy", cfg: Config{Strategy: "gradient"}},
		{name: "unknown strategy", cfg: Config{Strategy: "annealing"}, wantErr: true},
		{name: "negative learning rate", cfg: Config{LearningRate: -0.1}, wantErr: true},
		{name: "negative history capacity", cfg: Config{HistoryCapacity: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "learning.yaml")
	require.NoError(t, os.WriteFile(path, []byte("learning_rate: 0.05\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 0.05, cfg.LearningRate)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
