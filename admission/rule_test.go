package admission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xmrt-ecosystem/learning/experience"
)

func TestRuleAdmit(t *testing.T) {
	tests := []struct {
		name string
		expr string
		exp  experience.Experience
		want bool
	}{
		{
			name: "positive reward admitted",
			expr: "reward > 0.0",
			exp:  experience.Experience{Reward: 1.0},
			want: true,
		},
		{
			name: "negative reward rejected",
			expr: "reward > 0.0",
			exp:  experience.Experience{Reward: -0.5},
			want: false,
		},
		{
			name: "compound rule over confidence and action",
			expr: "confidence >= 0.5 && action != ''",
			exp:  experience.Experience{Confidence: 0.7, ActionTaken: "buy"},
			want: true,
		},
		{
			name: "compound rule rejects empty action",
			expr: "confidence >= 0.5 && action != ''",
			exp:  experience.Experience{Confidence: 0.7},
			want: false,
		},
		{
			name: "performance referenced from outcome",
			expr: "performance > 0.25",
			exp:  experience.Experience{Outcome: experience.Outcome{Performance: 0.3}},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := NewRule(tt.expr)
			require.NoError(t, err)

			got, err := rule.Admit(tt.exp)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewRuleRejectsBadExpressions(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{name: "syntax error", expr: "reward >"},
		{name: "unknown variable", expr: "velocity > 1.0"},
		{name: "non-boolean result", expr: "reward + 1.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRule(tt.expr)
			assert.Error(t, err)
		})
	}
}

func TestRuleExpression(t *testing.T) {
	rule, err := NewRule("reward >= 0.0")
	require.NoError(t, err)
	assert.Equal(t, "reward >= 0.0", rule.Expression())
}
