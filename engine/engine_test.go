package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xmrt-ecosystem/learning/experience"
	"github.com/xmrt-ecosystem/learning/strategy"
)

func newTestEngine(t *testing.T, cfg Config, opts ...Option) *Engine {
	t.Helper()
	e, err := New(cfg, opts...)
	require.NoError(t, err)
	return e
}

func rawWithPerformance(action string, performance, reward float64) experience.Raw {
	return experience.Raw{
		ActionTaken: action,
		Outcome:     experience.Outcome{Performance: performance},
		Reward:      reward,
	}
}

func TestProcessImprovementAndIteration(t *testing.T) {
	e := newTestEngine(t, Config{})
	ctx := context.Background()

	first, err := e.Process(ctx, rawWithPerformance("buy", 0.8, 1.0))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), first.Iteration)
	assert.InDelta(t, 0.8, first.PerformanceImprovement, 1e-12, "first improvement measured against initial 0.0")

	second, err := e.Process(ctx, rawWithPerformance("buy", 0.6, -0.5))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), second.Iteration)
	assert.InDelta(t, -0.2, second.PerformanceImprovement, 1e-12)

	assert.Equal(t, uint64(2), e.Iteration())
}

func TestProcessResultContents(t *testing.T) {
	e := newTestEngine(t, Config{})

	result, err := e.Process(context.Background(), experience.Raw{
		ActionTaken: "scale_up",
		Outcome: experience.Outcome{
			Performance: 0.7,
			Gradients:   map[string]float64{"w": 0.5},
		},
		Reward: 1.0,
	})
	require.NoError(t, err)

	assert.True(t, result.Admitted)
	assert.Equal(t, strategy.KindGradient, result.Strategy)
	assert.Equal(t, experience.DefaultConfidence, result.Confidence)
	assert.False(t, result.Timestamp.IsZero())
	assert.Equal(t, strategy.KindGradient, result.Report.Strategy)
	assert.Contains(t, result.Report.Velocity, "w")
	assert.Empty(t, result.Warnings)
}

func TestProcessFailureDoesNotAdvanceIteration(t *testing.T) {
	e := newTestEngine(t, Config{})
	ctx := context.Background()

	_, err := e.Process(ctx, rawWithPerformance("a", 0.5, 0))
	require.NoError(t, err)

	// Non-finite performance fails strategy dispatch after the history
	// and metric appends have committed.
	_, err = e.Process(ctx, rawWithPerformance("a", math.NaN(), 0))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStrategyUpdate)

	assert.Equal(t, uint64(1), e.Iteration())

	// Partial-apply semantics: the failed experience stays in history
	// and in the overall metric series.
	assert.Equal(t, 2, e.Analytics().TotalExperiences)
	assert.Len(t, e.Metric("overall"), 2)
}

func TestProcessInvalidConfidenceFailsBeforeAnyCommit(t *testing.T) {
	e := newTestEngine(t, Config{})

	bad := -0.5
	_, err := e.Process(context.Background(), experience.Raw{
		ActionTaken: "a",
		Confidence:  &bad,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidExperience)

	assert.Equal(t, uint64(0), e.Iteration())
	assert.Equal(t, 0, e.Analytics().TotalExperiences)
	assert.Empty(t, e.Metric("overall"))
}

func TestProcessEvictsHistoryPastCapacity(t *testing.T) {
	e := newTestEngine(t, Config{HistoryCapacity: 3, AnalyticsWindow: 3})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := e.Process(ctx, rawWithPerformance("a", float64(i), 0))
		require.NoError(t, err)
	}

	analytics := e.Analytics()
	assert.Equal(t, 3, analytics.TotalExperiences)
	// Only the three most recent performances (2, 3, 4) remain.
	assert.InDelta(t, 3.0, analytics.Performance.Mean, 1e-12)
	assert.InDelta(t, 2.0, analytics.Performance.Min, 1e-12)
	assert.InDelta(t, 4.0, analytics.Performance.Max, 1e-12)

	assert.Equal(t, uint64(5), analytics.Iteration)
}

func TestAnalyticsEmptyEngine(t *testing.T) {
	e := newTestEngine(t, Config{})

	analytics := e.Analytics()
	assert.Equal(t, 0, analytics.TotalExperiences)
	assert.Equal(t, uint64(0), analytics.Iteration)
	assert.Equal(t, strategy.KindGradient, analytics.Strategy)
	assert.Equal(t, experience.Summary{}, analytics.Performance)
	assert.Equal(t, experience.Summary{}, analytics.Confidence)
	assert.Equal(t, 0.0, analytics.RL.PolicyStrength)
	assert.Equal(t, 0.1, analytics.RL.Epsilon)
}

func TestAnalyticsWindowsLastN(t *testing.T) {
	e := newTestEngine(t, Config{AnalyticsWindow: 2})
	ctx := context.Background()

	for _, p := range []float64{0.1, 0.2, 0.9} {
		_, err := e.Process(ctx, rawWithPerformance("a", p, 0))
		require.NoError(t, err)
	}

	analytics := e.Analytics()
	assert.Equal(t, 3, analytics.TotalExperiences)
	assert.InDelta(t, 0.55, analytics.Performance.Mean, 1e-12, "window covers the last two only")
}

func TestSetStrategySwitchesDispatch(t *testing.T) {
	e := newTestEngine(t, Config{})
	ctx := context.Background()

	require.NoError(t, e.SetStrategy(strategy.KindBayesian))
	assert.Equal(t, strategy.KindBayesian, e.ActiveStrategy())

	result, err := e.Process(ctx, rawWithPerformance("a", 0.4, 0))
	require.NoError(t, err)
	assert.Equal(t, strategy.KindBayesian, result.Strategy)
	assert.Equal(t, 1, result.Report.Observations)
	assert.Equal(t, 0.4, result.Report.BestScore)
}

func TestSetStrategyRejectsUnknownKind(t *testing.T) {
	e := newTestEngine(t, Config{})
	assert.Error(t, e.SetStrategy(strategy.Kind("annealing")))
	assert.Equal(t, strategy.KindGradient, e.ActiveStrategy())
}

func TestNewRejectsUnknownInitialStrategy(t *testing.T) {
	_, err := New(Config{InitialStrategy: strategy.Kind("annealing")})
	assert.Error(t, err)
}

func TestProposeParametersWithinBayesianBounds(t *testing.T) {
	e := newTestEngine(t, Config{InitialStrategy: strategy.KindBayesian})
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := e.Process(ctx, experience.Raw{
			ActionTaken: "tune",
			Context: map[string]any{
				"parameters": map[string]any{"learning_rate": 0.05, "confidence_threshold": 0.8},
			},
			Outcome: experience.Outcome{Performance: float64(i)},
		})
		require.NoError(t, err)
	}

	for i := 0; i < 100; i++ {
		params := e.ProposeParameters()
		require.Contains(t, params, "learning_rate")
		require.Contains(t, params, "confidence_threshold")
		assert.GreaterOrEqual(t, params["learning_rate"], 0.001)
		assert.LessOrEqual(t, params["learning_rate"], 0.1)
		assert.GreaterOrEqual(t, params["confidence_threshold"], 0.5)
		assert.LessOrEqual(t, params["confidence_threshold"], 0.95)
	}
}

func TestProposeParametersGradient(t *testing.T) {
	e := newTestEngine(t, Config{LearningRate: 0.02})
	assert.Equal(t, map[string]float64{"learning_rate": 0.02}, e.ProposeParameters())
}

// failingAgent always rejects updates, exercising the isolation contract.
type failingAgent struct{}

func (failingAgent) ActionIndex(string) int { return 0 }
func (failingAgent) Update(map[string]any, int, float64, map[string]any, bool) error {
	return errors.New("q-table unavailable")
}
func (failingAgent) PolicyStrength() float64 { return 0 }
func (failingAgent) Epsilon() float64        { return 0 }

func TestAgentFailureIsIsolated(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	e := newTestEngine(t, Config{}, WithAgent(failingAgent{}), WithLogger(logger))

	result, err := e.Process(context.Background(), rawWithPerformance("a", 0.5, 1))
	require.NoError(t, err, "agent failure must not fail the call")

	assert.Equal(t, uint64(1), result.Iteration)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "rl agent update failed")
}

// failingJournal always rejects appends.
type failingJournal struct{}

func (failingJournal) Append(context.Context, experience.Experience) error {
	return errors.New("redis down")
}

func TestJournalFailureIsIsolated(t *testing.T) {
	e := newTestEngine(t, Config{}, WithJournal(failingJournal{}))

	result, err := e.Process(context.Background(), rawWithPerformance("a", 0.5, 1))
	require.NoError(t, err)

	assert.Equal(t, uint64(1), result.Iteration)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "journal append failed")
}

// recordingJournal captures appended experiences.
type recordingJournal struct {
	entries []experience.Experience
}

func (r *recordingJournal) Append(_ context.Context, exp experience.Experience) error {
	r.entries = append(r.entries, exp)
	return nil
}

func TestJournalReceivesProcessedExperiences(t *testing.T) {
	j := &recordingJournal{}
	e := newTestEngine(t, Config{}, WithJournal(j))

	_, err := e.Process(context.Background(), rawWithPerformance("hold", 0.3, 0.5))
	require.NoError(t, err)

	require.Len(t, j.entries, 1)
	assert.Equal(t, "hold", j.entries[0].ActionTaken)
}

// rejectAll is an admission rule that admits nothing.
type rejectAll struct{}

func (rejectAll) Admit(experience.Experience) (bool, error) { return false, nil }

func TestAdmissionRejectionLeavesStateUntouched(t *testing.T) {
	e := newTestEngine(t, Config{}, WithAdmissionRule(rejectAll{}))

	result, err := e.Process(context.Background(), rawWithPerformance("a", 0.9, 1))
	require.NoError(t, err)

	assert.False(t, result.Admitted)
	assert.Equal(t, uint64(0), e.Iteration())
	assert.Equal(t, 0, e.Analytics().TotalExperiences)
	assert.Empty(t, e.Metric("overall"))
}

// errorRule is an admission rule whose evaluation fails.
type errorRule struct{}

func (errorRule) Admit(experience.Experience) (bool, error) {
	return false, errors.New("bad rule")
}

func TestAdmissionErrorFailsCall(t *testing.T) {
	e := newTestEngine(t, Config{}, WithAdmissionRule(errorRule{}))

	_, err := e.Process(context.Background(), rawWithPerformance("a", 0.9, 1))
	require.Error(t, err)
	assert.Equal(t, uint64(0), e.Iteration())
}

func TestWithClockStampsExperiences(t *testing.T) {
	fixed := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	e := newTestEngine(t, Config{}, WithClock(func() time.Time { return fixed }))

	result, err := e.Process(context.Background(), rawWithPerformance("a", 0.1, 0))
	require.NoError(t, err)
	assert.Equal(t, fixed, result.Timestamp)

	points := e.Metric("overall")
	require.Len(t, points, 1)
	assert.Equal(t, fixed, points[0].Timestamp)
	assert.Equal(t, 0.1, points[0].Value)
}

func TestMetricSeriesAppendOnly(t *testing.T) {
	e := newTestEngine(t, Config{})
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := e.Process(ctx, rawWithPerformance("a", float64(i)/10, 0))
		require.NoError(t, err)
	}

	points := e.Metric("overall")
	require.Len(t, points, 4)
	for i := 1; i < len(points); i++ {
		assert.InDelta(t, float64(i)/10, points[i].Value, 1e-12)
	}
}

func TestProcessConcurrentCallersSerialize(t *testing.T) {
	e := newTestEngine(t, Config{})
	ctx := context.Background()

	const n = 50
	done := make(chan error, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			_, err := e.Process(ctx, rawWithPerformance(fmt.Sprintf("a%d", i%3), float64(i)/n, 0))
			done <- err
		}(i)
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-done)
	}

	assert.Equal(t, uint64(n), e.Iteration())
	assert.Equal(t, n, e.Analytics().TotalExperiences)
}

// testWriter adapts t.Log for slog output.
type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}
