package experience

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultConfidence is assigned when the caller does not report a confidence
// value for an experience.
const DefaultConfidence = 0.5

// Outcome describes what happened after an action was taken. The fields the
// learning engine interprets are typed; anything else the caller reports is
// preserved in Extra so unknown fields pass through unmodified.
type Outcome struct {
	// Performance is the scalar performance measurement for this outcome.
	// It drives strategy adaptation and the engine's improvement tracking.
	Performance float64 `json:"performance" yaml:"performance"`

	// Gradients carries named scalar gradients for the gradient strategy.
	// Absent entries are simply not updated.
	Gradients map[string]float64 `json:"gradients,omitempty" yaml:"gradients,omitempty"`

	// NextState is the context observed after the action, used as the
	// successor state for the Q-learning update. May be empty.
	NextState map[string]any `json:"next_state,omitempty" yaml:"next_state,omitempty"`

	// EpisodeDone marks the outcome as terminal for the Q-learning update.
	EpisodeDone bool `json:"episode_done,omitempty" yaml:"episode_done,omitempty"`

	// Extra holds any outcome fields the engine does not interpret.
	Extra map[string]any `json:"-" yaml:"-"`
}

// outcomeKnownKeys are the Outcome fields decoded into typed struct fields.
var outcomeKnownKeys = map[string]bool{
	"performance":  true,
	"gradients":    true,
	"next_state":   true,
	"episode_done": true,
}

// UnmarshalJSON decodes the known outcome fields into their typed slots and
// collects everything else into Extra.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	type known struct {
		Performance float64            `json:"performance"`
		Gradients   map[string]float64 `json:"gradients"`
		NextState   map[string]any     `json:"next_state"`
		EpisodeDone bool               `json:"episode_done"`
	}

	var k known
	if err := json.Unmarshal(data, &k); err != nil {
		return fmt.Errorf("decode outcome: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode outcome: %w", err)
	}

	o.Performance = k.Performance
	o.Gradients = k.Gradients
	o.NextState = k.NextState
	o.EpisodeDone = k.EpisodeDone

	o.Extra = nil
	for key, val := range raw {
		if outcomeKnownKeys[key] {
			continue
		}
		if o.Extra == nil {
			o.Extra = make(map[string]any)
		}
		o.Extra[key] = val
	}

	return nil
}

// MarshalJSON emits the typed fields merged with the pass-through Extra map.
// Typed fields win on key collision.
func (o Outcome) MarshalJSON() ([]byte, error) {
	merged := make(map[string]any, len(o.Extra)+4)
	for key, val := range o.Extra {
		merged[key] = val
	}
	merged["performance"] = o.Performance
	if len(o.Gradients) > 0 {
		merged["gradients"] = o.Gradients
	}
	if len(o.NextState) > 0 {
		merged["next_state"] = o.NextState
	}
	if o.EpisodeDone {
		merged["episode_done"] = o.EpisodeDone
	}
	return json.Marshal(merged)
}

// Raw is the caller-supplied form of a learning event. Every field except
// the action and reward is optional; New fills in defaults for the rest.
type Raw struct {
	// Timestamp is when the event occurred. Zero means "now".
	Timestamp time.Time `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`

	// Context is the situation the action was taken in.
	Context map[string]any `json:"context,omitempty" yaml:"context,omitempty"`

	// ActionTaken names the action that produced the outcome.
	ActionTaken string `json:"action_taken" yaml:"action_taken"`

	// Outcome is the observed result of the action.
	Outcome Outcome `json:"outcome" yaml:"outcome"`

	// Reward is the scalar reinforcement signal for the action.
	Reward float64 `json:"reward" yaml:"reward"`

	// Confidence is the caller's confidence in the observation, in [0, 1].
	// Nil defaults to DefaultConfidence.
	Confidence *float64 `json:"confidence,omitempty" yaml:"confidence,omitempty"`

	// Metadata carries additional uninterpreted information.
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Experience is one immutable learning event. Construct with New; do not
// mutate after construction.
type Experience struct {
	// ID uniquely identifies this record.
	ID string `json:"id" yaml:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`

	// Context is the situation the action was taken in.
	Context map[string]any `json:"context,omitempty" yaml:"context,omitempty"`

	// ActionTaken names the action that produced the outcome.
	ActionTaken string `json:"action_taken" yaml:"action_taken"`

	// Outcome is the observed result of the action.
	Outcome Outcome `json:"outcome" yaml:"outcome"`

	// Reward is the scalar reinforcement signal for the action.
	Reward float64 `json:"reward" yaml:"reward"`

	// Confidence is the confidence in the observation, in [0, 1].
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// Metadata carries additional uninterpreted information.
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// New builds an Experience from raw input, defaulting the timestamp to the
// current time. Equivalent to NewAt(raw, time.Now()).
func New(raw Raw) (Experience, error) {
	return NewAt(raw, time.Now())
}

// NewAt builds an Experience from raw input using now for a missing
// timestamp. Missing fields default rather than fail: empty context and
// metadata maps are allocated, and a nil confidence becomes
// DefaultConfidence. A reported confidence outside [0, 1] is the one input
// shape that is rejected.
func NewAt(raw Raw, now time.Time) (Experience, error) {
	confidence := DefaultConfidence
	if raw.Confidence != nil {
		confidence = *raw.Confidence
		if confidence < 0 || confidence > 1 {
			return Experience{}, fmt.Errorf("experience: confidence %v outside [0, 1]", confidence)
		}
	}

	ts := raw.Timestamp
	if ts.IsZero() {
		ts = now
	}

	ctx := raw.Context
	if ctx == nil {
		ctx = map[string]any{}
	}
	meta := raw.Metadata
	if meta == nil {
		meta = map[string]any{}
	}

	return Experience{
		ID:          uuid.NewString(),
		Timestamp:   ts,
		Context:     ctx,
		ActionTaken: raw.ActionTaken,
		Outcome:     raw.Outcome,
		Reward:      raw.Reward,
		Confidence:  confidence,
		Metadata:    meta,
	}, nil
}
