package learning

import (
	"context"
	"errors"
	"fmt"

	"github.com/xmrt-ecosystem/learning/admission"
	"github.com/xmrt-ecosystem/learning/engine"
	"github.com/xmrt-ecosystem/learning/experience"
	"github.com/xmrt-ecosystem/learning/qlearn"
)

// Action selects the operation a Request performs.
type Action string

const (
	// ActionLearn submits one experience for learning.
	ActionLearn Action = "learn"

	// ActionAnalytics requests a read-only analytics snapshot.
	ActionAnalytics Action = "analytics"
)

// Request is the action-tagged envelope the handler dispatches on.
type Request struct {
	// Action selects the operation. Unknown actions produce a structured
	// failure response, never an error that aborts the caller.
	Action Action `json:"action" yaml:"action"`

	// Experience is the event to learn from. Required for ActionLearn.
	Experience *experience.Raw `json:"experience,omitempty" yaml:"experience,omitempty"`
}

// Response is the structured outcome of a request. Success is false when the
// operation failed, with Error holding the reason; exactly one of Learn and
// Analytics is populated on success.
type Response struct {
	Success   bool              `json:"success" yaml:"success"`
	Error     string            `json:"error,omitempty" yaml:"error,omitempty"`
	Learn     *engine.Result    `json:"learn,omitempty" yaml:"learn,omitempty"`
	Analytics *engine.Analytics `json:"analytics,omitempty" yaml:"analytics,omitempty"`
}

// Handler owns one engine instance and serves requests against it. Construct
// with NewHandler; the instance persists for as long as the caller keeps it,
// there is no package-level singleton.
type Handler struct {
	engine *engine.Engine
}

// NewHandler builds the engine described by cfg and wraps it in a request
// handler. Additional engine options (journal, logger, OTel, admission rule
// objects) are passed through; an AdmissionRule expression in cfg is
// compiled here.
func NewHandler(cfg Config, opts ...engine.Option) (*Handler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.AdmissionRule != "" {
		rule, err := admission.NewRule(cfg.AdmissionRule)
		if err != nil {
			return nil, NewConfigurationError("NewHandler", err)
		}
		opts = append(opts, engine.WithAdmissionRule(rule))
	}

	eng, err := engine.New(cfg.engineConfig(), opts...)
	if err != nil {
		if errors.Is(err, qlearn.ErrInvalidConfig) {
			return nil, NewAgentError("NewHandler", err)
		}
		return nil, NewConfigurationError("NewHandler", err)
	}

	return &Handler{engine: eng}, nil
}

// Engine exposes the underlying engine for callers that outgrow the request
// envelope.
func (h *Handler) Engine() *engine.Engine {
	return h.engine
}

// Handle dispatches one request. It never returns an error: failures are
// reported in the response with Success set to false.
func (h *Handler) Handle(ctx context.Context, req Request) Response {
	switch req.Action {
	case ActionLearn:
		return h.learn(ctx, req)
	case ActionAnalytics:
		snapshot := h.engine.Analytics()
		return Response{Success: true, Analytics: &snapshot}
	default:
		return Response{
			Success: false,
			Error:   fmt.Sprintf("%v: %q", ErrUnknownAction, req.Action),
		}
	}
}

func (h *Handler) learn(ctx context.Context, req Request) Response {
	raw := experience.Raw{}
	if req.Experience != nil {
		raw = *req.Experience
	}

	result, err := h.engine.Process(ctx, raw)
	if err != nil {
		return Response{Success: false, Error: classifyProcessError(err).Error()}
	}
	return Response{Success: true, Learn: &result}
}

// classifyProcessError maps an engine failure onto the error taxonomy so the
// response carries the failure category alongside the cause.
func classifyProcessError(err error) error {
	const op = "Handler.Handle"
	switch {
	case errors.Is(err, ErrInvalidExperience):
		return NewValidationError(op, err)
	case errors.Is(err, ErrStrategyUpdate):
		return NewStrategyError(op, err)
	default:
		return NewInternalError(op, err)
	}
}
