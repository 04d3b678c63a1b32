package learning

import (
	"errors"
	"fmt"

	"github.com/xmrt-ecosystem/learning/engine"
)

// Sentinel errors for common failure conditions. Use with errors.Is.
var (
	// ErrUnknownAction indicates a request carried an action outside the
	// supported set.
	ErrUnknownAction = errors.New("unknown action")

	// ErrInvalidExperience indicates the submitted experience could not be
	// constructed. Errors returned by Engine.Process for a malformed
	// experience match it.
	ErrInvalidExperience = engine.ErrInvalidExperience

	// ErrInvalidConfig indicates the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrStrategyUpdate indicates the active strategy failed to fold in an
	// observation. Errors returned by Engine.Process for a failed dispatch
	// match it.
	ErrStrategyUpdate = engine.ErrStrategyUpdate
)

// Error kinds categorize errors by their type.
const (
	// KindValidation represents errors related to input validation.
	KindValidation = "validation"

	// KindStrategy represents errors raised during strategy dispatch.
	KindStrategy = "strategy"

	// KindAgent represents errors from the reinforcement-learning agent.
	KindAgent = "agent"

	// KindConfiguration represents errors related to configuration.
	KindConfiguration = "configuration"

	// KindInternal represents internal engine errors.
	KindInternal = "internal"
)

// Error is a structured error wrapping an underlying cause with the
// operation that failed and the category of failure. It supports error
// unwrapping, making it compatible with errors.Is and errors.As.
type Error struct {
	// Op is the operation that failed (e.g., "Handler.Handle",
	// "Engine.Process").
	Op string

	// Kind categorizes the error (e.g., KindValidation, KindStrategy).
	Kind string

	// Err is the underlying error that caused this error.
	Err error

	// Context provides additional detail about the error (optional).
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("learning: %s: %s", e.Op, e.Kind)
	}

	if len(e.Context) > 0 {
		return fmt.Sprintf("learning: %s (%s): %v [context: %+v]", e.Op, e.Kind, e.Err, e.Context)
	}

	return fmt.Sprintf("learning: %s (%s): %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches either another *Error with the same Kind (and Op, when the
// target specifies one) or the underlying error chain.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}

	if t, ok := target.(*Error); ok {
		if t.Kind != "" && e.Kind == t.Kind {
			if t.Op == "" || e.Op == t.Op {
				return true
			}
		}
	}

	return errors.Is(e.Err, target)
}

// WithContext returns a copy of the error with the provided context merged in.
func (e *Error) WithContext(ctx map[string]any) *Error {
	out := *e
	if out.Context == nil {
		out.Context = make(map[string]any, len(ctx))
	}
	for k, v := range ctx {
		out.Context[k] = v
	}
	return &out
}

// NewValidationError creates an Error with KindValidation.
func NewValidationError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindValidation, Err: err}
}

// NewStrategyError creates an Error with KindStrategy.
func NewStrategyError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindStrategy, Err: err}
}

// NewAgentError creates an Error with KindAgent.
func NewAgentError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindAgent, Err: err}
}

// NewConfigurationError creates an Error with KindConfiguration.
func NewConfigurationError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindConfiguration, Err: err}
}

// NewInternalError creates an Error with KindInternal.
func NewInternalError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindInternal, Err: err}
}
