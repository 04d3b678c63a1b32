package admission

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/xmrt-ecosystem/learning/experience"
)

// Rule is a compiled admission expression. Rules are immutable and safe for
// concurrent use once built.
type Rule struct {
	expr string
	prg  cel.Program
}

// NewRule compiles a CEL expression into an admission rule. The expression
// must evaluate to a boolean and may reference:
//
//	reward      (double) the experience's reward
//	confidence  (double) the experience's confidence
//	performance (double) the outcome's performance value
//	action      (string) the action taken
func NewRule(expr string) (*Rule, error) {
	env, err := cel.NewEnv(
		cel.Variable("reward", cel.DoubleType),
		cel.Variable("confidence", cel.DoubleType),
		cel.Variable("performance", cel.DoubleType),
		cel.Variable("action", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("admission: build environment: %w", err)
	}

	ast, iss := env.Compile(expr)
	if iss.Err() != nil {
		return nil, fmt.Errorf("admission: compile rule %q: %w", expr, iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("admission: rule %q must evaluate to bool, got %v", expr, ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("admission: build program for %q: %w", expr, err)
	}

	return &Rule{expr: expr, prg: prg}, nil
}

// Expression returns the source expression the rule was compiled from.
func (r *Rule) Expression() string {
	return r.expr
}

// Admit evaluates the rule against the experience and reports whether it
// should be learned from.
func (r *Rule) Admit(exp experience.Experience) (bool, error) {
	out, _, err := r.prg.Eval(map[string]any{
		"reward":      exp.Reward,
		"confidence":  exp.Confidence,
		"performance": exp.Outcome.Performance,
		"action":      exp.ActionTaken,
	})
	if err != nil {
		return false, fmt.Errorf("admission: evaluate rule %q: %w", r.expr, err)
	}

	admitted, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("admission: rule %q produced %T, want bool", r.expr, out.Value())
	}
	return admitted, nil
}
