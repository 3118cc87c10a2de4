package expr

import (
	"errors"
	"fmt"
)

// Sentinel errors for programmatic error checking via errors.Is().
var (
	// ErrExpressionSyntax indicates a malformed expression or a disallowed construct.
	ErrExpressionSyntax = errors.New("expression syntax error")

	// ErrEvaluation indicates a failure while substituting or evaluating an expression.
	ErrEvaluation = errors.New("expression evaluation error")
)

// SyntaxError is returned when an expression cannot be compiled.
// Wraps ErrExpressionSyntax for errors.Is() compatibility.
type SyntaxError struct {
	Expression string
	Msg        string
}

func (e *SyntaxError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s in %q", ErrExpressionSyntax.Error(), e.Msg, e.Expression)
}

func (e *SyntaxError) Unwrap() error { return ErrExpressionSyntax }

// EvaluationError carries everything needed to diagnose a runtime failure:
// the original expression, the environment it was evaluated against and the
// text produced by the template pass.
// Wraps ErrEvaluation for errors.Is() compatibility.
type EvaluationError struct {
	Expression  string
	Environment map[string]any
	Rendered    string
	Err         error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("%s: cannot evaluate %q", ErrEvaluation.Error(), e.Expression)
	if e.Rendered != "" {
		msg += fmt.Sprintf(" (rendered as %q)", e.Rendered)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *EvaluationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrEvaluation}
	}
	return []error{ErrEvaluation, e.Err}
}
