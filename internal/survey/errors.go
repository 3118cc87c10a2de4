package survey

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for programmatic error checking via errors.Is().
var (
	// ErrUnknownQuestion indicates a question name or index that is not in the survey.
	ErrUnknownQuestion = errors.New("unknown question")

	// ErrForwardPiping indicates question text piping in a later question's answer.
	ErrForwardPiping = errors.New("forward piping reference")
)

// PipingViolation is one question referencing a question at or after itself.
type PipingViolation struct {
	Question        string
	QuestionIndex   int
	Reference       string
	ReferencedIndex int
}

func (v PipingViolation) String() string {
	return fmt.Sprintf("%s (question %d) references %s (question %d)", v.Question, v.QuestionIndex, v.Reference, v.ReferencedIndex)
}

// ForwardPipingError lists every forward piping reference in the survey.
// Wraps ErrForwardPiping for errors.Is() compatibility.
type ForwardPipingError struct {
	Violations []PipingViolation
}

func (e *ForwardPipingError) Error() string {
	if e == nil {
		return ""
	}
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	return fmt.Sprintf("%s: %d found: %s", ErrForwardPiping.Error(), len(e.Violations), strings.Join(parts, "; "))
}

func (e *ForwardPipingError) Unwrap() error { return ErrForwardPiping }
