package rule

import (
	"errors"
	"fmt"

	"github.com/vk/surveynav/internal/dag"
	"github.com/vk/surveynav/internal/qindex"
)

// Sentinel errors for programmatic error checking via errors.Is().
var (
	// ErrInvalidRule indicates a rule that does not fit its collection,
	// such as a question index outside the survey.
	ErrInvalidRule = errors.New("invalid rule")

	// ErrBackwardNavigation indicates a rule whose target is not after its question.
	ErrBackwardNavigation = errors.New("backward navigation")

	// ErrFutureReference indicates an expression reading a later question.
	ErrFutureReference = errors.New("future reference")

	// ErrNoRuleAtNode indicates that navigation reached a question without a
	// usable after-rule.
	ErrNoRuleAtNode = errors.New("no rule at node")

	// ErrCycle indicates a cycle in the rule dependency graph.
	ErrCycle = dag.ErrCycle
)

// BackwardNavigationError is returned when a rule jumps to its own question
// or an earlier one.
// Wraps ErrBackwardNavigation for errors.Is() compatibility.
type BackwardNavigationError struct {
	CurrentQ int
	NextQ    qindex.Target
}

func (e *BackwardNavigationError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: rule at question %d cannot target question %s", ErrBackwardNavigation.Error(), e.CurrentQ, e.NextQ)
}

func (e *BackwardNavigationError) Unwrap() error { return ErrBackwardNavigation }

// FutureReferenceError is returned when a rule's expression reads a
// question that comes after the rule's own question.
// Wraps ErrFutureReference for errors.Is() compatibility.
type FutureReferenceError struct {
	CurrentQ      int
	Expression    string
	Question      string
	QuestionIndex int
}

func (e *FutureReferenceError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: rule at question %d references %q (question %d) in %q",
		ErrFutureReference.Error(), e.CurrentQ, e.Question, e.QuestionIndex, e.Expression)
}

func (e *FutureReferenceError) Unwrap() error { return ErrFutureReference }

// NoRuleAtNodeError is returned when navigation cannot pick a next question.
// RulesFound is zero when the question has no after-rules at all, otherwise
// it counts the rules that all evaluated false.
// Wraps ErrNoRuleAtNode for errors.Is() compatibility.
type NoRuleAtNodeError struct {
	Question   int
	RulesFound int
}

func (e *NoRuleAtNodeError) Error() string {
	if e == nil {
		return ""
	}
	if e.RulesFound == 0 {
		return fmt.Sprintf("%s: question %d has no after-rules", ErrNoRuleAtNode.Error(), e.Question)
	}
	return fmt.Sprintf("%s: none of the %d after-rules at question %d evaluated true", ErrNoRuleAtNode.Error(), e.RulesFound, e.Question)
}

func (e *NoRuleAtNodeError) Unwrap() error { return ErrNoRuleAtNode }
