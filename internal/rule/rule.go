package rule

import (
	"fmt"

	"github.com/vk/surveynav/internal/expr"
	"github.com/vk/surveynav/internal/qindex"
	"github.com/vk/surveynav/internal/qref"
)

const (
	// DefaultPriority is the priority of the implicit rule installed for
	// every question. It is lower than any user rule.
	DefaultPriority = -1

	// DefaultExpression always evaluates true.
	DefaultExpression = "True"
)

// Record is the plain form of a rule, used for construction and
// serialization.
type Record struct {
	CurrentQ   int           `json:"current_q"`
	Expression string        `json:"expression"`
	NextQ      qindex.Target `json:"next_q"`
	Priority   int           `json:"priority"`
	BeforeRule bool          `json:"before_rule"`
}

// Rule is one validated conditional transition. Rules are immutable once
// constructed.
type Rule struct {
	currentQ   int
	expression *expr.Expression
	nextQ      qindex.Target
	priority   int
	beforeRule bool
}

// New validates rec and returns the rule. nameToIndex is consulted to reject
// references to later questions; it is not retained. Names absent from the
// table are not checked here; Collection.AppendQuestion rejects a question
// that an existing rule already reads.
func New(rec Record, nameToIndex map[string]int) (*Rule, error) {
	if rec.CurrentQ < 0 {
		return nil, fmt.Errorf("%w: question index must not be negative, got %d", ErrInvalidRule, rec.CurrentQ)
	}
	if !rec.NextQ.After(rec.CurrentQ) {
		return nil, &BackwardNavigationError{CurrentQ: rec.CurrentQ, NextQ: rec.NextQ}
	}

	compiled, err := expr.Compile(rec.Expression)
	if err != nil {
		return nil, err
	}

	refs := append(append([]qref.Ref{}, compiled.References()...), compiled.BareReferences()...)
	for _, ref := range refs {
		if !ref.IsQuestion() {
			continue
		}
		idx, ok := nameToIndex[ref.Root()]
		if !ok {
			continue
		}
		if idx > rec.CurrentQ {
			return nil, &FutureReferenceError{
				CurrentQ:      rec.CurrentQ,
				Expression:    rec.Expression,
				Question:      ref.Root(),
				QuestionIndex: idx,
			}
		}
	}

	return &Rule{
		currentQ:   rec.CurrentQ,
		expression: compiled,
		nextQ:      rec.NextQ,
		priority:   rec.Priority,
		beforeRule: rec.BeforeRule,
	}, nil
}

// references reports whether the expression reads the named question.
func (r *Rule) references(name string) bool {
	for _, refs := range [][]qref.Ref{r.expression.References(), r.expression.BareReferences()} {
		for _, ref := range refs {
			if ref.IsQuestion() && ref.Root() == name {
				return true
			}
		}
	}
	return false
}

// Default returns the implicit rule that advances from q to q+1.
func Default(q int) *Rule {
	return &Rule{
		currentQ:   q,
		expression: expr.MustCompile(DefaultExpression),
		nextQ:      qindex.At(q + 1),
		priority:   DefaultPriority,
	}
}

func (r *Rule) CurrentQ() int              { return r.currentQ }
func (r *Rule) Expression() string         { return r.expression.String() }
func (r *Rule) Compiled() *expr.Expression { return r.expression }
func (r *Rule) NextQ() qindex.Target       { return r.nextQ }
func (r *Rule) Priority() int              { return r.priority }
func (r *Rule) BeforeRule() bool           { return r.beforeRule }

// Legacy reports whether the expression still uses bare question names.
func (r *Rule) Legacy() bool { return r.expression.Legacy() }

// IsDefault reports whether r is an implicit after-rule.
func (r *Rule) IsDefault() bool {
	return !r.beforeRule && r.priority <= DefaultPriority
}

// Evaluate evaluates the rule's expression against answers.
func (r *Rule) Evaluate(answers map[string]any, opts ...expr.EvalOption) (bool, error) {
	return r.expression.Evaluate(answers, opts...)
}

// Record returns the plain form of r.
func (r *Rule) Record() Record {
	return Record{
		CurrentQ:   r.currentQ,
		Expression: r.expression.String(),
		NextQ:      r.nextQ,
		Priority:   r.priority,
		BeforeRule: r.beforeRule,
	}
}

func (r *Rule) String() string {
	phase := "after"
	if r.beforeRule {
		phase = "before"
	}
	return fmt.Sprintf("Rule(q=%d, %s, %q -> %s, priority=%d)", r.currentQ, phase, r.expression.String(), r.nextQ, r.priority)
}
