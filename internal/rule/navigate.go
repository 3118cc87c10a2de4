package rule

import (
	"fmt"

	"github.com/vk/surveynav/internal/expr"
	"github.com/vk/surveynav/internal/qindex"
)

// Decision is the outcome of resolving the after-rules at one question,
// before any skip logic is applied to the target.
type Decision struct {
	Next                      qindex.Target
	NumRulesFound             int
	ExpressionsEvaluatingTrue int
	Priority                  int
}

// Resolve evaluates every after-rule at q and picks the true rule with the
// highest priority. Among true rules of equal priority the one added last
// wins. Evaluation errors are returned, never treated as false.
func (c *Collection) Resolve(q int, answers map[string]any, opts ...expr.EvalOption) (Decision, error) {
	if q < 0 || q >= len(c.names) {
		return Decision{}, fmt.Errorf("%w: question index %d is outside a survey of %d questions", ErrInvalidRule, q, len(c.names))
	}

	applicable := c.ApplicableRules(q, false)
	if len(applicable) == 0 {
		return Decision{}, &NoRuleAtNodeError{Question: q}
	}

	var winner *Rule
	numTrue := 0
	for _, r := range applicable {
		ok, err := r.Evaluate(answers, opts...)
		if err != nil {
			return Decision{}, fmt.Errorf("rule at question %d: %w", q, err)
		}
		if !ok {
			continue
		}
		numTrue++
		if winner != nil && r.priority == winner.priority {
			c.logger.Warn("Equal-priority rules both evaluated true; the later rule wins.",
				"question", q,
				"priority", r.priority,
				"earlier", winner.Expression(),
				"later", r.Expression(),
			)
		}
		if winner == nil || r.priority >= winner.priority {
			winner = r
		}
	}

	if winner == nil {
		return Decision{}, &NoRuleAtNodeError{Question: q, RulesFound: len(applicable)}
	}

	return Decision{
		Next:                      winner.nextQ,
		NumRulesFound:             len(applicable),
		ExpressionsEvaluatingTrue: numTrue,
		Priority:                  winner.priority,
	}, nil
}

// ShouldSkip reports whether any before-rule at q evaluates true.
func (c *Collection) ShouldSkip(q int, answers map[string]any, opts ...expr.EvalOption) (bool, error) {
	for _, r := range c.ApplicableRules(q, true) {
		ok, err := r.Evaluate(answers, opts...)
		if err != nil {
			return false, fmt.Errorf("skip rule at question %d: %w", q, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// NextQuestion returns the question to present after q. If the chosen
// target is skipped by its before-rules, navigation continues from the
// target as if it had been answered, until a question that is not skipped
// or EndOfSurvey is reached.
func (c *Collection) NextQuestion(q int, answers map[string]any, opts ...expr.EvalOption) (qindex.Target, error) {
	dec, err := c.Resolve(q, answers, opts...)
	if err != nil {
		return qindex.Target{}, err
	}
	next := dec.Next.Clamp(len(c.names))

	for {
		idx, ok := next.Index()
		if !ok {
			return next, nil
		}
		skip, err := c.ShouldSkip(idx, answers, opts...)
		if err != nil {
			return qindex.Target{}, err
		}
		if !skip {
			return next, nil
		}
		c.logger.Debug("Skipping question.", "question", idx)

		dec, err = c.Resolve(idx, answers, opts...)
		if err != nil {
			return qindex.Target{}, err
		}
		next = dec.Next.Clamp(len(c.names))
	}
}

// FirstQuestion returns the first question to present, applying the
// before-rules of question 0.
func (c *Collection) FirstQuestion(answers map[string]any, opts ...expr.EvalOption) (qindex.Target, error) {
	if len(c.names) == 0 {
		return qindex.EndOfSurvey, nil
	}
	skip, err := c.ShouldSkip(0, answers, opts...)
	if err != nil {
		return qindex.Target{}, err
	}
	if !skip {
		return qindex.At(0), nil
	}
	c.logger.Debug("Skipping question.", "question", 0)
	return c.NextQuestion(0, answers, opts...)
}
