package rule

import (
	"fmt"
	"log/slog"

	"github.com/vk/surveynav/internal/qindex"
)

// Collection is the ordered set of rules for one survey. It owns the single
// question name -> index table; rules never hold a copy of it.
//
// A Collection is mutated only through its Add methods and is read-only
// during navigation, so one instance may be shared by concurrent sessions
// as long as no mutation happens at the same time.
type Collection struct {
	rules       []*Rule
	names       []string
	nameToIndex map[string]int
	logger      *slog.Logger
}

// Option configures a Collection.
type Option func(*Collection)

// WithLogger sets the logger used for ties and legacy migrations.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Collection) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCollection returns an empty collection for the given question names,
// in survey order. No rules are installed; see AddDefaultRules.
func NewCollection(questionNames []string, opts ...Option) (*Collection, error) {
	c := &Collection{
		nameToIndex: make(map[string]int, len(questionNames)),
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	for _, name := range questionNames {
		if _, err := c.AppendQuestion(name); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// AppendQuestion registers a new question at the end of the survey and
// returns its index. It does not install the default rule. A rule already
// reading name would then read a later question, so it is an error.
func (c *Collection) AppendQuestion(name string) (int, error) {
	if name == "" {
		return 0, fmt.Errorf("%w: question name must not be empty", ErrInvalidRule)
	}
	if _, ok := c.nameToIndex[name]; ok {
		return 0, fmt.Errorf("%w: duplicate question name %q", ErrInvalidRule, name)
	}
	idx := len(c.names)
	for _, r := range c.rules {
		if r.references(name) {
			return 0, &FutureReferenceError{
				CurrentQ:      r.currentQ,
				Expression:    r.expression.String(),
				Question:      name,
				QuestionIndex: idx,
			}
		}
	}
	c.names = append(c.names, name)
	c.nameToIndex[name] = idx
	return idx, nil
}

// NumQuestions returns the number of questions the collection covers.
func (c *Collection) NumQuestions() int { return len(c.names) }

// QuestionNames returns the question names in survey order.
func (c *Collection) QuestionNames() []string {
	return append([]string(nil), c.names...)
}

// IndexOf returns the index of the named question.
func (c *Collection) IndexOf(name string) (int, bool) {
	idx, ok := c.nameToIndex[name]
	return idx, ok
}

// NameToIndex returns a copy of the name table.
func (c *Collection) NameToIndex() map[string]int {
	out := make(map[string]int, len(c.nameToIndex))
	for k, v := range c.nameToIndex {
		out[k] = v
	}
	return out
}

// Len returns the number of rules.
func (c *Collection) Len() int { return len(c.rules) }

// Rules returns the rules in insertion order.
func (c *Collection) Rules() []*Rule {
	return append([]*Rule(nil), c.rules...)
}

// NewRule validates rec against the collection's name table without adding it.
func (c *Collection) NewRule(rec Record) (*Rule, error) {
	r, err := New(rec, c.nameToIndex)
	if err != nil {
		return nil, err
	}
	if err := c.checkBounds(r); err != nil {
		return nil, err
	}
	return r, nil
}

// Add appends already constructed rules. Rules are checked against the
// collection's bounds and name table; on error nothing is added.
func (c *Collection) Add(rules ...*Rule) error {
	for _, r := range rules {
		if err := c.checkBounds(r); err != nil {
			return err
		}
		if _, err := New(r.Record(), c.nameToIndex); err != nil {
			return err
		}
	}
	c.rules = append(c.rules, rules...)
	return nil
}

// AddRule validates rec and appends it.
func (c *Collection) AddRule(rec Record) (*Rule, error) {
	r, err := c.NewRule(rec)
	if err != nil {
		return nil, err
	}
	c.rules = append(c.rules, r)
	return r, nil
}

// AddUserRule appends a rule whose priority is one more than the highest
// existing priority at the same question and phase, so it outranks every
// rule added before it. The first rule of a phase gets priority 0.
func (c *Collection) AddUserRule(currentQ int, expression string, nextQ qindex.Target, beforeRule bool) (*Rule, error) {
	return c.AddRule(Record{
		CurrentQ:   currentQ,
		Expression: expression,
		NextQ:      nextQ,
		Priority:   c.nextPriority(currentQ, beforeRule),
		BeforeRule: beforeRule,
	})
}

// AddDefaultRule installs the implicit rule advancing from q to q+1.
func (c *Collection) AddDefaultRule(q int) error {
	return c.Add(Default(q))
}

// AddDefaultRules installs the implicit rule for every question.
func (c *Collection) AddDefaultRules() error {
	for q := range c.names {
		if err := c.AddDefaultRule(q); err != nil {
			return err
		}
	}
	return nil
}

// ApplicableRules returns the rules at question q for the given phase, in
// insertion order.
func (c *Collection) ApplicableRules(q int, beforeRule bool) []*Rule {
	var out []*Rule
	for _, r := range c.rules {
		if r.currentQ == q && r.beforeRule == beforeRule {
			out = append(out, r)
		}
	}
	return out
}

func (c *Collection) nextPriority(q int, beforeRule bool) int {
	found := false
	highest := 0
	for _, r := range c.ApplicableRules(q, beforeRule) {
		if !found || r.priority > highest {
			highest = r.priority
			found = true
		}
	}
	if !found {
		return 0
	}
	return highest + 1
}

func (c *Collection) checkBounds(r *Rule) error {
	if r.currentQ >= len(c.names) {
		return fmt.Errorf("%w: question index %d is outside a survey of %d questions", ErrInvalidRule, r.currentQ, len(c.names))
	}
	return nil
}
