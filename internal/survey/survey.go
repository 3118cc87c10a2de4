// Package survey ties questions, navigation rules and memories together and
// builds the survey-wide dependency graph.
package survey

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/vk/surveynav/internal/expr"
	"github.com/vk/surveynav/internal/memory"
	"github.com/vk/surveynav/internal/qindex"
	"github.com/vk/surveynav/internal/question"
	"github.com/vk/surveynav/internal/rule"
)

// Survey is an ordered list of questions with their rules and memory plan.
// It is built single-threaded; once built it may be navigated by any number
// of concurrent sessions.
type Survey struct {
	questions []*question.Question
	rules     *rule.Collection
	memory    *memory.Plan
	logger    *slog.Logger
}

// Option configures a Survey.
type Option func(*Survey)

// WithLogger sets the logger used by the survey and its rule collection.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Survey) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New builds a survey from questions, installing the default rule for each.
func New(questions []*question.Question, opts ...Option) (*Survey, error) {
	s := &Survey{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(s)
	}

	rules, err := rule.NewCollection(nil, rule.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}
	plan, err := memory.NewPlan(nil, nil)
	if err != nil {
		return nil, err
	}
	s.rules = rules
	s.memory = plan

	for _, q := range questions {
		if err := s.AddQuestion(q); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// AddQuestion appends q and installs its default rule.
func (s *Survey) AddQuestion(q *question.Question) error {
	if q == nil {
		return fmt.Errorf("%w: nil question", question.ErrInvalidQuestion)
	}
	if err := q.Validate(); err != nil {
		return err
	}
	idx, err := s.rules.AppendQuestion(q.Name)
	if err != nil {
		return err
	}
	if err := s.memory.AddQuestion(q.Name, q.Text); err != nil {
		return err
	}
	if err := s.rules.AddDefaultRule(idx); err != nil {
		return err
	}
	s.questions = append(s.questions, q)
	return nil
}

// Len returns the number of questions.
func (s *Survey) Len() int { return len(s.questions) }

// Questions returns the questions in order.
func (s *Survey) Questions() []*question.Question {
	return append([]*question.Question(nil), s.questions...)
}

// Names returns the question names in order.
func (s *Survey) Names() []string { return s.rules.QuestionNames() }

// Question returns the question at index i.
func (s *Survey) Question(i int) (*question.Question, error) {
	if i < 0 || i >= len(s.questions) {
		return nil, fmt.Errorf("%w: index %d", ErrUnknownQuestion, i)
	}
	return s.questions[i], nil
}

// IndexOf returns the index of the named question.
func (s *Survey) IndexOf(name string) (int, error) {
	idx, ok := s.rules.IndexOf(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownQuestion, name)
	}
	return idx, nil
}

// Rules returns the survey's rule collection.
func (s *Survey) Rules() *rule.Collection { return s.rules }

// Memory returns the survey's memory plan.
func (s *Survey) Memory() *memory.Plan { return s.memory }

// Target resolves a rule destination written as a question name, a
// question index or "EndOfSurvey".
func (s *Survey) Target(next string) (qindex.Target, error) {
	if next == qindex.EndOfSurveyName {
		return qindex.EndOfSurvey, nil
	}
	if idx, ok := s.rules.IndexOf(next); ok {
		return qindex.At(idx), nil
	}
	if _, err := strconv.Atoi(next); err == nil {
		return qindex.Parse(next)
	}
	return qindex.Target{}, fmt.Errorf("%w: rule target %q", ErrUnknownQuestion, next)
}

// AddRule adds a jump rule at the named question that moves to next when
// expression is true. It outranks every rule added there before it.
func (s *Survey) AddRule(questionName, expression, next string) (*rule.Rule, error) {
	idx, err := s.IndexOf(questionName)
	if err != nil {
		return nil, err
	}
	target, err := s.Target(next)
	if err != nil {
		return nil, err
	}
	if err := s.checkReferences(expression); err != nil {
		return nil, err
	}
	return s.rules.AddUserRule(idx, expression, target, false)
}

// AddSkipRule adds a before-rule that bypasses the named question when
// expression is true.
func (s *Survey) AddSkipRule(questionName, expression string) (*rule.Rule, error) {
	idx, err := s.IndexOf(questionName)
	if err != nil {
		return nil, err
	}
	if err := s.checkReferences(expression); err != nil {
		return nil, err
	}
	return s.rules.AddUserRule(idx, expression, qindex.At(idx+1), true)
}

// AddStopRule adds a jump rule that ends the survey after the named
// question when expression is true.
func (s *Survey) AddStopRule(questionName, expression string) (*rule.Rule, error) {
	idx, err := s.IndexOf(questionName)
	if err != nil {
		return nil, err
	}
	if err := s.checkReferences(expression); err != nil {
		return nil, err
	}
	return s.rules.AddUserRule(idx, expression, qindex.EndOfSurvey, false)
}

// checkReferences rejects templated references to questions the survey does
// not have yet. Compile errors are left for the rule constructor to report.
func (s *Survey) checkReferences(expression string) error {
	compiled, err := expr.Compile(expression)
	if err != nil {
		return nil
	}
	for _, ref := range compiled.References() {
		if !ref.IsQuestion() {
			continue
		}
		if _, ok := s.rules.IndexOf(ref.Root()); !ok {
			return fmt.Errorf("%w: %q in rule expression %q", ErrUnknownQuestion, ref.String(), expression)
		}
	}
	return nil
}

// AddMemory makes prior's answer visible when focal is asked.
func (s *Survey) AddMemory(focal, prior string) error {
	return s.memory.AddSingleMemory(focal, prior)
}

// AddMemoryCollection adds every prior to focal's memory.
func (s *Survey) AddMemoryCollection(focal string, priors []string) error {
	return s.memory.AddMemoryCollection(focal, priors)
}

// SetFullMemoryMode makes every question remember all earlier ones.
func (s *Survey) SetFullMemoryMode() { s.memory.SetFullMemoryMode() }

// SetLaggedMemory makes every question remember the lags questions before it.
func (s *Survey) SetLaggedMemory(lags int) error { return s.memory.SetLaggedMemory(lags) }

// FirstQuestion returns the first question to present.
func (s *Survey) FirstQuestion(answers map[string]any, opts ...expr.EvalOption) (qindex.Target, error) {
	return s.rules.FirstQuestion(answers, opts...)
}

// NextQuestion returns the question to present after question q.
func (s *Survey) NextQuestion(q int, answers map[string]any, opts ...expr.EvalOption) (qindex.Target, error) {
	return s.rules.NextQuestion(q, answers, opts...)
}

// GenPath walks the survey with a fixed set of answers and returns the
// names of the questions that would be presented.
func (s *Survey) GenPath(answers map[string]any, opts ...expr.EvalOption) ([]string, error) {
	var path []string
	current, err := s.FirstQuestion(answers, opts...)
	if err != nil {
		return nil, err
	}
	for {
		idx, ok := current.Index()
		if !ok {
			return path, nil
		}
		path = append(path, s.questions[idx].Name)
		if current, err = s.NextQuestion(idx, answers, opts...); err != nil {
			return nil, err
		}
	}
}
