// Package session walks one respondent through a survey. A Session holds the
// mutable navigation state (answers so far, current question, path taken)
// while the survey itself stays read-only, so any number of sessions may
// share one survey concurrently.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"

	"github.com/google/uuid"
	"github.com/vk/surveynav/internal/expr"
	"github.com/vk/surveynav/internal/qindex"
	"github.com/vk/surveynav/internal/survey"
)

var (
	// ErrNotStarted is returned when a session is used before Start.
	ErrNotStarted = errors.New("session not started")
	// ErrFinished is returned when a finished session is asked for more.
	ErrFinished = errors.New("session finished")
)

// Answer keys are "<question>.answer"; seeded traits live under these roots.
const (
	answerField  = "answer"
	agentRoot    = "agent"
	scenarioRoot = "scenario"
)

// Prompt is the rendered form of the current question.
type Prompt struct {
	Index   int
	Name    string
	Text    string
	Options []string
	// Memory is the memory prompt fragment, empty when the question
	// remembers nothing.
	Memory string
	// Missing lists template references that had no value.
	Missing []string
}

// Responder produces an answer for a prompt.
type Responder interface {
	Respond(ctx context.Context, p Prompt) (any, error)
}

// ResponderFunc adapts a function to the Responder interface.
type ResponderFunc func(ctx context.Context, p Prompt) (any, error)

// Respond implements Responder.
func (f ResponderFunc) Respond(ctx context.Context, p Prompt) (any, error) { return f(ctx, p) }

// Session is the navigation state of a single respondent. It is not safe
// for concurrent use.
type Session struct {
	id      uuid.UUID
	survey  *survey.Survey
	answers map[string]any
	current qindex.Target
	path    []int
	started bool
	evalOpt []expr.EvalOption
	logger  *slog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithAgent seeds agent traits, visible to expressions as agent.<trait>.
func WithAgent(traits map[string]any) Option {
	return func(s *Session) { seed(s.answers, agentRoot, traits) }
}

// WithScenario seeds scenario keys, visible as scenario.<key>.
func WithScenario(values map[string]any) Option {
	return func(s *Session) { seed(s.answers, scenarioRoot, values) }
}

// WithRand sets the random source used by randint and choice.
func WithRand(src expr.IntN) Option {
	return func(s *Session) { s.evalOpt = append(s.evalOpt, expr.WithRand(src)) }
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func seed(answers map[string]any, root string, values map[string]any) {
	for k, v := range values {
		answers[root+"."+k] = v
	}
}

// New creates an unstarted session over sv.
func New(sv *survey.Survey, opts ...Option) *Session {
	s := &Session{
		id:      uuid.New(),
		survey:  sv,
		answers: make(map[string]any),
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("session_id", s.id.String())
	return s
}

// ID returns the session's unique id.
func (s *Session) ID() uuid.UUID { return s.id }

// Start resolves the first question, applying its before-rules.
func (s *Session) Start() (qindex.Target, error) {
	first, err := s.survey.FirstQuestion(s.answers, s.evalOpt...)
	if err != nil {
		return qindex.Target{}, err
	}
	s.started = true
	s.current = first
	s.logger.Debug("Session started.", "first", first.String())
	return first, nil
}

// Current returns the question being asked, or EndOfSurvey once finished.
func (s *Session) Current() (qindex.Target, error) {
	if !s.started {
		return qindex.Target{}, ErrNotStarted
	}
	return s.current, nil
}

// Done reports whether the session has reached EndOfSurvey.
func (s *Session) Done() bool { return s.started && s.current.IsEnd() }

func (s *Session) currentIndex() (int, error) {
	if !s.started {
		return 0, ErrNotStarted
	}
	idx, ok := s.current.Index()
	if !ok {
		return 0, ErrFinished
	}
	return idx, nil
}

// Prompt renders the current question with the answers gathered so far.
func (s *Session) Prompt() (Prompt, error) {
	idx, err := s.currentIndex()
	if err != nil {
		return Prompt{}, err
	}
	q, err := s.survey.Question(idx)
	if err != nil {
		return Prompt{}, err
	}
	memory, err := s.survey.Memory().PromptFragment(q.Name, s.answers)
	if err != nil {
		return Prompt{}, err
	}
	text, options := q.Render(s.answers)

	var missing []string
	for _, ref := range q.Parameters() {
		if _, ok := s.answers[ref.String()]; !ok {
			missing = append(missing, ref.String())
		}
	}
	return Prompt{
		Index:   idx,
		Name:    q.Name,
		Text:    text,
		Options: options,
		Memory:  memory,
		Missing: missing,
	}, nil
}

// Submit records answer for the current question and advances.
func (s *Session) Submit(answer any) (qindex.Target, error) {
	idx, err := s.currentIndex()
	if err != nil {
		return qindex.Target{}, err
	}
	q, err := s.survey.Question(idx)
	if err != nil {
		return qindex.Target{}, err
	}

	s.answers[q.Name+"."+answerField] = answer
	next, err := s.survey.NextQuestion(idx, s.answers, s.evalOpt...)
	if err != nil {
		delete(s.answers, q.Name+"."+answerField)
		return qindex.Target{}, fmt.Errorf("navigating from %q: %w", q.Name, err)
	}
	s.path = append(s.path, idx)
	s.current = next
	s.logger.Debug("Answer submitted.", "question", q.Name, "next", next.String())
	return next, nil
}

// Answers returns a copy of the answer environment, including seeded
// traits.
func (s *Session) Answers() map[string]any { return maps.Clone(s.answers) }

// Path returns the names of the questions answered so far, in order.
func (s *Session) Path() []string {
	names := s.survey.Names()
	out := make([]string, len(s.path))
	for i, idx := range s.path {
		out[i] = names[idx]
	}
	return out
}

// Walk starts the session if needed and asks r until the survey ends or
// ctx is cancelled. It returns the path taken.
func (s *Session) Walk(ctx context.Context, r Responder) ([]string, error) {
	if !s.started {
		if _, err := s.Start(); err != nil {
			return nil, err
		}
	}
	for !s.Done() {
		if err := ctx.Err(); err != nil {
			return s.Path(), err
		}
		p, err := s.Prompt()
		if err != nil {
			return s.Path(), err
		}
		answer, err := r.Respond(ctx, p)
		if err != nil {
			return s.Path(), fmt.Errorf("responding to %q: %w", p.Name, err)
		}
		if _, err := s.Submit(answer); err != nil {
			return s.Path(), err
		}
	}
	s.logger.Debug("Session finished.", "answered", len(s.path))
	return s.Path(), nil
}
