// Package question holds the question record the navigation engine reads:
// a stable name, the text shown to the respondent and its options.
package question

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/vk/surveynav/internal/expr"
	"github.com/vk/surveynav/internal/qref"
)

// ErrInvalidQuestion is returned for malformed question definitions.
var ErrInvalidQuestion = errors.New("invalid question")

// nameRegex matches names usable as the root of a template reference.
var nameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Question is one survey question.
type Question struct {
	Name    string
	Text    string
	Options []string
}

// New validates and returns a question.
func New(name, text string, options ...string) (*Question, error) {
	q := &Question{Name: name, Text: text, Options: options}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

// Validate checks that the name can be referenced from templates and
// expressions.
func (q *Question) Validate() error {
	if !nameRegex.MatchString(q.Name) {
		return fmt.Errorf("%w: name %q must start with a letter or underscore and contain only letters, digits and underscores", ErrInvalidQuestion, q.Name)
	}
	if q.Name == qref.RootAgent || q.Name == qref.RootScenario {
		return fmt.Errorf("%w: name %q is reserved", ErrInvalidQuestion, q.Name)
	}
	if q.Text == "" {
		return fmt.Errorf("%w: question %q has no text", ErrInvalidQuestion, q.Name)
	}
	return nil
}

// Parameters returns the template references found in the text and
// options, sorted. These are the question's piping sources.
func (q *Question) Parameters() []qref.Ref {
	return expr.TemplateRefs(append([]string{q.Text}, q.Options...)...)
}

// Render returns the text and options with template tokens filled in from
// env.
func (q *Question) Render(env map[string]any) (string, []string) {
	options := make([]string, len(q.Options))
	for i, o := range q.Options {
		options[i] = expr.RenderText(o, env)
	}
	return expr.RenderText(q.Text, env), options
}
