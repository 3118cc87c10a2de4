package memory

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/vk/surveynav/internal/dag"
)

// ErrMemory is the sentinel wrapped by every plan error.
var ErrMemory = errors.New("memory error")

// PlanError reports an invalid memory operation.
// Wraps ErrMemory for errors.Is() compatibility.
type PlanError struct {
	Focal  string
	Prior  string
	Reason string
}

func (e *PlanError) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Focal != "" && e.Prior != "":
		return fmt.Sprintf("%s: %q -> %q: %s", ErrMemory.Error(), e.Focal, e.Prior, e.Reason)
	case e.Focal != "":
		return fmt.Sprintf("%s: %q: %s", ErrMemory.Error(), e.Focal, e.Reason)
	default:
		return fmt.Sprintf("%s: %s", ErrMemory.Error(), e.Reason)
	}
}

func (e *PlanError) Unwrap() error { return ErrMemory }

// PromptHeader introduces the remembered questions in a prompt fragment.
const PromptHeader = "Before the question you are now answering, you already answered the following question(s):\n"

// Unanswered marks a remembered question with no recorded answer.
const Unanswered = "(unanswered)"

// Plan maps each focal question to its Memory and keeps the ordered
// question names and texts in step with it.
type Plan struct {
	questionNames []string
	questionTexts []string
	memories      map[string]*Memory
}

// NewPlan returns an empty plan over the given questions. names and texts
// are parallel lists.
func NewPlan(names, texts []string) (*Plan, error) {
	if len(names) != len(texts) {
		return nil, &PlanError{Reason: fmt.Sprintf("%d question names but %d texts", len(names), len(texts))}
	}
	p := &Plan{memories: make(map[string]*Memory)}
	for i := range names {
		if err := p.AddQuestion(names[i], texts[i]); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// AddQuestion appends a question to the end of the survey.
func (p *Plan) AddQuestion(name, text string) error {
	if name == "" {
		return &PlanError{Reason: "question name must not be empty"}
	}
	if slices.Contains(p.questionNames, name) {
		return &PlanError{Focal: name, Reason: "duplicate question name"}
	}
	p.questionNames = append(p.questionNames, name)
	p.questionTexts = append(p.questionTexts, text)
	return nil
}

// RemoveQuestion deletes name from the question lists, drops its own memory
// and removes it from every other memory.
func (p *Plan) RemoveQuestion(name string) error {
	i := slices.Index(p.questionNames, name)
	if i < 0 {
		return &PlanError{Focal: name, Reason: "unknown question"}
	}
	p.questionNames = slices.Delete(p.questionNames, i, i+1)
	p.questionTexts = slices.Delete(p.questionTexts, i, i+1)
	delete(p.memories, name)
	for focal, m := range p.memories {
		m.Remove(name)
		if m.Len() == 0 {
			delete(p.memories, focal)
		}
	}
	return nil
}

// QuestionNames returns the question names in survey order.
func (p *Plan) QuestionNames() []string { return slices.Clone(p.questionNames) }

// QuestionTexts returns the question texts in survey order.
func (p *Plan) QuestionTexts() []string { return slices.Clone(p.questionTexts) }

func (p *Plan) validate(focal, prior string) error {
	fi := slices.Index(p.questionNames, focal)
	if fi < 0 {
		return &PlanError{Focal: focal, Prior: prior, Reason: fmt.Sprintf("unknown focal question %q", focal)}
	}
	pi := slices.Index(p.questionNames, prior)
	if pi < 0 {
		return &PlanError{Focal: focal, Prior: prior, Reason: fmt.Sprintf("unknown prior question %q", prior)}
	}
	if pi >= fi {
		return &PlanError{Focal: focal, Prior: prior, Reason: fmt.Sprintf("prior question (index %d) must come before the focal question (index %d)", pi, fi)}
	}
	return nil
}

// AddSingleMemory makes prior visible when focal is asked. Both must exist
// and prior must come first.
func (p *Plan) AddSingleMemory(focal, prior string) error {
	if err := p.validate(focal, prior); err != nil {
		return err
	}
	p.memoryFor(focal).Add(prior)
	return nil
}

// AddMemoryCollection adds every prior to focal's memory. All pairs are
// validated first; on error nothing is added.
func (p *Plan) AddMemoryCollection(focal string, priors []string) error {
	for _, prior := range priors {
		if err := p.validate(focal, prior); err != nil {
			return err
		}
	}
	m := p.memoryFor(focal)
	for _, prior := range priors {
		m.Add(prior)
	}
	return nil
}

// SetFullMemoryMode gives every question the memory of all questions
// before it.
func (p *Plan) SetFullMemoryMode() {
	for i, focal := range p.questionNames {
		if i == 0 {
			continue
		}
		m := p.memoryFor(focal)
		for _, prior := range p.questionNames[:i] {
			m.Add(prior)
		}
	}
}

// SetLaggedMemory gives every question the memory of the lags questions
// immediately before it.
func (p *Plan) SetLaggedMemory(lags int) error {
	if lags <= 0 {
		return &PlanError{Reason: fmt.Sprintf("lags must be positive, got %d", lags)}
	}
	for i, focal := range p.questionNames {
		if i == 0 {
			continue
		}
		m := p.memoryFor(focal)
		for _, prior := range p.questionNames[max(0, i-lags):i] {
			m.Add(prior)
		}
	}
	return nil
}

func (p *Plan) memoryFor(focal string) *Memory {
	m, ok := p.memories[focal]
	if !ok {
		m = New()
		p.memories[focal] = m
	}
	return m
}

// Memory returns the prior questions remembered for focal, in the order
// they were added.
func (p *Plan) Memory(focal string) []string {
	m, ok := p.memories[focal]
	if !ok {
		return nil
	}
	return m.Names()
}

// Focals returns the questions that have a non-empty memory, in survey
// order.
func (p *Plan) Focals() []string {
	var out []string
	for _, name := range p.questionNames {
		if m, ok := p.memories[name]; ok && m.Len() > 0 {
			out = append(out, name)
		}
	}
	return out
}

// PromptFragment lists each remembered question's text with its answer.
// Answers are looked up as "<name>.answer" and then "<name>"; missing ones
// are shown as Unanswered. A question with no memory yields "".
func (p *Plan) PromptFragment(focal string, answers map[string]any) (string, error) {
	if !slices.Contains(p.questionNames, focal) {
		return "", &PlanError{Focal: focal, Reason: "unknown question"}
	}
	priors := p.Memory(focal)
	if len(priors) == 0 {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString(PromptHeader)
	for _, prior := range priors {
		text := p.questionTexts[slices.Index(p.questionNames, prior)]
		fmt.Fprintf(&sb, "\tQuestion: %s\n\tAnswer: %s\n", text, formatAnswer(answers, prior))
	}
	return sb.String(), nil
}

func formatAnswer(answers map[string]any, name string) string {
	v, ok := answers[name+".answer"]
	if !ok {
		v, ok = answers[name]
	}
	if !ok || v == nil {
		return Unanswered
	}
	if s, isString := v.(string); isString {
		return s
	}
	return fmt.Sprint(v)
}

// DAG returns the memory sub-graph: each focal question depends on every
// question in its memory.
func (p *Plan) DAG() dag.DAG {
	index := make(map[string]int, len(p.questionNames))
	for i, name := range p.questionNames {
		index[name] = i
	}
	d := dag.DAG{}
	for focal, m := range p.memories {
		for _, prior := range m.prior {
			d.Add(index[focal], index[prior])
		}
	}
	return d
}
