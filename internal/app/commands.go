package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/vk/surveynav/internal/rule"
	"github.com/vk/surveynav/internal/session"
	"github.com/vk/surveynav/internal/simulate"
)

// Validate loads the survey, checks its dependency graph and reports its
// size and dependency order.
func (a *App) Validate(ctx context.Context) error {
	ctx = a.withLogger(ctx)
	s, err := a.loadSurvey(ctx)
	if err != nil {
		return err
	}
	order, err := s.TopologicalOrder()
	if err != nil {
		return fmt.Errorf("invalid survey dependencies: %w", err)
	}
	names := s.Names()
	labels := make([]string, 0, len(order))
	for _, idx := range order {
		labels = append(labels, names[idx])
	}

	fmt.Fprintf(a.outW, "Survey is valid: %d questions, %d rules.\n", s.Len(), s.Rules().Len())
	fmt.Fprintf(a.outW, "Dependency order: %s\n", strings.Join(labels, ", "))
	return nil
}

// DAG prints the survey's dependency graph as JSON, keyed by question
// index or, with Textify, by question name.
func (a *App) DAG(ctx context.Context) error {
	ctx = a.withLogger(ctx)
	s, err := a.loadSurvey(ctx)
	if err != nil {
		return err
	}

	var out any
	if a.config.Textify {
		if out, err = s.TextDAG(); err != nil {
			return err
		}
	} else {
		d, err := s.DAG()
		if err != nil {
			return err
		}
		byIndex := make(map[int][]int, len(d))
		for _, child := range d.Children() {
			byIndex[child] = d.Parents(child)
		}
		out = byIndex
	}
	return a.writeJSON(out)
}

// Walk runs one scripted session using the answers file and prints each
// question presented followed by the path.
func (a *App) Walk(ctx context.Context) error {
	ctx = a.withLogger(ctx)
	s, err := a.loadSurvey(ctx)
	if err != nil {
		return err
	}
	af, err := LoadAnswerFile(a.config.AnswersPath)
	if err != nil {
		return err
	}

	sess := session.New(s,
		session.WithAgent(af.Agent),
		session.WithScenario(af.Scenario),
		session.WithLogger(a.logger),
	)
	a.logger.Info("Walking survey.", "session_id", sess.ID().String())

	path, err := sess.Walk(ctx, session.ResponderFunc(func(_ context.Context, p session.Prompt) (any, error) {
		answer := af.Answers[p.Name]
		fmt.Fprintf(a.outW, "%d. %s\n", p.Index+1, p.Text)
		fmt.Fprintf(a.outW, "   > %v\n", answer)
		return answer, nil
	}))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.outW, "Path: %s\n", strings.Join(path, simulate.PathSeparator))
	return nil
}

// Simulate runs Agents random respondents and prints how often each path
// was taken.
func (a *App) Simulate(ctx context.Context) error {
	ctx = a.withLogger(ctx)
	s, err := a.loadSurvey(ctx)
	if err != nil {
		return err
	}
	report, err := simulate.Run(ctx, s, simulate.Config{
		Agents:   a.config.Agents,
		Workers:  a.config.Workers,
		Seed:     a.config.Seed,
		Scenario: a.config.Scenario,
	})
	if err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}

	fmt.Fprintf(a.outW, "%d agents, %d distinct paths\n", report.Agents, len(report.Paths))
	for _, p := range report.Paths {
		fmt.Fprintf(a.outW, "%6d  %s\n", p.Count, p.Key())
	}
	return nil
}

// Migrate decodes a rule collection file, rewriting legacy expressions and
// per-rule name tables, and prints it in the current format.
func (a *App) Migrate(ctx context.Context) error {
	data, err := os.ReadFile(a.config.RulesPath)
	if err != nil {
		return fmt.Errorf("failed to read rules file: %w", err)
	}
	c, err := rule.Decode(data, rule.WithLogger(a.logger))
	if err != nil {
		return fmt.Errorf("failed to decode rules file %s: %w", a.config.RulesPath, err)
	}
	a.logger.Debug("Rule collection migrated.", "rules", c.Len(), "questions", c.NumQuestions())
	return a.writeJSON(c)
}

func (a *App) writeJSON(v any) error {
	enc := json.NewEncoder(a.outW)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
