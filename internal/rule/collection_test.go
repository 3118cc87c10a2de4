package rule_test

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/surveynav/internal/dag"
	"github.com/vk/surveynav/internal/expr"
	"github.com/vk/surveynav/internal/qindex"
	"github.com/vk/surveynav/internal/rule"
)

// newCollection returns a collection over q0..q(n-1) with default rules.
func newCollection(t *testing.T, n int, opts ...rule.Option) *rule.Collection {
	t.Helper()
	questionNames := make([]string, n)
	for i := range questionNames {
		questionNames[i] = "q" + string(rune('0'+i))
	}
	c, err := rule.NewCollection(questionNames, opts...)
	require.NoError(t, err)
	require.NoError(t, c.AddDefaultRules())
	return c
}

func TestNewCollection(t *testing.T) {
	c, err := rule.NewCollection([]string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, 2, c.NumQuestions())
	assert.Equal(t, []string{"a", "b"}, c.QuestionNames())
	assert.Equal(t, map[string]int{"a": 0, "b": 1}, c.NameToIndex())
	assert.Zero(t, c.Len())

	idx, ok := c.IndexOf("b")
	assert.True(t, ok)
	assert.Equal(t, 1, idx)

	_, err = rule.NewCollection([]string{"a", "a"})
	assert.ErrorIs(t, err, rule.ErrInvalidRule)

	_, err = rule.NewCollection([]string{""})
	assert.ErrorIs(t, err, rule.ErrInvalidRule)
}

func TestCollection_ResolvePicksHighestPriority(t *testing.T) {
	yes := map[string]any{"q1.answer": "yes"}

	t.Run("without default rules", func(t *testing.T) {
		c, err := rule.NewCollection([]string{"q0", "q1", "q2", "q3"})
		require.NoError(t, err)
		_, err = c.AddRule(rule.Record{CurrentQ: 1, Expression: "{{ q1.answer }} == 'yes'", NextQ: qindex.At(3), Priority: 1})
		require.NoError(t, err)
		_, err = c.AddRule(rule.Record{CurrentQ: 1, Expression: "{{ q1.answer }} == 'no'", NextQ: qindex.At(2), Priority: 1})
		require.NoError(t, err)

		dec, err := c.Resolve(1, yes)
		require.NoError(t, err)
		assert.Equal(t, rule.Decision{Next: qindex.At(3), NumRulesFound: 2, ExpressionsEvaluatingTrue: 1, Priority: 1}, dec)
	})

	t.Run("with default rules", func(t *testing.T) {
		c := newCollection(t, 4)
		_, err := c.AddRule(rule.Record{CurrentQ: 1, Expression: "{{ q1.answer }} == 'yes'", NextQ: qindex.At(3), Priority: 1})
		require.NoError(t, err)
		_, err = c.AddRule(rule.Record{CurrentQ: 1, Expression: "{{ q1.answer }} == 'no'", NextQ: qindex.At(2), Priority: 1})
		require.NoError(t, err)

		dec, err := c.Resolve(1, yes)
		require.NoError(t, err)
		assert.Equal(t, rule.Decision{Next: qindex.At(3), NumRulesFound: 3, ExpressionsEvaluatingTrue: 2, Priority: 1}, dec)

		next, err := c.NextQuestion(1, yes)
		require.NoError(t, err)
		assert.Equal(t, qindex.At(3), next)
	})
}

func TestCollection_NextQuestion(t *testing.T) {
	testCases := []struct {
		name    string
		n       int
		setup   func(t *testing.T, c *rule.Collection)
		from    int
		answers map[string]any
		want    qindex.Target
	}{
		{
			name: "default rule advances by one",
			n:    3,
			from: 0,
			want: qindex.At(1),
		},
		{
			name: "last question ends the survey",
			n:    3,
			from: 2,
			want: qindex.EndOfSurvey,
		},
		{
			name: "user rule overrides default",
			n:    4,
			setup: func(t *testing.T, c *rule.Collection) {
				_, err := c.AddUserRule(0, "{{ q0.answer }} == 'skip'", qindex.At(3), false)
				require.NoError(t, err)
			},
			from:    0,
			answers: map[string]any{"q0.answer": "skip"},
			want:    qindex.At(3),
		},
		{
			name: "false user rule falls back to default",
			n:    4,
			setup: func(t *testing.T, c *rule.Collection) {
				_, err := c.AddUserRule(0, "{{ q0.answer }} == 'skip'", qindex.At(3), false)
				require.NoError(t, err)
			},
			from:    0,
			answers: map[string]any{"q0.answer": "stay"},
			want:    qindex.At(1),
		},
		{
			name: "stop rule",
			n:    4,
			setup: func(t *testing.T, c *rule.Collection) {
				_, err := c.AddUserRule(1, "{{ q1.answer }} == 'done'", qindex.EndOfSurvey, false)
				require.NoError(t, err)
			},
			from:    1,
			answers: map[string]any{"q1.answer": "done"},
			want:    qindex.EndOfSurvey,
		},
		{
			name: "target past the last question ends the survey",
			n:    3,
			setup: func(t *testing.T, c *rule.Collection) {
				_, err := c.AddUserRule(0, "True", qindex.At(10), false)
				require.NoError(t, err)
			},
			from: 0,
			want: qindex.EndOfSurvey,
		},
		{
			name: "skip rule bypasses its question",
			n:    4,
			setup: func(t *testing.T, c *rule.Collection) {
				_, err := c.AddUserRule(2, "True", qindex.At(3), true)
				require.NoError(t, err)
			},
			from: 1,
			want: qindex.At(3),
		},
		{
			name: "skipping the last question ends the survey",
			n:    3,
			setup: func(t *testing.T, c *rule.Collection) {
				_, err := c.AddUserRule(2, "True", qindex.At(3), true)
				require.NoError(t, err)
			},
			from: 1,
			want: qindex.EndOfSurvey,
		},
		{
			name: "chained skips",
			n:    5,
			setup: func(t *testing.T, c *rule.Collection) {
				_, err := c.AddUserRule(1, "{{ q0.answer }} == 'no'", qindex.At(2), true)
				require.NoError(t, err)
				_, err = c.AddUserRule(2, "{{ q0.answer }} == 'no'", qindex.At(3), true)
				require.NoError(t, err)
			},
			from:    0,
			answers: map[string]any{"q0.answer": "no"},
			want:    qindex.At(3),
		},
		{
			name: "skipped question's jump rules still apply",
			n:    5,
			setup: func(t *testing.T, c *rule.Collection) {
				_, err := c.AddUserRule(2, "True", qindex.At(3), true)
				require.NoError(t, err)
				_, err = c.AddUserRule(2, "True", qindex.EndOfSurvey, false)
				require.NoError(t, err)
			},
			from: 1,
			want: qindex.EndOfSurvey,
		},
		{
			name: "false skip rule presents the question",
			n:    4,
			setup: func(t *testing.T, c *rule.Collection) {
				_, err := c.AddUserRule(2, "{{ q0.answer }} == 'no'", qindex.At(3), true)
				require.NoError(t, err)
			},
			from:    1,
			answers: map[string]any{"q0.answer": "yes"},
			want:    qindex.At(2),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := newCollection(t, tc.n)
			if tc.setup != nil {
				tc.setup(t, c)
			}
			got, err := c.NextQuestion(tc.from, tc.answers)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCollection_FirstQuestion(t *testing.T) {
	c := newCollection(t, 3)
	first, err := c.FirstQuestion(nil)
	require.NoError(t, err)
	assert.Equal(t, qindex.At(0), first)

	_, err = c.AddUserRule(0, "{{ agent.age }} < 18", qindex.At(1), true)
	require.NoError(t, err)

	first, err = c.FirstQuestion(map[string]any{"agent.age": 12})
	require.NoError(t, err)
	assert.Equal(t, qindex.At(1), first)

	empty, err := rule.NewCollection(nil)
	require.NoError(t, err)
	first, err = empty.FirstQuestion(nil)
	require.NoError(t, err)
	assert.Equal(t, qindex.EndOfSurvey, first)
}

func TestCollection_Priority(t *testing.T) {
	c := newCollection(t, 4)

	first, err := c.AddUserRule(0, "True", qindex.At(2), false)
	require.NoError(t, err)
	second, err := c.AddUserRule(0, "True", qindex.At(3), false)
	require.NoError(t, err)
	skip, err := c.AddUserRule(0, "False", qindex.At(1), true)
	require.NoError(t, err)

	assert.Equal(t, 0, first.Priority())
	assert.Equal(t, 1, second.Priority())
	assert.Equal(t, 0, skip.Priority(), "phases are ranked independently")

	dec, err := c.Resolve(0, nil)
	require.NoError(t, err)
	assert.Equal(t, qindex.At(3), dec.Next)
	assert.Equal(t, 1, dec.Priority)
	assert.Equal(t, 3, dec.NumRulesFound)
	assert.Equal(t, 3, dec.ExpressionsEvaluatingTrue)
}

func TestCollection_HigherPriorityWinsRegardlessOfOrder(t *testing.T) {
	c := newCollection(t, 4)
	_, err := c.AddRule(rule.Record{CurrentQ: 0, Expression: "True", NextQ: qindex.At(3), Priority: 5})
	require.NoError(t, err)
	_, err = c.AddRule(rule.Record{CurrentQ: 0, Expression: "True", NextQ: qindex.At(2), Priority: 2})
	require.NoError(t, err)

	next, err := c.NextQuestion(0, nil)
	require.NoError(t, err)
	assert.Equal(t, qindex.At(3), next)
}

func TestCollection_EqualPriorityTieGoesToLastRule(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c := newCollection(t, 4, rule.WithLogger(logger))

	_, err := c.AddRule(rule.Record{CurrentQ: 0, Expression: "True", NextQ: qindex.At(2), Priority: 1})
	require.NoError(t, err)
	_, err = c.AddRule(rule.Record{CurrentQ: 0, Expression: "True", NextQ: qindex.At(3), Priority: 1})
	require.NoError(t, err)

	next, err := c.NextQuestion(0, nil)
	require.NoError(t, err)
	assert.Equal(t, qindex.At(3), next)
	assert.Contains(t, buf.String(), "Equal-priority rules")
}

func TestCollection_Deterministic(t *testing.T) {
	c := newCollection(t, 5)
	_, err := c.AddUserRule(0, "{{ q0.answer }} == 'a'", qindex.At(3), false)
	require.NoError(t, err)
	_, err = c.AddUserRule(3, "{{ q0.answer }} == 'a'", qindex.At(4), true)
	require.NoError(t, err)

	answers := map[string]any{"q0.answer": "a"}
	want, err := c.NextQuestion(0, answers)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		got, err := c.NextQuestion(0, answers)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestCollection_NavigationErrors(t *testing.T) {
	t.Run("no rules at question", func(t *testing.T) {
		c, err := rule.NewCollection([]string{"q0", "q1"})
		require.NoError(t, err)

		_, err = c.NextQuestion(0, nil)
		require.ErrorIs(t, err, rule.ErrNoRuleAtNode)

		var nodeErr *rule.NoRuleAtNodeError
		require.True(t, errors.As(err, &nodeErr))
		assert.Equal(t, 0, nodeErr.Question)
		assert.Zero(t, nodeErr.RulesFound)
	})

	t.Run("no rule evaluates true", func(t *testing.T) {
		c, err := rule.NewCollection([]string{"q0", "q1"})
		require.NoError(t, err)
		_, err = c.AddUserRule(0, "False", qindex.At(1), false)
		require.NoError(t, err)

		_, err = c.NextQuestion(0, nil)
		var nodeErr *rule.NoRuleAtNodeError
		require.True(t, errors.As(err, &nodeErr))
		assert.Equal(t, 1, nodeErr.RulesFound)
	})

	t.Run("evaluation errors propagate", func(t *testing.T) {
		c := newCollection(t, 3)
		_, err := c.AddUserRule(1, "{{ q0.answer }} > 3", qindex.EndOfSurvey, false)
		require.NoError(t, err)

		_, err = c.NextQuestion(1, map[string]any{})
		require.ErrorIs(t, err, expr.ErrEvaluation)
	})

	t.Run("skip rule evaluation errors propagate", func(t *testing.T) {
		c := newCollection(t, 3)
		_, err := c.AddUserRule(2, "{{ q0.answer }} > 3", qindex.EndOfSurvey, true)
		require.NoError(t, err)

		_, err = c.NextQuestion(1, map[string]any{})
		require.ErrorIs(t, err, expr.ErrEvaluation)
	})

	t.Run("question out of range", func(t *testing.T) {
		c := newCollection(t, 2)
		_, err := c.NextQuestion(5, nil)
		require.ErrorIs(t, err, rule.ErrInvalidRule)
	})
}

func TestCollection_AddErrors(t *testing.T) {
	c := newCollection(t, 3)

	_, err := c.AddUserRule(3, "True", qindex.EndOfSurvey, false)
	assert.ErrorIs(t, err, rule.ErrInvalidRule)

	_, err = c.AddUserRule(0, "{{ q2.answer }} == 1", qindex.At(1), false)
	assert.ErrorIs(t, err, rule.ErrFutureReference)

	before := c.Len()
	err = c.Add(rule.Default(0), rule.Default(7))
	assert.ErrorIs(t, err, rule.ErrInvalidRule)
	assert.Equal(t, before, c.Len(), "a failed Add must not add any rule")
}

func TestCollection_AppendQuestionReadByEarlierRule(t *testing.T) {
	c := newCollection(t, 2)

	_, err := c.AddUserRule(0, "{{ q2.answer }} == 'x'", qindex.At(1), false)
	require.NoError(t, err, "q2 is not a question yet")

	_, err = c.AppendQuestion("q2")
	var futureErr *rule.FutureReferenceError
	require.ErrorAs(t, err, &futureErr)
	assert.Equal(t, 0, futureErr.CurrentQ)
	assert.Equal(t, "q2", futureErr.Question)
	assert.Equal(t, 2, futureErr.QuestionIndex)
	assert.Equal(t, 2, c.NumQuestions(), "a rejected question must not be registered")

	_, err = c.AppendQuestion("q3")
	assert.NoError(t, err)
}

func TestCollection_KeysBetween(t *testing.T) {
	c := newCollection(t, 4)

	assert.Equal(t, []int{1, 2, 3}, c.KeysBetween(0, qindex.At(3), true))
	assert.Equal(t, []int{1, 2}, c.KeysBetween(0, qindex.At(3), false))
	assert.Equal(t, []int{2, 3}, c.KeysBetween(1, qindex.EndOfSurvey, true))
	assert.Equal(t, []int{1, 2, 3}, c.KeysBetween(0, qindex.At(10), true))
	assert.Empty(t, c.KeysBetween(2, qindex.At(3), false))
}

func TestCollection_DAG(t *testing.T) {
	c := newCollection(t, 4)
	assert.Empty(t, c.DAG(), "default rules add no dependencies")

	_, err := c.AddUserRule(0, "{{ q0.answer }} == 'a'", qindex.At(2), false)
	require.NoError(t, err)
	_, err = c.AddUserRule(3, "{{ q1.answer }} == 'b'", qindex.EndOfSurvey, true)
	require.NoError(t, err)

	want := dag.DAG{
		1: dag.NewSet(0),
		2: dag.NewSet(0),
		3: dag.NewSet(0, 1, 2),
	}
	assert.Equal(t, want, c.DAG())

	g := c.Graph()
	kind, ok := g.EdgeKind(0, 2)
	require.True(t, ok)
	assert.Equal(t, dag.KindJump, kind)
	kind, ok = g.EdgeKind(1, 3)
	require.True(t, ok)
	assert.Equal(t, dag.KindSkip, kind)

	assert.NoError(t, c.DetectCycles())
}
