package rule_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/surveynav/internal/expr"
	"github.com/vk/surveynav/internal/qindex"
	"github.com/vk/surveynav/internal/rule"
)

var names = map[string]int{"q0": 0, "q1": 1, "q2": 2, "q3": 3}

func TestRule_Evaluate(t *testing.T) {
	r, err := rule.New(rule.Record{
		CurrentQ:   1,
		Expression: "{{ q1.answer }} == 'yes'",
		NextQ:      qindex.At(3),
		Priority:   1,
	}, names)
	require.NoError(t, err)

	ok, err := r.Evaluate(map[string]any{"q1.answer": "yes"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Evaluate(map[string]any{"q1.answer": "no"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRule_Accessors(t *testing.T) {
	rec := rule.Record{
		CurrentQ:   2,
		Expression: "{{ q0.answer }} > 3",
		NextQ:      qindex.EndOfSurvey,
		Priority:   4,
		BeforeRule: true,
	}
	r, err := rule.New(rec, names)
	require.NoError(t, err)

	assert.Equal(t, 2, r.CurrentQ())
	assert.Equal(t, "{{ q0.answer }} > 3", r.Expression())
	assert.Equal(t, qindex.EndOfSurvey, r.NextQ())
	assert.Equal(t, 4, r.Priority())
	assert.True(t, r.BeforeRule())
	assert.False(t, r.IsDefault())
	assert.False(t, r.Legacy())
	assert.Equal(t, rec, r.Record())
	assert.Contains(t, r.String(), "before")
}

func TestDefault(t *testing.T) {
	r := rule.Default(3)
	assert.Equal(t, qindex.At(4), r.NextQ())
	assert.Equal(t, rule.DefaultPriority, r.Priority())
	assert.Equal(t, rule.DefaultExpression, r.Expression())
	assert.True(t, r.IsDefault())

	ok, err := r.Evaluate(nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNew_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		rec     rule.Record
		wantErr error
	}{
		{
			name:    "jump to same question",
			rec:     rule.Record{CurrentQ: 2, Expression: "True", NextQ: qindex.At(2)},
			wantErr: rule.ErrBackwardNavigation,
		},
		{
			name:    "jump backwards",
			rec:     rule.Record{CurrentQ: 2, Expression: "True", NextQ: qindex.At(0)},
			wantErr: rule.ErrBackwardNavigation,
		},
		{
			name:    "skip rule jumping backwards",
			rec:     rule.Record{CurrentQ: 2, Expression: "True", NextQ: qindex.At(1), BeforeRule: true},
			wantErr: rule.ErrBackwardNavigation,
		},
		{
			name:    "future reference",
			rec:     rule.Record{CurrentQ: 1, Expression: "{{ q2.answer }} == 'x'", NextQ: qindex.At(3)},
			wantErr: rule.ErrFutureReference,
		},
		{
			name:    "future reference through a bare name",
			rec:     rule.Record{CurrentQ: 1, Expression: "q3 == 'x'", NextQ: qindex.At(2)},
			wantErr: rule.ErrFutureReference,
		},
		{
			name:    "malformed expression",
			rec:     rule.Record{CurrentQ: 1, Expression: "{{ q1.answer }} ==", NextQ: qindex.At(2)},
			wantErr: expr.ErrExpressionSyntax,
		},
		{
			name:    "negative question",
			rec:     rule.Record{CurrentQ: -1, Expression: "True", NextQ: qindex.At(2)},
			wantErr: rule.ErrInvalidRule,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r, err := rule.New(tc.rec, names)
			require.Error(t, err)
			assert.Nil(t, r)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestNew_FutureReferenceDetails(t *testing.T) {
	_, err := rule.New(rule.Record{CurrentQ: 0, Expression: "{{ q2.answer }} == 1", NextQ: qindex.At(1)}, names)

	var futureErr *rule.FutureReferenceError
	require.True(t, errors.As(err, &futureErr))
	assert.Equal(t, "q2", futureErr.Question)
	assert.Equal(t, 2, futureErr.QuestionIndex)
	assert.Equal(t, 0, futureErr.CurrentQ)
}

func TestNew_AllowsCurrentAndNonQuestionReferences(t *testing.T) {
	_, err := rule.New(rule.Record{
		CurrentQ:   1,
		Expression: "{{ q1.answer }} == 'x' and {{ q0.answer }} == 'y' and {{ agent.age }} > 30 and {{ scenario.q3 }} == 1",
		NextQ:      qindex.EndOfSurvey,
	}, names)
	require.NoError(t, err)
}

func TestNew_LegacyExpressionIsFlagged(t *testing.T) {
	r, err := rule.New(rule.Record{CurrentQ: 1, Expression: "q1 == 'yes'", NextQ: qindex.At(2)}, names)
	require.NoError(t, err)
	assert.True(t, r.Legacy())
	assert.Equal(t, "q1 == 'yes'", r.Expression(), "construction must not rewrite the expression")
}
