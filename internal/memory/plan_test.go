package memory_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/surveynav/internal/dag"
	"github.com/vk/surveynav/internal/memory"
)

func newPlan(t *testing.T) *memory.Plan {
	t.Helper()
	p, err := memory.NewPlan(
		[]string{"q0", "q1", "q2", "q3"},
		[]string{"How old are you?", "Where do you live?", "Do you rent?", "Why?"},
	)
	require.NoError(t, err)
	return p
}

func TestMemory(t *testing.T) {
	m := memory.New("a", "b", "a")
	assert.Equal(t, []string{"a", "b"}, m.Names())
	assert.False(t, m.Add("b"))
	assert.True(t, m.Add("c"))
	assert.True(t, m.Remove("a"))
	assert.False(t, m.Remove("a"))
	assert.Equal(t, []string{"b", "c"}, m.Names())
	assert.Equal(t, 2, m.Len())
}

func TestPlan_AddSingleMemory(t *testing.T) {
	p := newPlan(t)

	require.NoError(t, p.AddSingleMemory("q1", "q0"))
	assert.Equal(t, dag.DAG{1: dag.NewSet(0)}, p.DAG())

	err := p.AddSingleMemory("q0", "q1")
	require.ErrorIs(t, err, memory.ErrMemory)
	var planErr *memory.PlanError
	require.True(t, errors.As(err, &planErr))
	assert.Equal(t, "q0", planErr.Focal)
	assert.Equal(t, "q1", planErr.Prior)
}

func TestPlan_AddSingleMemoryErrors(t *testing.T) {
	p := newPlan(t)
	testCases := []struct {
		name, focal, prior, want string
	}{
		{"same question", "q1", "q1", "must come before"},
		{"unknown focal", "nope", "q0", "unknown focal"},
		{"unknown prior", "q1", "nope", "unknown prior"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := p.AddSingleMemory(tc.focal, tc.prior)
			require.ErrorIs(t, err, memory.ErrMemory)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
	assert.Empty(t, p.Focals())
}

func TestPlan_AddMemoryCollection(t *testing.T) {
	p := newPlan(t)
	require.NoError(t, p.AddMemoryCollection("q3", []string{"q2", "q0", "q2"}))
	assert.Equal(t, []string{"q2", "q0"}, p.Memory("q3"))

	err := p.AddMemoryCollection("q1", []string{"q0", "q2"})
	require.ErrorIs(t, err, memory.ErrMemory)
	assert.Empty(t, p.Memory("q1"), "a failed batch must add nothing")
}

func TestPlan_MemoryModes(t *testing.T) {
	t.Run("full", func(t *testing.T) {
		p := newPlan(t)
		p.SetFullMemoryMode()
		want := dag.DAG{
			1: dag.NewSet(0),
			2: dag.NewSet(0, 1),
			3: dag.NewSet(0, 1, 2),
		}
		if diff := cmp.Diff(want, p.DAG()); diff != "" {
			t.Errorf("DAG() mismatch (-want +got):\n%s", diff)
		}
		assert.Equal(t, []string{"q1", "q2", "q3"}, p.Focals())
	})

	t.Run("lagged", func(t *testing.T) {
		p := newPlan(t)
		require.NoError(t, p.SetLaggedMemory(1))
		want := dag.DAG{
			1: dag.NewSet(0),
			2: dag.NewSet(1),
			3: dag.NewSet(2),
		}
		if diff := cmp.Diff(want, p.DAG()); diff != "" {
			t.Errorf("DAG() mismatch (-want +got):\n%s", diff)
		}
		assert.ErrorIs(t, p.SetLaggedMemory(0), memory.ErrMemory)
	})
}

func TestPlan_RemoveQuestion(t *testing.T) {
	p := newPlan(t)
	require.NoError(t, p.AddMemoryCollection("q3", []string{"q1", "q2"}))
	require.NoError(t, p.AddSingleMemory("q2", "q1"))
	require.NoError(t, p.AddSingleMemory("q1", "q0"))

	require.NoError(t, p.RemoveQuestion("q1"))

	assert.Equal(t, []string{"q0", "q2", "q3"}, p.QuestionNames())
	assert.Equal(t, []string{"How old are you?", "Do you rent?", "Why?"}, p.QuestionTexts())
	assert.Equal(t, []string{"q2"}, p.Memory("q3"))
	assert.Empty(t, p.Memory("q2"))
	assert.Empty(t, p.Memory("q1"))
	assert.Equal(t, []string{"q3"}, p.Focals())

	// Indices shift with the removal: q3 is now index 2.
	assert.Equal(t, dag.DAG{2: dag.NewSet(1)}, p.DAG())

	assert.ErrorIs(t, p.RemoveQuestion("q1"), memory.ErrMemory)
}

func TestPlan_PromptFragment(t *testing.T) {
	p := newPlan(t)
	require.NoError(t, p.AddMemoryCollection("q2", []string{"q0", "q1"}))

	got, err := p.PromptFragment("q2", map[string]any{"q0.answer": 42})
	require.NoError(t, err)
	want := memory.PromptHeader +
		"\tQuestion: How old are you?\n\tAnswer: 42\n" +
		"\tQuestion: Where do you live?\n\tAnswer: (unanswered)\n"
	assert.Equal(t, want, got)

	got, err = p.PromptFragment("q2", map[string]any{"q0": "forty", "q1.answer": "Oslo"})
	require.NoError(t, err)
	assert.Contains(t, got, "Answer: forty")
	assert.Contains(t, got, "Answer: Oslo")

	got, err = p.PromptFragment("q1", nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = p.PromptFragment("nope", nil)
	assert.ErrorIs(t, err, memory.ErrMemory)
}

func TestNewPlan_Errors(t *testing.T) {
	_, err := memory.NewPlan([]string{"a"}, nil)
	assert.ErrorIs(t, err, memory.ErrMemory)

	_, err = memory.NewPlan([]string{"a", "a"}, []string{"", ""})
	assert.ErrorIs(t, err, memory.ErrMemory)
}
