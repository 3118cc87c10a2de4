package simulate

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/surveynav/internal/question"
	"github.com/vk/surveynav/internal/survey"
)

func coinSurvey(t *testing.T) *survey.Survey {
	t.Helper()
	flip, err := question.New("flip", "Heads or tails?", "heads", "tails")
	require.NoError(t, err)
	why, err := question.New("why", "Why tails?")
	require.NoError(t, err)
	bye, err := question.New("bye", "Anything else?")
	require.NoError(t, err)

	s, err := survey.New([]*question.Question{flip, why, bye})
	require.NoError(t, err)
	_, err = s.AddSkipRule("why", "{{ flip.answer }} == 'heads'")
	require.NoError(t, err)
	return s
}

func TestRun(t *testing.T) {
	s := coinSurvey(t)
	report, err := Run(context.Background(), s, Config{Agents: 200, Workers: 8, Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, 200, report.Agents)
	require.Len(t, report.Paths, 2)

	total := 0
	keys := map[string]bool{}
	for _, p := range report.Paths {
		total += p.Count
		keys[p.Key()] = true
	}
	assert.Equal(t, 200, total)
	assert.True(t, keys["flip -> bye"])
	assert.True(t, keys["flip -> why -> bye"])
	assert.GreaterOrEqual(t, report.Paths[0].Count, report.Paths[1].Count)
}

func TestRun_Reproducible(t *testing.T) {
	s := coinSurvey(t)
	a, err := Run(context.Background(), s, Config{Agents: 50, Workers: 4, Seed: 9})
	require.NoError(t, err)
	b, err := Run(context.Background(), s, Config{Agents: 50, Workers: 16, Seed: 9})
	require.NoError(t, err)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("same seed gave different reports (-first +second):\n%s", diff)
	}
}

func TestRun_Errors(t *testing.T) {
	s := coinSurvey(t)
	_, err := Run(context.Background(), s, Config{})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Run(ctx, s, Config{Agents: 3})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTally(t *testing.T) {
	got := tally([][]string{{"a", "b"}, {"a"}, {"a", "b"}, {"c"}})
	want := []PathCount{
		{Path: []string{"a", "b"}, Count: 2},
		{Path: []string{"a"}, Count: 1},
		{Path: []string{"c"}, Count: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tally mismatch (-want +got):\n%s", diff)
	}
}
