package qref

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name        string
		raw         string
		expectErr   bool
		expectedRef Ref
	}{
		{
			name:        "question answer",
			raw:         "q1.answer",
			expectedRef: Ref{Path: []Segment{NewSegment("q1"), NewSegment("answer")}},
		},
		{
			name:        "surrounding whitespace",
			raw:         "  q1.answer ",
			expectedRef: Ref{Path: []Segment{NewSegment("q1"), NewSegment("answer")}},
		},
		{
			name:        "bare name",
			raw:         "q0",
			expectedRef: Ref{Path: []Segment{NewSegment("q0")}},
		},
		{
			name:        "indexed segment",
			raw:         "q3.answer[2]",
			expectedRef: Ref{Path: []Segment{NewSegment("q3"), NewSegmentWithIndex("answer", 2)}},
		},
		{name: "error - empty", raw: "", expectErr: true},
		{name: "error - empty segment", raw: "q1..answer", expectErr: true},
		{name: "error - leading digit", raw: "1q.answer", expectErr: true},
		{name: "error - bad index", raw: "q1.answer[x]", expectErr: true},
		{name: "error - spaces inside", raw: "q1 answer", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ref, err := Parse(tc.raw)
			if tc.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tc.expectedRef.Equal(ref), "got %v", ref)
		})
	}
}

func TestRef_RoundTrip(t *testing.T) {
	for _, raw := range []string{"q1.answer", "agent.persona", "q3.answer[0].label"} {
		t.Run(raw, func(t *testing.T) {
			ref, err := Parse(raw)
			require.NoError(t, err)
			assert.Equal(t, raw, ref.String())
		})
	}
}

func TestRef_IsQuestion(t *testing.T) {
	assert.True(t, MustParse("q1.answer").IsQuestion())
	assert.False(t, MustParse("agent.persona").IsQuestion())
	assert.False(t, MustParse("scenario.city").IsQuestion())
	assert.False(t, Ref{}.IsQuestion())
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParse("not valid!") })
}
