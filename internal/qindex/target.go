// Package qindex defines the navigation target type: either a zero-based
// question index or the EndOfSurvey sentinel.
package qindex

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// EndOfSurveyName is the serialized and textual form of EndOfSurvey.
const EndOfSurveyName = "EndOfSurvey"

// Target is a navigation destination. The zero value is question 0.
// Target is comparable; EndOfSurvey never equals At(i) for any i.
type Target struct {
	index int
	end   bool
}

// EndOfSurvey marks survey termination.
var EndOfSurvey = Target{end: true}

// At returns the target for question index i.
func At(i int) Target {
	return Target{index: i}
}

// IsEnd reports whether the target is EndOfSurvey.
func (t Target) IsEnd() bool {
	return t.end
}

// Index returns the question index and true, or 0 and false for EndOfSurvey.
func (t Target) Index() (int, bool) {
	if t.end {
		return 0, false
	}
	return t.index, true
}

// After reports whether t lies strictly after question q. EndOfSurvey is
// after every question.
func (t Target) After(q int) bool {
	return t.end || t.index > q
}

// Clamp maps any index at or beyond numQuestions to EndOfSurvey.
func (t Target) Clamp(numQuestions int) Target {
	if t.end || t.index >= numQuestions {
		return EndOfSurvey
	}
	return t
}

func (t Target) String() string {
	if t.end {
		return EndOfSurveyName
	}
	return strconv.Itoa(t.index)
}

// MarshalJSON encodes an index as a number and EndOfSurvey as a string.
func (t Target) MarshalJSON() ([]byte, error) {
	if t.end {
		return json.Marshal(EndOfSurveyName)
	}
	return json.Marshal(t.index)
}

// UnmarshalJSON accepts a number or the string "EndOfSurvey".
func (t *Target) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := Parse(s)
		if err != nil {
			return err
		}
		*t = parsed
		return nil
	}
	var i int
	if err := json.Unmarshal(data, &i); err != nil {
		return fmt.Errorf("target must be an integer or %q: %w", EndOfSurveyName, err)
	}
	if i < 0 {
		return fmt.Errorf("target index must not be negative, got %d", i)
	}
	*t = At(i)
	return nil
}

// Parse reads a target from its textual form: a non-negative integer or
// "EndOfSurvey".
func Parse(s string) (Target, error) {
	if s == EndOfSurveyName {
		return EndOfSurvey, nil
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return Target{}, fmt.Errorf("invalid target %q: must be an integer or %q", s, EndOfSurveyName)
	}
	if i < 0 {
		return Target{}, fmt.Errorf("target index must not be negative, got %d", i)
	}
	return At(i), nil
}
