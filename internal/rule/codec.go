package rule

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/vk/surveynav/internal/expr"
)

// wireCollection is the serialized form. The name table appears once, at
// the collection level.
type wireCollection struct {
	Rules               []wireRule     `json:"rules"`
	NumQuestions        int            `json:"num_questions"`
	QuestionNameToIndex map[string]int `json:"question_name_to_index"`
}

// wireRule accepts the per-rule name table found in older payloads. It is
// never written.
type wireRule struct {
	Record
	QuestionNameToIndex map[string]int `json:"question_name_to_index,omitempty"`
}

// MarshalJSON encodes the collection with a single name table.
func (c *Collection) MarshalJSON() ([]byte, error) {
	w := wireCollection{
		Rules:               make([]wireRule, 0, len(c.rules)),
		NumQuestions:        len(c.names),
		QuestionNameToIndex: c.NameToIndex(),
	}
	for _, r := range c.rules {
		w.Rules = append(w.Rules, wireRule{Record: r.Record()})
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes into c, replacing its contents. It behaves like
// Decode with no options, keeping c's logger if one is set.
func (c *Collection) UnmarshalJSON(data []byte) error {
	var opts []Option
	if c.logger != nil {
		opts = append(opts, WithLogger(c.logger))
	}
	decoded, err := Decode(data, opts...)
	if err != nil {
		return err
	}
	*c = *decoded
	return nil
}

// Decode parses a serialized collection. Every rule is validated; legacy
// bare-name expressions are migrated to template form with a warning, and
// a name table stored on individual rules is lifted to the collection.
func Decode(data []byte, opts ...Option) (*Collection, error) {
	var w wireCollection
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to decode rule collection: %w", err)
	}

	table, err := liftNameTable(w)
	if err != nil {
		return nil, err
	}
	names, err := namesFromTable(table, w.NumQuestions)
	if err != nil {
		return nil, err
	}

	c, err := NewCollection(names, opts...)
	if err != nil {
		return nil, err
	}

	for i, wr := range w.Rules {
		rec := wr.Record
		rec.Expression = migrateRecord(c.logger, rec, names)
		if _, err := c.AddRule(rec); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return c, nil
}

// migrateRecord applies the legacy migration to one rule's expression.
func migrateRecord(logger *slog.Logger, rec Record, names []string) string {
	compiled, err := expr.Compile(rec.Expression)
	if err != nil || !compiled.Legacy() {
		// Invalid expressions are reported by AddRule.
		return rec.Expression
	}
	migrated, changed := expr.MigrateLegacy(rec.Expression, names)
	if changed {
		logger.Warn("Migrated legacy rule expression to template form.",
			"question", rec.CurrentQ,
			"from", rec.Expression,
			"to", migrated,
		)
	}
	return migrated
}

func liftNameTable(w wireCollection) (map[string]int, error) {
	table := w.QuestionNameToIndex
	for i, wr := range w.Rules {
		if len(wr.QuestionNameToIndex) == 0 {
			continue
		}
		if len(table) == 0 {
			table = wr.QuestionNameToIndex
			continue
		}
		for name, idx := range wr.QuestionNameToIndex {
			if existing, ok := table[name]; ok && existing != idx {
				return nil, fmt.Errorf("%w: rule %d maps %q to %d, collection maps it to %d", ErrInvalidRule, i, name, idx, existing)
			}
		}
	}
	return table, nil
}

func namesFromTable(table map[string]int, numQuestions int) ([]string, error) {
	if len(table) != numQuestions {
		return nil, fmt.Errorf("%w: name table has %d entries for %d questions", ErrInvalidRule, len(table), numQuestions)
	}
	names := make([]string, numQuestions)
	for name, idx := range table {
		if idx < 0 || idx >= numQuestions {
			return nil, fmt.Errorf("%w: question %q has index %d outside 0..%d", ErrInvalidRule, name, idx, numQuestions-1)
		}
		if names[idx] != "" {
			return nil, fmt.Errorf("%w: questions %q and %q share index %d", ErrInvalidRule, names[idx], name, idx)
		}
		names[idx] = name
	}
	return names, nil
}
