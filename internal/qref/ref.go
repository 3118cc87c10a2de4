package qref

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

// Reserved roots that never name a question.
const (
	RootAgent    = "agent"
	RootScenario = "scenario"
)

// Segment is a single component of a reference path, e.g. `answer` or `answer[0]`.
type Segment struct {
	Name  string
	Index int // -1 indicates no index is present.
}

// NewSegment creates a segment without an index.
func NewSegment(name string) Segment {
	return Segment{Name: name, Index: -1}
}

// NewSegmentWithIndex creates a segment that includes an index.
func NewSegmentWithIndex(name string, index int) Segment {
	return Segment{Name: name, Index: index}
}

// HasIndex returns true if the segment has an explicit index.
func (s Segment) HasIndex() bool {
	return s.Index != -1
}

// Ref is a parsed template reference.
type Ref struct {
	Path []Segment
}

// segmentRegex parses a single segment, e.g. `name` or `name[1]`.
var segmentRegex = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_-]*)(?:\[(\d+)\])?$`)

// Parse creates a Ref from its canonical string form. Surrounding
// whitespace is ignored.
func Parse(raw string) (Ref, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Ref{}, fmt.Errorf("reference cannot be empty")
	}

	var ref Ref
	for _, part := range strings.Split(raw, ".") {
		if part == "" {
			return Ref{}, fmt.Errorf("reference %q contains an empty segment", raw)
		}
		matches := segmentRegex.FindStringSubmatch(part)
		if matches == nil {
			return Ref{}, fmt.Errorf("invalid reference segment %q in %q", part, raw)
		}
		seg := NewSegment(matches[1])
		if matches[2] != "" {
			index, err := strconv.Atoi(matches[2])
			if err != nil {
				return Ref{}, fmt.Errorf("internal error parsing index: %w", err)
			}
			seg.Index = index
		}
		ref.Path = append(ref.Path, seg)
	}
	return ref, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level literals.
func MustParse(raw string) Ref {
	ref, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return ref
}

// Root returns the first segment's name.
func (r Ref) Root() string {
	if len(r.Path) == 0 {
		return ""
	}
	return r.Path[0].Name
}

// IsQuestion reports whether the root could name a question, i.e. it is not
// one of the reserved agent/scenario namespaces.
func (r Ref) IsQuestion() bool {
	root := r.Root()
	return root != "" && root != RootAgent && root != RootScenario
}

// String serializes the reference into its canonical form, which is also
// the lookup key in an evaluation environment.
func (r Ref) String() string {
	var sb strings.Builder
	for i, seg := range r.Path {
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(seg.Name)
		if seg.HasIndex() {
			fmt.Fprintf(&sb, "[%d]", seg.Index)
		}
	}
	return sb.String()
}

// Equal checks for deep equality between two references.
func (r Ref) Equal(other Ref) bool {
	return reflect.DeepEqual(r.Path, other.Path)
}
