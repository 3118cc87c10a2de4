package dag

import (
	"fmt"
	"strings"
)

// EndOfSurveyName is the label Textify uses for indices past the last
// question.
const EndOfSurveyName = "EndOfSurvey"

// Set is a set of question indices.
type Set map[int]struct{}

// NewSet returns a set holding ids.
func NewSet(ids ...int) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Sorted returns the members in ascending order.
func (s Set) Sorted() []int { return sortedKeys(s) }

// DAG maps a question index to the set of indices it depends on.
type DAG map[int]Set

// Add records that child depends on parent.
func (d DAG) Add(child, parent int) {
	parents, ok := d[child]
	if !ok {
		parents = make(Set)
		d[child] = parents
	}
	parents[parent] = struct{}{}
}

// Parents returns the sorted dependencies of child.
func (d DAG) Parents(child int) []int {
	return d[child].Sorted()
}

// Children returns the sorted keys of the map.
func (d DAG) Children() []int { return sortedKeys(d) }

// Merge returns a new DAG that is the per-key union of d and others.
func (d DAG) Merge(others ...DAG) DAG {
	out := make(DAG, len(d))
	for _, src := range append([]DAG{d}, others...) {
		for child, parents := range src {
			for parent := range parents {
				out.Add(child, parent)
			}
		}
	}
	return out
}

// Textify remaps indices to question names. Indices without a name map to
// EndOfSurveyName. Parent lists are sorted by index, not by name.
func (d DAG) Textify(names []string) map[string][]string {
	label := func(i int) string {
		if i >= 0 && i < len(names) {
			return names[i]
		}
		return EndOfSurveyName
	}

	out := make(map[string][]string, len(d))
	for _, child := range d.Children() {
		parents := d.Parents(child)
		labels := make([]string, 0, len(parents))
		for _, p := range parents {
			labels = append(labels, label(p))
		}
		out[label(child)] = labels
	}
	return out
}

// Graph converts the map into an adjacency Graph with every edge marked
// with kind.
func (d DAG) Graph(kind EdgeKind) *Graph {
	g := New()
	for child, parents := range d {
		g.AddNode(child)
		for parent := range parents {
			g.AddNode(parent)
		}
	}
	for child, parents := range d {
		for parent := range parents {
			// Both nodes exist, so only a self-edge can fail; it is dropped.
			_ = g.AddEdge(parent, child, kind)
		}
	}
	return g
}

// String renders the DAG deterministically, e.g. `{1: [0], 3: [1 2]}`.
func (d DAG) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, child := range d.Children() {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%d: %v", child, d.Parents(child))
	}
	sb.WriteByte('}')
	return sb.String()
}
