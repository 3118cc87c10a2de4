package rule

import (
	"github.com/vk/surveynav/internal/dag"
	"github.com/vk/surveynav/internal/qindex"
)

// KeysBetween returns the question indices strictly after start up to end,
// including end when rightInclusive is set. EndOfSurvey and indices past
// the last question are treated as the last question.
func (c *Collection) KeysBetween(start int, end qindex.Target, rightInclusive bool) []int {
	last := len(c.names) - 1
	if idx, ok := end.Index(); ok && idx < last {
		last = idx
	}
	if !rightInclusive {
		last--
	}

	var keys []int
	for k := start + 1; k <= last; k++ {
		keys = append(keys, k)
	}
	return keys
}

// DAG returns the dependency sub-graph implied by the rules. A question
// reached only through a non-default jump depends on the question the jump
// starts from. A question with a skip rule depends on every earlier
// question.
func (c *Collection) DAG() dag.DAG {
	d := dag.DAG{}
	c.eachEdge(func(from, to int, _ dag.EdgeKind) {
		d.Add(to, from)
	})
	return d
}

// Graph returns the rule dependencies as an adjacency graph whose edges are
// marked as jump or skip edges, oriented from prior to dependent question.
func (c *Collection) Graph() *dag.Graph {
	g := dag.New()
	for q := range c.names {
		g.AddNode(q)
	}
	c.eachEdge(func(from, to int, kind dag.EdgeKind) {
		// Nodes exist for every index, so only self-edges fail.
		_ = g.AddEdge(from, to, kind)
	})
	return g
}

// DetectCycles runs a depth-first search over Graph and returns a
// *dag.CycleError listing every cycle, or nil.
func (c *Collection) DetectCycles() error {
	return c.Graph().DetectCycles()
}

func (c *Collection) eachEdge(fn func(from, to int, kind dag.EdgeKind)) {
	for _, r := range c.rules {
		switch {
		case r.beforeRule:
			for k := 0; k < r.currentQ; k++ {
				fn(k, r.currentQ, dag.KindSkip)
			}
		case !r.IsDefault():
			for _, k := range c.KeysBetween(r.currentQ, r.nextQ, true) {
				fn(r.currentQ, k, dag.KindJump)
			}
		}
	}
}
