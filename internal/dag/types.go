package dag

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrCycle is returned when a dependency graph contains a cycle.
var ErrCycle = errors.New("cycle detected")

// EdgeKind records why one question depends on another.
type EdgeKind int

const (
	// KindDependency is a plain dependency with no further provenance.
	KindDependency EdgeKind = iota
	// KindJump comes from an after-rule whose branch decides whether the
	// dependent question is presented.
	KindJump
	// KindSkip comes from a before-rule: the skipped question depends on
	// every question ahead of it.
	KindSkip
	// KindMemory comes from a memory entry.
	KindMemory
	// KindPiping comes from a template reference in question text.
	KindPiping
)

func (k EdgeKind) String() string {
	switch k {
	case KindJump:
		return "jump"
	case KindSkip:
		return "skip"
	case KindMemory:
		return "memory"
	case KindPiping:
		return "piping"
	default:
		return "dependency"
	}
}

// Graph is a collection of question nodes and their dependencies.
// All operations on the graph are concurrency-safe.
type Graph struct {
	// mutex protects the nodes map during concurrent access.
	mutex sync.RWMutex
	// nodes stores all nodes in the graph, keyed by question index.
	nodes map[int]*node
}

// node is a single vertex. Edge maps are keyed by the neighbour's index and
// hold the kind of the edge.
type node struct {
	id int
	// deps holds the nodes this node depends on (predecessors).
	deps map[int]EdgeKind
	// dependents holds the nodes that depend on this node (successors).
	dependents map[int]EdgeKind
}

// CycleError reports every cycle found in a graph. Each cycle is listed as
// the path of node indices that closes back on its first element.
// Wraps ErrCycle for errors.Is() compatibility.
type CycleError struct {
	Cycles [][]int
}

func (e *CycleError) Error() string {
	if e == nil {
		return ""
	}
	parts := make([]string, 0, len(e.Cycles))
	for _, c := range e.Cycles {
		steps := make([]string, 0, len(c)+1)
		for _, id := range c {
			steps = append(steps, fmt.Sprint(id))
		}
		if len(c) > 0 {
			steps = append(steps, fmt.Sprint(c[0]))
		}
		parts = append(parts, strings.Join(steps, " -> "))
	}
	return fmt.Sprintf("%s: %s", ErrCycle.Error(), strings.Join(parts, "; "))
}

func (e *CycleError) Unwrap() error { return ErrCycle }
