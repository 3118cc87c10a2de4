package dag

import (
	"fmt"
	"sort"
)

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[int]*node),
	}
}

// AddNode adds a node for the given question index. Adding an existing node
// does nothing.
func (g *Graph) AddNode(id int) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.addNodeLocked(id)
}

func (g *Graph) addNodeLocked(id int) *node {
	if n, ok := g.nodes[id]; ok {
		return n
	}
	n := &node{
		id:         id,
		deps:       make(map[int]EdgeKind),
		dependents: make(map[int]EdgeKind),
	}
	g.nodes[id] = n
	return n
}

// AddEdge creates a directed edge from `fromID` to `toID`, meaning `toID`
// depends on `fromID`. Re-adding an edge overwrites its kind. An error is
// returned if either node does not exist or the edge is a self-reference.
func (g *Graph) AddEdge(fromID, toID int, kind EdgeKind) error {
	if fromID == toID {
		return fmt.Errorf("self-referential edge not allowed: %d -> %d", fromID, fromID)
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	fromNode, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %d", fromID)
	}
	toNode, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %d", toID)
	}

	toNode.deps[fromID] = kind
	fromNode.dependents[toID] = kind
	return nil
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.nodes)
}

// EdgeKind returns the kind of the edge from -> to, if present.
func (g *Graph) EdgeKind(fromID, toID int) (EdgeKind, bool) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[toID]
	if !ok {
		return 0, false
	}
	kind, ok := n.deps[fromID]
	return kind, ok
}

// Merge adds other's nodes and edges to g. An edge g already has keeps its
// kind.
func (g *Graph) Merge(other *Graph) {
	if other == nil || other == g {
		return
	}
	other.mutex.RLock()
	defer other.mutex.RUnlock()
	g.mutex.Lock()
	defer g.mutex.Unlock()

	for _, id := range sortedKeys(other.nodes) {
		g.addNodeLocked(id)
	}
	for _, id := range sortedKeys(other.nodes) {
		to := g.nodes[id]
		for from, kind := range other.nodes[id].deps {
			if _, ok := to.deps[from]; ok {
				continue
			}
			to.deps[from] = kind
			g.nodes[from].dependents[id] = kind
		}
	}
}

// Dependencies returns the sorted indices the given node depends on.
func (g *Graph) Dependencies(id int) ([]int, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %d", id)
	}
	return sortedKeys(n.deps), nil
}

// Dependents returns the sorted indices that depend on the given node.
func (g *Graph) Dependents(id int) ([]int, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %d", id)
	}
	return sortedKeys(n.dependents), nil
}

// DetectCycles checks the graph for cycles and returns a *CycleError listing
// every one found, or nil.
func (g *Graph) DetectCycles() error {
	if cycles := g.Cycles(); len(cycles) > 0 {
		return &CycleError{Cycles: cycles}
	}
	return nil
}

// Cycles runs a depth-first search over dependent edges and returns one
// path per back edge encountered. Nodes and neighbours are visited in index
// order so the result is deterministic.
func (g *Graph) Cycles() [][]int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	// Classic three-colour DFS:
	// permanent: fully visited.
	// onStack: currently in the recursion stack (stack holds the order).
	permanent := make(map[int]bool)
	onStack := make(map[int]bool)
	var stack []int
	var cycles [][]int

	var visit func(n *node)
	visit = func(n *node) {
		onStack[n.id] = true
		stack = append(stack, n.id)

		for _, nextID := range sortedKeys(n.dependents) {
			if onStack[nextID] {
				// Back edge: the cycle is the stack suffix starting at nextID.
				for i := len(stack) - 1; i >= 0; i-- {
					if stack[i] == nextID {
						cycle := make([]int, len(stack)-i)
						copy(cycle, stack[i:])
						cycles = append(cycles, cycle)
						break
					}
				}
				continue
			}
			if !permanent[nextID] {
				visit(g.nodes[nextID])
			}
		}

		stack = stack[:len(stack)-1]
		delete(onStack, n.id)
		permanent[n.id] = true
	}

	for _, id := range sortedKeys(g.nodes) {
		if !permanent[id] {
			visit(g.nodes[id])
		}
	}
	return cycles
}

// TopologicalOrder returns the nodes ordered so that every node comes after
// all of its dependencies. Among ready nodes the lowest index goes first.
func (g *Graph) TopologicalOrder() ([]int, error) {
	if err := g.DetectCycles(); err != nil {
		return nil, err
	}

	g.mutex.RLock()
	defer g.mutex.RUnlock()

	inDegree := make(map[int]int, len(g.nodes))
	for id, n := range g.nodes {
		inDegree[id] = len(n.deps)
	}

	var ready []int
	for id, d := range inDegree {
		if d == 0 {
			ready = append(ready, id)
		}
	}
	sort.Ints(ready)

	order := make([]int, 0, len(g.nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		for _, dep := range sortedKeys(g.nodes[id].dependents) {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				ready = append(ready, dep)
				sort.Ints(ready)
			}
		}
	}
	return order, nil
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
