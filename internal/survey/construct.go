package survey

import (
	"github.com/vk/surveynav/internal/dag"
)

// PipingDAG returns the sub-graph of template references in question text
// and options. Every question is scanned and all references to the same or
// a later question are reported together in one *ForwardPipingError.
// References whose root is not a question name are ignored.
func (s *Survey) PipingDAG() (dag.DAG, error) {
	d := dag.DAG{}
	var violations []PipingViolation

	for i, q := range s.questions {
		for _, ref := range q.Parameters() {
			if !ref.IsQuestion() {
				continue
			}
			refIdx, ok := s.rules.IndexOf(ref.Root())
			if !ok {
				continue
			}
			if refIdx >= i {
				violations = append(violations, PipingViolation{
					Question:        q.Name,
					QuestionIndex:   i,
					Reference:       ref.String(),
					ReferencedIndex: refIdx,
				})
				continue
			}
			d.Add(i, refIdx)
		}
	}

	if len(violations) > 0 {
		return nil, &ForwardPipingError{Violations: violations}
	}
	return d, nil
}

// DAG merges the rule, memory and piping sub-graphs into the survey's
// dependency graph. It is recomputed on every call.
func (s *Survey) DAG() (dag.DAG, error) {
	piping, err := s.PipingDAG()
	if err != nil {
		return nil, err
	}
	rules := s.rules.DAG()
	memories := s.memory.DAG()
	merged := rules.Merge(memories, piping)

	s.logger.Debug("Constructed survey DAG.",
		"questions", len(s.questions),
		"rule_edges", edgeCount(rules),
		"memory_edges", edgeCount(memories),
		"piping_edges", edgeCount(piping),
		"nodes_with_parents", len(merged),
	)
	return merged, nil
}

// TextDAG is DAG with question names in place of indices.
func (s *Survey) TextDAG() (map[string][]string, error) {
	d, err := s.DAG()
	if err != nil {
		return nil, err
	}
	return d.Textify(s.Names()), nil
}

// Graph returns the merged dependencies as an adjacency graph whose edges
// record their origin. When two sub-graphs produce the same edge the rule
// kind is kept, then memory, then piping.
func (s *Survey) Graph() (*dag.Graph, error) {
	piping, err := s.PipingDAG()
	if err != nil {
		return nil, err
	}
	g := s.rules.Graph()
	g.Merge(s.memory.DAG().Graph(dag.KindMemory))
	g.Merge(piping.Graph(dag.KindPiping))
	return g, nil
}

// TopologicalOrder returns every question index ordered after all of its
// dependencies, lowest index first among independent questions.
func (s *Survey) TopologicalOrder() ([]int, error) {
	g, err := s.Graph()
	if err != nil {
		return nil, err
	}
	return g.TopologicalOrder()
}

// Validate builds the dependency graph and checks it for cycles.
func (s *Survey) Validate() error {
	g, err := s.Graph()
	if err != nil {
		return err
	}
	return g.DetectCycles()
}

func edgeCount(d dag.DAG) int {
	n := 0
	for _, parents := range d {
		n += len(parents)
	}
	return n
}
