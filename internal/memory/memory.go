// Package memory tracks which earlier questions' answers must be visible
// when a later question is asked.
package memory

import "slices"

// Memory is the ordered, duplicate-free list of prior questions for one
// focal question.
type Memory struct {
	prior []string
}

// New returns a memory holding the given names, dropping duplicates.
func New(names ...string) *Memory {
	m := &Memory{}
	for _, name := range names {
		m.Add(name)
	}
	return m
}

// Add appends name unless it is already present and reports whether it was
// added.
func (m *Memory) Add(name string) bool {
	if m.Contains(name) {
		return false
	}
	m.prior = append(m.prior, name)
	return true
}

// Remove deletes name and reports whether it was present.
func (m *Memory) Remove(name string) bool {
	i := slices.Index(m.prior, name)
	if i < 0 {
		return false
	}
	m.prior = slices.Delete(m.prior, i, i+1)
	return true
}

// Contains reports whether name is in the memory.
func (m *Memory) Contains(name string) bool {
	return slices.Contains(m.prior, name)
}

// Names returns the prior question names in insertion order.
func (m *Memory) Names() []string {
	return slices.Clone(m.prior)
}

// Len returns the number of prior questions.
func (m *Memory) Len() int { return len(m.prior) }
