package models

import (
	"fmt"
	"sync"
)

// ResultStore is the run-scoped mapping from step name to its recorded
// result. Entries are appended as steps complete and never rewritten or
// removed; a skipped step never gets an entry. Reads are safe from
// concurrently running sub-tasks, writes happen only between steps.
type ResultStore struct {
	mu      sync.RWMutex
	results map[string]*StepResult
	order   []string
}

// NewResultStore creates an empty result store.
func NewResultStore() *ResultStore {
	return &ResultStore{
		results: make(map[string]*StepResult),
	}
}

// Put records a step result. Rewriting an existing entry is an error: the
// store only grows within a run.
func (s *ResultStore) Put(result *StepResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.results[result.StepName]; exists {
		return fmt.Errorf("result for step %q already recorded", result.StepName)
	}
	s.results[result.StepName] = result
	s.order = append(s.order, result.StepName)
	return nil
}

// Get returns the result recorded for a step, if any.
func (s *ResultStore) Get(name string) (*StepResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[name]
	return r, ok
}

// Len returns the number of recorded results.
func (s *ResultStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}

// Names returns the recorded step names in completion order.
func (s *ResultStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Snapshot returns a point-in-time copy of the mapping for serialization.
// The StepResult values are shared; callers must not mutate them.
func (s *ResultStore) Snapshot() map[string]*StepResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*StepResult, len(s.results))
	for name, r := range s.results {
		out[name] = r
	}
	return out
}
