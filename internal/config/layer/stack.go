package layer

import (
	"sort"
	"sync"
)

// Stack holds at most one layer per source and resolves lookups from the
// highest priority layer that sets a path.
type Stack struct {
	mu     sync.RWMutex
	layers []*Layer // ascending source priority
}

// NewStack creates a stack holding the given layers.
func NewStack(layers ...*Layer) *Stack {
	s := &Stack{}
	for _, l := range layers {
		s.Put(l)
	}
	return s
}

// Put installs l, replacing the layer of the same source.
func (s *Stack) Put(l *Layer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.layers {
		if existing.Source == l.Source {
			s.layers[i] = l
			return
		}
	}
	s.layers = append(s.layers, l)
	sort.SliceStable(s.layers, func(i, j int) bool {
		return s.layers[i].Source < s.layers[j].Source
	})
}

// Get returns a copy of the effective value at path and the layer that
// provides it.
func (s *Stack) Get(path string) (any, *Layer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.layers) - 1; i >= 0; i-- {
		if val, ok := s.layers[i].Get(path); ok {
			return val, s.layers[i], true
		}
	}
	return nil, nil, false
}

// LayerValue returns the value a single source sets at path.
func (s *Stack) LayerValue(source Source, path string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, l := range s.layers {
		if l.Source == source {
			return l.Get(path)
		}
	}
	return nil, false
}

// Effective returns a copy of every layer merged in priority order.
func (s *Stack) Effective() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	merged := make(map[string]any)
	for _, l := range s.layers {
		merged = DeepMerge(merged, l.Data)
	}
	return merged
}
