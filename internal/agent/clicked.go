package agent

import "sync"

// ClickedSet is the insert-only set of item identifiers already activated.
type ClickedSet struct {
	mu    sync.Mutex
	ids   map[string]struct{}
	order []string
}

func NewClickedSet() *ClickedSet {
	return &ClickedSet{ids: make(map[string]struct{})}
}

// Add inserts id and reports whether it was new.
func (s *ClickedSet) Add(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	s.order = append(s.order, id)
	return true
}

func (s *ClickedSet) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

func (s *ClickedSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// IDs returns identifiers in insertion order.
func (s *ClickedSet) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
