package corpus

import "sync"

// Store holds the current batch of conversations. Readers get copies.
type Store struct {
	mu    sync.RWMutex
	convs []Conversation
	byID  map[string]int
}

// NewStore creates a store seeded with convs.
func NewStore(convs ...Conversation) *Store {
	s := &Store{}
	s.Replace(convs)
	return s
}

// Add appends conversations to the batch. A conversation whose ID is
// already present replaces the earlier one in place.
func (s *Store) Add(convs ...Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range convs {
		if i, ok := s.byID[c.ID]; ok && c.ID != "" {
			s.convs[i] = c
			continue
		}
		s.byID[c.ID] = len(s.convs)
		s.convs = append(s.convs, c)
	}
}

// Replace swaps in a new batch.
func (s *Store) Replace(convs []Conversation) {
	next := make([]Conversation, len(convs))
	copy(next, convs)
	byID := make(map[string]int, len(next))
	for i, c := range next {
		byID[c.ID] = i
	}

	s.mu.Lock()
	s.convs = next
	s.byID = byID
	s.mu.Unlock()
}

// Snapshot returns a copy of the current batch.
func (s *Store) Snapshot() []Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Conversation, len(s.convs))
	copy(out, s.convs)
	return out
}

// Get returns the conversation with id.
func (s *Store) Get(id string) (Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[id]
	if !ok {
		return Conversation{}, false
	}
	return s.convs[i], true
}

// Len returns the number of conversations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.convs)
}
