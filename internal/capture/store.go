package capture

import (
	"fmt"
	"sync"
)

// DefaultCapacity is the number of events a Store keeps when the caller has
// no opinion.
const DefaultCapacity = 1000

// Store is a bounded, append-only history of captured events. When a new
// event would exceed capacity the oldest event is evicted first. All methods
// are safe for concurrent use; appends are linearized, so an append that
// completes before another begins precedes it in every later snapshot.
type Store struct {
	mu       sync.Mutex
	events   []Event
	capacity int
}

// NewStore creates a store holding at most capacity events.
func NewStore(capacity int) (*Store, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("store capacity must be positive, got %d", capacity)
	}
	return &Store{
		events:   make([]Event, 0, capacity),
		capacity: capacity,
	}, nil
}

// Append adds one event, evicting the oldest entry if the store is full.
func (s *Store) Append(e Event) {
	s.mu.Lock()
	if len(s.events) >= s.capacity {
		s.events = s.events[1:]
	}
	s.events = append(s.events, e)
	s.mu.Unlock()
}

// Snapshot returns an independent copy of the current contents in insertion
// order. Later appends and clears do not affect a returned snapshot.
func (s *Store) Snapshot() []Event {
	s.mu.Lock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	s.mu.Unlock()
	return out
}

// Clear empties the store. Snapshots taken before the clear remain valid.
func (s *Store) Clear() {
	s.mu.Lock()
	s.events = make([]Event, 0, s.capacity)
	s.mu.Unlock()
}

// Size returns the current number of stored events.
func (s *Store) Size() int {
	s.mu.Lock()
	n := len(s.events)
	s.mu.Unlock()
	return n
}

// Capacity returns the configured maximum number of events.
func (s *Store) Capacity() int {
	return s.capacity
}
