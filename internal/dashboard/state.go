// Package dashboard is the client side of the clinic ledger: it chooses
// between the remote store and a local fallback, owns the in-memory
// collection and applies user mutations to whichever target is active.
package dashboard

import (
	"sync"

	"clinica/internal/core"
)

// Mode is the persistence target chosen by the last refresh.
type Mode string

const (
	ModeUnknown Mode = ""
	ModeRemote  Mode = "remote"
	ModeLocal   Mode = "local"
)

func (m Mode) String() string {
	if m == ModeUnknown {
		return "unknown"
	}
	return string(m)
}

// State is the single owner of the in-memory collection, newest first.
// Readers get copies; only backends write.
type State struct {
	mu    sync.RWMutex
	items []core.Transaction
}

func NewState() *State {
	return &State{}
}

// Snapshot returns a copy of the collection.
func (s *State) Snapshot() []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Transaction, len(s.items))
	copy(out, s.items)
	return out
}

func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Replace adopts list as the whole collection.
func (s *State) Replace(list []core.Transaction) {
	items := make([]core.Transaction, len(list))
	copy(items, list)

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
}

func (s *State) prepend(t core.Transaction) []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = core.Prepend(s.items, t)
	return s.copyLocked()
}

// remove drops id and reports whether it was present, with the resulting
// collection.
func (s *State) remove(id string) ([]core.Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed bool
	s.items, removed = core.Without(s.items, id)
	return s.copyLocked(), removed
}

func (s *State) has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return core.IndexOf(s.items, id) >= 0
}

func (s *State) copyLocked() []core.Transaction {
	out := make([]core.Transaction, len(s.items))
	copy(out, s.items)
	return out
}
