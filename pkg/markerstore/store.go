// Package markerstore holds the client-side view of the marker collection.
// Mutations are optimistic: a marker appears (or changes) immediately under a
// temporary identity and is reconciled against the canonical record once the
// backend answers, or rolled back if it doesn't.
package markerstore

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/puntomapa/puntomapa/pkg/core"
)

const tempIDPrefix = "tmp-"

// Store is an ordered, concurrency-safe marker collection.
type Store struct {
	mu      sync.RWMutex
	markers []core.Marker

	// rollback holds the pre-change copy of every marker with an
	// optimistic in-place edit, keyed by marker ID.
	rollback map[string]core.Marker
}

// New returns an empty store.
func New() *Store {
	return &Store{rollback: make(map[string]core.Marker)}
}

// Snapshot returns a copy of the collection in insertion order. Callers may
// mutate the returned slice freely.
func (s *Store) Snapshot() []core.Marker {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Marker, len(s.markers))
	copy(out, s.markers)
	return out
}

// Len returns the number of markers, pending ones included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.markers)
}

// Get looks a marker up by ID, temporary or canonical.
func (s *Store) Get(id string) (core.Marker, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		return s.markers[i], true
	}
	return core.Marker{}, false
}

// Replace swaps the whole collection for a fresh server listing, dropping any
// pending optimistic state.
func (s *Store) Replace(markers []core.Marker) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.markers = make([]core.Marker, len(markers))
	copy(s.markers, markers)
	s.rollback = make(map[string]core.Marker)
}

// OptimisticAdd appends the marker under a generated temporary ID and returns
// that ID. The temporary key is what Confirm or Reject must later reference;
// positional indexes are useless here because the slice shifts under
// concurrent adds and removes.
func (s *Store) OptimisticAdd(m core.Marker) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	m.ID = tempIDPrefix + uuid.NewString()
	s.markers = append(s.markers, m)
	return m.ID
}

// OptimisticUpdate applies the patch to the identified marker in place,
// remembering the previous state so Reject can restore it. It reports whether
// the marker was found.
func (s *Store) OptimisticUpdate(id string, patch core.MarkerPatch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false
	}

	if _, saved := s.rollback[id]; !saved {
		s.rollback[id] = s.markers[i]
	}

	m := &s.markers[i]
	if patch.Location != nil {
		m.Location = *patch.Location
	}
	if patch.Name != nil {
		m.Name = *patch.Name
	}
	if patch.Description != nil {
		m.Description = *patch.Description
	}
	if patch.Category != nil {
		m.Category = *patch.Category
	}
	if patch.Image != nil {
		m.Image = *patch.Image
	}
	if patch.Audio != nil {
		m.Audio = *patch.Audio
	}
	return true
}

// Confirm replaces the marker held under id (temporary or canonical) with the
// canonical record returned by the backend, keeping its position. Any
// rollback state for that marker is discarded.
func (s *Store) Confirm(id string, canonical core.Marker) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.markers[i] = canonical
	delete(s.rollback, id)
	return true
}

// Reject undoes the optimistic change under id: a temporary add is removed,
// an in-place edit is restored to its pre-change state. A canonical marker
// with no pending edit is left alone — rejecting it reports false instead of
// deleting confirmed data.
func (s *Store) Reject(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false
	}

	if prev, ok := s.rollback[id]; ok {
		s.markers[i] = prev
		delete(s.rollback, id)
		return true
	}

	if !strings.HasPrefix(id, tempIDPrefix) {
		return false
	}

	s.markers = append(s.markers[:i], s.markers[i+1:]...)
	return true
}

// Remove drops the marker with the given ID. Removing an absent ID is a
// no-op, matching the idempotent delete on the backend.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(id); i >= 0 {
		s.markers = append(s.markers[:i], s.markers[i+1:]...)
	}
	delete(s.rollback, id)
}

// indexOf returns the position of the marker with the given ID, or -1.
// Caller holds at least a read lock.
func (s *Store) indexOf(id string) int {
	for i := range s.markers {
		if s.markers[i].ID == id {
			return i
		}
	}
	return -1
}
