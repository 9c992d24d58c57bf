package data

import (
	"sync"
	"time"
)

// Store provides thread-safe in-memory storage for the latest snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot *Snapshot
	lastSync time.Time
}

// NewStore creates a new empty data store.
func NewStore() *Store {
	return &Store{}
}

// Set replaces the current snapshot. Readers holding the previous snapshot keep
// a consistent view of it.
func (s *Store) Set(snapshot *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot = snapshot
	s.lastSync = snapshot.FetchedAt
	if s.lastSync.IsZero() {
		s.lastSync = time.Now()
	}
}

// Get retrieves the current snapshot. Returns false if no data is available.
func (s *Store) Get() (*Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snapshot == nil {
		return nil, false
	}

	return s.snapshot, true
}

// HasData returns true if the store contains a snapshot.
func (s *Store) HasData() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshot != nil
}

// LastSync returns the time of the last data synchronization.
func (s *Store) LastSync() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lastSync
}
