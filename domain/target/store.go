package target

import (
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store. Persistence lives outside the core;
// hosts load their saved targets into one of these at startup.
type MemoryStore struct {
	mu        sync.RWMutex
	targets   map[string]*Target
	callbacks []func()
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{targets: map[string]*Target{}}
}

// Enabled returns the enabled targets in stable key order. The slice is
// fresh per call; the Target values are shared and treated as immutable.
func (s *MemoryStore) Enabled() []*Target {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.targets))
	for k, t := range s.targets {
		if t.Enabled {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([]*Target, len(keys))
	for i, k := range keys {
		out[i] = s.targets[k]
	}
	return out
}

// Get looks a target up by key.
func (s *MemoryStore) Get(key string) (*Target, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.targets[key]
	return t, ok
}

// Upsert adds or replaces a target and notifies change subscribers.
func (s *MemoryStore) Upsert(t *Target) {
	s.mu.Lock()
	s.targets[t.Key()] = t
	s.mu.Unlock()
	s.notify()
}

// Remove deletes a target and notifies change subscribers. Callers owning
// per-target engine state should purge it as well.
func (s *MemoryStore) Remove(moduleID, targetID string) {
	s.mu.Lock()
	delete(s.targets, Key(moduleID, targetID))
	s.mu.Unlock()
	s.notify()
}

// OnChange registers fn to run after every mutation.
func (s *MemoryStore) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, fn)
}

// notify runs callbacks without holding the lock so they may re-enter the
// store.
func (s *MemoryStore) notify() {
	s.mu.RLock()
	cbs := make([]func(), len(s.callbacks))
	copy(cbs, s.callbacks)
	s.mu.RUnlock()
	for _, fn := range cbs {
		fn()
	}
}

var _ Store = (*MemoryStore)(nil)
