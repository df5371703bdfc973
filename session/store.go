// Package session owns authentication state: the observable process-wide
// Session value, the durable credential stores behind it, and the manager
// that drives login, registration, logout and profile maintenance against
// the auth and user services.
package session

import (
	"sync"

	"github.com/vitrinelabs/vitrine/core"
)

// Store is the single process-wide holder of the Session value. Consumers
// read snapshots or subscribe for updates; mutation goes exclusively through
// the Manager. Exactly one Store exists per SDK client.
type Store struct {
	mu      sync.RWMutex
	current core.Session
	token   string
	subs    map[int]func(core.Session)
	nextID  int
}

// NewStore creates an empty, unauthenticated session store
func NewStore() *Store {
	return &Store{subs: make(map[int]func(core.Session))}
}

// Snapshot returns the latest published Session. Never blocks, never
// performs I/O.
func (s *Store) Snapshot() core.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Token returns the access token of the latest published Session, or the
// empty string when unauthenticated
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Subscribe registers fn to be called with every published Session,
// starting with the current one. The returned function cancels the
// subscription.
func (s *Store) Subscribe(fn func(core.Session)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	current := s.current
	s.mu.Unlock()

	fn(current)

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// publish replaces the Session and notifies subscribers. Subscribers run
// outside the lock so they may read the store.
func (s *Store) publish(sess core.Session, token string) {
	s.mu.Lock()
	s.current = sess
	s.token = token
	fns := make([]func(core.Session), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(sess)
	}
}
