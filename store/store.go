// Package store holds the client's in-memory authenticated session.
//
// A SessionStore is the only mutable state shared by the renewal, request and
// registry components. It performs no I/O. Every mutation bumps a generation
// counter so that asynchronous writers can drop results that were overtaken
// by a newer Set or Clear.
package store

import (
	"sync"

	"github.com/Krish-Depani/auth-session-client/models"
)

// SessionStore is safe for concurrent use. Subscribers see mutations in
// generation order and must not mutate the store themselves.
type SessionStore struct {
	// writeMu serializes a mutation together with its notifications.
	writeMu sync.Mutex

	mu      sync.RWMutex
	session models.Session
	gen     uint64

	subMu  sync.Mutex
	subs   map[uint64]func(models.Session)
	order  []uint64
	nextID uint64
}

func New() *SessionStore {
	return &SessionStore{subs: make(map[uint64]func(models.Session))}
}

// Current returns a copy of the held session.
func (s *SessionStore) Current() models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// Token returns the live access token, or "" when unauthenticated.
func (s *SessionStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.AccessToken
}

// Generation returns the number of mutations applied so far.
func (s *SessionStore) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// Snapshot returns the held session together with its generation.
func (s *SessionStore) Snapshot() (models.Session, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session, s.gen
}

// Set replaces the held session.
func (s *SessionStore) Set(session models.Session) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	next := s.apply(normalize(session))
	s.mu.Unlock()
	s.notify(next)
}

// Clear drops the held session.
func (s *SessionStore) Clear() {
	s.Set(models.Session{})
}

// SetIf applies session only if no mutation happened since gen was read.
func (s *SessionStore) SetIf(gen uint64, session models.Session) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return false
	}
	next := s.apply(normalize(session))
	s.mu.Unlock()
	s.notify(next)
	return true
}

// ClearIf clears the session only if no mutation happened since gen was read.
func (s *SessionStore) ClearIf(gen uint64) bool {
	return s.SetIf(gen, models.Session{})
}

// Subscribe registers fn to be called synchronously after every mutation.
// The returned func removes the subscription.
func (s *SessionStore) Subscribe(fn func(models.Session)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	s.nextID++
	id := s.nextID
	s.subs[id] = fn
	s.order = append(s.order, id)

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
		for i, v := range s.order {
			if v == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
}

// apply must be called with mu held.
func (s *SessionStore) apply(session models.Session) models.Session {
	s.session = session
	s.gen++
	return session
}

func (s *SessionStore) notify(session models.Session) {
	s.subMu.Lock()
	fns := make([]func(models.Session), 0, len(s.order))
	for _, id := range s.order {
		fns = append(fns, s.subs[id])
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(session)
	}
}

// normalize enforces Status == Authenticated iff AccessToken != "".
func normalize(session models.Session) models.Session {
	if session.AccessToken != "" {
		session.Status = models.StatusAuthenticated
		return session
	}
	if session.Status == models.StatusAuthenticating {
		return models.Session{Status: models.StatusAuthenticating}
	}
	return models.Session{}
}
