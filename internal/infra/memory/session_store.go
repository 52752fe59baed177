package memory

import (
	"sync"

	"quiz-session-engine/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
// The store lock only guards the map; each session carries its own lock, so
// independent sessions never contend here beyond a lookup.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Create(session *app.Session, replace func(existing *app.Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[session.ID()]; ok {
		if err := replace(existing); err != nil {
			return err
		}
	}
	s.sessions[session.ID()] = session
	return nil
}

func (s *SessionStore) Get(id string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	return session, ok
}

func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Touch is a no-op: resident sessions never expire in memory.
func (s *SessionStore) Touch(string) {}

// Len reports how many sessions are resident.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
