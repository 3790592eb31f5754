package server

import (
	"sync"
)

// SessionRegistry tracks every live session by ID so the coordinator can
// route replies to command senders.
type SessionRegistry struct {
	mu    sync.RWMutex
	store map[string]Session
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{store: make(map[string]Session)}
}

func (r *SessionRegistry) Store(session Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.store[session.Meta().ID] = session
}

func (r *SessionRegistry) Get(id string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	val, ok := r.store[id]
	return val, ok
}

func (r *SessionRegistry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.store, id)
}

func (r *SessionRegistry) List() []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]Session, 0, len(r.store))
	for _, session := range r.store {
		sessions = append(sessions, session)
	}
	return sessions
}

func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.store)
}
