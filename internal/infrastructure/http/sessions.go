package http

import (
	"sync"

	"github.com/0xcro3dile/docchat-go/internal/domain/entities"
	"github.com/0xcro3dile/docchat-go/internal/domain/usecases"
)

// sessionEntry pairs a session with the lock held while one of its answers
// is streaming.
type sessionEntry struct {
	busy       sync.Mutex
	sess       entities.Session
	lastStream string
}

// SessionRegistry keeps the live sessions of the HTTP collaborator. Session
// values are replaced wholesale; nothing mutates a stored session in place.
type SessionRegistry struct {
	mu      sync.RWMutex
	entries map[string]*sessionEntry
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{entries: make(map[string]*sessionEntry)}
}

// Add stores a new session.
func (r *SessionRegistry) Add(sess entities.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[sess.ID] = &sessionEntry{sess: sess}
}

// Get returns the current value of a session.
func (r *SessionRegistry) Get(id string) (entities.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return entities.Session{}, false
	}
	return e.sess, true
}

// RecordStream notes how the latest answer in a session ended.
func (r *SessionRegistry) RecordStream(id string, status usecases.StreamStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		e.lastStream = status.String()
	}
}

// LastStream returns the status recorded by RecordStream, or "" before the
// first answer.
func (r *SessionRegistry) LastStream(id string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[id]; ok {
		return e.lastStream
	}
	return ""
}

// Remove drops a session. It reports whether the session existed.
func (r *SessionRegistry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[id]
	delete(r.entries, id)
	return ok
}

// Len returns the number of live sessions.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Acquire marks a session busy and returns its current value along with a
// release func that stores the updated session. It fails with
// entities.ErrSessionBusy while another holder is active.
func (r *SessionRegistry) Acquire(id string) (entities.Session, func(entities.Session), error) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return entities.Session{}, nil, errUnknownSession
	}
	if !e.busy.TryLock() {
		return entities.Session{}, nil, entities.ErrSessionBusy
	}

	r.mu.RLock()
	sess := e.sess
	r.mu.RUnlock()

	release := func(updated entities.Session) {
		r.mu.Lock()
		e.sess = updated
		r.mu.Unlock()
		e.busy.Unlock()
	}
	return sess, release, nil
}
