package composer

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry holds the live sessions of the HTTP surface.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[uuid.UUID]*Session)}
}

func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
}

func (r *Registry) Get(id uuid.UUID) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (r *Registry) Delete(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Sweep drops finalized sessions and sessions idle for longer than maxIdle.
// It returns how many were removed. Sessions are inspected without the
// registry lock held, so a session busy in a finalize only delays the sweep.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	r.mu.RLock()
	live := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		live = append(live, s)
	}
	r.mu.RUnlock()

	var stale []*Session
	for _, s := range live {
		s.mu.Lock()
		if s.state == StateFinalized || s.updatedAt.Before(cutoff) {
			stale = append(stale, s)
		}
		s.mu.Unlock()
	}
	if len(stale) == 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range stale {
		if r.sessions[s.ID] == s {
			delete(r.sessions, s.ID)
			n++
		}
	}
	return n
}
