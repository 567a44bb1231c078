package session

import (
	"sync"

	"teamdash/reconcile"
)

type entry struct {
	uid     string
	session *reconcile.Session
}

// Hub tracks the open event streams so command requests can find their
// session.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]entry
}

func NewHub() *Hub {
	return &Hub{sessions: make(map[string]entry)}
}

func (h *Hub) Add(id, uid string, s *reconcile.Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[id] = entry{uid: uid, session: s}
}

func (h *Hub) Remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, id)
}

func (h *Hub) Get(id string) (string, *reconcile.Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	e, ok := h.sessions[id]
	return e.uid, e.session, ok
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}
