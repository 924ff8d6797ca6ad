package session

import "sync"

// Registry tracks the live connections of every session on this instance.
// The outer map is guarded by its own lock; each session entry carries its
// own mutex so sessions never contend with each other.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*sessionConns
}

type sessionConns struct {
	mu     sync.Mutex
	conns  map[string]*Client
	purged bool
}

// insert refuses writes into an entry that Purge already detached from the
// registry, so a join can never land in a map nothing else can see.
func (s *sessionConns) insert(c *Client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.purged {
		return false
	}
	s.conns[c.ID] = c
	return true
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*sessionConns)}
}

func (r *Registry) entry(sessionID string, create bool) *sessionConns {
	r.mu.RLock()
	s, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if ok || !create {
		return s
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok = r.sessions[sessionID]; ok {
		return s
	}
	s = &sessionConns{conns: make(map[string]*Client)}
	r.sessions[sessionID] = s
	return s
}

// Add registers a connection. A concurrent Purge can detach the entry
// between resolution and insertion; the insert then fails and Add resolves
// a fresh entry, so the registration is never lost.
func (r *Registry) Add(sessionID string, c *Client) {
	for {
		if r.entry(sessionID, true).insert(c) {
			return
		}
	}
}

// Remove deletes a connection and reports how many remain. Removing an
// absent identity is a no-op, so whichever code path observes a disconnect
// first wins and later calls change nothing.
func (r *Registry) Remove(sessionID, connID string) (remaining int, removed bool) {
	s := r.entry(sessionID, false)
	if s == nil {
		return 0, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conns[connID]; !ok {
		return len(s.conns), false
	}
	delete(s.conns, connID)
	return len(s.conns), true
}

// Snapshot returns a point-in-time copy for broadcast, so fan-out never
// iterates a map being mutated by a concurrent join or leave.
func (r *Registry) Snapshot(sessionID string) map[string]*Client {
	s := r.entry(sessionID, false)
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*Client, len(s.conns))
	for id, c := range s.conns {
		out[id] = c
	}
	return out
}

// Get returns a registered connection, if it is still live.
func (r *Registry) Get(sessionID, connID string) (*Client, bool) {
	s := r.entry(sessionID, false)
	if s == nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conns[connID]
	return c, ok
}

func (r *Registry) Count(sessionID string) int {
	s := r.entry(sessionID, false)
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (r *Registry) IsEmpty(sessionID string) bool { return r.Count(sessionID) == 0 }

// Purge drops the per-session bookkeeping once the session has emptied.
// Re-checked under both locks so a join racing the purge is not lost.
func (r *Registry) Purge(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	s.mu.Lock()
	if len(s.conns) == 0 {
		s.purged = true
		delete(r.sessions, sessionID)
	}
	s.mu.Unlock()
}
