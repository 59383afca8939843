package mcp

import "sync"

// SessionRegistry maps flowchart IDs to MCP session IDs.
// Populated automatically when a session calls any tool that touches a
// flowchart, so later changes can be pushed back to it.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]string // flowchartID → sessionID
}

// NewSessionRegistry creates a new empty SessionRegistry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]string)}
}

// Register associates a flowchart ID with a session ID.
// If the flowchart already has a watcher, it is overwritten (reconnect).
func (r *SessionRegistry) Register(flowchartID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[flowchartID] = sessionID
}

// SessionFor returns the session ID watching the given flowchart, if any.
func (r *SessionRegistry) SessionFor(flowchartID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sid, ok := r.sessions[flowchartID]
	return sid, ok
}

// Remove deletes all flowchart mappings for the given session ID.
// Called when a session disconnects.
func (r *SessionRegistry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for fid, sid := range r.sessions {
		if sid == sessionID {
			delete(r.sessions, fid)
		}
	}
}
