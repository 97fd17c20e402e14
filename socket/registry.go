package socket

import (
	"sync"
	"time"

	"naskahcollab/internal/document/model"
)

// outbox is where a participant's outbound frames go.
type outbox interface {
	enqueue(msg []byte)
	close()
}

// Participant is one connection's membership in a document session.
// It is immutable after creation; a re-join builds a new one.
type Participant struct {
	ConnID      string
	UserID      string
	DisplayName string
	Role        model.Role
	DocID       string
	JoinedAt    time.Time

	out outbox
}

func (p *Participant) presence() PresenceEntry {
	return PresenceEntry{UserID: p.UserID, DisplayName: p.DisplayName, Role: p.Role}
}

// ConnectionRegistry maps connection ids to their participant.
type ConnectionRegistry struct {
	mu     sync.RWMutex
	byConn map[string]*Participant
}

func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{byConn: make(map[string]*Participant)}
}

// Attach registers p, replacing any stale entry for the same connection.
func (r *ConnectionRegistry) Attach(p *Participant) {
	r.mu.Lock()
	r.byConn[p.ConnID] = p
	r.mu.Unlock()
}

func (r *ConnectionRegistry) Lookup(connID string) (*Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byConn[connID]
	return p, ok
}

func (r *ConnectionRegistry) Detach(connID string) (*Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byConn[connID]
	if ok {
		delete(r.byConn, connID)
	}
	return p, ok
}

func (r *ConnectionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}

// SessionRegistry groups participants by document, in join order.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string][]*Participant
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string][]*Participant)}
}

// Join adds p to its document's session and reports whether the session was created.
func (r *SessionRegistry) Join(p *Participant) (created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	members, ok := r.sessions[p.DocID]
	for i, m := range members {
		if m.ConnID == p.ConnID {
			members[i] = p
			return false
		}
	}
	r.sessions[p.DocID] = append(members, p)
	return !ok
}

// Leave removes the connection from the document's session, discarding the session when
// it empties. It returns the number of members left.
func (r *SessionRegistry) Leave(docID, connID string) (remaining int, removed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	members, ok := r.sessions[docID]
	if !ok {
		return 0, false
	}
	kept := make([]*Participant, 0, len(members))
	for _, m := range members {
		if m.ConnID == connID {
			removed = true
			continue
		}
		kept = append(kept, m)
	}
	if len(kept) == 0 {
		delete(r.sessions, docID)
	} else {
		r.sessions[docID] = kept
	}
	return len(kept), removed
}

// Members returns a point-in-time copy of the session's participants.
func (r *SessionRegistry) Members(docID string) []*Participant {
	return r.Peers(docID, "")
}

// Peers is Members without the given connection.
func (r *SessionRegistry) Peers(docID, excludeConn string) []*Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.sessions[docID]
	out := make([]*Participant, 0, len(members))
	for _, m := range members {
		if m.ConnID != excludeConn {
			out = append(out, m)
		}
	}
	return out
}

func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
