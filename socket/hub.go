package socket

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"naskahcollab/internal/document/model"
	"naskahcollab/pkg/logger"
	"naskahcollab/pkg/metrics"
)

const anonymousName = "Anonymous"

// Documents is the slice of the document service the coordinator needs.
type Documents interface {
	Open(ctx context.Context, docID string) (*model.Document, error)
	ResolveRole(ctx context.Context, doc *model.Document, userID, requested string) (model.Role, error)
	SaveSnapshot(ctx context.Context, docID string, content json.RawMessage, title string) error
	UpdateTitle(ctx context.Context, docID, title string) error
}

type Options struct {
	StoreTimeout    time.Duration
	TitleFlush      time.Duration
	SendBuffer      int
	MaxMessageBytes int64
	PingInterval    time.Duration
	EventRPS        float64
	EventBurst      int
}

func DefaultOptions() Options {
	return Options{
		StoreTimeout:    5 * time.Second,
		TitleFlush:      2 * time.Second,
		SendBuffer:      256,
		MaxMessageBytes: 1 << 20,
		PingInterval:    30 * time.Second,
		EventRPS:        50,
		EventBurst:      100,
	}
}

// Hub coordinates live document sessions. Each connection's events are handled on that
// connection's own goroutine; the hub's state lives in the two registries and the
// pending title table, each guarded by its own lock.
type Hub struct {
	docs     Documents
	opts     Options
	conns    *ConnectionRegistry
	sessions *SessionRegistry
	titles   *pendingTitles
}

func NewHub(docs Documents, opts Options) *Hub {
	return &Hub{
		docs:     docs,
		opts:     opts,
		conns:    NewConnectionRegistry(),
		sessions: NewSessionRegistry(),
		titles:   newPendingTitles(),
	}
}

func (h *Hub) storeContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), h.opts.StoreTimeout)
}

// Members returns the participants currently attached to docID.
func (h *Hub) Members(docID string) []*Participant {
	return h.sessions.Members(docID)
}

func drop(reason, connID, msgType string) {
	metrics.DroppedEvents.WithLabelValues(reason).Inc()
	logger.Sugar.Debugw("Dropped event", "reason", reason, "connection_id", connID, "type", msgType)
}

// dispatch routes one inbound message. A panic here only costs the offending connection.
func (h *Hub) dispatch(c *Client, msg WSMessage) {
	defer func() {
		if r := recover(); r != nil {
			logger.Sugar.Errorw("Recovered from panic while handling event", "connection_id", c.id, "type", msg.Type, "panic", fmt.Sprint(r))
			c.close()
		}
	}()

	switch msg.Type {
	case JoinType:
		var req JoinPayload
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, &req); err != nil {
				drop("malformed", c.id, msg.Type)
				return
			}
		}
		if req.DocumentID == "" {
			req.DocumentID = msg.DocID
		}
		h.join(c, req)
	case ChangeType:
		h.relayChange(c, msg.Payload)
	case TitleType:
		h.relayTitle(c, msg.Payload)
	case CursorType:
		h.relayCursor(c, msg.Payload)
	case SaveType:
		h.save(c, msg.Payload)
	default:
		drop("unknown_type", c.id, msg.Type)
	}
}

// join resolves the caller's role, admits it to the document session, sends the
// snapshot, and announces the new roster. A connection already in a session moves.
func (h *Hub) join(c *Client, req JoinPayload) {
	docID := strings.TrimSpace(req.DocumentID)
	if docID == "" {
		drop("malformed", c.id, JoinType)
		logger.Sugar.Warnw("Join without document id", "connection_id", c.id)
		return
	}

	if _, joined := h.conns.Lookup(c.id); joined {
		h.leave(c.id)
	}

	userID := c.identity.UserID
	name := c.identity.DisplayName
	if userID != "" && req.User != nil && req.User.ID == userID && req.User.DisplayName != "" {
		name = req.User.DisplayName
	}
	if userID == "" {
		name = anonymousName
	} else if name == "" {
		name = userID
	}

	ctx, cancel := h.storeContext()
	defer cancel()

	doc, err := h.docs.Open(ctx, docID)
	if err != nil {
		drop("store_error", c.id, JoinType)
		logger.Sugar.Errorw("Failed to open document", "document_id", docID, "connection_id", c.id, "error", err)
		return
	}
	role, err := h.docs.ResolveRole(ctx, doc, userID, req.RequestedRole)
	if err != nil {
		drop("store_error", c.id, JoinType)
		logger.Sugar.Errorw("Failed to resolve role", "document_id", docID, "user_id", userID, "error", err)
		return
	}

	p := &Participant{
		ConnID:      c.id,
		UserID:      userID,
		DisplayName: name,
		Role:        role,
		DocID:       docID,
		JoinedAt:    time.Now(),
		out:         c,
	}

	title := doc.Title
	if pending, ok := h.titles.peek(docID); ok {
		title = pending
	}
	snapshot, err := encode(SnapshotType, docID, userID, SnapshotPayload{Content: doc.Content, Title: title, Role: role})
	if err != nil {
		logger.Sugar.Errorf("Error marshalling snapshot for %s: %v", docID, err)
		return
	}
	// Queued before the participant becomes a relay target: no peer change precedes it.
	c.enqueue(snapshot)

	h.conns.Attach(p)
	if h.sessions.Join(p) {
		metrics.ActiveSessions.Inc()
	}
	logger.Sugar.Infow("Participant joined", "document_id", docID, "connection_id", c.id, "user_id", userID, "role", role)

	h.announce(docID)
}

// leave detaches the connection and re-announces presence to whoever is left.
// The last participant out flushes any pending title for the document.
func (h *Hub) leave(connID string) {
	p, ok := h.conns.Detach(connID)
	if !ok {
		return
	}
	remaining, removed := h.sessions.Leave(p.DocID, connID)
	if !removed {
		return
	}
	logger.Sugar.Infow("Participant left", "document_id", p.DocID, "connection_id", connID, "user_id", p.UserID)

	if remaining == 0 {
		metrics.ActiveSessions.Dec()
		ctx, cancel := h.storeContext()
		h.flushTitle(ctx, p.DocID)
		cancel()
		logger.Sugar.Infof("Closed empty session: %s", p.DocID)
		return
	}
	h.announce(p.DocID)
}

// RemoveDocument disconnects everyone attached to a deleted document and forgets
// its pending title so it is not written back.
func (h *Hub) RemoveDocument(docID string) {
	h.titles.take(docID)
	for _, p := range h.sessions.Members(docID) {
		p.out.close()
	}
}
