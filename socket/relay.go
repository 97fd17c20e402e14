package socket

import (
	"encoding/json"

	"naskahcollab/internal/document/model"
	"naskahcollab/pkg/logger"
	"naskahcollab/pkg/metrics"
)

// sender returns the participant behind connID, or drops the event when the
// connection has not (yet) joined a session.
func (h *Hub) sender(connID, msgType string) (*Participant, bool) {
	p, ok := h.conns.Lookup(connID)
	if !ok {
		drop("not_joined", connID, msgType)
		return nil, false
	}
	return p, true
}

// broadcast sends one encoded frame to every session member except the sender.
// Frames from one sender reach each recipient's outbox in emission order.
func (h *Hub) broadcast(from *Participant, msgType string, payload interface{}) {
	msg, err := encode(msgType, from.DocID, from.UserID, payload)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling %s broadcast: %v", msgType, err)
		return
	}
	for _, p := range h.sessions.Peers(from.DocID, from.ConnID) {
		p.out.enqueue(msg)
	}
	metrics.RelayedEvents.WithLabelValues(msgType).Inc()
}

func (h *Hub) relayChange(c *Client, delta json.RawMessage) {
	p, ok := h.sender(c.id, ChangeType)
	if !ok {
		return
	}
	if !model.Can(p.Role, model.ActionWrite) {
		drop("forbidden", c.id, ChangeType)
		logger.Sugar.Warnw("Permission denied: change from read-only participant", "document_id", p.DocID, "user_id", p.UserID, "role", p.Role)
		return
	}
	if len(delta) == 0 {
		drop("malformed", c.id, ChangeType)
		return
	}
	h.broadcast(p, ChangeType, delta)
}

func (h *Hub) relayTitle(c *Client, raw json.RawMessage) {
	p, ok := h.sender(c.id, TitleType)
	if !ok {
		return
	}
	if !model.Can(p.Role, model.ActionWrite) {
		drop("forbidden", c.id, TitleType)
		return
	}
	var title string
	if err := json.Unmarshal(raw, &title); err != nil {
		drop("malformed", c.id, TitleType)
		return
	}
	h.broadcast(p, TitleType, title)
	h.titles.record(p.DocID, title)
}

// relayCursor forwards a caret/selection move with the sender's identity, for any role.
func (h *Hub) relayCursor(c *Client, raw json.RawMessage) {
	p, ok := h.sender(c.id, CursorType)
	if !ok {
		return
	}
	var rng CursorRange
	if err := json.Unmarshal(raw, &rng); err != nil {
		drop("malformed", c.id, CursorType)
		return
	}
	h.broadcast(p, CursorType, CursorPayload{CursorRange: rng, Sender: p.presence()})
}
