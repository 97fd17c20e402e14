package socket

import (
	"naskahcollab/pkg/logger"
	"naskahcollab/pkg/metrics"
)

// announce pushes the full roster of docID to every member, the triggering one included.
func (h *Hub) announce(docID string) {
	members := h.sessions.Members(docID)
	if len(members) == 0 {
		return
	}

	roster := make([]PresenceEntry, 0, len(members))
	for _, p := range members {
		roster = append(roster, p.presence())
	}
	msg, err := encode(PresenceUpdateType, docID, "", roster)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling presence broadcast: %v", err)
		return
	}
	for _, p := range members {
		p.out.enqueue(msg)
	}
	metrics.RelayedEvents.WithLabelValues(PresenceUpdateType).Inc()
}
