package socket

import (
	"encoding/json"

	"naskahcollab/internal/document/model"
)

const (
	JoinType           = "JOIN"            // Participant opens a document
	ChangeType         = "CHANGE"          // Opaque editor delta, relayed verbatim
	TitleType          = "TITLE"           // Document title edit
	CursorType         = "CURSOR"          // Selection/caret moved
	SaveType           = "SAVE"            // Full snapshot to persist
	SnapshotType       = "SNAPSHOT"        // Initial state sent to a joiner
	PresenceUpdateType = "PRESENCE_UPDATE" // Active participant roster
)

type WSMessage struct {
	Type    string          `json:"type"`
	DocID   string          `json:"document_id,omitempty"`
	UserID  string          `json:"user_id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type JoinUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type JoinPayload struct {
	DocumentID    string    `json:"document_id"`
	User          *JoinUser `json:"user,omitempty"`
	RequestedRole string    `json:"requested_role"`
}

type SnapshotPayload struct {
	Content json.RawMessage `json:"content"`
	Title   string          `json:"title"`
	Role    model.Role      `json:"role"`
}

type PresenceEntry struct {
	UserID      string     `json:"user_id"`
	DisplayName string     `json:"display_name"`
	Role        model.Role `json:"role"`
}

type CursorRange struct {
	Index  int `json:"index"`
	Length int `json:"length"`
}

type CursorPayload struct {
	CursorRange
	Sender PresenceEntry `json:"sender"`
}

type SavePayload struct {
	Content json.RawMessage `json:"content"`
	Title   string          `json:"title"`
}

func encode(msgType, docID, userID string, payload interface{}) ([]byte, error) {
	var raw json.RawMessage
	switch p := payload.(type) {
	case json.RawMessage:
		raw = p
	default:
		b, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return json.Marshal(WSMessage{Type: msgType, DocID: docID, UserID: userID, Payload: raw})
}
