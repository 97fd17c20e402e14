package model

import (
	"encoding/json"
	"time"
)

const DefaultTitle = "Untitled Document"

// EmptyContent is the editor snapshot stored for a lazily created document.
var EmptyContent = json.RawMessage(`{}`)

type Collaborator struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

// Document is the durable record the coordinator reads on join and writes on save.
// Content is an opaque editor snapshot and is never interpreted.
type Document struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Content       json.RawMessage `json:"content"`
	OwnerID       string          `json:"owner_id"`
	Collaborators []Collaborator  `json:"collaborators"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// DocumentUpdate carries the fields of a partial update. Nil fields are left untouched.
type DocumentUpdate struct {
	Title   *string
	Content json.RawMessage
}

func (d *Document) Collaborator(userID string) (Collaborator, bool) {
	for _, c := range d.Collaborators {
		if c.UserID == userID {
			return c, true
		}
	}
	return Collaborator{}, false
}

type CreateDocResponse struct {
	DocID string `json:"document_id"`
}

type CreateDocRequest struct {
	Title string `json:"title"`
}

type CollaboratorInfo struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

type DocumentMetadata struct {
	ID        string             `json:"id"`
	Title     string             `json:"title"`
	UpdatedAt time.Time          `json:"updated_at"`
	IsOwner   bool               `json:"is_owner"`
	Collab    []CollaboratorInfo `json:"collab"`
}
