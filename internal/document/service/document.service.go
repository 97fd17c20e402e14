package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"naskahcollab/internal/document/model"
	"naskahcollab/internal/document/repository"
	"naskahcollab/pkg/logger"
	"strings"

	"github.com/google/uuid"
)

var ErrForbidden = errors.New("forbidden")

type DocumentService struct {
	Repo repository.DocumentRepository
}

func NewDocumentService(repo repository.DocumentRepository) *DocumentService {
	return &DocumentService{Repo: repo}
}

func (s *DocumentService) CreateDocument(ctx context.Context, userID, title string) (string, error) {
	docID := uuid.NewString()
	title = strings.TrimSpace(title)
	if title == "" {
		title = model.DefaultTitle
	}
	_, err := s.Repo.CreateIfAbsent(ctx, docID, model.Document{
		Title:   title,
		Content: model.EmptyContent,
		OwnerID: userID,
	})
	return docID, err
}

// DeleteDocument removes a document. Only the owner may delete.
func (s *DocumentService) DeleteDocument(ctx context.Context, docID, userID string) error {
	doc, err := s.Repo.Get(ctx, docID)
	if err != nil {
		return err
	}
	if doc.OwnerID == "" || doc.OwnerID != userID {
		return fmt.Errorf("%w: only owner can delete", ErrForbidden)
	}
	return s.Repo.Delete(ctx, docID)
}

func (s *DocumentService) GetDocuments(ctx context.Context, userID string) ([]model.DocumentMetadata, error) {
	docs, err := s.Repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]model.DocumentMetadata, 0, len(docs))
	for i := range docs {
		out = append(out, model.DocumentMetadata{
			ID:        docs[i].ID,
			Title:     docs[i].Title,
			UpdatedAt: docs[i].UpdatedAt,
			IsOwner:   docs[i].OwnerID == userID,
			Collab:    members(&docs[i]),
		})
	}
	return out, nil
}

// GetDocumentMembers lists the owner and collaborators. The caller must already have access.
func (s *DocumentService) GetDocumentMembers(ctx context.Context, docID, userID string) ([]model.CollaboratorInfo, error) {
	doc, err := s.Repo.Get(ctx, docID)
	if err != nil {
		return nil, err
	}
	if _, ok := model.ExistingRole(doc, userID); !ok || userID == "" {
		return nil, fmt.Errorf("%w: no access to %s", ErrForbidden, docID)
	}
	return members(doc), nil
}

func members(doc *model.Document) []model.CollaboratorInfo {
	out := make([]model.CollaboratorInfo, 0, len(doc.Collaborators)+1)
	if doc.OwnerID != "" {
		out = append(out, model.CollaboratorInfo{ID: doc.OwnerID, Role: model.RoleOwner})
	}
	for _, c := range doc.Collaborators {
		out = append(out, model.CollaboratorInfo{ID: c.UserID, Role: c.Role})
	}
	return out
}

// Open loads a document for a joining participant, creating it on first access.
// Documents created this way have no owner; ownership only comes from CreateDocument.
func (s *DocumentService) Open(ctx context.Context, docID string) (*model.Document, error) {
	return s.Repo.CreateIfAbsent(ctx, docID, model.Document{
		Title:   model.DefaultTitle,
		Content: model.EmptyContent,
	})
}

// ResolveRole determines userID's role on doc. A first-time non-owner is recorded as a
// collaborator with the role derived from requested; anonymous callers are always viewers.
func (s *DocumentService) ResolveRole(ctx context.Context, doc *model.Document, userID, requested string) (model.Role, error) {
	if role, ok := model.ExistingRole(doc, userID); ok {
		return role, nil
	}
	role, err := s.Repo.AddCollaborator(ctx, doc.ID, userID, model.FirstContactRole(requested))
	if err != nil {
		return "", err
	}
	logger.Sugar.Infow("Added collaborator", "document_id", doc.ID, "user_id", userID, "role", role)
	return role, nil
}

// SaveSnapshot overwrites content and title. Last write wins.
func (s *DocumentService) SaveSnapshot(ctx context.Context, docID string, content json.RawMessage, title string) error {
	upd := model.DocumentUpdate{Content: content}
	if title != "" {
		upd.Title = &title
	}
	return s.Repo.Update(ctx, docID, upd)
}

func (s *DocumentService) UpdateTitle(ctx context.Context, docID, title string) error {
	return s.Repo.Update(ctx, docID, model.DocumentUpdate{Title: &title})
}
