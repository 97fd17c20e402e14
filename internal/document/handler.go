package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"naskahcollab/internal/document/model"
	"naskahcollab/internal/document/repository"
	"naskahcollab/internal/document/service"
	"naskahcollab/middleware"
	"naskahcollab/pkg/logger"
)

// SessionCloser disconnects live participants of a document.
type SessionCloser interface {
	RemoveDocument(docID string)
}

type DocumentHandler struct {
	Service  *service.DocumentService
	Sessions SessionCloser
}

func NewDocumentHandler(service *service.DocumentService, sessions SessionCloser) *DocumentHandler {
	return &DocumentHandler{Service: service, Sessions: sessions}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		http.Error(w, "Document not found", http.StatusNotFound)
	case errors.Is(err, service.ErrForbidden):
		http.Error(w, "Forbidden", http.StatusForbidden)
	default:
		http.Error(w, "Database error", http.StatusInternalServerError)
	}
}

func (h *DocumentHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	identity, _ := middleware.IdentityFrom(r.Context())

	var req model.CreateDocRequest
	_ = json.NewDecoder(r.Body).Decode(&req) // Ignore error, default to empty

	docID, err := h.Service.CreateDocument(r.Context(), identity.UserID, req.Title)
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to create document: %v", err)
		http.Error(w, "Failed to create document", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, model.CreateDocResponse{DocID: docID})
}

func (h *DocumentHandler) GetDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	identity, _ := middleware.IdentityFrom(r.Context())

	docs, err := h.Service.GetDocuments(r.Context(), identity.UserID)
	if err != nil {
		logger.Sugar.Errorf("Error fetching documents: %v", err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, docs)
}

// DeleteDocument removes an owned document and disconnects anyone still editing it.
func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	docID := r.URL.Query().Get("docId")
	if docID == "" {
		http.Error(w, "Missing docId parameter", http.StatusBadRequest)
		return
	}

	identity, _ := middleware.IdentityFrom(r.Context())

	if err := h.Service.DeleteDocument(r.Context(), docID, identity.UserID); err != nil {
		logger.Sugar.Errorf("Handler: Failed to delete document %s: %v", docID, err)
		writeServiceError(w, err)
		return
	}
	if h.Sessions != nil {
		h.Sessions.RemoveDocument(docID)
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Document deleted successfully"))
}

func (h *DocumentHandler) GetDocumentMembers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	docID := r.URL.Query().Get("docId")
	if docID == "" {
		http.Error(w, "Missing docId parameter", http.StatusBadRequest)
		return
	}

	identity, _ := middleware.IdentityFrom(r.Context())

	members, err := h.Service.GetDocumentMembers(r.Context(), docID, identity.UserID)
	if err != nil {
		logger.Sugar.Errorf("Error fetching members: %v", err)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, members)
}
