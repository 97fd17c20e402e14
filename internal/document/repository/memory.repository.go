package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"naskahcollab/internal/document/model"
)

// MemoryRepository keeps documents in process memory. Used by tests and DOCUMENT_STORE=memory.
type MemoryRepository struct {
	mu    sync.RWMutex
	store map[string]*model.Document
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{store: make(map[string]*model.Document)}
}

func clone(d *model.Document) *model.Document {
	out := *d
	out.Content = append([]byte(nil), d.Content...)
	out.Collaborators = append([]model.Collaborator{}, d.Collaborators...)
	return &out
}

func (m *MemoryRepository) Get(_ context.Context, id string) (*model.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if d, ok := m.store[id]; ok {
		return clone(d), nil
	}
	return nil, ErrNotFound
}

func (m *MemoryRepository) CreateIfAbsent(_ context.Context, id string, defaults model.Document) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.store[id]; ok {
		return clone(d), nil
	}
	d := clone(&defaults)
	d.ID = id
	if len(d.Content) == 0 {
		d.Content = append([]byte(nil), model.EmptyContent...)
	}
	d.UpdatedAt = time.Now()
	m.store[id] = d
	return clone(d), nil
}

func (m *MemoryRepository) Update(_ context.Context, id string, upd model.DocumentUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.store[id]
	if !ok {
		return ErrNotFound
	}
	if upd.Title != nil {
		d.Title = *upd.Title
	}
	if upd.Content != nil {
		d.Content = append([]byte(nil), upd.Content...)
	}
	d.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryRepository) AddCollaborator(_ context.Context, id, userID string, role model.Role) (model.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.store[id]
	if !ok {
		return "", ErrNotFound
	}
	if c, found := d.Collaborator(userID); found {
		return c.Role, nil
	}
	d.Collaborators = append(d.Collaborators, model.Collaborator{UserID: userID, Role: role})
	return role, nil
}

func (m *MemoryRepository) ListByUser(_ context.Context, userID string) ([]model.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Document
	for _, d := range m.store {
		if _, shared := d.Collaborator(userID); d.OwnerID == userID || shared {
			out = append(out, *clone(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *MemoryRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return ErrNotFound
	}
	delete(m.store, id)
	return nil
}
