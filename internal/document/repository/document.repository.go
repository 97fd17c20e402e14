package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"naskahcollab/internal/document/model"
	"naskahcollab/pkg/logger"
)

var ErrNotFound = errors.New("document not found")

// DocumentRepository is the durable Document Store.
type DocumentRepository interface {
	Get(ctx context.Context, id string) (*model.Document, error)
	// CreateIfAbsent stores defaults under id unless a record exists, and returns the stored record.
	CreateIfAbsent(ctx context.Context, id string, defaults model.Document) (*model.Document, error)
	Update(ctx context.Context, id string, upd model.DocumentUpdate) error
	// AddCollaborator adds userID with role unless already present, and returns the role on record.
	AddCollaborator(ctx context.Context, id, userID string, role model.Role) (model.Role, error)
	ListByUser(ctx context.Context, userID string) ([]model.Document, error)
	Delete(ctx context.Context, id string) error
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT 'Untitled Document',
	content JSONB NOT NULL DEFAULT '{}',
	owner_id TEXT,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS collaborators (
	document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	user_id TEXT NOT NULL,
	role TEXT NOT NULL,
	added_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (document_id, user_id)
);`

type PostgresRepository struct {
	DB *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{DB: db}
}

func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*model.Document, error) {
	var doc model.Document
	var content string
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, title, content, COALESCE(owner_id, ''), updated_at FROM documents WHERE id = $1", id,
	).Scan(&doc.ID, &doc.Title, &content, &doc.OwnerID, &doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	doc.Content = []byte(content)

	collabs, err := r.collaborators(ctx, id)
	if err != nil {
		return nil, err
	}
	doc.Collaborators = collabs
	return &doc, nil
}

func (r *PostgresRepository) collaborators(ctx context.Context, id string) ([]model.Collaborator, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT user_id, role FROM collaborators WHERE document_id = $1 ORDER BY added_at ASC", id)
	if err != nil {
		return nil, fmt.Errorf("get collaborators for %s: %w", id, err)
	}
	defer rows.Close()

	collabs := []model.Collaborator{}
	for rows.Next() {
		var c model.Collaborator
		var role string
		if err := rows.Scan(&c.UserID, &role); err != nil {
			return nil, fmt.Errorf("scan collaborator: %w", err)
		}
		c.Role = model.StoredRole(role)
		collabs = append(collabs, c)
	}
	return collabs, rows.Err()
}

func (r *PostgresRepository) CreateIfAbsent(ctx context.Context, id string, defaults model.Document) (*model.Document, error) {
	content := defaults.Content
	if len(content) == 0 {
		content = model.EmptyContent
	}
	_, err := r.DB.ExecContext(ctx, `INSERT INTO documents (id, title, content, owner_id, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NOW()) ON CONFLICT (id) DO NOTHING`,
		id, defaults.Title, string(content), defaults.OwnerID)
	if err != nil {
		logger.Sugar.Errorf("Failed to create document %s: %v", id, err)
		return nil, fmt.Errorf("create document %s: %w", id, err)
	}
	return r.Get(ctx, id)
}

func (r *PostgresRepository) Update(ctx context.Context, id string, upd model.DocumentUpdate) error {
	var title, content interface{}
	if upd.Title != nil {
		title = *upd.Title
	}
	if upd.Content != nil {
		content = string(upd.Content)
	}
	result, err := r.DB.ExecContext(ctx, `UPDATE documents SET title = COALESCE($1, title), content = COALESCE($2, content), updated_at = NOW() WHERE id = $3`,
		title, content, id)
	if err != nil {
		logger.Sugar.Errorf("Failed to update doc %s: %v", id, err)
		return fmt.Errorf("update document %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) AddCollaborator(ctx context.Context, id, userID string, role model.Role) (model.Role, error) {
	// The no-op update makes RETURNING yield the row that won a concurrent insert.
	var stored string
	err := r.DB.QueryRowContext(ctx, `INSERT INTO collaborators (document_id, user_id, role, added_at) VALUES ($1, $2, $3, NOW())
		ON CONFLICT (document_id, user_id) DO UPDATE SET role = collaborators.role RETURNING role`,
		id, userID, string(role)).Scan(&stored)
	if err != nil {
		logger.Sugar.Errorf("Failed to add collaborator %s to doc %s: %v", userID, id, err)
		return "", fmt.Errorf("add collaborator: %w", err)
	}
	return model.StoredRole(stored), nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]model.Document, error) {
	query := `
		SELECT id, title, COALESCE(owner_id, ''), updated_at FROM documents WHERE owner_id = $1
		UNION
		SELECT d.id, d.title, COALESCE(d.owner_id, ''), d.updated_at FROM documents d JOIN collaborators c ON d.id = c.document_id WHERE c.user_id = $1
		ORDER BY updated_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		logger.Sugar.Errorf("Failed to get documents for user %s: %v", userID, err)
		return nil, fmt.Errorf("list documents: %w", err)
	}
	var docs []model.Document
	for rows.Next() {
		var d model.Document
		if err := rows.Scan(&d.ID, &d.Title, &d.OwnerID, &d.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range docs {
		collabs, err := r.collaborators(ctx, docs[i].ID)
		if err != nil {
			return nil, err
		}
		docs[i].Collaborators = collabs
	}
	return docs, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, "DELETE FROM documents WHERE id = $1", id)
	if err != nil {
		logger.Sugar.Errorf("Failed to delete doc %s: %v", id, err)
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
