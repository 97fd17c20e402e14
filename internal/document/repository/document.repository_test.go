package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"naskahcollab/internal/document/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

func expectGet(mock sqlmock.Sqlmock, id, title, content, owner string, collabs ...model.Collaborator) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, content, COALESCE(owner_id, ''), updated_at FROM documents WHERE id = $1")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "content", "owner_id", "updated_at"}).
			AddRow(id, title, content, owner, time.Now()))
	rows := sqlmock.NewRows([]string{"user_id", "role"})
	for _, c := range collabs {
		rows.AddRow(c.UserID, string(c.Role))
	}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT user_id, role FROM collaborators WHERE document_id = $1")).
		WithArgs(id).
		WillReturnRows(rows)
}

func TestPostgresGet(t *testing.T) {
	repo, mock := newMockRepo(t)
	expectGet(mock, "doc-1", "Plan", `{"ops":[{"insert":"hi"}]}`, "u1", model.Collaborator{UserID: "u2", Role: model.RoleViewer})

	doc, err := repo.Get(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Plan", doc.Title)
	assert.Equal(t, "u1", doc.OwnerID)
	assert.JSONEq(t, `{"ops":[{"insert":"hi"}]}`, string(doc.Content))
	require.Len(t, doc.Collaborators, 1)
	assert.Equal(t, model.RoleViewer, doc.Collaborators[0].Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT id, title, content").WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateIfAbsent(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO documents (id, title, content, owner_id, updated_at)")).
		WithArgs("doc-1", model.DefaultTitle, "{}", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectGet(mock, "doc-1", model.DefaultTitle, "{}", "u1")

	doc, err := repo.CreateIfAbsent(context.Background(), "doc-1", model.Document{Title: model.DefaultTitle, OwnerID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, model.DefaultTitle, doc.Title)
	assert.Empty(t, doc.Collaborators)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateTitleOnly(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents SET title = COALESCE($1, title), content = COALESCE($2, content)")).
		WithArgs("Hi", nil, "doc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	title := "Hi"
	require.NoError(t, repo.Update(context.Background(), "doc-1", model.DocumentUpdate{Title: &title}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateMissing(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("UPDATE documents").
		WithArgs(nil, `{"ops":[]}`, "gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), "gone", model.DocumentUpdate{Content: json.RawMessage(`{"ops":[]}`)})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresAddCollaboratorReturnsStoredRole(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO collaborators (document_id, user_id, role, added_at)")).
		WithArgs("doc-1", "u2", "editor").
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("viewer"))

	role, err := repo.AddCollaborator(context.Background(), "doc-1", "u2", model.RoleEditor)
	require.NoError(t, err)
	assert.Equal(t, model.RoleViewer, role, "an existing entry wins over the requested role")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDelete(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM documents WHERE id = $1")).
		WithArgs("doc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM documents WHERE id = $1")).
		WithArgs("doc-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), "doc-1"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "doc-1"), ErrNotFound)
}
