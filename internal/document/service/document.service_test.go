package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"naskahcollab/internal/document/model"
	"naskahcollab/internal/document/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) *DocumentService {
	t.Helper()
	return NewDocumentService(repository.NewMemoryRepository())
}

func seedOwned(t *testing.T, svc *DocumentService, docID, ownerID string) *model.Document {
	t.Helper()
	doc, err := svc.Repo.CreateIfAbsent(context.Background(), docID, model.Document{
		Title:   model.DefaultTitle,
		Content: model.EmptyContent,
		OwnerID: ownerID,
	})
	require.NoError(t, err)
	return doc
}

func TestResolveRoleOwnerIgnoresRoster(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	doc := seedOwned(t, svc, "d1", "u1")
	doc.Collaborators = []model.Collaborator{{UserID: "u1", Role: model.RoleViewer}}

	role, err := svc.ResolveRole(ctx, doc, "u1", "viewer")
	require.NoError(t, err)
	assert.Equal(t, model.RoleOwner, role)

	stored, err := svc.Repo.Get(ctx, "d1")
	require.NoError(t, err)
	assert.Empty(t, stored.Collaborators)
}

func TestResolveRoleFirstContact(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	seedOwned(t, svc, "d1", "u1")

	cases := []struct {
		user      string
		requested string
		want      model.Role
	}{
		{user: "u2", requested: "viewer", want: model.RoleViewer},
		{user: "u3", requested: "", want: model.RoleEditor},
		{user: "u4", requested: "owner", want: model.RoleEditor},
	}
	for _, tc := range cases {
		doc, err := svc.Repo.Get(ctx, "d1")
		require.NoError(t, err)
		role, err := svc.ResolveRole(ctx, doc, tc.user, tc.requested)
		require.NoError(t, err)
		assert.Equal(t, tc.want, role, tc.user)
	}

	// Repeat contact keeps the stored role even when asking for more.
	doc, err := svc.Repo.Get(ctx, "d1")
	require.NoError(t, err)
	role, err := svc.ResolveRole(ctx, doc, "u2", "editor")
	require.NoError(t, err)
	assert.Equal(t, model.RoleViewer, role)

	doc, err = svc.Repo.Get(ctx, "d1")
	require.NoError(t, err)
	assert.Len(t, doc.Collaborators, 3)
}

func TestOpenCreatesOwnerlessDocument(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	doc, err := svc.Open(ctx, "fresh")
	require.NoError(t, err)
	assert.Empty(t, doc.OwnerID)
	assert.Equal(t, model.DefaultTitle, doc.Title)

	// The first joiner is a collaborator like any other.
	role, err := svc.ResolveRole(ctx, doc, "ua", "")
	require.NoError(t, err)
	assert.Equal(t, model.RoleEditor, role)

	doc, err = svc.Repo.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.Empty(t, doc.OwnerID)
	assert.Equal(t, []model.Collaborator{{UserID: "ua", Role: model.RoleEditor}}, doc.Collaborators)

	err = svc.DeleteDocument(ctx, "fresh", "ua")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestResolveRoleAnonymous(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	doc, err := svc.Open(ctx, "d1")
	require.NoError(t, err)
	assert.Empty(t, doc.OwnerID)

	role, err := svc.ResolveRole(ctx, doc, "", "editor")
	require.NoError(t, err)
	assert.Equal(t, model.RoleViewer, role)

	doc, err = svc.Repo.Get(ctx, "d1")
	require.NoError(t, err)
	assert.Empty(t, doc.Collaborators)
}

func TestResolveRoleConcurrentJoinsSameUser(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	seedOwned(t, svc, "d1", "u1")

	// Every resolver sees the same pre-join snapshot, as concurrent joins would.
	snapshot, err := svc.Repo.Get(ctx, "d1")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.ResolveRole(ctx, snapshot, "u2", "")
		}()
	}
	wg.Wait()

	doc, err := svc.Repo.Get(ctx, "d1")
	require.NoError(t, err)
	assert.Len(t, doc.Collaborators, 1)
}

func TestSaveSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	seedOwned(t, svc, "d1", "u1")

	require.NoError(t, svc.SaveSnapshot(ctx, "d1", json.RawMessage(`{"ops":[{"insert":"X"}]}`), "T"))

	doc, err := svc.Open(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "T", doc.Title)
	assert.JSONEq(t, `{"ops":[{"insert":"X"}]}`, string(doc.Content))
	assert.Equal(t, "u1", doc.OwnerID)
}

func TestDeleteDocumentOwnerOnly(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	id, err := svc.CreateDocument(ctx, "u1", "")
	require.NoError(t, err)

	err = svc.DeleteDocument(ctx, id, "u2")
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, svc.DeleteDocument(ctx, id, "u1"))
	err = svc.DeleteDocument(ctx, id, "u1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGetDocumentsAndMembers(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	id, err := svc.CreateDocument(ctx, "u1", "  Roadmap ")
	require.NoError(t, err)
	doc, err := svc.Repo.Get(ctx, id)
	require.NoError(t, err)
	_, err = svc.ResolveRole(ctx, doc, "u2", "viewer")
	require.NoError(t, err)

	docs, err := svc.GetDocuments(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Roadmap", docs[0].Title)
	assert.False(t, docs[0].IsOwner)
	assert.Equal(t, []model.CollaboratorInfo{
		{ID: "u1", Role: model.RoleOwner},
		{ID: "u2", Role: model.RoleViewer},
	}, docs[0].Collab)

	_, err = svc.GetDocumentMembers(ctx, id, "stranger")
	assert.ErrorIs(t, err, ErrForbidden)
	m, err := svc.GetDocumentMembers(ctx, id, "u2")
	require.NoError(t, err)
	assert.Len(t, m, 2)
}
