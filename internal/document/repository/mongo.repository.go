package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"naskahcollab/internal/document/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoCollaborator struct {
	User string `bson:"user"`
	Role string `bson:"role"`
}

// mongoDocument is the stored shape. Content is kept as the client's JSON text.
type mongoDocument struct {
	ID            string              `bson:"_id"`
	Title         string              `bson:"title"`
	Content       string              `bson:"content"`
	Owner         string              `bson:"owner,omitempty"`
	Collaborators []mongoCollaborator `bson:"collaborators"`
	UpdatedAt     time.Time           `bson:"updatedAt"`
}

func (m *mongoDocument) toModel() *model.Document {
	doc := &model.Document{
		ID:            m.ID,
		Title:         m.Title,
		Content:       []byte(m.Content),
		OwnerID:       m.Owner,
		Collaborators: make([]model.Collaborator, 0, len(m.Collaborators)),
		UpdatedAt:     m.UpdatedAt,
	}
	for _, c := range m.Collaborators {
		doc.Collaborators = append(doc.Collaborators, model.Collaborator{UserID: c.User, Role: model.StoredRole(c.Role)})
	}
	return doc
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

// EnsureIndexes creates the indexes backing ListByUser.
func (m *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := m.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner", Value: 1}}},
		{Keys: bson.D{{Key: "collaborators.user", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("mongo indexes: %w", err)
	}
	return nil
}

func (m *MongoRepository) Get(ctx context.Context, id string) (*model.Document, error) {
	var d mongoDocument
	err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	return d.toModel(), nil
}

func (m *MongoRepository) CreateIfAbsent(ctx context.Context, id string, defaults model.Document) (*model.Document, error) {
	content := defaults.Content
	if len(content) == 0 {
		content = model.EmptyContent
	}
	onInsert := bson.M{
		"title":         defaults.Title,
		"content":       string(content),
		"collaborators": []mongoCollaborator{},
		"updatedAt":     time.Now(),
	}
	if defaults.OwnerID != "" {
		onInsert["owner"] = defaults.OwnerID
	}
	_, err := m.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$setOnInsert": onInsert}, options.Update().SetUpsert(true))
	if err != nil {
		return nil, fmt.Errorf("create document %s: %w", id, err)
	}
	return m.Get(ctx, id)
}

func (m *MongoRepository) Update(ctx context.Context, id string, upd model.DocumentUpdate) error {
	set := bson.M{"updatedAt": time.Now()}
	if upd.Title != nil {
		set["title"] = *upd.Title
	}
	if upd.Content != nil {
		set["content"] = string(upd.Content)
	}
	res, err := m.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update document %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoRepository) AddCollaborator(ctx context.Context, id, userID string, role model.Role) (model.Role, error) {
	// Single-document updates are atomic, so the $ne guard gives add-if-absent.
	filter := bson.M{"_id": id, "collaborators.user": bson.M{"$ne": userID}}
	push := bson.M{"$push": bson.M{"collaborators": mongoCollaborator{User: userID, Role: string(role)}}}
	res, err := m.col.UpdateOne(ctx, filter, push)
	if err != nil {
		return "", fmt.Errorf("add collaborator: %w", err)
	}
	if res.MatchedCount == 1 {
		return role, nil
	}

	doc, err := m.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if c, ok := doc.Collaborator(userID); ok {
		return c.Role, nil
	}
	return "", fmt.Errorf("collaborator %s missing from %s after add", userID, id)
}

func (m *MongoRepository) ListByUser(ctx context.Context, userID string) ([]model.Document, error) {
	filter := bson.M{"$or": []bson.M{{"owner": userID}, {"collaborators.user": userID}}}
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}}).SetProjection(bson.M{"content": 0})
	cur, err := m.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer cur.Close(ctx)

	var docs []model.Document
	for cur.Next(ctx) {
		var d mongoDocument
		if err := cur.Decode(&d); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		docs = append(docs, *d.toModel())
	}
	return docs, cur.Err()
}

func (m *MongoRepository) Delete(ctx context.Context, id string) error {
	res, err := m.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
