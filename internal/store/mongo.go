package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/swapnilj01/collab-ai-editor/internal/models"
)

// ErrNotFound is returned when a session or user does not exist.
var ErrNotFound = errors.New("not found")

// Mongo is the durable store for users and committed session code. It is
// authoritative for ownership and for code while no connection is live.
type Mongo struct {
	client   *mongo.Client
	sessions *mongo.Collection
	users    *mongo.Collection
}

func NewMongo(ctx context.Context, uri, dbName string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	db := client.Database(dbName)
	m := &Mongo{
		client:   client,
		sessions: db.Collection("sessions"),
		users:    db.Collection("users"),
	}

	// Usernames are the login key.
	idxCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, _ = m.users.Indexes().CreateOne(idxCtx, mongo.IndexModel{
		Keys:    map[string]interface{}{"username": 1},
		Options: options.Index().SetUnique(true),
	})

	return m, nil
}

func (m *Mongo) Close(ctx context.Context) error { return m.client.Disconnect(ctx) }

/*** Sessions ***/

func (m *Mongo) CreateSession(ctx context.Context, s *models.CodeSession) error {
	if _, err := m.sessions.InsertOne(ctx, s); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (m *Mongo) GetSession(ctx context.Context, id string) (*models.CodeSession, error) {
	var s models.CodeSession
	err := m.sessions.FindOne(ctx, map[string]string{"_id": id}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	return &s, nil
}

func (m *Mongo) ListSessionsByOwner(ctx context.Context, owner string) ([]models.CodeSession, error) {
	opts := options.Find().SetLimit(100)
	cur, err := m.sessions.Find(ctx, map[string]string{"owner": owner}, opts)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer cur.Close(ctx)

	var out []models.CodeSession
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return out, nil
}

func (m *Mongo) DeleteSession(ctx context.Context, id string) error {
	res, err := m.sessions.DeleteOne(ctx, map[string]string{"_id": id})
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// FetchCommittedCode returns the durable code and owner of a session.
func (m *Mongo) FetchCommittedCode(ctx context.Context, id string) (code, owner string, err error) {
	s, err := m.GetSession(ctx, id)
	if err != nil {
		return "", "", err
	}
	return s.Code, s.Owner, nil
}

// CommitCode overwrites the durable code for a session. Called on flush
// when the last connection leaves, and by the manual save endpoint.
func (m *Mongo) CommitCode(ctx context.Context, id, code string) error {
	_, err := m.sessions.UpdateOne(ctx,
		map[string]string{"_id": id},
		map[string]interface{}{"$set": map[string]string{"code": code}},
	)
	if err != nil {
		return fmt.Errorf("commit code %s: %w", id, err)
	}
	return nil
}

/*** Users ***/

func (m *Mongo) CreateUser(ctx context.Context, u *models.User) error {
	if _, err := m.users.InsertOne(ctx, u); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (m *Mongo) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := m.users.FindOne(ctx, map[string]string{"username": username}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", username, err)
	}
	return &u, nil
}
