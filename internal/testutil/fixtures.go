package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/studybuddy/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
// Repeated calls on the same request accumulate parameters.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// NewGroup returns a group with a fresh id and the given status, ready to
// insert through any backend.
func NewGroup(name, creatorID, status string) models.Group {
	now := time.Now().UTC()
	return models.Group{
		ID:             uuid.NewString(),
		Name:           name,
		NameCI:         text.Fold(name),
		Concept:        "Test concept",
		Level:          models.LevelBeginner,
		TimeCommitment: "10hrs/wk",
		CreatedBy:      creatorID,
		Status:         status,
		Resources:      []models.Resource{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// NewMembership returns an active membership row.
func NewMembership(groupID, userID string, admin bool) models.Membership {
	now := time.Now().UTC()
	return models.Membership{
		GroupID:   groupID,
		UserID:    userID,
		IsAdmin:   admin,
		Status:    models.MemberActive,
		JoinedAt:  now,
		UpdatedAt: now,
	}
}

// Fixtures inserts test data directly into a MongoDB test database.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateGroup inserts a group with the given status.
func (f *Fixtures) CreateGroup(ctx context.Context, name, creatorID, status string) models.Group {
	f.t.Helper()
	g := NewGroup(name, creatorID, status)
	if _, err := f.db.Collection("groups").InsertOne(ctx, g); err != nil {
		f.t.Fatalf("failed to create test group: %v", err)
	}
	return g
}

// CreateActiveGroup inserts an active group.
func (f *Fixtures) CreateActiveGroup(ctx context.Context, name, creatorID string) models.Group {
	f.t.Helper()
	return f.CreateGroup(ctx, name, creatorID, models.GroupActive)
}

// AddMember inserts an active membership row and the matching index entry.
func (f *Fixtures) AddMember(ctx context.Context, groupID, userID string, admin bool) models.Membership {
	f.t.Helper()
	m := NewMembership(groupID, userID, admin)
	if _, err := f.db.Collection("memberships").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create test membership: %v", err)
	}
	_, err := f.db.Collection("user_group_index").UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$addToSet": bson.M{"group_ids": groupID}},
		options.Update().SetUpsert(true))
	if err != nil {
		f.t.Fatalf("failed to index test membership: %v", err)
	}
	return m
}
