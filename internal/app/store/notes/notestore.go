// internal/app/store/notes/notestore.go
package notestore

import (
	"context"
	"errors"

	"github.com/dalemusser/studybuddy/internal/app/repo"
	"github.com/dalemusser/studybuddy/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var _ repo.Notes = (*Store)(nil)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("user_group_notes")}
}

func (s *Store) Get(ctx context.Context, userID, groupID string) (models.UserGroupNotes, error) {
	var n models.UserGroupNotes
	if err := s.c.FindOne(ctx, bson.M{"user_id": userID, "group_id": groupID}).Decode(&n); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.UserGroupNotes{}, repo.ErrNotFound
		}
		return models.UserGroupNotes{}, err
	}
	return n, nil
}

// Upsert is last-write-wins.
func (s *Store) Upsert(ctx context.Context, n models.UserGroupNotes) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"user_id": n.UserID, "group_id": n.GroupID},
		bson.M{"$set": bson.M{"notes": n.Notes, "updated_at": n.UpdatedAt}},
		options.Update().SetUpsert(true))
	return err
}

func (s *Store) DeleteByGroup(ctx context.Context, groupID string) error {
	_, err := s.c.DeleteMany(ctx, bson.M{"group_id": groupID})
	return err
}
