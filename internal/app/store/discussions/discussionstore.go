// internal/app/store/discussions/discussionstore.go
package discussionstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/studybuddy/internal/app/repo"
	"github.com/dalemusser/studybuddy/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var _ repo.Discussions = (*Store)(nil)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("discussions")}
}

// GetOrCreate upserts the group's discussion. Two first readers racing on
// the unique group_id index both end up reading the winner's document.
func (s *Store) GetOrCreate(ctx context.Context, groupID string, now time.Time) (models.Discussion, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)
	upd := bson.M{"$setOnInsert": bson.M{
		"_id":        uuid.NewString(),
		"messages":   bson.A{},
		"created_at": now,
		"updated_at": now,
	}}

	var d models.Discussion
	err := s.c.FindOneAndUpdate(ctx, bson.M{"group_id": groupID}, upd, opts).Decode(&d)
	if err != nil && wafflemongo.IsDup(err) {
		err = s.c.FindOne(ctx, bson.M{"group_id": groupID}).Decode(&d)
	}
	if err != nil {
		return models.Discussion{}, err
	}
	if d.Messages == nil {
		d.Messages = []models.Message{}
	}
	return d, nil
}

func (s *Store) AppendMessage(ctx context.Context, groupID string, msg models.Message) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"group_id": groupID},
		bson.M{
			"$push": bson.M{"messages": msg},
			"$set":  bson.M{"updated_at": msg.Timestamp},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// EditMessage matches the message and its author in one filter, so a
// non-author edit reports ErrNotFound.
func (s *Store) EditMessage(ctx context.Context, groupID, messageID, userID, text string, at time.Time) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{
			"group_id": groupID,
			"messages": bson.M{"$elemMatch": bson.M{"message_id": messageID, "user_id": userID}},
		},
		bson.M{"$set": bson.M{
			"messages.$.message":   text,
			"messages.$.edited":    true,
			"messages.$.edited_at": at,
			"updated_at":           at,
		}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteByGroup(ctx context.Context, groupID string) error {
	_, err := s.c.DeleteMany(ctx, bson.M{"group_id": groupID})
	return err
}

// Get is used by tests and the CLI; the workflow goes through GetOrCreate.
func (s *Store) Get(ctx context.Context, groupID string) (models.Discussion, error) {
	var d models.Discussion
	if err := s.c.FindOne(ctx, bson.M{"group_id": groupID}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Discussion{}, repo.ErrNotFound
		}
		return models.Discussion{}, err
	}
	return d, nil
}
