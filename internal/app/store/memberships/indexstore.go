package membershipstore

import (
	"context"
	"errors"

	"github.com/dalemusser/studybuddy/internal/app/repo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// IndexStore keeps one document per user listing the groups they are an
// active member of: {_id: user_id, group_ids: [...]}.
type IndexStore struct {
	c *mongo.Collection
}

var _ repo.MembershipIndex = (*IndexStore)(nil)

func NewIndex(db *mongo.Database) *IndexStore {
	return &IndexStore{c: db.Collection("user_group_index")}
}

type indexDoc struct {
	UserID   string   `bson:"_id"`
	GroupIDs []string `bson:"group_ids"`
}

func (s *IndexStore) AddGroup(ctx context.Context, userID, groupID string) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$addToSet": bson.M{"group_ids": groupID}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (s *IndexStore) RemoveGroup(ctx context.Context, userID, groupID string) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$pull": bson.M{"group_ids": groupID}},
	)
	return err
}

// GroupIDs returns an empty slice for a user with no index document.
func (s *IndexStore) GroupIDs(ctx context.Context, userID string) ([]string, error) {
	var doc indexDoc
	if err := s.c.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return []string{}, nil
		}
		return nil, err
	}
	if doc.GroupIDs == nil {
		return []string{}, nil
	}
	return doc.GroupIDs, nil
}

func (s *IndexStore) RemoveGroupFromAll(ctx context.Context, groupID string) error {
	_, err := s.c.UpdateMany(ctx,
		bson.M{"group_ids": groupID},
		bson.M{"$pull": bson.M{"group_ids": groupID}},
	)
	return err
}
