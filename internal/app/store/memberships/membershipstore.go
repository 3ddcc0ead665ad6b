// internal/app/store/memberships/membershipstore.go
package membershipstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/studybuddy/internal/app/repo"
	"github.com/dalemusser/studybuddy/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var _ repo.Memberships = (*Store)(nil)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("memberships")}
}

// Activate inserts the (group, user) row or flips a left/removed row back to
// active. The filter excludes active rows, so when the pair is already
// active the upsert attempts an insert and the unique index rejects it.
func (s *Store) Activate(ctx context.Context, m models.Membership) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{
			"group_id": m.GroupID,
			"user_id":  m.UserID,
			"status":   bson.M{"$ne": models.MemberActive},
		},
		bson.M{"$set": bson.M{
			"is_admin":   m.IsAdmin,
			"status":     models.MemberActive,
			"joined_at":  m.JoinedAt,
			"updated_at": m.UpdatedAt,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return repo.ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *Store) Get(ctx context.Context, groupID, userID string) (models.Membership, error) {
	var m models.Membership
	err := s.c.FindOne(ctx, bson.M{"group_id": groupID, "user_id": userID}).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Membership{}, repo.ErrNotFound
		}
		return models.Membership{}, err
	}
	return m, nil
}

func (s *Store) SetStatus(ctx context.Context, groupID, userID, status string, at time.Time) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"group_id": groupID, "user_id": userID, "status": models.MemberActive},
		bson.M{"$set": bson.M{"status": status, "updated_at": at}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}
	if _, err := s.Get(ctx, groupID, userID); err != nil {
		return err
	}
	return repo.ErrPrecondition
}

// ListByGroup returns rows in join order.
func (s *Store) ListByGroup(ctx context.Context, groupID, status string) ([]models.Membership, error) {
	filter := bson.M{"group_id": groupID}
	if status != "" {
		filter["status"] = status
	}
	return s.find(ctx, filter)
}

func (s *Store) ListActiveByUser(ctx context.Context, userID string) ([]models.Membership, error) {
	return s.find(ctx, bson.M{"user_id": userID, "status": models.MemberActive})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.Membership, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "joined_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Membership{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) CountActive(ctx context.Context, groupID string) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"group_id": groupID, "status": models.MemberActive})
}

func (s *Store) DeleteByGroup(ctx context.Context, groupID string) error {
	_, err := s.c.DeleteMany(ctx, bson.M{"group_id": groupID})
	return err
}
