// internal/app/store/joinrequests/joinrequeststore.go
package joinrequeststore

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

var _ repo.JoinRequests = (*Store)(nil)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("join_requests")}
}

// Create relies on the partial unique index over pending (group, user)
// pairs to reject a second pending request.
func (s *Store) Create(ctx context.Context, jr models.JoinRequest) error {
	if _, err := s.c.InsertOne(ctx, jr); err != nil {
		if wafflemongo.IsDup(err) {
			return repo.ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (models.JoinRequest, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *Store) FindPending(ctx context.Context, groupID, userID string) (models.JoinRequest, error) {
	return s.findOne(ctx, bson.M{"group_id": groupID, "user_id": userID, "status": models.RequestPending})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (models.JoinRequest, error) {
	var jr models.JoinRequest
	if err := s.c.FindOne(ctx, filter).Decode(&jr); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.JoinRequest{}, repo.ErrNotFound
		}
		return models.JoinRequest{}, err
	}
	return jr, nil
}

func (s *Store) ListPendingByGroup(ctx context.Context, groupID string) ([]models.JoinRequest, error) {
	return s.find(ctx,
		bson.M{"group_id": groupID, "status": models.RequestPending},
		bson.D{{Key: "requested_at", Value: 1}})
}

func (s *Store) ListByUser(ctx context.Context, userID string) ([]models.JoinRequest, error) {
	return s.find(ctx,
		bson.M{"user_id": userID},
		bson.D{{Key: "requested_at", Value: -1}})
}

func (s *Store) find(ctx context.Context, filter bson.M, sort bson.D) ([]models.JoinRequest, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.JoinRequest{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Decide(ctx context.Context, jr models.JoinRequest, status, processedBy, reason string, at time.Time) error {
	set := bson.M{
		"status":       status,
		"processed_by": processedBy,
		"processed_at": at,
	}
	if reason != "" {
		set["rejection_reason"] = reason
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": jr.ID, "status": models.RequestPending},
		bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}
	if _, err := s.Get(ctx, jr.ID); err != nil {
		return err
	}
	return repo.ErrPrecondition
}

func (s *Store) DeleteByGroup(ctx context.Context, groupID string) error {
	_, err := s.c.DeleteMany(ctx, bson.M{"group_id": groupID})
	return err
}
