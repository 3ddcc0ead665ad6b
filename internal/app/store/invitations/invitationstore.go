// internal/app/store/invitations/invitationstore.go
package invitationstore

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

var _ repo.Invitations = (*Store)(nil)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("invitations")}
}

func (s *Store) Create(ctx context.Context, inv models.Invitation) error {
	if _, err := s.c.InsertOne(ctx, inv); err != nil {
		if wafflemongo.IsDup(err) {
			return repo.ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *Store) GetByToken(ctx context.Context, token string) (models.Invitation, error) {
	return s.findOne(ctx, bson.M{"invitation_token": token}, nil)
}

// FindPending returns the most recent pending invitation for the pair.
func (s *Store) FindPending(ctx context.Context, groupID, email string) (models.Invitation, error) {
	return s.findOne(ctx,
		bson.M{"group_id": groupID, "invited_email": email, "status": models.InvitePending},
		options.FindOne().SetSort(bson.D{{Key: "sent_at", Value: -1}}))
}

func (s *Store) findOne(ctx context.Context, filter bson.M, opts *options.FindOneOptions) (models.Invitation, error) {
	var inv models.Invitation
	if opts == nil {
		opts = options.FindOne()
	}
	if err := s.c.FindOne(ctx, filter, opts).Decode(&inv); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Invitation{}, repo.ErrNotFound
		}
		return models.Invitation{}, err
	}
	return inv, nil
}

func (s *Store) ListByGroup(ctx context.Context, groupID string) ([]models.Invitation, error) {
	return s.find(ctx, bson.M{"group_id": groupID})
}

func (s *Store) ListPendingByEmail(ctx context.Context, email string) ([]models.Invitation, error) {
	return s.find(ctx, bson.M{"invited_email": email, "status": models.InvitePending})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.Invitation, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "sent_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Invitation{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) MarkAccepted(ctx context.Context, inv models.Invitation, userID string, at time.Time) error {
	return s.transition(ctx, inv.ID, bson.M{
		"status":      models.InviteAccepted,
		"accepted_at": at,
		"accepted_by": userID,
	})
}

func (s *Store) MarkDeclined(ctx context.Context, inv models.Invitation, at time.Time) error {
	return s.transition(ctx, inv.ID, bson.M{
		"status":      models.InviteDeclined,
		"declined_at": at,
	})
}

func (s *Store) MarkExpired(ctx context.Context, inv models.Invitation) error {
	return s.transition(ctx, inv.ID, bson.M{"status": models.InviteExpired})
}

func (s *Store) transition(ctx context.Context, id string, set bson.M) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.InvitePending},
		bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}
	n, err := s.c.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return repo.ErrNotFound
	}
	return repo.ErrPrecondition
}

func (s *Store) ExpireBefore(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"status": models.InvitePending, "expires_at": bson.M{"$lte": now}},
		bson.M{"$set": bson.M{"status": models.InviteExpired}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (s *Store) DeleteByGroup(ctx context.Context, groupID string) error {
	_, err := s.c.DeleteMany(ctx, bson.M{"group_id": groupID})
	return err
}
