// internal/app/store/groups/groupstore.go
package groupstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/studybuddy/internal/app/repo"
	"github.com/dalemusser/studybuddy/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var _ repo.Groups = (*Store)(nil)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("groups")}
}

func (s *Store) Create(ctx context.Context, g models.Group) error {
	g.NameCI = text.Fold(g.Name)
	if g.Resources == nil {
		g.Resources = []models.Resource{}
	}
	if _, err := s.c.InsertOne(ctx, g); err != nil {
		if wafflemongo.IsDup(err) {
			return repo.ErrDuplicate
		}
		return fmt.Errorf("insert group: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (models.Group, error) {
	var g models.Group
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Group{}, repo.ErrNotFound
		}
		return models.Group{}, err
	}
	return g, nil
}

// ListByStatus returns groups with the given status, newest first.
func (s *Store) ListByStatus(ctx context.Context, status string) ([]models.Group, error) {
	return s.find(ctx, bson.M{"status": status})
}

func (s *Store) ListForUser(ctx context.Context, groupIDs []string, creatorID string) ([]models.Group, error) {
	or := bson.A{bson.M{"created_by": creatorID}}
	if len(groupIDs) > 0 {
		or = append(or, bson.M{"_id": bson.M{"$in": groupIDs}})
	}
	return s.find(ctx, bson.M{"$or": or})
}

func (s *Store) ListAll(ctx context.Context) ([]models.Group, error) {
	return s.find(ctx, bson.M{})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.Group, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Group{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Approve moves a pending group to active. The status guard lives in the
// filter so two concurrent decisions cannot both succeed.
func (s *Store) Approve(ctx context.Context, id, adminID string, at time.Time) error {
	return s.decide(ctx, id, bson.M{
		"status":                      models.GroupActive,
		"approval_status.approved_by": adminID,
		"approval_status.approved_at": at,
		"updated_at":                  at,
	})
}

func (s *Store) Reject(ctx context.Context, id, adminID, reason string, at time.Time) error {
	return s.decide(ctx, id, bson.M{
		"status":                           models.GroupRejected,
		"approval_status.rejected_by":      adminID,
		"approval_status.rejected_at":      at,
		"approval_status.rejection_reason": reason,
		"updated_at":                       at,
	})
}

func (s *Store) decide(ctx context.Context, id string, set bson.M) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.GroupPendingApproval},
		bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return s.missingOr(ctx, id, repo.ErrPrecondition)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Store) AddResource(ctx context.Context, groupID string, r models.Resource) error {
	return s.update(ctx, groupID, bson.M{
		"$push": bson.M{"resources": r},
		"$set":  bson.M{"updated_at": r.UploadedAt},
	})
}

func (s *Store) RemoveResource(ctx context.Context, groupID, resourceID string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": groupID, "resources.resource_id": resourceID},
		bson.M{
			"$pull": bson.M{"resources": bson.M{"resource_id": resourceID}},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Store) SetMeetingLink(ctx context.Context, groupID, link string, at time.Time) error {
	return s.update(ctx, groupID, bson.M{"$set": bson.M{
		"overview.meeting_link":            link,
		"overview.meeting_link_created_at": at,
		"updated_at":                       at,
	}})
}

func (s *Store) SetDiscussionID(ctx context.Context, groupID, discussionID string) error {
	return s.update(ctx, groupID, bson.M{"$set": bson.M{"discussion_id": discussionID}})
}

func (s *Store) BumpMemberVersion(ctx context.Context, groupID string, expected int64) error {
	filter := bson.M{"_id": groupID, "member_version": expected}
	if expected == 0 {
		// Groups written before the field existed have no member_version.
		filter["member_version"] = bson.M{"$in": bson.A{0, nil}}
	}
	res, err := s.c.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"member_version": 1}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return s.missingOr(ctx, groupID, repo.ErrPrecondition)
	}
	return nil
}

func (s *Store) update(ctx context.Context, id string, upd bson.M) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, upd)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// missingOr distinguishes "no such group" from a failed guard.
func (s *Store) missingOr(ctx context.Context, id string, guardErr error) error {
	n, err := s.c.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return repo.ErrNotFound
	}
	return guardErr
}
