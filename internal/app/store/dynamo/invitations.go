package dynamostore

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dalemusser/studybuddy/internal/app/repo"
	"github.com/dalemusser/studybuddy/internal/domain/models"
	"go.uber.org/zap"
)

type invitations struct{ s *Store }

func invitationKey(id string) map[string]types.AttributeValue { return key("invitation_id", id) }

func (r invitations) Create(ctx context.Context, inv models.Invitation) error {
	item, err := attributevalue.MarshalMap(inv)
	if err != nil {
		return err
	}
	return r.s.write(ctx, types.TransactWriteItem{Put: &types.Put{
		TableName:           aws.String(r.s.t.Invitations),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(invitation_id)"),
	}}, always(repo.ErrDuplicate))
}

// GetByToken goes through the token index, then re-reads the item
// consistently so a just-written transition is visible.
func (r invitations) GetByToken(ctx context.Context, token string) (models.Invitation, error) {
	hits, err := queryEq[models.Invitation](ctx, r.s, r.s.t.Invitations, idxInvitationsToken, "invitation_token", token)
	if err != nil {
		return models.Invitation{}, err
	}
	if len(hits) == 0 {
		return models.Invitation{}, repo.ErrNotFound
	}
	var inv models.Invitation
	if err := r.s.getItem(ctx, r.s.t.Invitations, invitationKey(hits[0].ID), &inv); err != nil {
		return models.Invitation{}, err
	}
	return inv, nil
}

func (r invitations) FindPending(ctx context.Context, groupID, email string) (models.Invitation, error) {
	all, err := r.ListByGroup(ctx, groupID)
	if err != nil {
		return models.Invitation{}, err
	}
	for _, inv := range all {
		if inv.InvitedEmail == email && inv.Status == models.InvitePending {
			return inv, nil
		}
	}
	return models.Invitation{}, repo.ErrNotFound
}

func (r invitations) ListByGroup(ctx context.Context, groupID string) ([]models.Invitation, error) {
	out, err := queryEq[models.Invitation](ctx, r.s, r.s.t.Invitations, idxInvitationsGroup, "group_id", groupID)
	if err != nil {
		return nil, err
	}
	sortInvitations(out)
	return out, nil
}

func (r invitations) ListPendingByEmail(ctx context.Context, email string) ([]models.Invitation, error) {
	all, err := queryEq[models.Invitation](ctx, r.s, r.s.t.Invitations, idxInvitationsEmail, "invited_email", email)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, inv := range all {
		if inv.Status == models.InvitePending {
			out = append(out, inv)
		}
	}
	sortInvitations(out)
	return out, nil
}

func sortInvitations(invs []models.Invitation) {
	sort.Slice(invs, func(i, j int) bool {
		if invs[i].SentAt.Equal(invs[j].SentAt) {
			return invs[i].ID < invs[j].ID
		}
		return invs[i].SentAt.After(invs[j].SentAt)
	})
}

func (r invitations) MarkAccepted(ctx context.Context, inv models.Invitation, userID string, at time.Time) error {
	atv, err := marshal(at)
	if err != nil {
		return err
	}
	return r.transition(ctx, inv.ID, models.InviteAccepted,
		"accepted_at = :at, accepted_by = :by",
		map[string]types.AttributeValue{":at": atv, ":by": str(userID)})
}

func (r invitations) MarkDeclined(ctx context.Context, inv models.Invitation, at time.Time) error {
	atv, err := marshal(at)
	if err != nil {
		return err
	}
	return r.transition(ctx, inv.ID, models.InviteDeclined,
		"declined_at = :at", map[string]types.AttributeValue{":at": atv})
}

func (r invitations) MarkExpired(ctx context.Context, inv models.Invitation) error {
	return r.transition(ctx, inv.ID, models.InviteExpired, "", nil)
}

// transition moves a pending invitation to status, setting extra as well.
func (r invitations) transition(ctx context.Context, id, status, extra string, vals map[string]types.AttributeValue) error {
	expr := "SET #s = :to"
	if extra != "" {
		expr += ", " + extra
	}
	if vals == nil {
		vals = map[string]types.AttributeValue{}
	}
	vals[":to"] = str(status)
	vals[":pending"] = str(models.InvitePending)

	k := invitationKey(id)
	return r.s.write(ctx, types.TransactWriteItem{Update: &types.Update{
		TableName:                 aws.String(r.s.t.Invitations),
		Key:                       k,
		UpdateExpression:          aws.String(expr),
		ConditionExpression:       aws.String("#s = :pending"),
		ExpressionAttributeNames:  map[string]string{"#s": "status"},
		ExpressionAttributeValues: vals,
	}}, r.s.missingOr(r.s.t.Invitations, k, repo.ErrPrecondition))
}

// ExpireBefore reads the pending set from the status index and flips the
// overdue ones one at a time. An invitation accepted or declined between
// the read and the write fails its condition and is skipped.
func (r invitations) ExpireBefore(ctx context.Context, now time.Time) (int64, error) {
	pending, err := queryEq[models.Invitation](ctx, r.s, r.s.t.Invitations, idxInvitationsState, "status", models.InvitePending)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, inv := range pending {
		if !inv.Expired(now) {
			continue
		}
		err := r.MarkExpired(ctx, inv)
		switch {
		case err == nil:
			n++
		case errors.Is(err, repo.ErrPrecondition), errors.Is(err, repo.ErrNotFound):
			r.s.log.Debug("invitation changed before expiry", zap.String("invitation_id", inv.ID))
		default:
			return n, err
		}
	}
	return n, nil
}

func (r invitations) DeleteByGroup(ctx context.Context, groupID string) error {
	all, err := queryEq[models.Invitation](ctx, r.s, r.s.t.Invitations, idxInvitationsGroup, "group_id", groupID)
	if err != nil {
		return err
	}
	for _, inv := range all {
		if err := r.s.write(ctx, types.TransactWriteItem{Delete: &types.Delete{
			TableName: aws.String(r.s.t.Invitations),
			Key:       invitationKey(inv.ID),
		}}, nil); err != nil {
			return err
		}
	}
	return nil
}
