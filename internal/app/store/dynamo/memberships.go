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
)

type memberships struct{ s *Store }

func membershipKey(groupID, userID string) map[string]types.AttributeValue {
	return key("group_id", groupID, "user_id", userID)
}

// Activate puts the row unless an active one exists. A losing concurrent
// writer fails the condition and gets ErrDuplicate.
func (r memberships) Activate(ctx context.Context, m models.Membership) error {
	m.Status = models.MemberActive
	item, err := attributevalue.MarshalMap(m)
	if err != nil {
		return err
	}
	return r.s.write(ctx, types.TransactWriteItem{Put: &types.Put{
		TableName:                 aws.String(r.s.t.Memberships),
		Item:                      item,
		ConditionExpression:       aws.String("attribute_not_exists(group_id) OR #s <> :active"),
		ExpressionAttributeNames:  map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":active": str(models.MemberActive)},
	}}, always(repo.ErrDuplicate))
}

func (r memberships) Get(ctx context.Context, groupID, userID string) (models.Membership, error) {
	var m models.Membership
	if err := r.s.getItem(ctx, r.s.t.Memberships, membershipKey(groupID, userID), &m); err != nil {
		return models.Membership{}, err
	}
	return m, nil
}

func (r memberships) SetStatus(ctx context.Context, groupID, userID, status string, at time.Time) error {
	atv, err := marshal(at)
	if err != nil {
		return err
	}
	k := membershipKey(groupID, userID)
	return r.s.write(ctx, types.TransactWriteItem{Update: &types.Update{
		TableName:                aws.String(r.s.t.Memberships),
		Key:                      k,
		UpdateExpression:         aws.String("SET #s = :to, updated_at = :at"),
		ConditionExpression:      aws.String("#s = :active"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":to":     str(status),
			":at":     atv,
			":active": str(models.MemberActive),
		},
	}}, r.s.missingOr(r.s.t.Memberships, k, repo.ErrPrecondition))
}

func (r memberships) ListByGroup(ctx context.Context, groupID, status string) ([]models.Membership, error) {
	rows, err := queryEq[models.Membership](ctx, r.s, r.s.t.Memberships, "", "group_id", groupID)
	if err != nil {
		return nil, err
	}
	out := rows[:0]
	for _, m := range rows {
		if status == "" || m.Status == status {
			out = append(out, m)
		}
	}
	return joinOrder(out), nil
}

func (r memberships) ListActiveByUser(ctx context.Context, userID string) ([]models.Membership, error) {
	rows, err := queryEq[models.Membership](ctx, r.s, r.s.t.Memberships, idxMembershipsUser, "user_id", userID)
	if err != nil {
		return nil, err
	}
	out := rows[:0]
	for _, m := range rows {
		if m.Active() {
			out = append(out, m)
		}
	}
	return joinOrder(out), nil
}

func joinOrder(ms []models.Membership) []models.Membership {
	sort.Slice(ms, func(i, j int) bool {
		if !ms[i].JoinedAt.Equal(ms[j].JoinedAt) {
			return ms[i].JoinedAt.Before(ms[j].JoinedAt)
		}
		return ms[i].UserID < ms[j].UserID
	})
	return ms
}

func (r memberships) CountActive(ctx context.Context, groupID string) (int64, error) {
	rows, err := r.ListByGroup(ctx, groupID, models.MemberActive)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

func (r memberships) DeleteByGroup(ctx context.Context, groupID string) error {
	rows, err := r.ListByGroup(ctx, groupID, "")
	if err != nil {
		return err
	}
	for _, m := range rows {
		if err := r.s.write(ctx, types.TransactWriteItem{Delete: &types.Delete{
			TableName: aws.String(r.s.t.Memberships),
			Key:       membershipKey(m.GroupID, m.UserID),
		}}, nil); err != nil {
			return err
		}
	}
	return nil
}

// userGroups stores {user_id, group_ids: string set}. DynamoDB drops an
// emptied set attribute, which reads back as no groups.
type userGroups struct{ s *Store }

type userGroupsItem struct {
	UserID   string   `dynamodbav:"user_id"`
	GroupIDs []string `dynamodbav:"group_ids,stringset,omitempty"`
}

func (r userGroups) setOp(ctx context.Context, op, userID, groupID string) error {
	return r.s.write(ctx, types.TransactWriteItem{Update: &types.Update{
		TableName:        aws.String(r.s.t.UserGroups),
		Key:              key("user_id", userID),
		UpdateExpression: aws.String(op + " group_ids :g"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":g": &types.AttributeValueMemberSS{Value: []string{groupID}},
		},
	}}, nil)
}

func (r userGroups) AddGroup(ctx context.Context, userID, groupID string) error {
	return r.setOp(ctx, "ADD", userID, groupID)
}

func (r userGroups) RemoveGroup(ctx context.Context, userID, groupID string) error {
	return r.setOp(ctx, "DELETE", userID, groupID)
}

func (r userGroups) GroupIDs(ctx context.Context, userID string) ([]string, error) {
	var it userGroupsItem
	err := r.s.getItem(ctx, r.s.t.UserGroups, key("user_id", userID), &it)
	if errors.Is(err, repo.ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	if it.GroupIDs == nil {
		return []string{}, nil
	}
	sort.Strings(it.GroupIDs)
	return it.GroupIDs, nil
}

// RemoveGroupFromAll walks the group's membership rows; every user whose
// index can hold the group has one.
func (r userGroups) RemoveGroupFromAll(ctx context.Context, groupID string) error {
	rows, err := memberships{r.s}.ListByGroup(ctx, groupID, "")
	if err != nil {
		return err
	}
	for _, m := range rows {
		if err := r.RemoveGroup(ctx, m.UserID, groupID); err != nil {
			return err
		}
	}
	return nil
}
