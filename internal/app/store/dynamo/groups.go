package dynamostore

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dalemusser/studybuddy/internal/app/repo"
	"github.com/dalemusser/studybuddy/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
)

type groups struct{ s *Store }

func groupKey(id string) map[string]types.AttributeValue { return key("group_id", id) }

func (r groups) Create(ctx context.Context, g models.Group) error {
	g.NameCI = text.Fold(g.Name)
	if g.Resources == nil {
		g.Resources = []models.Resource{}
	}
	item, err := attributevalue.MarshalMap(g)
	if err != nil {
		return err
	}
	return r.s.write(ctx, types.TransactWriteItem{Put: &types.Put{
		TableName:           aws.String(r.s.t.Groups),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(group_id)"),
	}}, always(repo.ErrDuplicate))
}

func (r groups) Get(ctx context.Context, id string) (models.Group, error) {
	var g models.Group
	if err := r.s.getItem(ctx, r.s.t.Groups, groupKey(id), &g); err != nil {
		return models.Group{}, err
	}
	if g.Resources == nil {
		g.Resources = []models.Resource{}
	}
	return g, nil
}

func (r groups) ListByStatus(ctx context.Context, status string) ([]models.Group, error) {
	out, err := queryEq[models.Group](ctx, r.s, r.s.t.Groups, idxGroupsStatus, "status", status)
	if err != nil {
		return nil, err
	}
	return newestFirst(out), nil
}

func (r groups) ListForUser(ctx context.Context, groupIDs []string, creatorID string) ([]models.Group, error) {
	created, err := queryEq[models.Group](ctx, r.s, r.s.t.Groups, idxGroupsCreatedBy, "created_by", creatorID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(created))
	out := created
	for _, g := range created {
		seen[g.ID] = true
	}
	for _, id := range groupIDs {
		if seen[id] {
			continue
		}
		g, err := r.Get(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			continue // index entry for a group deleted mid-cascade
		}
		if err != nil {
			return nil, err
		}
		seen[id] = true
		out = append(out, g)
	}
	return newestFirst(out), nil
}

func (r groups) ListAll(ctx context.Context) ([]models.Group, error) {
	out := []models.Group{}
	p := dynamodb.NewScanPaginator(r.s.api, &dynamodb.ScanInput{TableName: aws.String(r.s.t.Groups)})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var batch []models.Group
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return newestFirst(out), nil
}

func newestFirst(gs []models.Group) []models.Group {
	sort.Slice(gs, func(i, j int) bool {
		if !gs[i].CreatedAt.Equal(gs[j].CreatedAt) {
			return gs[i].CreatedAt.After(gs[j].CreatedAt)
		}
		return gs[i].ID < gs[j].ID
	})
	for i := range gs {
		if gs[i].Resources == nil {
			gs[i].Resources = []models.Resource{}
		}
	}
	return gs
}

func (r groups) Approve(ctx context.Context, id, adminID string, at time.Time) error {
	return r.decide(ctx, id, models.GroupActive,
		"approval_status.approved_by = :by, approval_status.approved_at = :at",
		map[string]types.AttributeValue{":by": str(adminID)}, at)
}

func (r groups) Reject(ctx context.Context, id, adminID, reason string, at time.Time) error {
	return r.decide(ctx, id, models.GroupRejected,
		"approval_status.rejected_by = :by, approval_status.rejected_at = :at, approval_status.rejection_reason = :reason",
		map[string]types.AttributeValue{":by": str(adminID), ":reason": str(reason)}, at)
}

func (r groups) decide(ctx context.Context, id, status, set string, vals map[string]types.AttributeValue, at time.Time) error {
	atv, err := marshal(at)
	if err != nil {
		return err
	}
	vals[":at"] = atv
	vals[":to"] = str(status)
	vals[":pending"] = str(models.GroupPendingApproval)

	return r.s.write(ctx, types.TransactWriteItem{Update: &types.Update{
		TableName:                 aws.String(r.s.t.Groups),
		Key:                       groupKey(id),
		UpdateExpression:          aws.String("SET #s = :to, updated_at = :at, " + set),
		ConditionExpression:       aws.String("#s = :pending"),
		ExpressionAttributeNames:  map[string]string{"#s": "status"},
		ExpressionAttributeValues: vals,
	}}, r.s.missingOr(r.s.t.Groups, groupKey(id), repo.ErrPrecondition))
}

func (r groups) Delete(ctx context.Context, id string) error {
	return r.s.write(ctx, types.TransactWriteItem{Delete: &types.Delete{
		TableName:           aws.String(r.s.t.Groups),
		Key:                 groupKey(id),
		ConditionExpression: aws.String("attribute_exists(group_id)"),
	}}, always(repo.ErrNotFound))
}

func (r groups) AddResource(ctx context.Context, groupID string, res models.Resource) error {
	av, err := marshal(res)
	if err != nil {
		return err
	}
	at, err := marshal(res.UploadedAt)
	if err != nil {
		return err
	}
	return r.update(ctx, groupID,
		"SET #res = list_append(if_not_exists(#res, :empty), :r), updated_at = :at",
		map[string]string{"#res": "resources"},
		map[string]types.AttributeValue{
			":r":     &types.AttributeValueMemberL{Value: []types.AttributeValue{av}},
			":empty": &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
			":at":    at,
		})
}

// RemoveResource removes by list position; the condition re-checks the
// id at that position so a concurrent removal cannot shift the target.
func (r groups) RemoveResource(ctx context.Context, groupID, resourceID string) error {
	g, err := r.Get(ctx, groupID)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(g.Resources, func(x models.Resource) bool { return x.ID == resourceID })
	if i < 0 {
		return repo.ErrNotFound
	}
	at, err := marshal(time.Now().UTC())
	if err != nil {
		return err
	}
	path := "#res[" + strconv.Itoa(i) + "]"
	return r.s.write(ctx, types.TransactWriteItem{Update: &types.Update{
		TableName:           aws.String(r.s.t.Groups),
		Key:                 groupKey(groupID),
		UpdateExpression:    aws.String("REMOVE " + path + " SET updated_at = :at"),
		ConditionExpression: aws.String(path + ".resource_id = :rid"),
		ExpressionAttributeNames: map[string]string{"#res": "resources"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":rid": str(resourceID),
			":at":  at,
		},
	}}, always(repo.ErrNotFound))
}

func (r groups) SetMeetingLink(ctx context.Context, groupID, link string, at time.Time) error {
	atv, err := marshal(at)
	if err != nil {
		return err
	}
	return r.update(ctx, groupID,
		"SET #ov.meeting_link = :l, #ov.meeting_link_created_at = :at, updated_at = :at",
		map[string]string{"#ov": "overview"},
		map[string]types.AttributeValue{":l": str(link), ":at": atv})
}

func (r groups) SetDiscussionID(ctx context.Context, groupID, discussionID string) error {
	return r.update(ctx, groupID, "SET discussion_id = :d", nil,
		map[string]types.AttributeValue{":d": str(discussionID)})
}

func (r groups) BumpMemberVersion(ctx context.Context, groupID string, expected int64) error {
	return r.s.write(ctx, types.TransactWriteItem{Update: &types.Update{
		TableName:           aws.String(r.s.t.Groups),
		Key:                 groupKey(groupID),
		UpdateExpression:    aws.String("SET #mv = if_not_exists(#mv, :zero) + :one"),
		ConditionExpression: aws.String("attribute_exists(group_id) AND (attribute_not_exists(#mv) OR #mv = :v)"),
		ExpressionAttributeNames: map[string]string{"#mv": "member_version"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v":    num(expected),
			":zero": num(0),
			":one":  num(1),
		},
	}}, r.s.missingOr(r.s.t.Groups, groupKey(groupID), repo.ErrPrecondition))
}

func (r groups) update(ctx context.Context, id, expr string, names map[string]string, vals map[string]types.AttributeValue) error {
	return r.s.write(ctx, types.TransactWriteItem{Update: &types.Update{
		TableName:                 aws.String(r.s.t.Groups),
		Key:                       groupKey(id),
		UpdateExpression:          aws.String(expr),
		ConditionExpression:       aws.String("attribute_exists(group_id)"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: vals,
	}}, always(repo.ErrNotFound))
}
