package dynamostore

import (
	"context"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dalemusser/studybuddy/internal/app/repo"
	"github.com/dalemusser/studybuddy/internal/domain/models"
)

// requests stores join requests keyed by request_id. For every pending
// request a guard item keyed "pending#<group>#<user>" is written in the
// same transaction; its attribute_not_exists condition is what keeps a
// pair to one pending request. Guard items carry no group_id or user_id,
// so they never appear in the secondary indexes.
type requests struct{ s *Store }

func requestKey(id string) map[string]types.AttributeValue { return key("request_id", id) }

func guardKey(groupID, userID string) map[string]types.AttributeValue {
	return requestKey("pending#" + groupID + "#" + userID)
}

func (r requests) Create(ctx context.Context, jr models.JoinRequest) error {
	item, err := attributevalue.MarshalMap(jr)
	if err != nil {
		return err
	}
	return txRunner{r.s}.Run(ctx, func(ctx context.Context) error {
		if jr.Status == models.RequestPending {
			if err := r.s.write(ctx, types.TransactWriteItem{Put: &types.Put{
				TableName:           aws.String(r.s.t.Requests),
				Item:                guardKey(jr.GroupID, jr.UserID),
				ConditionExpression: aws.String("attribute_not_exists(request_id)"),
			}}, always(repo.ErrDuplicate)); err != nil {
				return err
			}
		}
		return r.s.write(ctx, types.TransactWriteItem{Put: &types.Put{
			TableName:           aws.String(r.s.t.Requests),
			Item:                item,
			ConditionExpression: aws.String("attribute_not_exists(request_id)"),
		}}, always(repo.ErrDuplicate))
	})
}

func (r requests) Get(ctx context.Context, id string) (models.JoinRequest, error) {
	var jr models.JoinRequest
	if err := r.s.getItem(ctx, r.s.t.Requests, requestKey(id), &jr); err != nil {
		return models.JoinRequest{}, err
	}
	return jr, nil
}

func (r requests) FindPending(ctx context.Context, groupID, userID string) (models.JoinRequest, error) {
	mine, err := queryEq[models.JoinRequest](ctx, r.s, r.s.t.Requests, idxRequestsUser, "user_id", userID)
	if err != nil {
		return models.JoinRequest{}, err
	}
	for _, jr := range mine {
		if jr.GroupID == groupID && jr.Status == models.RequestPending {
			return jr, nil
		}
	}
	return models.JoinRequest{}, repo.ErrNotFound
}

func (r requests) ListPendingByGroup(ctx context.Context, groupID string) ([]models.JoinRequest, error) {
	all, err := queryEq[models.JoinRequest](ctx, r.s, r.s.t.Requests, idxRequestsGroup, "group_id", groupID)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, jr := range all {
		if jr.Status == models.RequestPending {
			out = append(out, jr)
		}
	}
	sortRequests(out, true)
	return out, nil
}

func (r requests) ListByUser(ctx context.Context, userID string) ([]models.JoinRequest, error) {
	out, err := queryEq[models.JoinRequest](ctx, r.s, r.s.t.Requests, idxRequestsUser, "user_id", userID)
	if err != nil {
		return nil, err
	}
	sortRequests(out, false)
	return out, nil
}

func sortRequests(rs []models.JoinRequest, oldestFirst bool) {
	sort.Slice(rs, func(i, j int) bool {
		a, b := rs[i].RequestedAt, rs[j].RequestedAt
		if a.Equal(b) {
			return rs[i].ID < rs[j].ID
		}
		if oldestFirst {
			return a.Before(b)
		}
		return a.After(b)
	})
}

// Decide moves the request out of pending and frees the pair's guard.
func (r requests) Decide(ctx context.Context, jr models.JoinRequest, status, processedBy, reason string, at time.Time) error {
	atv, err := marshal(at)
	if err != nil {
		return err
	}
	expr := "SET #s = :to, processed_by = :by, processed_at = :at"
	vals := map[string]types.AttributeValue{
		":to":      str(status),
		":by":      str(processedBy),
		":at":      atv,
		":pending": str(models.RequestPending),
	}
	if reason != "" {
		expr += ", rejection_reason = :reason"
		vals[":reason"] = str(reason)
	}

	return txRunner{r.s}.Run(ctx, func(ctx context.Context) error {
		k := requestKey(jr.ID)
		if err := r.s.write(ctx, types.TransactWriteItem{Update: &types.Update{
			TableName:                 aws.String(r.s.t.Requests),
			Key:                       k,
			UpdateExpression:          aws.String(expr),
			ConditionExpression:       aws.String("#s = :pending"),
			ExpressionAttributeNames:  map[string]string{"#s": "status"},
			ExpressionAttributeValues: vals,
		}}, r.s.missingOr(r.s.t.Requests, k, repo.ErrPrecondition)); err != nil {
			return err
		}
		return r.s.write(ctx, types.TransactWriteItem{Delete: &types.Delete{
			TableName: aws.String(r.s.t.Requests),
			Key:       guardKey(jr.GroupID, jr.UserID),
		}}, nil)
	})
}

func (r requests) DeleteByGroup(ctx context.Context, groupID string) error {
	all, err := queryEq[models.JoinRequest](ctx, r.s, r.s.t.Requests, idxRequestsGroup, "group_id", groupID)
	if err != nil {
		return err
	}
	for _, jr := range all {
		if jr.Status == models.RequestPending {
			if err := r.s.write(ctx, types.TransactWriteItem{Delete: &types.Delete{
				TableName: aws.String(r.s.t.Requests),
				Key:       guardKey(jr.GroupID, jr.UserID),
			}}, nil); err != nil {
				return err
			}
		}
		if err := r.s.write(ctx, types.TransactWriteItem{Delete: &types.Delete{
			TableName: aws.String(r.s.t.Requests),
			Key:       requestKey(jr.ID),
		}}, nil); err != nil {
			return err
		}
	}
	return nil
}
