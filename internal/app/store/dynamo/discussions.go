package dynamostore

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dalemusser/studybuddy/internal/app/repo"
	"github.com/dalemusser/studybuddy/internal/domain/models"
	"github.com/google/uuid"
)

// discussions is keyed by group_id; the log lives in one item.
type discussions struct{ s *Store }

func discussionKey(groupID string) map[string]types.AttributeValue { return key("group_id", groupID) }

func (r discussions) get(ctx context.Context, groupID string) (models.Discussion, error) {
	var d models.Discussion
	if err := r.s.getItem(ctx, r.s.t.Discussions, discussionKey(groupID), &d); err != nil {
		return models.Discussion{}, err
	}
	if d.Messages == nil {
		d.Messages = []models.Message{}
	}
	return d, nil
}

// GetOrCreate returns the existing log or puts an empty one. Two racing
// creators both attempt a conditional put; the loser re-reads the winner's.
func (r discussions) GetOrCreate(ctx context.Context, groupID string, now time.Time) (models.Discussion, error) {
	d, err := r.get(ctx, groupID)
	if err == nil || !errors.Is(err, repo.ErrNotFound) {
		return d, err
	}

	d = models.Discussion{
		ID:        uuid.NewString(),
		GroupID:   groupID,
		Messages:  []models.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	item, err := attributevalue.MarshalMap(d)
	if err != nil {
		return models.Discussion{}, err
	}
	err = r.s.write(ctx, types.TransactWriteItem{Put: &types.Put{
		TableName:           aws.String(r.s.t.Discussions),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(group_id)"),
	}}, always(repo.ErrDuplicate))
	if errors.Is(err, repo.ErrDuplicate) {
		return r.get(ctx, groupID)
	}
	if err != nil {
		return models.Discussion{}, err
	}
	return d, nil
}

func (r discussions) AppendMessage(ctx context.Context, groupID string, msg models.Message) error {
	mv, err := marshal([]models.Message{msg})
	if err != nil {
		return err
	}
	atv, err := marshal(msg.Timestamp)
	if err != nil {
		return err
	}
	k := discussionKey(groupID)
	return r.s.write(ctx, types.TransactWriteItem{Update: &types.Update{
		TableName:                aws.String(r.s.t.Discussions),
		Key:                      k,
		UpdateExpression:         aws.String("SET #msgs = list_append(if_not_exists(#msgs, :empty), :m), updated_at = :at"),
		ConditionExpression:      aws.String("attribute_exists(group_id)"),
		ExpressionAttributeNames: map[string]string{"#msgs": "messages"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":m":     mv,
			":empty": &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
			":at":    atv,
		},
	}}, always(repo.ErrNotFound))
}

// EditMessage addresses the message by list position. The condition
// re-checks id and author at that position, so a concurrent change to the
// list shape turns into ErrNotFound rather than editing the wrong entry.
func (r discussions) EditMessage(ctx context.Context, groupID, messageID, userID, text string, at time.Time) error {
	d, err := r.get(ctx, groupID)
	if err != nil {
		return err
	}
	pos := -1
	for i, m := range d.Messages {
		if m.ID == messageID && m.UserID == userID {
			pos = i
			break
		}
	}
	if pos < 0 {
		return repo.ErrNotFound
	}

	atv, err := marshal(at)
	if err != nil {
		return err
	}
	p := "#msgs[" + strconv.Itoa(pos) + "]"
	return r.s.write(ctx, types.TransactWriteItem{Update: &types.Update{
		TableName: aws.String(r.s.t.Discussions),
		Key:       discussionKey(groupID),
		UpdateExpression: aws.String("SET " + p + ".#txt = :t, " + p + ".#ed = :true, " +
			p + ".edited_at = :at, updated_at = :at"),
		ConditionExpression: aws.String(p + ".message_id = :mid AND " + p + ".user_id = :uid"),
		ExpressionAttributeNames: map[string]string{
			"#msgs": "messages",
			"#txt":  "message",
			"#ed":   "edited",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t":    str(text),
			":true": &types.AttributeValueMemberBOOL{Value: true},
			":at":   atv,
			":mid":  str(messageID),
			":uid":  str(userID),
		},
	}}, always(repo.ErrNotFound))
}

func (r discussions) DeleteByGroup(ctx context.Context, groupID string) error {
	return r.s.write(ctx, types.TransactWriteItem{Delete: &types.Delete{
		TableName: aws.String(r.s.t.Discussions),
		Key:       discussionKey(groupID),
	}}, nil)
}

// notes is keyed by (user_id, group_id) with a group_id index for the
// cascade.
type notes struct{ s *Store }

func notesKey(userID, groupID string) map[string]types.AttributeValue {
	return key("user_id", userID, "group_id", groupID)
}

func (r notes) Get(ctx context.Context, userID, groupID string) (models.UserGroupNotes, error) {
	var n models.UserGroupNotes
	if err := r.s.getItem(ctx, r.s.t.Notes, notesKey(userID, groupID), &n); err != nil {
		return models.UserGroupNotes{}, err
	}
	return n, nil
}

func (r notes) Upsert(ctx context.Context, n models.UserGroupNotes) error {
	item, err := attributevalue.MarshalMap(n)
	if err != nil {
		return err
	}
	return r.s.write(ctx, types.TransactWriteItem{Put: &types.Put{
		TableName: aws.String(r.s.t.Notes),
		Item:      item,
	}}, nil)
}

func (r notes) DeleteByGroup(ctx context.Context, groupID string) error {
	all, err := queryEq[models.UserGroupNotes](ctx, r.s, r.s.t.Notes, idxNotesGroup, "group_id", groupID)
	if err != nil {
		return err
	}
	for _, n := range all {
		if err := r.s.write(ctx, types.TransactWriteItem{Delete: &types.Delete{
			TableName: aws.String(r.s.t.Notes),
			Key:       notesKey(n.UserID, groupID),
		}}, nil); err != nil {
			return err
		}
	}
	return nil
}
