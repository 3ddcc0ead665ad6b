// Package dynamostore implements the group-data repositories on DynamoDB.
//
// Every table is keyed by the entity's string id. Secondary lookups go
// through hash-only global secondary indexes and are ordered in Go, since
// the timestamps are stored as RFC 3339 strings that do not sort
// lexically.
//
// Writes made with a transaction context are buffered by the unit of work
// (uow.go) and committed together with TransactWriteItems; writes made
// outside a transaction run immediately as single conditional operations.
package dynamostore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/dalemusser/studybuddy/internal/app/repo"
	"go.uber.org/zap"
)

// API is the subset of the DynamoDB client the store calls.
type API interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Tables holds the physical table names.
type Tables struct {
	Groups      string
	Memberships string
	UserGroups  string
	Requests    string
	Invitations string
	Discussions string
	Notes       string
}

// TableNames returns the table names for prefix (e.g. "studybuddy_").
func TableNames(prefix string) Tables {
	return Tables{
		Groups:      prefix + "groups",
		Memberships: prefix + "memberships",
		UserGroups:  prefix + "user_groups",
		Requests:    prefix + "join_requests",
		Invitations: prefix + "invitations",
		Discussions: prefix + "discussions",
		Notes:       prefix + "user_group_notes",
	}
}

// Index names.
const (
	idxGroupsStatus     = "status-index"
	idxGroupsCreatedBy  = "created_by-index"
	idxMembershipsUser  = "user_id-index"
	idxRequestsGroup    = "group_id-index"
	idxRequestsUser     = "user_id-index"
	idxInvitationsToken = "token-index"
	idxInvitationsGroup = "group_id-index"
	idxInvitationsEmail = "email-index"
	idxInvitationsState = "status-index"
	idxNotesGroup       = "group_id-index"
)

// Store is the DynamoDB backend.
type Store struct {
	api API
	t   Tables
	log *zap.Logger
}

// New returns a store over tables named with prefix.
func New(api API, prefix string, logger *zap.Logger) *Store {
	return &Store{api: api, t: TableNames(prefix), log: logger}
}

// Backend returns the repositories backed by s.
func (s *Store) Backend() repo.Backend {
	return repo.Backend{
		Name:        "dynamo",
		Groups:      groups{s},
		Memberships: memberships{s},
		Index:       userGroups{s},
		Requests:    requests{s},
		Invitations: invitations{s},
		Discussions: discussions{s},
		Notes:       notes{s},
		Tx:          txRunner{s},
		Ping:        s.Ping,
	}
}

// Ping describes the groups table.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.t.Groups)})
	return err
}

/* -------------------------------------------------------------------------- */
/* Helpers                                                                     */
/* -------------------------------------------------------------------------- */

func str(v string) types.AttributeValue { return &types.AttributeValueMemberS{Value: v} }

func num(v int64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(v, 10)}
}

func key(kv ...string) map[string]types.AttributeValue {
	m := make(map[string]types.AttributeValue, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i]] = str(kv[i+1])
	}
	return m
}

func marshal(v any) (types.AttributeValue, error) {
	return attributevalue.Marshal(v)
}

// getItem decodes the item at k into out; ErrNotFound if absent.
func (s *Store) getItem(ctx context.Context, table string, k map[string]types.AttributeValue, out any) error {
	res, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(table),
		Key:            k,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("get %s: %w", table, err)
	}
	if len(res.Item) == 0 {
		return repo.ErrNotFound
	}
	return attributevalue.UnmarshalMap(res.Item, out)
}

func (s *Store) exists(ctx context.Context, table string, k map[string]types.AttributeValue) (bool, error) {
	res, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:            aws.String(table),
		Key:                  k,
		ConsistentRead:       aws.Bool(true),
		ProjectionExpression: aws.String("#k"),
		ExpressionAttributeNames: map[string]string{
			"#k": firstKey(k),
		},
	})
	if err != nil {
		return false, err
	}
	return len(res.Item) > 0, nil
}

func firstKey(k map[string]types.AttributeValue) string {
	for name := range k {
		return name
	}
	return ""
}

// missingOr returns ErrNotFound if the item is gone, guardErr otherwise.
func (s *Store) missingOr(table string, k map[string]types.AttributeValue, guardErr error) func(context.Context) error {
	return func(ctx context.Context) error {
		ok, err := s.exists(ctx, table, k)
		if err != nil {
			return err
		}
		if !ok {
			return repo.ErrNotFound
		}
		return guardErr
	}
}

func always(err error) func(context.Context) error {
	return func(context.Context) error { return err }
}

// queryAll runs a query to completion and decodes every item into T.
func queryAll[T any](ctx context.Context, api API, in *dynamodb.QueryInput) ([]T, error) {
	out := []T{}
	p := dynamodb.NewQueryPaginator(api, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", aws.ToString(in.TableName), err)
		}
		var batch []T
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

// queryEq queries table (or one of its indexes) for attr = value.
func queryEq[T any](ctx context.Context, s *Store, table, index, attr, value string) ([]T, error) {
	in := &dynamodb.QueryInput{
		TableName:                 aws.String(table),
		KeyConditionExpression:    aws.String("#a = :v"),
		ExpressionAttributeNames:  map[string]string{"#a": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": str(value)},
	}
	if index != "" {
		in.IndexName = aws.String(index)
	} else {
		in.ConsistentRead = aws.Bool(true)
	}
	return queryAll[T](ctx, s.api, in)
}

// isConditionFailed also matches the generic API error some transports
// return in place of the typed exception.
func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return true
	}
	var ae smithy.APIError
	return errors.As(err, &ae) && ae.ErrorCode() == "ConditionalCheckFailedException"
}
