package dynamostore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// tableSpec describes one table: its hash (and optional range) key and
// its hash-only global secondary indexes, index name -> attribute.
type tableSpec struct {
	name     string
	hash     string
	rangeKey string
	indexes  map[string]string
}

func (s *Store) tableSpecs() []tableSpec {
	return []tableSpec{
		{name: s.t.Groups, hash: "group_id", indexes: map[string]string{
			idxGroupsStatus:    "status",
			idxGroupsCreatedBy: "created_by",
		}},
		{name: s.t.Memberships, hash: "group_id", rangeKey: "user_id", indexes: map[string]string{
			idxMembershipsUser: "user_id",
		}},
		{name: s.t.UserGroups, hash: "user_id"},
		{name: s.t.Requests, hash: "request_id", indexes: map[string]string{
			idxRequestsGroup: "group_id",
			idxRequestsUser:  "user_id",
		}},
		{name: s.t.Invitations, hash: "invitation_id", indexes: map[string]string{
			idxInvitationsToken: "invitation_token",
			idxInvitationsGroup: "group_id",
			idxInvitationsEmail: "invited_email",
			idxInvitationsState: "status",
		}},
		{name: s.t.Discussions, hash: "group_id"},
		{name: s.t.Notes, hash: "user_id", rangeKey: "group_id", indexes: map[string]string{
			idxNotesGroup: "group_id",
		}},
	}
}

// EnsureTables creates any missing table (on-demand billing) and waits up
// to wait for each new one to become ACTIVE. Existing tables are left as
// they are.
func (s *Store) EnsureTables(ctx context.Context, wait time.Duration) error {
	for _, spec := range s.tableSpecs() {
		created, err := s.ensureTable(ctx, spec)
		if err != nil {
			return fmt.Errorf("ensure table %s: %w", spec.name, err)
		}
		if !created {
			s.log.Debug("dynamo table exists", zap.String("table", spec.name))
			continue
		}
		s.log.Info("created dynamo table", zap.String("table", spec.name))
		waiter := dynamodb.NewTableExistsWaiter(s.api)
		if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(spec.name)}, wait); err != nil {
			return fmt.Errorf("wait for table %s: %w", spec.name, err)
		}
	}
	return nil
}

func (s *Store) ensureTable(ctx context.Context, spec tableSpec) (bool, error) {
	_, err := s.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(spec.name)})
	if err == nil {
		return false, nil
	}
	var nf *types.ResourceNotFoundException
	if !errors.As(err, &nf) {
		return false, err
	}

	_, err = s.api.CreateTable(ctx, createTableInput(spec))
	if err != nil {
		var inUse *types.ResourceInUseException
		if errors.As(err, &inUse) {
			// Another process created it first.
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func createTableInput(spec tableSpec) *dynamodb.CreateTableInput {
	attrs := map[string]bool{spec.hash: true}
	keys := []types.KeySchemaElement{{AttributeName: aws.String(spec.hash), KeyType: types.KeyTypeHash}}
	if spec.rangeKey != "" {
		attrs[spec.rangeKey] = true
		keys = append(keys, types.KeySchemaElement{AttributeName: aws.String(spec.rangeKey), KeyType: types.KeyTypeRange})
	}

	var gsis []types.GlobalSecondaryIndex
	for _, name := range sortedKeys(spec.indexes) {
		attr := spec.indexes[name]
		attrs[attr] = true
		gsis = append(gsis, types.GlobalSecondaryIndex{
			IndexName:  aws.String(name),
			KeySchema:  []types.KeySchemaElement{{AttributeName: aws.String(attr), KeyType: types.KeyTypeHash}},
			Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
		})
	}

	var defs []types.AttributeDefinition
	for _, name := range sortedKeys(attrs) {
		defs = append(defs, types.AttributeDefinition{
			AttributeName: aws.String(name),
			AttributeType: types.ScalarAttributeTypeS,
		})
	}

	return &dynamodb.CreateTableInput{
		TableName:              aws.String(spec.name),
		KeySchema:              keys,
		AttributeDefinitions:   defs,
		GlobalSecondaryIndexes: gsis,
		BillingMode:            types.BillingModePayPerRequest,
	}
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
