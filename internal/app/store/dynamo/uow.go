package dynamostore

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dalemusser/studybuddy/internal/app/repo"
	"go.uber.org/zap"
)

// MaxTransactItems is the TransactWriteItems limit.
const MaxTransactItems = 100

// pendingWrite is one buffered write plus the error to report when its
// condition expression fails.
type pendingWrite struct {
	item   types.TransactWriteItem
	onFail func(context.Context) error
}

type unitOfWork struct {
	writes []pendingWrite
}

type uowKey struct{}

func uowFrom(ctx context.Context) *unitOfWork {
	u, _ := ctx.Value(uowKey{}).(*unitOfWork)
	return u
}

type txRunner struct{ s *Store }

// Run buffers every write fn makes and commits them with one
// TransactWriteItems call. Reads inside fn do not see the buffered
// writes. Nested calls join the outer unit of work.
//
// More than MaxTransactItems writes (only a large cascading delete gets
// there) are committed in order, in chunks; callers put the write that
// must land last at the end.
func (r txRunner) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if uowFrom(ctx) != nil {
		return fn(ctx)
	}
	u := &unitOfWork{}
	if err := fn(context.WithValue(ctx, uowKey{}, u)); err != nil {
		return err
	}
	return r.s.commit(ctx, u.writes)
}

// write buffers w when ctx carries a unit of work, otherwise executes it.
func (s *Store) write(ctx context.Context, item types.TransactWriteItem, onFail func(context.Context) error) error {
	if u := uowFrom(ctx); u != nil {
		u.writes = append(u.writes, pendingWrite{item: item, onFail: onFail})
		return nil
	}
	return s.execOne(ctx, pendingWrite{item: item, onFail: onFail})
}

// execOne runs a single write with the plain item API.
func (s *Store) execOne(ctx context.Context, w pendingWrite) error {
	var err error
	switch it := w.item; {
	case it.Put != nil:
		_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:                 it.Put.TableName,
			Item:                      it.Put.Item,
			ConditionExpression:       it.Put.ConditionExpression,
			ExpressionAttributeNames:  it.Put.ExpressionAttributeNames,
			ExpressionAttributeValues: it.Put.ExpressionAttributeValues,
		})
	case it.Update != nil:
		_, err = s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:                 it.Update.TableName,
			Key:                       it.Update.Key,
			UpdateExpression:          it.Update.UpdateExpression,
			ConditionExpression:       it.Update.ConditionExpression,
			ExpressionAttributeNames:  it.Update.ExpressionAttributeNames,
			ExpressionAttributeValues: it.Update.ExpressionAttributeValues,
		})
	case it.Delete != nil:
		_, err = s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName:                 it.Delete.TableName,
			Key:                       it.Delete.Key,
			ConditionExpression:       it.Delete.ConditionExpression,
			ExpressionAttributeNames:  it.Delete.ExpressionAttributeNames,
			ExpressionAttributeValues: it.Delete.ExpressionAttributeValues,
		})
	default:
		return errors.New("dynamo: empty write")
	}
	if err != nil && isConditionFailed(err) && w.onFail != nil {
		return w.onFail(ctx)
	}
	return err
}

func (s *Store) commit(ctx context.Context, writes []pendingWrite) error {
	switch {
	case len(writes) == 0:
		return nil
	case len(writes) == 1:
		return s.execOne(ctx, writes[0])
	}

	for start := 0; start < len(writes); start += MaxTransactItems {
		end := min(start+MaxTransactItems, len(writes))
		if start > 0 {
			s.log.Info("committing oversized transaction in chunks",
				zap.Int("writes", len(writes)),
				zap.Int("chunk_start", start))
		}
		if err := s.transact(ctx, writes[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) transact(ctx context.Context, writes []pendingWrite) error {
	items := make([]types.TransactWriteItem, len(writes))
	for i, w := range writes {
		items[i] = w.item
	}
	_, err := s.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err == nil {
		return nil
	}

	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		return fmt.Errorf("transact write: %w", err)
	}
	// Reasons are positional; report the first failed guard.
	for i, r := range tce.CancellationReasons {
		if aws.ToString(r.Code) != "ConditionalCheckFailed" || i >= len(writes) {
			continue
		}
		if writes[i].onFail != nil {
			return writes[i].onFail(ctx)
		}
		return repo.ErrPrecondition
	}
	return fmt.Errorf("transaction cancelled: %w", err)
}
