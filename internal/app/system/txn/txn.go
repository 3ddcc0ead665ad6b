// Package txn runs multi-collection MongoDB writes atomically.
//
// Run wraps fn in a session transaction. Deployments without transaction
// support (a standalone mongod, some DocumentDB versions) cannot start one;
// there Run logs a warning and calls fn directly. Unique indexes on the
// membership pair, the pending join request pair and the invitation token
// keep duplicates out even in that mode.
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Run executes fn inside a transaction on db's client. fn must pass the
// context it receives to every collection call.
func Run(ctx context.Context, db *mongo.Database, log *zap.Logger, fn func(ctx context.Context) error) error {
	sess, err := db.Client().StartSession()
	if err != nil {
		if IsNotSupported(err) {
			warnFallback(log, err)
			return fn(ctx)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		warnFallback(log, err)
		return fn(ctx)
	}
	return err
}

func warnFallback(log *zap.Logger, err error) {
	if log == nil {
		return
	}
	log.Warn("transactions not supported; running without transaction", zap.Error(err))
}

// IsNotSupported reports whether err means the server cannot run
// multi-document transactions. Duplicate-key failures never qualify, even
// when their message mentions the transaction they aborted.
func IsNotSupported(err error) bool {
	if err == nil || mongo.IsDuplicateKeyError(err) {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, 51, 263: // IllegalOperation, not a replica set, OperationNotSupportedInTransaction
			return true
		}
	}

	s := strings.ToLower(err.Error())
	hits := 0
	for _, kw := range []string{"transaction", "replica set", "session", "not supported", "illegal operation"} {
		if strings.Contains(s, kw) {
			hits++
		}
	}
	return hits >= 2
}

// Runner adapts Run to repo.Tx.
type Runner struct {
	db  *mongo.Database
	log *zap.Logger
}

// NewRunner returns a transaction runner for db.
func NewRunner(db *mongo.Database, logger *zap.Logger) *Runner {
	return &Runner{db: db, log: logger}
}

// Run implements repo.Tx.
func (r *Runner) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	return Run(ctx, r.db, r.log, fn)
}
