// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/studybuddy/internal/app/system/indexes"
	"github.com/dalemusser/studybuddy/internal/app/system/validators"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// EnsureSchema sets up indexes, validators or tables for the selected
// group store. The in-memory store needs nothing; DynamoDB tables are
// only created when dynamo_auto_provision is set.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	switch {
	case deps.MongoDatabase != nil:
		if err := validators.EnsureAll(ctx, deps.MongoDatabase); err != nil {
			logger.Error("ensure validators failed", zap.Error(err))
			return err
		}
		if err := indexes.EnsureAll(ctx, deps.MongoDatabase); err != nil {
			logger.Error("ensure indexes failed", zap.Error(err))
			return err
		}
		logger.Info("MongoDB schema ensured")

	case deps.Dynamo != nil && appCfg.DynamoAutoProvision:
		if err := deps.Dynamo.EnsureTables(ctx, tableWait); err != nil {
			logger.Error("provision DynamoDB tables failed", zap.Error(err))
			return err
		}
		logger.Info("DynamoDB tables ensured", zap.String("prefix", appCfg.DynamoTablePrefix))
	}
	return nil
}
