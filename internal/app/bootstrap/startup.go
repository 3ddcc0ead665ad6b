// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"time"

	"github.com/dalemusser/studybuddy/internal/app/system/apperr"
	"github.com/dalemusser/studybuddy/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// tableWait bounds how long EnsureSchema waits for a new DynamoDB table.
const tableWait = 2 * time.Minute

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
//
// It applies timeout overrides from the environment, promotes the
// configured super admin and starts background jobs.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		cur := timeouts.Current()
		logger.Info("timeouts overridden from environment",
			zap.Int("count", n),
			zap.Duration("ping", cur.Ping),
			zap.Duration("short", cur.Short),
			zap.Duration("medium", cur.Medium),
			zap.Duration("long", cur.Long))
	}

	if err := ensureSuperAdmin(ctx, appCfg, deps, logger); err != nil {
		return err
	}

	if deps.Scheduler != nil {
		deps.Scheduler.Start()
	}
	return nil
}

// ensureSuperAdmin promotes the account named by superadmin_email. A
// missing account is logged and skipped so a fresh deployment can start
// before that person has signed up.
func ensureSuperAdmin(ctx context.Context, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if appCfg.SuperAdminEmail == "" || deps.Service == nil {
		return nil
	}
	u, err := deps.Service.PromoteSuperAdmin(ctx, appCfg.SuperAdminEmail)
	if apperr.Is(err, apperr.NotFound) {
		logger.Warn("superadmin_email has no account yet; sign up and restart to promote",
			zap.String("email", appCfg.SuperAdminEmail))
		return nil
	}
	if err != nil {
		logger.Error("promote super admin failed", zap.Error(err))
		return err
	}
	logger.Info("super admin ensured", zap.String("user_id", u.ID), zap.String("email", u.Email))
	return nil
}
