// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"strings"

	discussionsfeature "github.com/dalemusser/studybuddy/internal/app/features/discussions"
	errorsfeature "github.com/dalemusser/studybuddy/internal/app/features/errors"
	groupsfeature "github.com/dalemusser/studybuddy/internal/app/features/groups"
	healthfeature "github.com/dalemusser/studybuddy/internal/app/features/health"
	invitationsfeature "github.com/dalemusser/studybuddy/internal/app/features/invitations"
	joinrequestsfeature "github.com/dalemusser/studybuddy/internal/app/features/joinrequests"
	loginfeature "github.com/dalemusser/studybuddy/internal/app/features/login"
	logoutfeature "github.com/dalemusser/studybuddy/internal/app/features/logout"
	membersfeature "github.com/dalemusser/studybuddy/internal/app/features/members"
	resourcesfeature "github.com/dalemusser/studybuddy/internal/app/features/resources"
	userinfofeature "github.com/dalemusser/studybuddy/internal/app/features/userinfo"
	"github.com/dalemusser/studybuddy/internal/app/system/auth"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. At this point you have access to:
//   - coreCfg: WAFFLE core configuration (ports, env, timeouts, etc.)
//   - appCfg: app-specific configuration defined in AppConfig
//   - deps: the backends and workflow service bundled in DBDeps
//   - logger: the fully configured zap.Logger for this app
//
// StudyBuddy applies session middleware and mounts the JSON feature
// routers: accounts, groups and their sub-resources, join requests,
// invitations and the super-admin approval queue.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, deps.Users, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	errLog := errorsfeature.NewErrorLogger(logger)
	svc := deps.Service

	r := chi.NewRouter()
	r.NotFound(errorsfeature.NotFound)
	r.MethodNotAllowed(errorsfeature.MethodNotAllowed)

	// Global auth middleware: loads the Caller into context if signed in.
	// Handlers read it via auth.CurrentCaller(r).
	r.Use(sessionMgr.LoadCaller)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(svc, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Accounts
	loginHandler := loginfeature.NewHandler(svc, sessionMgr, errLog, logger)
	r.Mount("/signup", loginfeature.SignupRoutes(loginHandler))
	r.Mount("/login", loginfeature.Routes(loginHandler))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler, sessionMgr))

	userInfoHandler := userinfofeature.NewHandler(svc, errLog)
	r.Mount("/me", userinfofeature.Routes(userInfoHandler, sessionMgr))

	// Groups and their sub-resources. The sub-routers see {id} from the
	// mount pattern.
	groupsHandler := groupsfeature.NewHandler(svc, errLog, logger)
	r.Mount("/groups", groupsfeature.Routes(groupsHandler, sessionMgr))
	r.Mount("/admin/groups", groupsfeature.AdminRoutes(groupsHandler, sessionMgr))

	membersHandler := membersfeature.NewHandler(svc, errLog, logger)
	r.Mount("/groups/{id}/members", membersfeature.Routes(membersHandler, sessionMgr))

	resourcesHandler := resourcesfeature.NewHandler(svc, errLog, logger)
	r.Mount("/groups/{id}/resources", resourcesfeature.Routes(resourcesHandler, sessionMgr))

	joinHandler := joinrequestsfeature.NewHandler(svc, errLog, logger)
	r.Mount("/groups/{id}/join-requests", joinrequestsfeature.GroupRoutes(joinHandler, sessionMgr))
	r.Mount("/join-requests", joinrequestsfeature.Routes(joinHandler, sessionMgr))

	invitationsHandler := invitationsfeature.NewHandler(svc, errLog, logger)
	r.Mount("/groups/{id}/invitations", invitationsfeature.GroupRoutes(invitationsHandler, sessionMgr))
	r.Mount("/invitations", invitationsfeature.Routes(invitationsHandler, sessionMgr))

	discussionsHandler := discussionsfeature.NewHandler(svc, errLog, logger)
	r.Mount("/groups/{id}/discussion", discussionsfeature.Routes(discussionsHandler, sessionMgr))
	r.Mount("/groups/{id}/notes", discussionsfeature.NoteRoutes(discussionsHandler, sessionMgr))

	// Uploaded files on local disk, for signed-in users only. S3 uploads
	// are reached through presigned URLs instead.
	if deps.LocalBlob != nil {
		prefix := "/" + strings.Trim(appCfg.StorageLocalURL, "/")
		r.With(sessionMgr.RequireSignedIn).
			Handle(prefix+"/*", fileserver.Handler(prefix, deps.LocalBlob.Root()))
	}

	return r, nil
}
