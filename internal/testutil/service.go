package testutil

import (
	"testing"

	"github.com/dalemusser/studybuddy/internal/app/store/memstore"
	"github.com/dalemusser/studybuddy/internal/app/system/auth"
	"github.com/dalemusser/studybuddy/internal/app/system/blobstore"
	"github.com/dalemusser/studybuddy/internal/app/workflow"
	"github.com/dalemusser/studybuddy/internal/domain/models"
	"go.uber.org/zap"
)

// Env is a workflow service over the in-memory backend, for handler tests.
type Env struct {
	DB      *memstore.DB
	Users   *memstore.Users
	Blobs   *blobstore.Local
	Service *workflow.Service
	Session *auth.SessionManager
}

// NewEnv builds an Env with a log-only mailer, no event publisher, and
// uploads stored under a temporary directory.
func NewEnv(t *testing.T) *Env {
	t.Helper()
	db := memstore.New()
	users := db.Users()
	blobs, err := blobstore.NewLocal(t.TempDir(), "/files")
	if err != nil {
		t.Fatalf("NewLocal failed: %v", err)
	}
	svc := workflow.New(workflow.Config{BaseURL: "http://localhost:8080"}, workflow.Deps{
		Backend: db.Backend(),
		Users:   users,
		Blobs:   blobs,
		Logger:  zap.NewNop(),
	})
	sm, err := auth.NewSessionManager("test-session-key-for-testing-only-0123456789", "test-session", "", 0, false, users, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}
	return &Env{DB: db, Users: users, Blobs: blobs, Service: svc, Session: sm}
}

// User stores a regular user and returns its caller.
func (e *Env) User(t *testing.T, email string) models.Caller {
	t.Helper()
	ctx, cancel := TestContext()
	defer cancel()
	u, err := e.Users.Seed(ctx, models.User{Email: email, FirstName: "Test", LastName: "User"})
	if err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return auth.CallerFor(u)
}

// SuperAdmin stores a super admin and returns its caller.
func (e *Env) SuperAdmin(t *testing.T) models.Caller {
	t.Helper()
	ctx, cancel := TestContext()
	defer cancel()
	u, err := e.Users.Seed(ctx, models.User{Email: "root@test.com", FirstName: "Root", IsSuperAdmin: true})
	if err != nil {
		t.Fatalf("seed super admin: %v", err)
	}
	return auth.CallerFor(u)
}

// ActiveGroup creates a group as creator and approves it as a super admin.
func (e *Env) ActiveGroup(t *testing.T, creator models.Caller) models.Group {
	t.Helper()
	ctx, cancel := TestContext()
	defer cancel()
	g, err := e.Service.CreateGroup(ctx, creator, workflow.GroupDraft{
		Name:           "Test Group " + creator.UserID[:8],
		Concept:        "Test concept",
		Level:          models.LevelBeginner,
		TimeCommitment: "5hrs/wk",
	})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	root := models.Caller{UserID: "root", IsSuperAdmin: true}
	g, err = e.Service.ApproveGroup(ctx, root, g.ID)
	if err != nil {
		t.Fatalf("ApproveGroup: %v", err)
	}
	return g
}

// Join adds member to g through a join request approved by groupAdmin.
func (e *Env) Join(t *testing.T, g models.Group, groupAdmin, member models.Caller) {
	t.Helper()
	ctx, cancel := TestContext()
	defer cancel()
	jr, err := e.Service.SubmitJoinRequest(ctx, member, g.ID, "")
	if err != nil {
		t.Fatalf("SubmitJoinRequest: %v", err)
	}
	if _, err := e.Service.ApproveJoinRequest(ctx, groupAdmin, jr.ID); err != nil {
		t.Fatalf("ApproveJoinRequest: %v", err)
	}
}
