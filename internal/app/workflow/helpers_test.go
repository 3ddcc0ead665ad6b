package workflow_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/studybuddy/internal/app/repo"
	"github.com/dalemusser/studybuddy/internal/app/store/memstore"
	"github.com/dalemusser/studybuddy/internal/app/system/blobstore"
	"github.com/dalemusser/studybuddy/internal/app/system/mailer"
	"github.com/dalemusser/studybuddy/internal/app/system/notify"
	"github.com/dalemusser/studybuddy/internal/app/workflow"
	"github.com/dalemusser/studybuddy/internal/domain/models"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []mailer.Email
}

func (m *recordingMailer) Send(_ context.Context, e mailer.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, e)
	return nil
}

func (m *recordingMailer) to(addr string) []mailer.Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []mailer.Email
	for _, e := range m.sent {
		if e.To == addr {
			out = append(out, e)
		}
	}
	return out
}

type recordingEvents struct {
	mu     sync.Mutex
	events []notify.Event
}

func (p *recordingEvents) Publish(_ context.Context, e notify.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingEvents) Close() error { return nil }

func (p *recordingEvents) count(typ string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

type fixture struct {
	db     *memstore.DB
	b      repo.Backend
	users  *memstore.Users
	blobs  *blobstore.Local
	mail   *recordingMailer
	events *recordingEvents
	svc    *workflow.Service
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithLogger(t, zap.NewNop())
}

func newFixtureWithLogger(t *testing.T, logger *zap.Logger) *fixture {
	t.Helper()
	blobs, err := blobstore.NewLocal(t.TempDir(), "/files")
	require.NoError(t, err)

	db := memstore.New()
	f := &fixture{
		db:     db,
		b:      db.Backend(),
		users:  db.Users(),
		blobs:  blobs,
		mail:   &recordingMailer{},
		events: &recordingEvents{},
		now:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = workflow.New(workflow.Config{
		SiteName: "StudyBuddy",
		BaseURL:  "https://study.example.com/",
	}, workflow.Deps{
		Backend: f.b,
		Users:   f.users,
		Mailer:  f.mail,
		Events:  f.events,
		Blobs:   blobs,
		Logger:  logger,
		Now:     func() time.Time { return f.now },
	})
	return f
}

// user seeds an account and returns it as a caller.
func (f *fixture) user(t *testing.T, email string) models.Caller {
	t.Helper()
	first, _, _ := strings.Cut(email, "@")
	u, err := f.users.Seed(context.Background(), models.User{Email: email, FirstName: first})
	require.NoError(t, err)
	return models.Caller{UserID: u.ID, Email: u.Email, Name: u.DisplayName()}
}

func (f *fixture) superAdmin(t *testing.T) models.Caller {
	t.Helper()
	c := f.user(t, "admin@example.com")
	c.IsSuperAdmin = true
	require.NoError(t, f.users.SetSuperAdmin(context.Background(), c.UserID, true))
	return c
}

func algoDraft() workflow.GroupDraft {
	return workflow.GroupDraft{
		Name:           "Algo Study",
		Concept:        "Algorithms",
		Level:          "intermediate",
		TimeCommitment: "10hrs/wk",
	}
}

// activeGroup creates a group owned by creator and approves it.
func (f *fixture) activeGroup(t *testing.T, creator, admin models.Caller) models.Group {
	t.Helper()
	ctx := context.Background()
	g, err := f.svc.CreateGroup(ctx, creator, algoDraft())
	require.NoError(t, err)
	g, err = f.svc.ApproveGroup(ctx, admin, g.ID)
	require.NoError(t, err)
	return g
}

// join makes member an active member of g through a join request.
func (f *fixture) join(t *testing.T, g models.Group, groupAdmin, member models.Caller) {
	t.Helper()
	ctx := context.Background()
	jr, err := f.svc.SubmitJoinRequest(ctx, member, g.ID, "")
	require.NoError(t, err)
	_, err = f.svc.ApproveJoinRequest(ctx, groupAdmin, jr.ID)
	require.NoError(t, err)
}

func (f *fixture) membership(t *testing.T, groupID, userID string) models.Membership {
	t.Helper()
	m, err := f.b.Memberships.Get(context.Background(), groupID, userID)
	require.NoError(t, err)
	return m
}

func (f *fixture) indexHas(t *testing.T, userID, groupID string) bool {
	t.Helper()
	ids, err := f.b.Index.GroupIDs(context.Background(), userID)
	require.NoError(t, err)
	for _, id := range ids {
		if id == groupID {
			return true
		}
	}
	return false
}
