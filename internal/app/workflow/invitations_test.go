package workflow_test

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/studybuddy/internal/app/system/apperr"
	"github.com/dalemusser/studybuddy/internal/app/system/notify"
	"github.com/dalemusser/studybuddy/internal/app/system/tasks"
	"github.com/dalemusser/studybuddy/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// pendingToken returns the token of the one pending invitation to email.
func (f *fixture) pendingToken(t *testing.T, email string) string {
	t.Helper()
	invs, err := f.b.Invitations.ListPendingByEmail(context.Background(), email)
	require.NoError(t, err)
	require.Len(t, invs, 1)
	return invs[0].Token
}

func TestSendInvitation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.user(t, "u1@example.com")
	u2 := f.user(t, "u2@example.com")
	g := f.activeGroup(t, u1, f.superAdmin(t))
	f.join(t, g, u1, u2)

	inv, err := f.svc.SendInvitation(ctx, u1, g.ID, "  Friend@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "friend@example.com", inv.InvitedEmail)
	assert.Equal(t, models.InvitePending, inv.Status)
	assert.Equal(t, f.now.Add(models.DefaultInvitationTTL), inv.ExpiresAt)
	assert.Len(t, inv.Token, 43)

	emails := f.mail.to("friend@example.com")
	require.Len(t, emails, 1)
	assert.Contains(t, emails[0].TextBody, "https://study.example.com/invitations/"+inv.Token)

	_, err = f.svc.SendInvitation(ctx, u1, g.ID, "friend@example.com")
	assert.True(t, apperr.Is(err, apperr.Conflict), "duplicate pending: %v", err)

	_, err = f.svc.SendInvitation(ctx, u2, g.ID, "other@example.com")
	assert.True(t, apperr.Is(err, apperr.Forbidden), "non-admin: %v", err)

	_, err = f.svc.SendInvitation(ctx, u1, g.ID, "not-an-email")
	assert.True(t, apperr.Is(err, apperr.Validation))

	_, err = f.svc.SendInvitation(ctx, u1, g.ID, u2.Email)
	assert.True(t, apperr.Is(err, apperr.Conflict), "already a member: %v", err)
}

func TestSendInvitation_ResendAfterExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.user(t, "u1@example.com")
	g := f.activeGroup(t, u1, f.superAdmin(t))

	first, err := f.svc.SendInvitation(ctx, u1, g.ID, "friend@example.com")
	require.NoError(t, err)

	f.now = f.now.Add(models.DefaultInvitationTTL + time.Minute)
	second, err := f.svc.SendInvitation(ctx, u1, g.ID, "friend@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, second.Token)

	old, err := f.b.Invitations.GetByToken(ctx, first.Token)
	require.NoError(t, err)
	assert.Equal(t, models.InviteExpired, old.Status)

	list, err := f.svc.ListGroupInvitations(ctx, u1, g.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
}

func TestAcceptInvitation_SingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.user(t, "u1@example.com")
	u2 := f.user(t, "u2@example.com")
	u3 := f.user(t, "u3@example.com")
	g := f.activeGroup(t, u1, f.superAdmin(t))

	_, err := f.svc.SendInvitation(ctx, u1, g.ID, u2.Email)
	require.NoError(t, err)
	token := f.pendingToken(t, u2.Email)

	inv, err := f.svc.AcceptInvitation(ctx, u2, token)
	require.NoError(t, err)
	assert.Equal(t, models.InviteAccepted, inv.Status)
	assert.Equal(t, u2.UserID, inv.AcceptedBy)
	assert.True(t, f.membership(t, g.ID, u2.UserID).Active())
	assert.True(t, f.indexHas(t, u2.UserID, g.ID))

	again, err := f.svc.AcceptInvitation(ctx, u2, token)
	require.NoError(t, err, "same user is idempotent")
	assert.Equal(t, models.InviteAccepted, again.Status)

	_, err = f.svc.AcceptInvitation(ctx, u3, token)
	assert.True(t, apperr.Is(err, apperr.AlreadyProcessed), "other user: %v", err)
	_, ok, _ := f.memberOf(t, g.ID, u3.UserID)
	assert.False(t, ok)

	assert.Equal(t, 1, f.events.count(notify.InvitationAccepted))
}

func TestAcceptInvitation_Expired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.user(t, "u1@example.com")
	u2 := f.user(t, "u2@example.com")
	g := f.activeGroup(t, u1, f.superAdmin(t))

	_, err := f.svc.SendInvitation(ctx, u1, g.ID, u2.Email)
	require.NoError(t, err)
	token := f.pendingToken(t, u2.Email)

	f.now = f.now.Add(models.DefaultInvitationTTL)
	_, err = f.svc.AcceptInvitation(ctx, u2, token)
	assert.True(t, apperr.Is(err, apperr.AlreadyProcessed))

	_, err = f.svc.DeclineInvitation(ctx, u2, token)
	assert.True(t, apperr.Is(err, apperr.AlreadyProcessed))

	_, err = f.svc.AcceptInvitation(ctx, u2, "no-such-token")
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestAcceptInvitation_AfterAcceptExpiryStillFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.user(t, "u1@example.com")
	u2 := f.user(t, "u2@example.com")
	g := f.activeGroup(t, u1, f.superAdmin(t))

	_, _ = f.svc.SendInvitation(ctx, u1, g.ID, u2.Email)
	token := f.pendingToken(t, u2.Email)
	_, err := f.svc.AcceptInvitation(ctx, u2, token)
	require.NoError(t, err)

	f.now = f.now.Add(models.DefaultInvitationTTL + time.Hour)
	_, err = f.svc.AcceptInvitation(ctx, u2, token)
	assert.True(t, apperr.Is(err, apperr.AlreadyProcessed))
}

func TestAcceptInvitation_InactiveGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.user(t, "u1@example.com")
	u2 := f.user(t, "u2@example.com")
	admin := f.superAdmin(t)
	g := f.activeGroup(t, u1, admin)

	_, _ = f.svc.SendInvitation(ctx, u1, g.ID, u2.Email)
	token := f.pendingToken(t, u2.Email)
	require.NoError(t, f.svc.DeleteGroup(ctx, admin, g.ID))

	_, err := f.svc.AcceptInvitation(ctx, u2, token)
	assert.True(t, apperr.Is(err, apperr.NotFound), "got %v", err)
}

func TestDeclineInvitation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.user(t, "u1@example.com")
	u2 := f.user(t, "u2@example.com")
	g := f.activeGroup(t, u1, f.superAdmin(t))

	_, _ = f.svc.SendInvitation(ctx, u1, g.ID, u2.Email)

	mine, err := f.svc.ListMyInvitations(ctx, u2)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	token := mine[0].Token

	inv, err := f.svc.DeclineInvitation(ctx, u2, token)
	require.NoError(t, err)
	assert.Equal(t, models.InviteDeclined, inv.Status)

	_, err = f.svc.AcceptInvitation(ctx, u2, token)
	assert.True(t, apperr.Is(err, apperr.AlreadyProcessed))

	mine, err = f.svc.ListMyInvitations(ctx, u2)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestCleanupExpiredInvitations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.user(t, "u1@example.com")
	g := f.activeGroup(t, u1, f.superAdmin(t))

	_, _ = f.svc.SendInvitation(ctx, u1, g.ID, "old@example.com")
	f.now = f.now.Add(6 * 24 * time.Hour)
	_, _ = f.svc.SendInvitation(ctx, u1, g.ID, "new@example.com")

	sweepAt := f.now.Add(2 * 24 * time.Hour)
	n, err := f.svc.CleanupExpiredInvitations(ctx, sweepAt)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = f.svc.CleanupExpiredInvitations(ctx, sweepAt)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, f.events.count(notify.InvitationsExpired))

	pending, _ := f.b.Invitations.ListPendingByEmail(ctx, "new@example.com")
	assert.Len(t, pending, 1)
}

// TestInvitationExpiryJob_LogsSweepOnce runs the scheduled job against the
// service and expects a single log entry for the sweep.
func TestInvitationExpiryJob_LogsSweepOnce(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	f := newFixtureWithLogger(t, zap.New(core))
	ctx := context.Background()
	u1 := f.user(t, "u1@example.com")
	g := f.activeGroup(t, u1, f.superAdmin(t))

	// The job sweeps at wall-clock time; back-date the fixture clock so
	// the invitation is already past its expiry.
	f.now = time.Now().UTC().Add(-30 * 24 * time.Hour)
	_, err := f.svc.SendInvitation(ctx, u1, g.ID, "old@example.com")
	require.NoError(t, err)

	job := tasks.InvitationExpiryJob(f.svc, time.Minute)
	require.NoError(t, job.Run(ctx))

	swept := logs.FilterFieldKey("count").All()
	require.Len(t, swept, 1)
	assert.Equal(t, int64(1), swept[0].ContextMap()["count"])
}

func (f *fixture) memberOf(t *testing.T, groupID, userID string) (models.Membership, bool, error) {
	t.Helper()
	m, err := f.b.Memberships.Get(context.Background(), groupID, userID)
	if err != nil {
		return models.Membership{}, false, err
	}
	return m, m.Active(), nil
}
