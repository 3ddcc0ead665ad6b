package workflow_test

import (
	"context"
	"strings"
	"testing"

	"github.com/dalemusser/studybuddy/internal/app/system/apperr"
	"github.com/dalemusser/studybuddy/internal/app/system/notify"
	"github.com/dalemusser/studybuddy/internal/app/workflow"
	"github.com/dalemusser/studybuddy/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateGroup_PendingWithCreatorAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.user(t, "u1@example.com")

	g, err := f.svc.CreateGroup(ctx, u1, algoDraft())
	require.NoError(t, err)

	assert.Equal(t, models.GroupPendingApproval, g.Status)
	assert.Equal(t, "Algo Study", g.Name)
	assert.NotEmpty(t, g.Overview.MeetingLink)
	assert.NotNil(t, g.Overview.MeetingLinkCreatedAt)

	m := f.membership(t, g.ID, u1.UserID)
	assert.True(t, m.IsAdmin)
	assert.Equal(t, models.MemberActive, m.Status)
	assert.True(t, f.indexHas(t, u1.UserID, g.ID))
	assert.Equal(t, 1, f.events.count(notify.GroupCreated))
}

func TestCreateGroup_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.user(t, "u1@example.com")

	cases := []struct {
		name  string
		mod   func(*workflow.GroupDraft)
		field string
	}{
		{"missing name", func(d *workflow.GroupDraft) { d.Name = "  " }, "name"},
		{"markup only name", func(d *workflow.GroupDraft) { d.Name = "<b></b>" }, "name"},
		{"bad level", func(d *workflow.GroupDraft) { d.Level = "expert" }, "level"},
		{"bad commitment", func(d *workflow.GroupDraft) { d.TimeCommitment = "1hr/wk" }, "timecommitment"},
		{"long concept", func(d *workflow.GroupDraft) { d.Concept = strings.Repeat("x", 501) }, "concept"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := algoDraft()
			tc.mod(&d)
			_, err := f.svc.CreateGroup(ctx, u1, d)
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.Validation), "got %v", err)
			assert.Contains(t, apperr.Message(err), tc.field)
		})
	}

	all, err := f.b.Groups.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestApproveGroup_ExactlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.user(t, "u1@example.com")
	admin := f.superAdmin(t)

	g, err := f.svc.CreateGroup(ctx, u1, algoDraft())
	require.NoError(t, err)

	_, err = f.svc.ApproveGroup(ctx, u1, g.ID)
	assert.True(t, apperr.Is(err, apperr.Forbidden))

	approved, err := f.svc.ApproveGroup(ctx, admin, g.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GroupActive, approved.Status)
	assert.Equal(t, admin.UserID, approved.ApprovalStatus.ApprovedBy)

	_, err = f.svc.ApproveGroup(ctx, admin, g.ID)
	assert.True(t, apperr.Is(err, apperr.AlreadyProcessed))
	_, err = f.svc.RejectGroup(ctx, admin, g.ID, "late")
	assert.True(t, apperr.Is(err, apperr.AlreadyProcessed))

	after, err := f.b.Groups.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GroupActive, after.Status)
	assert.Equal(t, approved.ApprovalStatus.ApprovedAt, after.ApprovalStatus.ApprovedAt)
	assert.Empty(t, after.ApprovalStatus.RejectionReason)

	emails := f.mail.to("u1@example.com")
	require.Len(t, emails, 1)
	assert.Equal(t, `Your study group "Algo Study" was approved`, emails[0].Subject)
}

func TestRejectGroup_ThenApproveFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.user(t, "u1@example.com")
	admin := f.superAdmin(t)

	g2, err := f.svc.CreateGroup(ctx, u1, algoDraft())
	require.NoError(t, err)

	rejected, err := f.svc.RejectGroup(ctx, admin, g2.ID, "duplicate topic")
	require.NoError(t, err)
	assert.Equal(t, models.GroupRejected, rejected.Status)
	assert.Equal(t, "duplicate topic", rejected.ApprovalStatus.RejectionReason)

	_, err = f.svc.ApproveGroup(ctx, admin, g2.ID)
	assert.True(t, apperr.Is(err, apperr.AlreadyProcessed))

	after, _ := f.b.Groups.Get(ctx, g2.ID)
	assert.Equal(t, models.GroupRejected, after.Status)
	assert.Equal(t, "duplicate topic", after.ApprovalStatus.RejectionReason)
	assert.Empty(t, after.ApprovalStatus.ApprovedBy)
}

func TestRejectGroup_DefaultReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.user(t, "u1@example.com")
	admin := f.superAdmin(t)

	g, _ := f.svc.CreateGroup(ctx, u1, algoDraft())
	rejected, err := f.svc.RejectGroup(ctx, admin, g.ID, "   ")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultRejectionReason, rejected.ApprovalStatus.RejectionReason)
}

func TestApproveGroup_NotFound(t *testing.T) {
	f := newFixture(t)
	admin := f.superAdmin(t)
	_, err := f.svc.ApproveGroup(context.Background(), admin, "missing")
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestGetGroup_Visibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.user(t, "u1@example.com")
	u2 := f.user(t, "u2@example.com")
	admin := f.superAdmin(t)

	pending, _ := f.svc.CreateGroup(ctx, u1, algoDraft())

	_, err := f.svc.GetGroup(ctx, u1, pending.ID)
	assert.NoError(t, err)
	_, err = f.svc.GetGroup(ctx, admin, pending.ID)
	assert.NoError(t, err)
	_, err = f.svc.GetGroup(ctx, u2, pending.ID)
	assert.True(t, apperr.Is(err, apperr.Forbidden))

	_, _ = f.svc.ApproveGroup(ctx, admin, pending.ID)
	_, err = f.svc.GetGroup(ctx, u2, pending.ID)
	assert.NoError(t, err)

	_, err = f.svc.GetGroup(ctx, u2, "missing")
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestListGroups(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.user(t, "u1@example.com")
	u2 := f.user(t, "u2@example.com")
	admin := f.superAdmin(t)

	active := f.activeGroup(t, u1, admin)
	pending, _ := f.svc.CreateGroup(ctx, u1, algoDraft())
	f.join(t, active, u1, u2)

	gs, err := f.svc.ListActiveGroups(ctx)
	require.NoError(t, err)
	require.Len(t, gs, 1)
	assert.Equal(t, active.ID, gs[0].ID)

	mine, err := f.svc.ListMyGroups(ctx, u1)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	mine, err = f.svc.ListMyGroups(ctx, u2)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, active.ID, mine[0].ID)

	_, err = f.svc.ListAllGroupsForAdmin(ctx, u1)
	assert.True(t, apperr.Is(err, apperr.Forbidden))

	all, err := f.svc.ListAllGroupsForAdmin(ctx, admin)
	require.NoError(t, err)
	require.Len(t, all, 2)
	counts := map[string]int64{}
	for _, s := range all {
		counts[s.ID] = s.MemberCount
		assert.Equal(t, "u1@example.com", s.CreatorEmail)
		assert.Equal(t, "u1", s.CreatorName)
	}
	assert.Equal(t, int64(2), counts[active.ID])
	assert.Equal(t, int64(1), counts[pending.ID])
}

func TestGenerateMeetingLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.user(t, "u1@example.com")
	u2 := f.user(t, "u2@example.com")
	admin := f.superAdmin(t)
	g := f.activeGroup(t, u1, admin)
	f.join(t, g, u1, u2)

	_, err := f.svc.GenerateMeetingLink(ctx, u2, g.ID)
	assert.True(t, apperr.Is(err, apperr.Forbidden))

	ov, err := f.svc.GenerateMeetingLink(ctx, u1, g.ID)
	require.NoError(t, err)
	assert.NotEqual(t, g.Overview.MeetingLink, ov.MeetingLink)

	after, _ := f.b.Groups.Get(ctx, g.ID)
	assert.Equal(t, ov.MeetingLink, after.Overview.MeetingLink)
}

func TestGenerateMeetingLink_PendingGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.user(t, "u1@example.com")
	g, err := f.svc.CreateGroup(ctx, u1, algoDraft())
	require.NoError(t, err)

	_, err = f.svc.GenerateMeetingLink(ctx, u1, g.ID)
	assert.True(t, apperr.Is(err, apperr.Conflict), "pending group: %v", err)

	after, _ := f.b.Groups.Get(ctx, g.ID)
	assert.Equal(t, g.Overview.MeetingLink, after.Overview.MeetingLink)
}

func TestDeleteGroup_CascadeLeavesNoOrphans(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.user(t, "u1@example.com")
	u2 := f.user(t, "u2@example.com")
	u3 := f.user(t, "u3@example.com")
	admin := f.superAdmin(t)

	g := f.activeGroup(t, u1, admin)
	other := f.activeGroup(t, u1, admin)
	f.join(t, g, u1, u2)

	_, err := f.svc.SubmitJoinRequest(ctx, u3, g.ID, "me too")
	require.NoError(t, err)
	_, err = f.svc.SendInvitation(ctx, u1, g.ID, "friend@example.com")
	require.NoError(t, err)
	_, err = f.svc.AddMessage(ctx, u2, g.ID, "hello")
	require.NoError(t, err)
	_, err = f.svc.UpdateNotes(ctx, u2, g.ID, "remember chapter 3")
	require.NoError(t, err)
	res, err := f.svc.UploadResource(ctx, u2, g.ID, workflow.Upload{
		Type: models.ResourceTypeDocument, Title: "Notes", Filename: "notes.txt",
		Body: strings.NewReader("some notes"),
	})
	require.NoError(t, err)

	err = f.svc.DeleteGroup(ctx, u1, g.ID)
	assert.True(t, apperr.Is(err, apperr.Forbidden))

	require.NoError(t, f.svc.DeleteGroup(ctx, admin, g.ID))

	_, err = f.b.Groups.Get(ctx, g.ID)
	assert.Error(t, err)

	ms, err := f.b.Memberships.ListByGroup(ctx, g.ID, "")
	require.NoError(t, err)
	assert.Empty(t, ms)

	for _, u := range []models.Caller{u1, u2, u3} {
		assert.False(t, f.indexHas(t, u.UserID, g.ID), "index of %s", u.Email)
		rs, err := f.b.Requests.ListByUser(ctx, u.UserID)
		require.NoError(t, err)
		assert.Empty(t, rs)
		_, err = f.b.Notes.Get(ctx, u.UserID, g.ID)
		assert.Error(t, err)
	}
	assert.True(t, f.indexHas(t, u1.UserID, other.ID))

	invs, err := f.b.Invitations.ListByGroup(ctx, g.ID)
	require.NoError(t, err)
	assert.Empty(t, invs)

	d, err := f.b.Discussions.GetOrCreate(ctx, g.ID, f.now)
	require.NoError(t, err)
	assert.Empty(t, d.Messages)

	path, err := f.blobs.FullPath(res.ObjectKey)
	require.NoError(t, err)
	assert.NoFileExists(t, path)

	err = f.svc.DeleteGroup(ctx, admin, g.ID)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}
