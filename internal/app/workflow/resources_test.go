package workflow_test

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/dalemusser/studybuddy/internal/app/system/apperr"
	"github.com/dalemusser/studybuddy/internal/app/workflow"
	"github.com/dalemusser/studybuddy/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linkDraft() workflow.ResourceDraft {
	return workflow.ResourceDraft{
		Type:        models.ResourceTypeVideo,
		Title:       "Dynamic programming",
		URL:         "https://videos.example.com/dp",
		Description: `<p>Great intro</p><script>alert(1)</script>`,
	}
}

func TestAddResource(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.user(t, "u1@example.com")
	outsider := f.user(t, "out@example.com")
	g := f.activeGroup(t, u1, f.superAdmin(t))

	res, err := f.svc.AddResource(ctx, u1, g.ID, linkDraft())
	require.NoError(t, err)
	assert.Equal(t, "u1", res.UploadedByName)
	assert.Equal(t, "<p>Great intro</p>", res.Description)

	stored, _ := f.b.Groups.Get(ctx, g.ID)
	require.Len(t, stored.Resources, 1)
	assert.Equal(t, res.ID, stored.Resources[0].ID)

	_, err = f.svc.AddResource(ctx, outsider, g.ID, linkDraft())
	assert.True(t, apperr.Is(err, apperr.Forbidden))

	bad := linkDraft()
	bad.Type = "podcast"
	_, err = f.svc.AddResource(ctx, u1, g.ID, bad)
	assert.True(t, apperr.Is(err, apperr.Validation))

	bad = linkDraft()
	bad.URL = "javascript:alert(1)"
	_, err = f.svc.AddResource(ctx, u1, g.ID, bad)
	assert.True(t, apperr.Is(err, apperr.Validation))

	url, err := f.svc.ResourceURL(ctx, u1, g.ID, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://videos.example.com/dp", url)
}

func TestRemoveResource_UploaderOrAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.user(t, "u1@example.com")
	u2 := f.user(t, "u2@example.com")
	u3 := f.user(t, "u3@example.com")
	g := f.activeGroup(t, u1, f.superAdmin(t))
	f.join(t, g, u1, u2)
	f.join(t, g, u1, u3)

	byU2, err := f.svc.AddResource(ctx, u2, g.ID, linkDraft())
	require.NoError(t, err)
	byU3, err := f.svc.AddResource(ctx, u3, g.ID, linkDraft())
	require.NoError(t, err)

	err = f.svc.RemoveResource(ctx, u3, g.ID, byU2.ID)
	assert.True(t, apperr.Is(err, apperr.Forbidden))

	require.NoError(t, f.svc.RemoveResource(ctx, u2, g.ID, byU2.ID))
	require.NoError(t, f.svc.RemoveResource(ctx, u1, g.ID, byU3.ID), "admin removes any")

	err = f.svc.RemoveResource(ctx, u1, g.ID, byU3.ID)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestRemoveResource_UploaderWhoLeft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.user(t, "u1@example.com")
	u2 := f.user(t, "u2@example.com")
	g := f.activeGroup(t, u1, f.superAdmin(t))
	f.join(t, g, u1, u2)

	res, err := f.svc.AddResource(ctx, u2, g.ID, linkDraft())
	require.NoError(t, err)
	require.NoError(t, f.svc.LeaveGroup(ctx, u2, g.ID))

	err = f.svc.RemoveResource(ctx, u2, g.ID, res.ID)
	assert.True(t, apperr.Is(err, apperr.Forbidden))
}

func TestUploadResource(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.user(t, "u1@example.com")
	g := f.activeGroup(t, u1, f.superAdmin(t))

	res, err := f.svc.UploadResource(ctx, u1, g.ID, workflow.Upload{
		Type:        models.ResourceTypeDocument,
		Title:       "Cheat sheet",
		Filename:    "../../cheat sheet.pdf",
		ContentType: "application/pdf",
		Size:        5,
		Body:        strings.NewReader("%PDF-"),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.ObjectKey, "groups/"+g.ID+"/"))
	assert.True(t, strings.HasSuffix(res.ObjectKey, "cheat_sheet.pdf"))

	path, err := f.blobs.FullPath(res.ObjectKey)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-", string(data))

	url, err := f.svc.ResourceURL(ctx, u1, g.ID, res.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/files/groups/"), url)

	require.NoError(t, f.svc.RemoveResource(ctx, u1, g.ID, res.ID))
	assert.NoFileExists(t, path)
}
