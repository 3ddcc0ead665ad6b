package discussionstore_test

import (
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/studybuddy/internal/app/repo"
	discussionstore "github.com/dalemusser/studybuddy/internal/app/store/discussions"
	"github.com/dalemusser/studybuddy/internal/domain/models"
	"github.com/dalemusser/studybuddy/internal/testutil"
	"github.com/google/uuid"
)

func TestStore_GetOrCreate_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := discussionstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	first, err := store.GetOrCreate(ctx, "g1", time.Now().UTC())
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	second, err := store.GetOrCreate(ctx, "g1", time.Now().UTC())
	if err != nil {
		t.Fatalf("second GetOrCreate failed: %v", err)
	}
	if first.ID == "" || first.ID != second.ID {
		t.Errorf("ids differ: %q vs %q", first.ID, second.ID)
	}
	if len(first.Messages) != 0 {
		t.Errorf("new discussion should be empty")
	}
}

func TestStore_AppendAndEdit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := discussionstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, _ = store.GetOrCreate(ctx, "g1", time.Now().UTC())
	msg := models.Message{
		ID:        uuid.NewString(),
		UserID:    "u1",
		UserName:  "Ada",
		Text:      "hello",
		Timestamp: time.Now().UTC(),
	}
	if err := store.AppendMessage(ctx, "g1", msg); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	if err := store.EditMessage(ctx, "g1", msg.ID, "u2", "hijack", time.Now()); !errors.Is(err, repo.ErrNotFound) {
		t.Errorf("non-author edit: expected ErrNotFound, got %v", err)
	}
	if err := store.EditMessage(ctx, "g1", msg.ID, "u1", "hello, world", time.Now()); err != nil {
		t.Fatalf("EditMessage failed: %v", err)
	}

	d, err := store.Get(ctx, "g1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(d.Messages) != 1 || d.Messages[0].Text != "hello, world" || !d.Messages[0].Edited {
		t.Errorf("unexpected messages: %+v", d.Messages)
	}
}
