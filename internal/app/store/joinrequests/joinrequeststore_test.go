package joinrequeststore_test

import (
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/studybuddy/internal/app/repo"
	joinrequeststore "github.com/dalemusser/studybuddy/internal/app/store/joinrequests"
	"github.com/dalemusser/studybuddy/internal/domain/models"
	"github.com/dalemusser/studybuddy/internal/testutil"
	"github.com/google/uuid"
)

func newRequest(groupID, userID string, at time.Time) models.JoinRequest {
	return models.JoinRequest{
		ID:          uuid.NewString(),
		GroupID:     groupID,
		UserID:      userID,
		UserEmail:   userID + "@example.com",
		Status:      models.RequestPending,
		RequestedAt: at,
	}
}

func TestStore_Create_OnePendingPerPair(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := joinrequeststore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	first := newRequest("g1", "u1", now)
	if err := store.Create(ctx, first); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := store.Create(ctx, newRequest("g1", "u1", now)); !errors.Is(err, repo.ErrDuplicate) {
		t.Fatalf("second pending: expected ErrDuplicate, got %v", err)
	}

	// Once decided, the pair may request again.
	if err := store.Decide(ctx, first, models.RequestRejected, "admin", models.DefaultRejectionReason, now); err != nil {
		t.Fatalf("Decide failed: %v", err)
	}
	if err := store.Create(ctx, newRequest("g1", "u1", now)); err != nil {
		t.Fatalf("Create after rejection failed: %v", err)
	}
}

func TestStore_Decide_OnlyPending(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := joinrequeststore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	jr := newRequest("g1", "u1", time.Now().UTC())
	_ = store.Create(ctx, jr)

	if err := store.Decide(ctx, jr, models.RequestApproved, "admin", "", time.Now()); err != nil {
		t.Fatalf("Decide failed: %v", err)
	}
	if err := store.Decide(ctx, jr, models.RequestRejected, "admin", "x", time.Now()); !errors.Is(err, repo.ErrPrecondition) {
		t.Errorf("expected ErrPrecondition, got %v", err)
	}

	got, _ := store.Get(ctx, jr.ID)
	if got.Status != models.RequestApproved || got.ProcessedBy != "admin" || got.ProcessedAt == nil {
		t.Errorf("unexpected request: %+v", got)
	}
}

func TestStore_Listings(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := joinrequeststore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	base := time.Now().UTC().Truncate(time.Millisecond)
	older := newRequest("g1", "u1", base)
	newer := newRequest("g1", "u2", base.Add(time.Minute))
	other := newRequest("g2", "u1", base.Add(2*time.Minute))
	for _, jr := range []models.JoinRequest{newer, older, other} {
		if err := store.Create(ctx, jr); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	pending, err := store.ListPendingByGroup(ctx, "g1")
	if err != nil {
		t.Fatalf("ListPendingByGroup failed: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != older.ID {
		t.Errorf("pending for g1 should be oldest first: %+v", pending)
	}

	mine, err := store.ListByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(mine) != 2 || mine[0].ID != other.ID {
		t.Errorf("u1 requests should be newest first: %+v", mine)
	}
}
