package membershipstore_test

import (
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/studybuddy/internal/app/repo"
	membershipstore "github.com/dalemusser/studybuddy/internal/app/store/memberships"
	"github.com/dalemusser/studybuddy/internal/domain/models"
	"github.com/dalemusser/studybuddy/internal/testutil"
)

func TestStore_Activate_RejectsSecondActive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	m := testutil.NewMembership("g1", "u1", false)
	if err := store.Activate(ctx, m); err != nil {
		t.Fatalf("first Activate failed: %v", err)
	}
	if err := store.Activate(ctx, m); !errors.Is(err, repo.ErrDuplicate) {
		t.Fatalf("second Activate: expected ErrDuplicate, got %v", err)
	}

	n, err := store.CountActive(ctx, "g1")
	if err != nil {
		t.Fatalf("CountActive failed: %v", err)
	}
	if n != 1 {
		t.Errorf("active count: got %d, want 1", n)
	}
}

func TestStore_Activate_ReactivatesLeftRow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	m := testutil.NewMembership("g1", "u1", false)
	if err := store.Activate(ctx, m); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	if err := store.SetStatus(ctx, "g1", "u1", models.MemberLeft, time.Now().UTC()); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	if err := store.Activate(ctx, m); err != nil {
		t.Fatalf("reactivate failed: %v", err)
	}

	rows, err := store.ListByGroup(ctx, "g1", "")
	if err != nil {
		t.Fatalf("ListByGroup failed: %v", err)
	}
	if len(rows) != 1 || rows[0].Status != models.MemberActive {
		t.Errorf("expected one active row, got %+v", rows)
	}
}

func TestStore_SetStatus_Guards(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.SetStatus(ctx, "g1", "nobody", models.MemberRemoved, time.Now()); !errors.Is(err, repo.ErrNotFound) {
		t.Errorf("missing row: expected ErrNotFound, got %v", err)
	}

	_ = store.Activate(ctx, testutil.NewMembership("g1", "u1", false))
	_ = store.SetStatus(ctx, "g1", "u1", models.MemberRemoved, time.Now())
	if err := store.SetStatus(ctx, "g1", "u1", models.MemberLeft, time.Now()); !errors.Is(err, repo.ErrPrecondition) {
		t.Errorf("inactive row: expected ErrPrecondition, got %v", err)
	}
}

func TestIndexStore(t *testing.T) {
	db := testutil.SetupTestDB(t)
	idx := membershipstore.NewIndex(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ids, err := idx.GroupIDs(ctx, "u1")
	if err != nil || len(ids) != 0 {
		t.Fatalf("empty index: got %v, %v", ids, err)
	}

	_ = idx.AddGroup(ctx, "u1", "g1")
	_ = idx.AddGroup(ctx, "u1", "g1")
	_ = idx.AddGroup(ctx, "u1", "g2")
	_ = idx.AddGroup(ctx, "u2", "g1")

	ids, _ = idx.GroupIDs(ctx, "u1")
	if len(ids) != 2 {
		t.Errorf("u1 groups: got %v, want 2 entries", ids)
	}

	if err := idx.RemoveGroupFromAll(ctx, "g1"); err != nil {
		t.Fatalf("RemoveGroupFromAll failed: %v", err)
	}
	ids, _ = idx.GroupIDs(ctx, "u1")
	if len(ids) != 1 || ids[0] != "g2" {
		t.Errorf("u1 after cascade: got %v", ids)
	}
	ids, _ = idx.GroupIDs(ctx, "u2")
	if len(ids) != 0 {
		t.Errorf("u2 after cascade: got %v", ids)
	}
}
