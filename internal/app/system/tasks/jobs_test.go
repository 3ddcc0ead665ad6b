package tasks

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeSweeper struct {
	calls int
	now   time.Time
	err   error
}

func (f *fakeSweeper) CleanupExpiredInvitations(_ context.Context, now time.Time) (int64, error) {
	f.calls++
	f.now = now
	return 3, f.err
}

func TestInvitationExpiryJob(t *testing.T) {
	s := &fakeSweeper{}
	job := InvitationExpiryJob(s, 5*time.Minute)

	if job.Name != "invitation-expiry" || job.Interval != 5*time.Minute {
		t.Errorf("unexpected job: %+v", job)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if s.calls != 1 {
		t.Errorf("calls: got %d, want 1", s.calls)
	}
	if s.now.Location() != time.UTC {
		t.Errorf("sweep time should be UTC, got %v", s.now.Location())
	}

	s.err = errors.New("boom")
	if err := job.Run(context.Background()); err == nil {
		t.Error("expected error from failing sweep")
	}
}
