// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"
)

// Job is a named unit of periodic background work.
type Job struct {
	Name     string
	Interval time.Duration
	// Timeout bounds one run; zero means 30 seconds.
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// InvitationSweeper flips overdue pending invitations to expired.
type InvitationSweeper interface {
	CleanupExpiredInvitations(ctx context.Context, now time.Time) (int64, error)
}

// InvitationExpiryJob creates a job that expires pending invitations past
// their expires_at. Acceptance already rejects expired invitations, so the
// sweep only keeps stored statuses and listings accurate. The sweeper logs
// the count.
func InvitationExpiryJob(sweeper InvitationSweeper, interval time.Duration) Job {
	return Job{
		Name:     "invitation-expiry",
		Interval: interval,
		Run: func(ctx context.Context) error {
			_, err := sweeper.CleanupExpiredInvitations(ctx, time.Now().UTC())
			return err
		},
	}
}
