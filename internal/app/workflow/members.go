package workflow

import (
	"context"
	"errors"

	"github.com/dalemusser/studybuddy/internal/app/repo"
	"github.com/dalemusser/studybuddy/internal/app/system/apperr"
	"github.com/dalemusser/studybuddy/internal/app/system/notify"
	"github.com/dalemusser/studybuddy/internal/app/system/timeouts"
	"github.com/dalemusser/studybuddy/internal/domain/models"
	"go.uber.org/zap"
)

// Member is an active membership with the member's current profile.
type Member struct {
	models.Membership
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ListMembers returns a group's active members in join order.
func (s *Service) ListMembers(ctx context.Context, caller models.Caller, groupID string) ([]Member, error) {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), s.log, "list members")
	defer cancel()

	if _, err := s.getGroup(ctx, groupID); err != nil {
		return nil, err
	}
	if !caller.IsSuperAdmin {
		if _, err := s.requireMember(ctx, caller, groupID); err != nil {
			return nil, err
		}
	}

	ms, err := s.b.Memberships.ListByGroup(ctx, groupID, models.MemberActive)
	if err != nil {
		return nil, storageErr(err)
	}
	out := make([]Member, 0, len(ms))
	for _, m := range ms {
		mv := Member{Membership: m}
		u, err := s.users.GetByID(ctx, m.UserID)
		switch {
		case err == nil:
			mv.Name = u.DisplayName()
			mv.Email = u.Email
		case !errors.Is(err, repo.ErrNotFound):
			return nil, storageErr(err)
		}
		out = append(out, mv)
	}
	return out, nil
}

// RemoveMember removes another member from the group.
func (s *Service) RemoveMember(ctx context.Context, caller models.Caller, groupID, userID string) error {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), s.log, "remove member")
	defer cancel()

	if _, err := s.requireAdmin(ctx, caller, groupID); err != nil {
		return err
	}
	if userID == caller.UserID {
		return apperr.New(apperr.Forbidden, "admins cannot remove themselves; leave the group instead")
	}
	_, ok, err := s.activeMembership(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.New(apperr.NotFound, "member not found")
	}

	// Re-checked under the transaction so two admins cannot remove each
	// other at the same time.
	stillAdmin := func(ctx context.Context) error {
		_, err := s.requireAdmin(ctx, caller, groupID)
		return err
	}
	if err := s.endMembership(ctx, groupID, userID, models.MemberRemoved, stillAdmin); err != nil {
		return err
	}
	s.log.Info("member removed",
		zap.String("group_id", groupID),
		zap.String("user_id", userID),
		zap.String("by", caller.UserID))
	s.publish(ctx, notify.Event{Type: notify.MemberRemoved, GroupID: groupID, ActorID: caller.UserID, UserID: userID})
	return nil
}

// LeaveGroup ends the caller's own membership. The group's only admin
// cannot leave.
func (s *Service) LeaveGroup(ctx context.Context, caller models.Caller, groupID string) error {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), s.log, "leave group")
	defer cancel()

	m, err := s.requireMember(ctx, caller, groupID)
	if err != nil {
		return err
	}
	var lastAdmin func(context.Context) error
	if m.IsAdmin {
		lastAdmin = func(ctx context.Context) error {
			return s.requireAnotherAdmin(ctx, groupID, caller.UserID)
		}
	}

	if err := s.endMembership(ctx, groupID, caller.UserID, models.MemberLeft, lastAdmin); err != nil {
		return err
	}
	s.publish(ctx, notify.Event{Type: notify.MemberLeft, GroupID: groupID, ActorID: caller.UserID, UserID: caller.UserID})
	return nil
}

// requireAnotherAdmin fails with Conflict unless the group has an active
// admin other than userID.
func (s *Service) requireAnotherAdmin(ctx context.Context, groupID, userID string) error {
	ms, err := s.b.Memberships.ListByGroup(ctx, groupID, models.MemberActive)
	if err != nil {
		return storageErr(err)
	}
	for _, x := range ms {
		if x.IsAdmin && x.UserID != userID {
			return nil
		}
	}
	return apperr.New(apperr.Conflict, "the only admin cannot leave the group")
}

// endMembership moves an active membership to status and drops the group
// from the user's index. check, when set, runs inside the transaction
// before any write.
//
// Every call bumps the group's member version. Two transactions that end
// different memberships of one group therefore write a common document,
// and at most one of them commits against the member set it read.
func (s *Service) endMembership(ctx context.Context, groupID, userID, status string, check func(context.Context) error) error {
	err := s.b.Tx.Run(ctx, func(ctx context.Context) error {
		g, err := s.b.Groups.Get(ctx, groupID)
		if err != nil {
			return notFoundOr(err, "group not found")
		}
		if check != nil {
			if err := check(ctx); err != nil {
				return err
			}
		}
		if err := s.b.Groups.BumpMemberVersion(ctx, groupID, g.MemberVersion); err != nil {
			return err
		}
		if err := s.b.Memberships.SetStatus(ctx, groupID, userID, status, s.now()); err != nil {
			return err
		}
		return s.b.Index.RemoveGroup(ctx, userID, groupID)
	})
	if errors.Is(err, repo.ErrPrecondition) {
		// Either the membership already ended or the member set moved
		// under us.
		_, active, aerr := s.activeMembership(ctx, groupID, userID)
		if aerr != nil {
			return aerr
		}
		if active {
			return apperr.Wrap(apperr.Conflict, "group membership changed; try again", err)
		}
		return apperr.Wrap(apperr.NotFound, "member not found", err)
	}
	if err != nil {
		return notFoundOr(err, "member not found")
	}
	return nil
}
