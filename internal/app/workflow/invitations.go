package workflow

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"time"

	"github.com/dalemusser/studybuddy/internal/app/repo"
	"github.com/dalemusser/studybuddy/internal/app/system/apperr"
	"github.com/dalemusser/studybuddy/internal/app/system/inputval"
	"github.com/dalemusser/studybuddy/internal/app/system/mailer"
	"github.com/dalemusser/studybuddy/internal/app/system/notify"
	"github.com/dalemusser/studybuddy/internal/app/system/timeouts"
	"github.com/dalemusser/studybuddy/internal/app/system/tokens"
	"github.com/dalemusser/studybuddy/internal/domain/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SendInvitation invites an email address to an active group. The invitee
// receives a link carrying the invitation token.
func (s *Service) SendInvitation(ctx context.Context, caller models.Caller, groupID, email string) (models.Invitation, error) {
	email = inputval.NormalizeEmail(email)
	if !inputval.IsValidEmail(email) {
		return models.Invitation{}, apperr.New(apperr.Validation, "email must be a valid email address")
	}

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), s.log, "send invitation")
	defer cancel()

	g, err := s.activeGroup(ctx, groupID)
	if err != nil {
		return models.Invitation{}, err
	}
	if _, err := s.requireAdmin(ctx, caller, groupID); err != nil {
		return models.Invitation{}, err
	}

	now := s.now()
	existing, err := s.b.Invitations.FindPending(ctx, groupID, email)
	switch {
	case err == nil && !existing.Expired(now):
		return models.Invitation{}, apperr.New(apperr.Conflict, "a pending invitation was already sent to this email")
	case err == nil:
		if err := s.b.Invitations.MarkExpired(ctx, existing); err != nil && !errors.Is(err, repo.ErrPrecondition) {
			return models.Invitation{}, storageErr(err)
		}
	case !errors.Is(err, repo.ErrNotFound):
		return models.Invitation{}, storageErr(err)
	}

	if u, err := s.users.GetByEmail(ctx, email); err == nil {
		if _, ok, err := s.activeMembership(ctx, groupID, u.ID); err != nil {
			return models.Invitation{}, err
		} else if ok {
			return models.Invitation{}, apperr.New(apperr.Conflict, "this user is already a member of the group")
		}
	} else if !errors.Is(err, repo.ErrNotFound) {
		return models.Invitation{}, storageErr(err)
	}

	token, err := tokens.Invitation()
	if err != nil {
		return models.Invitation{}, storageErr(err)
	}
	inv := models.Invitation{
		ID:           uuid.NewString(),
		GroupID:      groupID,
		InvitedEmail: email,
		InvitedBy:    caller.UserID,
		Status:       models.InvitePending,
		Token:        token,
		SentAt:       now,
		ExpiresAt:    now.Add(s.cfg.InvitationTTL),
	}
	if err := s.b.Invitations.Create(ctx, inv); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return models.Invitation{}, apperr.Wrap(apperr.Conflict, "a pending invitation was already sent to this email", err)
		}
		return models.Invitation{}, storageErr(err)
	}

	s.log.Info("invitation sent",
		zap.String("invitation_id", inv.ID),
		zap.String("group_id", groupID),
		zap.String("by", caller.UserID))
	s.publish(ctx, notify.Event{
		Type:    notify.InvitationSent,
		GroupID: groupID,
		ActorID: caller.UserID,
		Data:    map[string]string{"invitation_id": inv.ID},
	})

	inviter := caller.Name
	if inviter == "" {
		inviter = caller.Email
	}
	s.sendEmail(ctx, mailer.BuildInvitationEmail(email, mailer.InvitationEmailData{
		SiteName:    s.cfg.SiteName,
		GroupName:   g.Name,
		InviterName: inviter,
		AcceptURL:   s.cfg.BaseURL + "/invitations/" + url.PathEscape(token),
		ExpiresAt:   inv.ExpiresAt,
	}))
	return inv, nil
}

// AcceptInvitation redeems an invitation token for the caller. The token is
// the only credential; the caller's email need not match.
func (s *Service) AcceptInvitation(ctx context.Context, caller models.Caller, token string) (models.Invitation, error) {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Long(), s.log, "accept invitation")
	defer cancel()

	inv, err := s.invitationByToken(ctx, token)
	if err != nil {
		return models.Invitation{}, err
	}
	now := s.now()
	if inv.Expired(now) {
		return models.Invitation{}, apperr.New(apperr.AlreadyProcessed, "invitation has expired")
	}
	if inv.Status == models.InviteAccepted && inv.AcceptedBy == caller.UserID {
		return inv, nil
	}
	if inv.Status != models.InvitePending {
		return models.Invitation{}, apperr.New(apperr.AlreadyProcessed, "invitation has already been "+inv.Status)
	}
	if _, err := s.activeGroup(ctx, inv.GroupID); err != nil {
		return models.Invitation{}, err
	}

	joined := false
	err = s.b.Tx.Run(ctx, func(ctx context.Context) error {
		var err error
		if joined, err = s.joinGroup(ctx, inv.GroupID, caller.UserID, now); err != nil {
			return err
		}
		return s.b.Invitations.MarkAccepted(ctx, inv, caller.UserID, now)
	})
	if errors.Is(err, repo.ErrDuplicate) {
		joined = false
		err = s.b.Invitations.MarkAccepted(ctx, inv, caller.UserID, now)
	}
	if err != nil {
		if errors.Is(err, repo.ErrPrecondition) {
			return models.Invitation{}, apperr.Wrap(apperr.AlreadyProcessed, "invitation has already been processed", err)
		}
		return models.Invitation{}, notFoundOr(err, "invitation not found")
	}

	inv.Status = models.InviteAccepted
	inv.AcceptedBy = caller.UserID
	inv.AcceptedAt = &now

	s.log.Info("invitation accepted",
		zap.String("invitation_id", inv.ID),
		zap.String("group_id", inv.GroupID),
		zap.String("user_id", caller.UserID),
		zap.Bool("joined", joined))
	s.publish(ctx, notify.Event{Type: notify.InvitationAccepted, GroupID: inv.GroupID, ActorID: caller.UserID, UserID: caller.UserID})
	if joined {
		s.publish(ctx, notify.Event{Type: notify.MemberJoined, GroupID: inv.GroupID, ActorID: caller.UserID, UserID: caller.UserID})
	}
	return inv, nil
}

// DeclineInvitation declines a pending, unexpired invitation.
func (s *Service) DeclineInvitation(ctx context.Context, caller models.Caller, token string) (models.Invitation, error) {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), s.log, "decline invitation")
	defer cancel()

	inv, err := s.invitationByToken(ctx, token)
	if err != nil {
		return models.Invitation{}, err
	}
	now := s.now()
	if inv.Expired(now) {
		return models.Invitation{}, apperr.New(apperr.AlreadyProcessed, "invitation has expired")
	}
	if inv.Status != models.InvitePending {
		return models.Invitation{}, apperr.New(apperr.AlreadyProcessed, "invitation has already been "+inv.Status)
	}
	if err := s.b.Invitations.MarkDeclined(ctx, inv, now); err != nil {
		if errors.Is(err, repo.ErrPrecondition) {
			return models.Invitation{}, apperr.Wrap(apperr.AlreadyProcessed, "invitation has already been processed", err)
		}
		return models.Invitation{}, notFoundOr(err, "invitation not found")
	}

	inv.Status = models.InviteDeclined
	inv.DeclinedAt = &now
	s.publish(ctx, notify.Event{Type: notify.InvitationDeclined, GroupID: inv.GroupID, ActorID: caller.UserID})
	return inv, nil
}

// ListGroupInvitations returns every invitation of a group, newest first.
func (s *Service) ListGroupInvitations(ctx context.Context, caller models.Caller, groupID string) ([]models.Invitation, error) {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), s.log, "list group invitations")
	defer cancel()

	if _, err := s.requireAdmin(ctx, caller, groupID); err != nil {
		return nil, err
	}
	invs, err := s.b.Invitations.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, storageErr(err)
	}
	return invs, nil
}

// ListMyInvitations returns the redeemable invitations addressed to the
// caller's email.
func (s *Service) ListMyInvitations(ctx context.Context, caller models.Caller) ([]models.Invitation, error) {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), s.log, "list my invitations")
	defer cancel()

	invs, err := s.b.Invitations.ListPendingByEmail(ctx, inputval.NormalizeEmail(caller.Email))
	if err != nil {
		return nil, storageErr(err)
	}
	now := s.now()
	out := invs[:0]
	for _, inv := range invs {
		if !inv.Expired(now) {
			out = append(out, inv)
		}
	}
	return out, nil
}

// CleanupExpiredInvitations marks every pending invitation whose expiry has
// passed as expired and returns how many changed.
func (s *Service) CleanupExpiredInvitations(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.b.Invitations.ExpireBefore(ctx, now)
	if err != nil {
		return 0, storageErr(err)
	}
	if n > 0 {
		s.log.Info("expired invitations swept", zap.Int64("count", n))
		s.publish(ctx, notify.Event{
			Type: notify.InvitationsExpired,
			At:   now,
			Data: map[string]string{"count": strconv.FormatInt(n, 10)},
		})
	}
	return n, nil
}

func (s *Service) invitationByToken(ctx context.Context, token string) (models.Invitation, error) {
	if token == "" {
		return models.Invitation{}, apperr.New(apperr.NotFound, "invitation not found")
	}
	inv, err := s.b.Invitations.GetByToken(ctx, token)
	if err != nil {
		return models.Invitation{}, notFoundOr(err, "invitation not found")
	}
	return inv, nil
}
