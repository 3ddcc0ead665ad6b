package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/studybuddy/internal/app/repo"
	"github.com/dalemusser/studybuddy/internal/app/system/apperr"
	"github.com/dalemusser/studybuddy/internal/app/system/htmlsanitize"
	"github.com/dalemusser/studybuddy/internal/app/system/mailer"
	"github.com/dalemusser/studybuddy/internal/app/system/notify"
	"github.com/dalemusser/studybuddy/internal/app/system/timeouts"
	"github.com/dalemusser/studybuddy/internal/domain/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxJoinMessageLength bounds the note a requester attaches, in runes.
const MaxJoinMessageLength = 500

// SubmitJoinRequest asks to join an active group.
func (s *Service) SubmitJoinRequest(ctx context.Context, caller models.Caller, groupID, message string) (models.JoinRequest, error) {
	message = htmlsanitize.PlainText(message)
	if len([]rune(message)) > MaxJoinMessageLength {
		return models.JoinRequest{}, apperr.New(apperr.Validation, "message must be at most 500 characters")
	}

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), s.log, "submit join request")
	defer cancel()

	if _, err := s.activeGroup(ctx, groupID); err != nil {
		return models.JoinRequest{}, err
	}
	_, member, err := s.activeMembership(ctx, groupID, caller.UserID)
	if err != nil {
		return models.JoinRequest{}, err
	}
	if member {
		return models.JoinRequest{}, apperr.New(apperr.Conflict, "you are already a member of this group")
	}
	if _, err := s.b.Requests.FindPending(ctx, groupID, caller.UserID); err == nil {
		return models.JoinRequest{}, apperr.New(apperr.Conflict, "you already have a pending request for this group")
	} else if !errors.Is(err, repo.ErrNotFound) {
		return models.JoinRequest{}, storageErr(err)
	}

	jr := models.JoinRequest{
		ID:          uuid.NewString(),
		GroupID:     groupID,
		UserID:      caller.UserID,
		UserEmail:   caller.Email,
		Message:     message,
		Status:      models.RequestPending,
		RequestedAt: s.now(),
	}
	if err := s.b.Requests.Create(ctx, jr); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return models.JoinRequest{}, apperr.Wrap(apperr.Conflict, "you already have a pending request for this group", err)
		}
		return models.JoinRequest{}, storageErr(err)
	}

	s.publish(ctx, notify.Event{Type: notify.JoinRequested, GroupID: groupID, ActorID: caller.UserID, UserID: caller.UserID})
	return jr, nil
}

// ApproveJoinRequest admits the requester as a non-admin member.
func (s *Service) ApproveJoinRequest(ctx context.Context, caller models.Caller, requestID string) (models.JoinRequest, error) {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Long(), s.log, "approve join request")
	defer cancel()

	jr, err := s.pendingRequest(ctx, caller, requestID)
	if err != nil {
		return models.JoinRequest{}, err
	}

	now := s.now()
	joined := false
	err = s.b.Tx.Run(ctx, func(ctx context.Context) error {
		var err error
		if joined, err = s.joinGroup(ctx, jr.GroupID, jr.UserID, now); err != nil {
			return err
		}
		return s.b.Requests.Decide(ctx, jr, models.RequestApproved, caller.UserID, "", now)
	})
	if errors.Is(err, repo.ErrDuplicate) {
		// Another writer activated the membership first; only the request
		// still needs deciding.
		joined = false
		err = s.b.Requests.Decide(ctx, jr, models.RequestApproved, caller.UserID, "", now)
	}
	if err != nil {
		return models.JoinRequest{}, s.decideErr(err)
	}

	jr = decided(jr, models.RequestApproved, caller.UserID, "", now)
	s.log.Info("join request approved",
		zap.String("request_id", jr.ID),
		zap.String("group_id", jr.GroupID),
		zap.String("user_id", jr.UserID),
		zap.Bool("joined", joined))
	s.publish(ctx, notify.Event{Type: notify.JoinApproved, GroupID: jr.GroupID, ActorID: caller.UserID, UserID: jr.UserID})
	if joined {
		s.publish(ctx, notify.Event{Type: notify.MemberJoined, GroupID: jr.GroupID, ActorID: caller.UserID, UserID: jr.UserID})
	}
	s.emailJoinDecision(ctx, jr, true)
	return jr, nil
}

// RejectJoinRequest declines the request. An empty reason is stored as the
// default reason.
func (s *Service) RejectJoinRequest(ctx context.Context, caller models.Caller, requestID, reason string) (models.JoinRequest, error) {
	reason = htmlsanitize.Truncate(htmlsanitize.PlainText(reason), 500)
	if reason == "" {
		reason = models.DefaultRejectionReason
	}

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), s.log, "reject join request")
	defer cancel()

	jr, err := s.pendingRequest(ctx, caller, requestID)
	if err != nil {
		return models.JoinRequest{}, err
	}
	now := s.now()
	if err := s.b.Requests.Decide(ctx, jr, models.RequestRejected, caller.UserID, reason, now); err != nil {
		return models.JoinRequest{}, s.decideErr(err)
	}

	jr = decided(jr, models.RequestRejected, caller.UserID, reason, now)
	s.publish(ctx, notify.Event{Type: notify.JoinRejected, GroupID: jr.GroupID, ActorID: caller.UserID, UserID: jr.UserID})
	s.emailJoinDecision(ctx, jr, false)
	return jr, nil
}

// ListGroupJoinRequests returns a group's pending requests, oldest first.
func (s *Service) ListGroupJoinRequests(ctx context.Context, caller models.Caller, groupID string) ([]models.JoinRequest, error) {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), s.log, "list group join requests")
	defer cancel()

	if _, err := s.requireAdmin(ctx, caller, groupID); err != nil {
		return nil, err
	}
	rs, err := s.b.Requests.ListPendingByGroup(ctx, groupID)
	if err != nil {
		return nil, storageErr(err)
	}
	return rs, nil
}

// ListMyJoinRequests returns the caller's requests, newest first.
func (s *Service) ListMyJoinRequests(ctx context.Context, caller models.Caller) ([]models.JoinRequest, error) {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), s.log, "list my join requests")
	defer cancel()

	rs, err := s.b.Requests.ListByUser(ctx, caller.UserID)
	if err != nil {
		return nil, storageErr(err)
	}
	return rs, nil
}

// pendingRequest loads a request, checks that the caller administers its
// group and then that it is still pending.
func (s *Service) pendingRequest(ctx context.Context, caller models.Caller, requestID string) (models.JoinRequest, error) {
	jr, err := s.b.Requests.Get(ctx, requestID)
	if err != nil {
		return models.JoinRequest{}, notFoundOr(err, "join request not found")
	}
	if _, err := s.requireAdmin(ctx, caller, jr.GroupID); err != nil {
		return models.JoinRequest{}, err
	}
	if jr.Status != models.RequestPending {
		return models.JoinRequest{}, apperr.New(apperr.AlreadyProcessed, "join request has already been processed")
	}
	return jr, nil
}

func (s *Service) decideErr(err error) error {
	if errors.Is(err, repo.ErrPrecondition) {
		return apperr.Wrap(apperr.AlreadyProcessed, "join request has already been processed", err)
	}
	return notFoundOr(err, "join request not found")
}

func decided(jr models.JoinRequest, status, by, reason string, at time.Time) models.JoinRequest {
	jr.Status = status
	jr.ProcessedBy = by
	jr.ProcessedAt = &at
	jr.RejectionReason = reason
	return jr
}

func (s *Service) emailJoinDecision(ctx context.Context, jr models.JoinRequest, approved bool) {
	data := mailer.DecisionEmailData{
		SiteName: s.cfg.SiteName,
		Approved: approved,
		Reason:   jr.RejectionReason,
		GroupURL: s.groupURL(jr.GroupID),
	}
	if g, err := s.b.Groups.Get(ctx, jr.GroupID); err == nil {
		data.GroupName = g.Name
	}
	s.sendEmail(ctx, mailer.BuildJoinDecisionEmail(jr.UserEmail, data))
}
