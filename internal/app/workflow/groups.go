package workflow

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/studybuddy/internal/app/repo"
	"github.com/dalemusser/studybuddy/internal/app/system/apperr"
	"github.com/dalemusser/studybuddy/internal/app/system/blobstore"
	"github.com/dalemusser/studybuddy/internal/app/system/htmlsanitize"
	"github.com/dalemusser/studybuddy/internal/app/system/inputval"
	"github.com/dalemusser/studybuddy/internal/app/system/mailer"
	"github.com/dalemusser/studybuddy/internal/app/system/notify"
	"github.com/dalemusser/studybuddy/internal/app/system/timeouts"
	"github.com/dalemusser/studybuddy/internal/app/system/tokens"
	"github.com/dalemusser/studybuddy/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GroupDraft is the input to CreateGroup.
type GroupDraft struct {
	Name           string `json:"name" validate:"required,max=100"`
	Concept        string `json:"concept" validate:"required,max=500"`
	Level          string `json:"level" validate:"required,grouplevel"`
	TimeCommitment string `json:"time_commitment" validate:"required,commitment"`
}

func (d *GroupDraft) clean() {
	d.Name = htmlsanitize.PlainText(d.Name)
	d.Concept = htmlsanitize.PlainText(d.Concept)
	d.Level = strings.TrimSpace(strings.ToLower(d.Level))
	d.TimeCommitment = strings.TrimSpace(d.TimeCommitment)
}

// CreateGroup stores a new group awaiting super-admin approval and makes the
// caller its first admin.
func (s *Service) CreateGroup(ctx context.Context, caller models.Caller, d GroupDraft) (models.Group, error) {
	d.clean()
	if err := inputval.Struct(d); err != nil {
		return models.Group{}, err
	}

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), s.log, "create group")
	defer cancel()

	now := s.now()
	id := uuid.NewString()
	link, err := s.meetingLink()
	if err != nil {
		return models.Group{}, storageErr(err)
	}

	g := models.Group{
		ID:             id,
		Name:           d.Name,
		NameCI:         text.Fold(d.Name),
		Concept:        d.Concept,
		Level:          d.Level,
		TimeCommitment: d.TimeCommitment,
		CreatedBy:      caller.UserID,
		Status:         models.GroupPendingApproval,
		Overview:       models.Overview{MeetingLink: link, MeetingLinkCreatedAt: &now},
		Resources:      []models.Resource{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.b.Tx.Run(ctx, func(ctx context.Context) error {
		if err := s.b.Groups.Create(ctx, g); err != nil {
			return err
		}
		if err := s.b.Memberships.Activate(ctx, models.Membership{
			GroupID:   id,
			UserID:    caller.UserID,
			IsAdmin:   true,
			Status:    models.MemberActive,
			JoinedAt:  now,
			UpdatedAt: now,
		}); err != nil {
			return err
		}
		return s.b.Index.AddGroup(ctx, caller.UserID, id)
	})
	if err != nil {
		return models.Group{}, storageErr(err)
	}

	s.log.Info("group created",
		zap.String("group_id", id),
		zap.String("created_by", caller.UserID))
	s.publish(ctx, notify.Event{Type: notify.GroupCreated, GroupID: id, ActorID: caller.UserID})
	return g, nil
}

// GetGroup returns a group. Groups that are not active are visible only to
// their creator, their active members and super admins.
func (s *Service) GetGroup(ctx context.Context, caller models.Caller, id string) (models.Group, error) {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), s.log, "get group")
	defer cancel()

	g, err := s.getGroup(ctx, id)
	if err != nil {
		return models.Group{}, err
	}
	if g.Status == models.GroupActive || caller.IsSuperAdmin || g.CreatedBy == caller.UserID {
		return g, nil
	}
	_, ok, err := s.activeMembership(ctx, id, caller.UserID)
	if err != nil {
		return models.Group{}, err
	}
	if !ok {
		return models.Group{}, apperr.New(apperr.Forbidden, "you do not have access to this group")
	}
	return g, nil
}

// ListActiveGroups returns every approved group.
func (s *Service) ListActiveGroups(ctx context.Context) ([]models.Group, error) {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), s.log, "list active groups")
	defer cancel()

	gs, err := s.b.Groups.ListByStatus(ctx, models.GroupActive)
	if err != nil {
		return nil, storageErr(err)
	}
	return gs, nil
}

// ListMyGroups returns the groups the caller belongs to or created.
func (s *Service) ListMyGroups(ctx context.Context, caller models.Caller) ([]models.Group, error) {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), s.log, "list my groups")
	defer cancel()

	ids, err := s.b.Index.GroupIDs(ctx, caller.UserID)
	if err != nil {
		return nil, storageErr(err)
	}
	gs, err := s.b.Groups.ListForUser(ctx, ids, caller.UserID)
	if err != nil {
		return nil, storageErr(err)
	}
	return gs, nil
}

// ListAllGroupsForAdmin returns every group with its live member count and
// creator details.
func (s *Service) ListAllGroupsForAdmin(ctx context.Context, caller models.Caller) ([]models.GroupSummary, error) {
	if err := requireSuperAdmin(caller); err != nil {
		return nil, err
	}

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Long(), s.log, "list all groups")
	defer cancel()

	gs, err := s.b.Groups.ListAll(ctx)
	if err != nil {
		return nil, storageErr(err)
	}

	creators := make(map[string]models.User)
	out := make([]models.GroupSummary, 0, len(gs))
	for _, g := range gs {
		n, err := s.b.Memberships.CountActive(ctx, g.ID)
		if err != nil {
			return nil, storageErr(err)
		}
		sum := models.GroupSummary{Group: g, MemberCount: n}

		u, ok := creators[g.CreatedBy]
		if !ok {
			u, err = s.users.GetByID(ctx, g.CreatedBy)
			if err != nil && !errors.Is(err, repo.ErrNotFound) {
				return nil, storageErr(err)
			}
			creators[g.CreatedBy] = u
		}
		if u.ID != "" {
			sum.CreatorName = u.DisplayName()
			sum.CreatorEmail = u.Email
		}
		out = append(out, sum)
	}
	return out, nil
}

// ApproveGroup activates a pending group.
func (s *Service) ApproveGroup(ctx context.Context, caller models.Caller, id string) (models.Group, error) {
	return s.decideGroup(ctx, caller, id, true, "")
}

// RejectGroup rejects a pending group. An empty reason is stored as the
// default reason.
func (s *Service) RejectGroup(ctx context.Context, caller models.Caller, id, reason string) (models.Group, error) {
	return s.decideGroup(ctx, caller, id, false, reason)
}

func (s *Service) decideGroup(ctx context.Context, caller models.Caller, id string, approve bool, reason string) (models.Group, error) {
	if err := requireSuperAdmin(caller); err != nil {
		return models.Group{}, err
	}

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), s.log, "decide group")
	defer cancel()

	now := s.now()
	var err error
	if approve {
		err = s.b.Groups.Approve(ctx, id, caller.UserID, now)
	} else {
		reason = htmlsanitize.Truncate(htmlsanitize.PlainText(reason), 500)
		if reason == "" {
			reason = models.DefaultRejectionReason
		}
		err = s.b.Groups.Reject(ctx, id, caller.UserID, reason, now)
	}
	switch {
	case errors.Is(err, repo.ErrPrecondition):
		return models.Group{}, apperr.Wrap(apperr.AlreadyProcessed, "group has already been processed", err)
	case err != nil:
		return models.Group{}, notFoundOr(err, "group not found")
	}

	g, err := s.getGroup(ctx, id)
	if err != nil {
		return models.Group{}, err
	}

	evType := notify.GroupRejected
	if approve {
		evType = notify.GroupApproved
	}
	s.log.Info("group decided",
		zap.String("group_id", id),
		zap.String("status", g.Status),
		zap.String("by", caller.UserID))
	s.publish(ctx, notify.Event{Type: evType, GroupID: id, ActorID: caller.UserID, UserID: g.CreatedBy})

	if creator, err := s.users.GetByID(ctx, g.CreatedBy); err == nil {
		s.sendEmail(ctx, mailer.BuildGroupDecisionEmail(creator.Email, mailer.DecisionEmailData{
			SiteName:  s.cfg.SiteName,
			GroupName: g.Name,
			Approved:  approve,
			Reason:    reason,
			GroupURL:  s.groupURL(g.ID),
		}))
	} else {
		s.log.Warn("group creator lookup failed", zap.String("user_id", g.CreatedBy), zap.Error(err))
	}
	return g, nil
}

// DeleteGroup removes a group and everything that belongs to it.
func (s *Service) DeleteGroup(ctx context.Context, caller models.Caller, id string) error {
	if err := requireSuperAdmin(caller); err != nil {
		return err
	}

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Long(), s.log, "delete group")
	defer cancel()

	if _, err := s.getGroup(ctx, id); err != nil {
		return err
	}

	// The group record goes last so a partial failure leaves it in place
	// and the delete can be retried.
	err := s.b.Tx.Run(ctx, func(ctx context.Context) error {
		if err := s.b.Index.RemoveGroupFromAll(ctx, id); err != nil {
			return err
		}
		if err := s.b.Memberships.DeleteByGroup(ctx, id); err != nil {
			return err
		}
		if err := s.b.Discussions.DeleteByGroup(ctx, id); err != nil {
			return err
		}
		if err := s.b.Notes.DeleteByGroup(ctx, id); err != nil {
			return err
		}
		if err := s.b.Invitations.DeleteByGroup(ctx, id); err != nil {
			return err
		}
		if err := s.b.Requests.DeleteByGroup(ctx, id); err != nil {
			return err
		}
		return s.b.Groups.Delete(ctx, id)
	})
	if err != nil {
		return notFoundOr(err, "group not found")
	}

	s.log.Info("group deleted", zap.String("group_id", id), zap.String("by", caller.UserID))
	s.publish(ctx, notify.Event{Type: notify.GroupDeleted, GroupID: id, ActorID: caller.UserID})

	if s.blobs != nil {
		n, err := s.blobs.DeletePrefix(context.WithoutCancel(ctx), blobstore.GroupPrefix(id))
		if err != nil {
			s.log.Warn("group file cleanup failed", zap.String("group_id", id), zap.Error(err))
		} else if n > 0 {
			s.log.Info("group files removed", zap.String("group_id", id), zap.Int("count", n))
		}
	}
	return nil
}

// GenerateMeetingLink replaces the meeting link of an active group.
func (s *Service) GenerateMeetingLink(ctx context.Context, caller models.Caller, groupID string) (models.Overview, error) {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), s.log, "generate meeting link")
	defer cancel()

	if _, err := s.activeGroup(ctx, groupID); err != nil {
		return models.Overview{}, err
	}
	if _, err := s.requireAdmin(ctx, caller, groupID); err != nil {
		return models.Overview{}, err
	}

	link, err := s.meetingLink()
	if err != nil {
		return models.Overview{}, storageErr(err)
	}
	now := s.now()
	if err := s.b.Groups.SetMeetingLink(ctx, groupID, link, now); err != nil {
		return models.Overview{}, notFoundOr(err, "group not found")
	}
	return models.Overview{MeetingLink: link, MeetingLinkCreatedAt: &now}, nil
}

// meetingLink returns a placeholder room URL; no video provider is called.
func (s *Service) meetingLink() (string, error) {
	tok, err := tokens.New(9)
	if err != nil {
		return "", err
	}
	return s.cfg.MeetingBaseURL + tok, nil
}
