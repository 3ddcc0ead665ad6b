// Package workflow implements the study-group lifecycle: group approval,
// membership, join requests, invitations, resources, discussion and notes.
//
// Every operation takes the caller's identity and returns either a result or
// an *apperr.Error. Business rules are checked before any write; multi-step
// writes run under the backend's repo.Tx. Email and events are dispatched
// after the data change has committed and never undo it.
package workflow

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/studybuddy/internal/app/repo"
	"github.com/dalemusser/studybuddy/internal/app/system/apperr"
	"github.com/dalemusser/studybuddy/internal/app/system/blobstore"
	"github.com/dalemusser/studybuddy/internal/app/system/mailer"
	"github.com/dalemusser/studybuddy/internal/app/system/notify"
	"github.com/dalemusser/studybuddy/internal/app/system/timeouts"
	"github.com/dalemusser/studybuddy/internal/domain/models"
	"go.uber.org/zap"
)

// Config holds the settings that shape links and expiry.
type Config struct {
	SiteName       string        // used in email subjects and bodies
	BaseURL        string        // public origin for links in email, no trailing slash
	MeetingBaseURL string        // prefix for generated meeting links
	InvitationTTL  time.Duration // zero means models.DefaultInvitationTTL
}

// Deps are the collaborators a Service is built from. Mailer, Events and
// Blobs may be nil; nil means log-only mail, no events, and no uploads.
type Deps struct {
	Backend repo.Backend
	Users   repo.Users
	Mailer  mailer.Mailer
	Events  notify.Publisher
	Blobs   blobstore.Store
	Logger  *zap.Logger

	// Now is the clock; defaults to time.Now in UTC.
	Now func() time.Time
}

// Service exposes the workflow operations.
type Service struct {
	cfg    Config
	b      repo.Backend
	users  repo.Users
	mail   mailer.Mailer
	events notify.Publisher
	blobs  blobstore.Store
	log    *zap.Logger
	now    func() time.Time
}

// New builds a Service.
func New(cfg Config, d Deps) *Service {
	if cfg.SiteName == "" {
		cfg.SiteName = "StudyBuddy"
	}
	if cfg.InvitationTTL <= 0 {
		cfg.InvitationTTL = models.DefaultInvitationTTL
	}
	if cfg.MeetingBaseURL == "" {
		cfg.MeetingBaseURL = "https://meet.jit.si/studybuddy-"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	s := &Service{
		cfg:    cfg,
		b:      d.Backend,
		users:  d.Users,
		mail:   d.Mailer,
		events: d.Events,
		blobs:  d.Blobs,
		log:    d.Logger,
		now:    d.Now,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.mail == nil {
		s.mail = mailer.NewLog(s.log)
	}
	if s.events == nil {
		s.events = notify.Nop{}
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

// Ping checks the group-data backend.
func (s *Service) Ping(ctx context.Context) error {
	if s.b.Ping == nil {
		return nil
	}
	return s.b.Ping(ctx)
}

// BackendName reports which group-data backend is in use.
func (s *Service) BackendName() string { return s.b.Name }

/* -------------------------------------------------------------------------- */
/* Error mapping                                                               */
/* -------------------------------------------------------------------------- */

// storageErr passes *apperr.Error through and wraps anything else.
func storageErr(err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.StorageErr(err)
}

// notFoundOr maps repo.ErrNotFound to a NotFound failure with msg.
func notFoundOr(err error, msg string) error {
	if errors.Is(err, repo.ErrNotFound) {
		return apperr.Wrap(apperr.NotFound, msg, err)
	}
	return storageErr(err)
}

/* -------------------------------------------------------------------------- */
/* Gates                                                                       */
/* -------------------------------------------------------------------------- */

func requireSuperAdmin(caller models.Caller) error {
	if !caller.IsSuperAdmin {
		return apperr.New(apperr.Forbidden, "super admin access required")
	}
	return nil
}

// activeMembership returns the caller's membership if it is active.
func (s *Service) activeMembership(ctx context.Context, groupID, userID string) (models.Membership, bool, error) {
	m, err := s.b.Memberships.Get(ctx, groupID, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return models.Membership{}, false, nil
	}
	if err != nil {
		return models.Membership{}, false, storageErr(err)
	}
	return m, m.Active(), nil
}

func (s *Service) requireMember(ctx context.Context, caller models.Caller, groupID string) (models.Membership, error) {
	m, ok, err := s.activeMembership(ctx, groupID, caller.UserID)
	if err != nil {
		return models.Membership{}, err
	}
	if !ok {
		return models.Membership{}, apperr.New(apperr.Forbidden, "you are not a member of this group")
	}
	return m, nil
}

// requireAdmin passes active group admins and super admins. A super admin
// without a membership gets a zero Membership back.
func (s *Service) requireAdmin(ctx context.Context, caller models.Caller, groupID string) (models.Membership, error) {
	m, ok, err := s.activeMembership(ctx, groupID, caller.UserID)
	if err != nil {
		return models.Membership{}, err
	}
	if caller.IsSuperAdmin {
		return m, nil
	}
	if !ok || !m.IsAdmin {
		return models.Membership{}, apperr.New(apperr.Forbidden, "group admin access required")
	}
	return m, nil
}

func (s *Service) getGroup(ctx context.Context, id string) (models.Group, error) {
	g, err := s.b.Groups.Get(ctx, id)
	if err != nil {
		return models.Group{}, notFoundOr(err, "group not found")
	}
	return g, nil
}

// activeGroup returns the group if it exists and is active.
func (s *Service) activeGroup(ctx context.Context, id string) (models.Group, error) {
	g, err := s.getGroup(ctx, id)
	if err != nil {
		return models.Group{}, err
	}
	if g.Status != models.GroupActive {
		return models.Group{}, apperr.New(apperr.Conflict, "group is not active")
	}
	return g, nil
}

// joinGroup makes userID an active non-admin member unless they already
// are. It reports whether a membership was written. Run it inside a
// transaction; a concurrent writer that activates the same pair first
// makes Activate return repo.ErrDuplicate.
func (s *Service) joinGroup(ctx context.Context, groupID, userID string, now time.Time) (bool, error) {
	_, active, err := s.activeMembership(ctx, groupID, userID)
	if err != nil {
		return false, err
	}
	if active {
		return false, nil
	}
	if err := s.b.Memberships.Activate(ctx, models.Membership{
		GroupID:   groupID,
		UserID:    userID,
		IsAdmin:   false,
		Status:    models.MemberActive,
		JoinedAt:  now,
		UpdatedAt: now,
	}); err != nil {
		return false, err
	}
	if err := s.b.Index.AddGroup(ctx, userID, groupID); err != nil {
		return false, err
	}
	return true, nil
}

/* -------------------------------------------------------------------------- */
/* Best-effort dispatch                                                        */
/* -------------------------------------------------------------------------- */

// publish sends e on a context detached from the request, so a client
// that has gone away does not cancel it.
func (s *Service) publish(ctx context.Context, e notify.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Short())
	defer cancel()

	if e.At.IsZero() {
		e.At = s.now()
	}
	if err := s.events.Publish(ctx, e); err != nil {
		s.log.Warn("event publish failed",
			zap.String("type", e.Type),
			zap.String("group_id", e.GroupID),
			zap.Error(err))
	}
}

func (s *Service) sendEmail(ctx context.Context, e mailer.Email) {
	if e.To == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Medium())
	defer cancel()

	if err := s.mail.Send(ctx, e); err != nil {
		s.log.Warn("email send failed",
			zap.String("to", e.To),
			zap.String("subject", e.Subject),
			zap.Error(err))
	}
}

func (s *Service) groupURL(groupID string) string {
	if s.cfg.BaseURL == "" {
		return ""
	}
	return s.cfg.BaseURL + "/groups/" + groupID
}
