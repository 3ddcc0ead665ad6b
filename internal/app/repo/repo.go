// Package repo declares the storage ports the workflow depends on.
//
// Each entity has one interface with interchangeable implementations:
// store/<entity> (MongoDB), store/dynamo (DynamoDB) and store/memstore
// (in-memory). Callers depend only on these interfaces, never on
// backend-specific query shapes.
//
// Implementations report the three expected outcomes with sentinel errors
// below; anything else is a transport failure.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/studybuddy/internal/domain/models"
)

var (
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a write would violate a uniqueness
	// rule (active membership pair, pending request pair, email, token).
	ErrDuplicate = errors.New("duplicate record")
	// ErrPrecondition is returned when a conditional update finds the
	// record in a state other than the one required.
	ErrPrecondition = errors.New("record state precondition failed")
	// ErrBadCredentials is returned by Users.Authenticate.
	ErrBadCredentials = errors.New("invalid email or password")
)

// Tx runs a function atomically. fn must use the context it receives for
// every repository call it makes; writes made with any other context are
// not part of the transaction.
type Tx interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

// Users persists account records.
type Users interface {
	Create(ctx context.Context, u models.User, password string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	Authenticate(ctx context.Context, email, password string) (models.User, error)
	SetSuperAdmin(ctx context.Context, id string, isSuperAdmin bool) error
}

// Groups persists group records and their embedded resources.
type Groups interface {
	Create(ctx context.Context, g models.Group) error
	Get(ctx context.Context, id string) (models.Group, error)
	ListByStatus(ctx context.Context, status string) ([]models.Group, error)
	// ListForUser returns groups whose id is in groupIDs or that were
	// created by creatorID.
	ListForUser(ctx context.Context, groupIDs []string, creatorID string) ([]models.Group, error)
	ListAll(ctx context.Context) ([]models.Group, error)
	// Approve and Reject succeed only while the group is pending_approval;
	// otherwise they return ErrPrecondition (or ErrNotFound).
	Approve(ctx context.Context, id, adminID string, at time.Time) error
	Reject(ctx context.Context, id, adminID, reason string, at time.Time) error
	Delete(ctx context.Context, id string) error
	AddResource(ctx context.Context, groupID string, r models.Resource) error
	RemoveResource(ctx context.Context, groupID, resourceID string) error
	SetMeetingLink(ctx context.Context, groupID, link string, at time.Time) error
	SetDiscussionID(ctx context.Context, groupID, discussionID string) error
	// BumpMemberVersion increments the group's MemberVersion if it still
	// equals expected. It returns ErrPrecondition when another writer got
	// there first, or ErrNotFound.
	BumpMemberVersion(ctx context.Context, groupID string, expected int64) error
}

// Memberships persists per-(user, group) membership rows.
type Memberships interface {
	// Activate inserts the row, or reactivates a left/removed one. It returns
	// ErrDuplicate when the pair is already active, which makes a losing
	// concurrent writer a no-op instead of a second active row.
	Activate(ctx context.Context, m models.Membership) error
	Get(ctx context.Context, groupID, userID string) (models.Membership, error)
	// SetStatus moves an active row to status; ErrPrecondition if the row is
	// not active.
	SetStatus(ctx context.Context, groupID, userID, status string, at time.Time) error
	// ListByGroup filters by status unless status is empty.
	ListByGroup(ctx context.Context, groupID, status string) ([]models.Membership, error)
	ListActiveByUser(ctx context.Context, userID string) ([]models.Membership, error)
	CountActive(ctx context.Context, groupID string) (int64, error)
	DeleteByGroup(ctx context.Context, groupID string) error
}

// MembershipIndex is the per-user set of groups the user belongs to.
type MembershipIndex interface {
	AddGroup(ctx context.Context, userID, groupID string) error
	RemoveGroup(ctx context.Context, userID, groupID string) error
	GroupIDs(ctx context.Context, userID string) ([]string, error)
	RemoveGroupFromAll(ctx context.Context, groupID string) error
}

// JoinRequests persists join requests.
type JoinRequests interface {
	// Create returns ErrDuplicate when a pending request already exists for
	// the same (user, group).
	Create(ctx context.Context, jr models.JoinRequest) error
	Get(ctx context.Context, id string) (models.JoinRequest, error)
	FindPending(ctx context.Context, groupID, userID string) (models.JoinRequest, error)
	// ListPendingByGroup is ordered oldest first.
	ListPendingByGroup(ctx context.Context, groupID string) ([]models.JoinRequest, error)
	// ListByUser is ordered newest first.
	ListByUser(ctx context.Context, userID string) ([]models.JoinRequest, error)
	// Decide moves a pending request to status; ErrPrecondition otherwise.
	Decide(ctx context.Context, jr models.JoinRequest, status, processedBy, reason string, at time.Time) error
	DeleteByGroup(ctx context.Context, groupID string) error
}

// Invitations persists group invitations.
type Invitations interface {
	Create(ctx context.Context, inv models.Invitation) error
	GetByToken(ctx context.Context, token string) (models.Invitation, error)
	FindPending(ctx context.Context, groupID, email string) (models.Invitation, error)
	// ListByGroup is ordered newest first.
	ListByGroup(ctx context.Context, groupID string) ([]models.Invitation, error)
	ListPendingByEmail(ctx context.Context, email string) ([]models.Invitation, error)
	// MarkAccepted, MarkDeclined and MarkExpired require status=pending and
	// return ErrPrecondition otherwise.
	MarkAccepted(ctx context.Context, inv models.Invitation, userID string, at time.Time) error
	MarkDeclined(ctx context.Context, inv models.Invitation, at time.Time) error
	MarkExpired(ctx context.Context, inv models.Invitation) error
	// ExpireBefore flips every pending invitation with expires_at <= now to
	// expired and returns how many changed.
	ExpireBefore(ctx context.Context, now time.Time) (int64, error)
	DeleteByGroup(ctx context.Context, groupID string) error
}

// Discussions persists one message log per group.
type Discussions interface {
	GetOrCreate(ctx context.Context, groupID string, now time.Time) (models.Discussion, error)
	AppendMessage(ctx context.Context, groupID string, msg models.Message) error
	// EditMessage returns ErrNotFound unless messageID exists and was
	// written by userID.
	EditMessage(ctx context.Context, groupID, messageID, userID, text string, at time.Time) error
	DeleteByGroup(ctx context.Context, groupID string) error
}

// Notes persists per-(user, group) private notes.
type Notes interface {
	Get(ctx context.Context, userID, groupID string) (models.UserGroupNotes, error)
	Upsert(ctx context.Context, n models.UserGroupNotes) error
	DeleteByGroup(ctx context.Context, groupID string) error
}

// Backend bundles the group-data repositories of one storage engine.
type Backend struct {
	Name        string
	Groups      Groups
	Memberships Memberships
	Index       MembershipIndex
	Requests    JoinRequests
	Invitations Invitations
	Discussions Discussions
	Notes       Notes
	Tx          Tx

	// Ping checks connectivity for health endpoints.
	Ping func(ctx context.Context) error
}
