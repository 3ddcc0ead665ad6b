// internal/domain/models/group.go
package models

import (
	"time"
)

// Group status values.
const (
	GroupPendingApproval = "pending_approval"
	GroupActive          = "active"
	GroupRejected        = "rejected"
	GroupArchived        = "archived"
)

// Group levels.
const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

// GroupLevels is the set of allowed Group.Level values.
var GroupLevels = []string{LevelBeginner, LevelIntermediate, LevelAdvanced}

// TimeCommitments is the set of allowed Group.TimeCommitment values.
var TimeCommitments = []string{"10hrs/wk", "15hrs/wk", "20hrs/wk"}

// Group is a study group.
//
// NOTE:
//   - Members are not embedded on Group. All membership lives in the
//     memberships collection.
//   - Status moves out of pending_approval exactly once (to active or
//     rejected). Stores enforce this with a conditional update.
type Group struct {
	ID             string `bson:"_id" json:"id" dynamodbav:"group_id"`
	Name           string `bson:"name" json:"name" dynamodbav:"name"`
	NameCI         string `bson:"name_ci" json:"-" dynamodbav:"name_ci"`
	Concept        string `bson:"concept" json:"concept" dynamodbav:"concept"`
	Level          string `bson:"level" json:"level" dynamodbav:"level"`
	TimeCommitment string `bson:"time_commitment" json:"time_commitment" dynamodbav:"time_commitment"`
	CreatedBy      string `bson:"created_by" json:"created_by" dynamodbav:"created_by"`

	Status         string         `bson:"status" json:"status" dynamodbav:"status"`
	ApprovalStatus ApprovalStatus `bson:"approval_status" json:"approval_status" dynamodbav:"approval_status"`
	Overview       Overview       `bson:"overview" json:"overview" dynamodbav:"overview"`
	Resources      []Resource     `bson:"resources" json:"resources" dynamodbav:"resources"`
	DiscussionID   string         `bson:"discussion_id,omitempty" json:"discussion_id,omitempty" dynamodbav:"discussion_id,omitempty"`

	// MemberVersion increments whenever a membership ends. Transactions
	// that depend on the member set bump it so concurrent ones conflict.
	MemberVersion int64 `bson:"member_version" json:"-" dynamodbav:"member_version"`

	CreatedAt time.Time `bson:"created_at" json:"created_at" dynamodbav:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at" dynamodbav:"updated_at"`
}

// ApprovalStatus records the super admin's decision on a group.
type ApprovalStatus struct {
	ApprovedBy      string     `bson:"approved_by,omitempty" json:"approved_by,omitempty" dynamodbav:"approved_by,omitempty"`
	ApprovedAt      *time.Time `bson:"approved_at,omitempty" json:"approved_at,omitempty" dynamodbav:"approved_at,omitempty"`
	RejectedBy      string     `bson:"rejected_by,omitempty" json:"rejected_by,omitempty" dynamodbav:"rejected_by,omitempty"`
	RejectedAt      *time.Time `bson:"rejected_at,omitempty" json:"rejected_at,omitempty" dynamodbav:"rejected_at,omitempty"`
	RejectionReason string     `bson:"rejection_reason,omitempty" json:"rejection_reason,omitempty" dynamodbav:"rejection_reason,omitempty"`
}

// Overview holds the group's meeting details.
type Overview struct {
	MeetingLink          string     `bson:"meeting_link,omitempty" json:"meeting_link,omitempty" dynamodbav:"meeting_link,omitempty"`
	MeetingLinkCreatedAt *time.Time `bson:"meeting_link_created_at,omitempty" json:"meeting_link_created_at,omitempty" dynamodbav:"meeting_link_created_at,omitempty"`
}

// FindResource returns the embedded resource with the given id.
func (g Group) FindResource(resourceID string) (Resource, bool) {
	for _, r := range g.Resources {
		if r.ID == resourceID {
			return r, true
		}
	}
	return Resource{}, false
}

// GroupSummary is a group enriched for the super-admin overview.
type GroupSummary struct {
	Group
	MemberCount  int64  `json:"member_count"`
	CreatorName  string `json:"creator_name"`
	CreatorEmail string `json:"creator_email"`
}
