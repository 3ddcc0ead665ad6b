// internal/domain/models/membership.go
package models

import (
	"time"
)

// Membership status values.
const (
	MemberActive          = "active"
	MemberLeft            = "left"
	MemberRemoved         = "removed"
	MemberPendingApproval = "pending_approval"
)

// Membership is the authoritative join between users and groups.
// Exactly one document per (user_id, group_id); rows are soft-deleted by
// moving Status away from active.
type Membership struct {
	GroupID  string    `bson:"group_id" json:"group_id" dynamodbav:"group_id"`
	UserID   string    `bson:"user_id" json:"user_id" dynamodbav:"user_id"`
	IsAdmin  bool      `bson:"is_admin" json:"is_admin" dynamodbav:"is_admin"`
	Status   string    `bson:"status" json:"status" dynamodbav:"status"`
	JoinedAt time.Time `bson:"joined_at" json:"joined_at" dynamodbav:"joined_at"`

	UpdatedAt time.Time `bson:"updated_at" json:"updated_at" dynamodbav:"updated_at"`
}

// Active reports whether the membership currently grants access.
func (m Membership) Active() bool { return m.Status == MemberActive }

// ActiveAdmin reports whether the membership grants group-admin rights.
func (m Membership) ActiveAdmin() bool { return m.Active() && m.IsAdmin }
