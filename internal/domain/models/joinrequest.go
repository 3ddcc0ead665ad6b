// internal/domain/models/joinrequest.go
package models

import (
	"time"
)

// Join request status values.
const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
)

// DefaultRejectionReason is used when an admin rejects without a reason.
const DefaultRejectionReason = "No reason provided"

// JoinRequest is a user's request to join an active group.
// At most one request per (user_id, group_id) is pending at a time.
type JoinRequest struct {
	ID        string `bson:"_id" json:"id" dynamodbav:"request_id"`
	GroupID   string `bson:"group_id" json:"group_id" dynamodbav:"group_id"`
	UserID    string `bson:"user_id" json:"user_id" dynamodbav:"user_id"`
	UserEmail string `bson:"user_email" json:"user_email" dynamodbav:"user_email"`
	Message   string `bson:"message" json:"message" dynamodbav:"message"`
	Status    string `bson:"status" json:"status" dynamodbav:"status"`

	RequestedAt     time.Time  `bson:"requested_at" json:"requested_at" dynamodbav:"requested_at"`
	ProcessedBy     string     `bson:"processed_by,omitempty" json:"processed_by,omitempty" dynamodbav:"processed_by,omitempty"`
	ProcessedAt     *time.Time `bson:"processed_at,omitempty" json:"processed_at,omitempty" dynamodbav:"processed_at,omitempty"`
	RejectionReason string     `bson:"rejection_reason,omitempty" json:"rejection_reason,omitempty" dynamodbav:"rejection_reason,omitempty"`
}
