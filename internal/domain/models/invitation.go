// internal/domain/models/invitation.go
package models

import (
	"time"
)

// Invitation status values.
const (
	InvitePending  = "pending"
	InviteAccepted = "accepted"
	InviteDeclined = "declined"
	InviteExpired  = "expired"
)

// DefaultInvitationTTL is how long an invitation stays redeemable.
const DefaultInvitationTTL = 7 * 24 * time.Hour

// Invitation is an admin-issued, token-bearing invitation to an email address.
// The token is the only credential needed to redeem it.
type Invitation struct {
	ID           string `bson:"_id" json:"id" dynamodbav:"invitation_id"`
	GroupID      string `bson:"group_id" json:"group_id" dynamodbav:"group_id"`
	InvitedEmail string `bson:"invited_email" json:"invited_email" dynamodbav:"invited_email"`
	InvitedBy    string `bson:"invited_by" json:"invited_by" dynamodbav:"invited_by"`
	Status       string `bson:"status" json:"status" dynamodbav:"status"`
	Token        string `bson:"invitation_token" json:"-" dynamodbav:"invitation_token"`

	SentAt     time.Time  `bson:"sent_at" json:"sent_at" dynamodbav:"sent_at"`
	ExpiresAt  time.Time  `bson:"expires_at" json:"expires_at" dynamodbav:"expires_at"`
	AcceptedAt *time.Time `bson:"accepted_at,omitempty" json:"accepted_at,omitempty" dynamodbav:"accepted_at,omitempty"`
	AcceptedBy string     `bson:"accepted_by,omitempty" json:"accepted_by,omitempty" dynamodbav:"accepted_by,omitempty"`
	DeclinedAt *time.Time `bson:"declined_at,omitempty" json:"declined_at,omitempty" dynamodbav:"declined_at,omitempty"`
}

// Expired reports whether the invitation can no longer be redeemed at now.
func (i Invitation) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}
