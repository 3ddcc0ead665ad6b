// internal/domain/models/notes.go
package models

import (
	"time"
)

// MaxNotesLength bounds UserGroupNotes.Notes, in runes. Longer notes are
// truncated on save.
const MaxNotesLength = 10000

// UserGroupNotes holds a user's private notes for one group.
type UserGroupNotes struct {
	UserID    string    `bson:"user_id" json:"user_id" dynamodbav:"user_id"`
	GroupID   string    `bson:"group_id" json:"group_id" dynamodbav:"group_id"`
	Notes     string    `bson:"notes" json:"notes" dynamodbav:"notes"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at" dynamodbav:"updated_at"`
}
