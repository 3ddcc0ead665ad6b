// internal/domain/models/discussion.go
package models

import (
	"time"
)

// MaxMessageLength is the longest discussion message accepted, in runes.
const MaxMessageLength = 2000

// Discussion is a group's append-only message log.
// One per group; created lazily on first access.
type Discussion struct {
	ID        string    `bson:"_id" json:"id" dynamodbav:"discussion_id"`
	GroupID   string    `bson:"group_id" json:"group_id" dynamodbav:"group_id"`
	Messages  []Message `bson:"messages" json:"messages" dynamodbav:"messages"`
	CreatedAt time.Time `bson:"created_at" json:"created_at" dynamodbav:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at" dynamodbav:"updated_at"`
}

// Message is one discussion entry. UserName and UserEmail are cached at
// post time.
type Message struct {
	ID        string     `bson:"message_id" json:"id" dynamodbav:"message_id"`
	UserID    string     `bson:"user_id" json:"user_id" dynamodbav:"user_id"`
	UserName  string     `bson:"user_name" json:"user_name" dynamodbav:"user_name"`
	UserEmail string     `bson:"user_email" json:"user_email" dynamodbav:"user_email"`
	Text      string     `bson:"message" json:"message" dynamodbav:"message"`
	Timestamp time.Time  `bson:"timestamp" json:"timestamp" dynamodbav:"timestamp"`
	Edited    bool       `bson:"edited" json:"edited" dynamodbav:"edited"`
	EditedAt  *time.Time `bson:"edited_at,omitempty" json:"edited_at,omitempty" dynamodbav:"edited_at,omitempty"`
}
