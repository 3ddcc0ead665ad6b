// internal/domain/models/user.go
package models

import (
	"time"
)

// User is an account record.
//
// NOTE:
//   - Group membership is not embedded on User.
//     Use the memberships collection (or the membership index) to discover
//     a user's groups.
//   - PasswordHash is empty when the account lives in a managed identity
//     provider (Cognito); the provider owns the credential.
type User struct {
	ID           string     `bson:"_id" json:"id" dynamodbav:"user_id"`
	Email        string     `bson:"email" json:"email" dynamodbav:"email"`
	PasswordHash string     `bson:"password_hash,omitempty" json:"-" dynamodbav:"-"`
	FirstName    string     `bson:"first_name" json:"first_name" dynamodbav:"first_name"`
	LastName     string     `bson:"last_name" json:"last_name" dynamodbav:"last_name"`
	DateOfBirth  *time.Time `bson:"date_of_birth,omitempty" json:"date_of_birth,omitempty" dynamodbav:"date_of_birth,omitempty"`
	PhoneNumber  string     `bson:"phone_number,omitempty" json:"phone_number,omitempty" dynamodbav:"phone_number,omitempty"`
	IsSuperAdmin bool       `bson:"is_super_admin" json:"is_super_admin" dynamodbav:"is_super_admin"`

	CreatedAt time.Time `bson:"created_at" json:"created_at" dynamodbav:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at" dynamodbav:"updated_at"`
}

// DisplayName is "First Last", falling back to the email address.
func (u User) DisplayName() string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		return u.Email
	}
	return name
}

// Caller is the authenticated identity a workflow operation runs as.
// It is supplied by the session layer and trusted as-is.
type Caller struct {
	UserID       string
	Email        string
	Name         string
	IsSuperAdmin bool
}
