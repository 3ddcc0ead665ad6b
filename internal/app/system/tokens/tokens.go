// Package tokens generates unguessable identifiers for invitation links and
// meeting rooms.
package tokens

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// InvitationBytes is the entropy of an invitation token (256 bits).
const InvitationBytes = 32

// New returns n random bytes encoded as unpadded base64url.
func New(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Invitation returns a fresh invitation token.
func Invitation() (string, error) {
	return New(InvitationBytes)
}
