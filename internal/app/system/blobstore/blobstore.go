// Package blobstore stores uploaded resource files.
//
// Keys are slash-separated paths such as "groups/<group_id>/<resource_id>-notes.pdf".
// Two implementations exist: S3 (downloads through presigned URLs) and a
// local directory (downloads through the /files route).
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// ErrInvalidKey is returned for empty keys or keys that escape the root.
var ErrInvalidKey = errors.New("invalid object key")

// DefaultURLExpiry is how long a download URL stays valid.
const DefaultURLExpiry = 15 * time.Minute

// Store is the blob storage port.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	PresignedURL(ctx context.Context, key string, expires time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
	// DeletePrefix removes every object under prefix and returns how many.
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// GroupPrefix is the key prefix for a group's uploads.
func GroupPrefix(groupID string) string {
	return "groups/" + groupID + "/"
}

// ResourceKey builds the key for an uploaded resource file.
func ResourceKey(groupID, resourceID, filename string) string {
	return GroupPrefix(groupID) + resourceID + "-" + SanitizeFilename(filename)
}

// SanitizeFilename keeps letters, digits, dot, dash and underscore and
// replaces everything else with '_'.
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "file"
	}
	if len(out) > 100 {
		out = out[len(out)-100:]
	}
	return out
}

func cleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	c := path.Clean(key)
	if c == "." || c == ".." || strings.HasPrefix(c, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return c, nil
}
