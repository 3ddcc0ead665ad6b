package blobstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Local stores objects as files under a root directory. Its "presigned"
// URLs point at urlPrefix, which the router serves to signed-in callers.
type Local struct {
	root      string
	urlPrefix string
}

func NewLocal(root, urlPrefix string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir %q: %w", root, err)
	}
	return &Local{root: root, urlPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

// Root is the directory files are stored in.
func (l *Local) Root() string { return l.root }

// FullPath maps key to a file path inside the root.
func (l *Local) FullPath(key string) (string, error) {
	c, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(l.root, filepath.FromSlash(c)), nil
}

// Put writes to a temp file in the target directory and renames it into
// place, so readers never see a partial file.
func (l *Local) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	full, err := l.FullPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), full)
}

func (l *Local) PresignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	c, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	parts := strings.Split(c, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return l.urlPrefix + "/" + strings.Join(parts, "/"), nil
}

// Delete treats a missing file as already deleted.
func (l *Local) Delete(_ context.Context, key string) error {
	full, err := l.FullPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (l *Local) DeletePrefix(_ context.Context, prefix string) (int, error) {
	dir, err := l.FullPath(prefix)
	if err != nil {
		return 0, err
	}
	n := 0
	err = filepath.WalkDir(dir, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			n++
		}
		return nil
	})
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return n, os.RemoveAll(dir)
}
