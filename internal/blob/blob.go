// Package blob stores uploaded invoice documents.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	applog "fintrack/internal/log"
)

var ErrInvalidKey = errors.New("invalid blob key")

// Store writes an object under key, replacing any existing object, and
// returns the URL it is publicly reachable at.
type Store interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) (string, error)
}

// cleanKey rejects keys that would escape the store's root.
func cleanKey(key string) (string, error) {
	k := path.Clean("/" + strings.TrimSpace(key))
	if k == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return strings.TrimPrefix(k, "/"), nil
}

// LocalStore keeps objects under a directory; the HTTP server publishes
// that directory under BaseURL.
type LocalStore struct {
	dir     string
	baseURL string
	logger  *applog.Logger
}

func NewLocalStore(dir, baseURL string, logger *applog.Logger) (*LocalStore, error) {
	if dir == "" {
		return nil, errors.New("blob directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob directory: %w", err)
	}
	return &LocalStore{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.WithComponent(applog.ComponentBlob),
	}, nil
}

// Dir is the directory served under the public base URL.
func (s *LocalStore) Dir() string { return s.dir }

func (s *LocalStore) Put(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(s.dir, filepath.FromSlash(k))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create blob directory: %w", err)
	}

	// A failed upload never leaves a partial object behind.
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp blob: %w", err)
	}
	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write blob %s: %w", k, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("store blob %s: %w", k, err)
	}

	s.logger.InfoContext(ctx, "Blob stored",
		applog.FieldOperation, applog.OpUpload,
		"key", k,
		"content_type", contentType,
		"bytes", n)
	return s.publicURL(k), nil
}

func (s *LocalStore) publicURL(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return s.baseURL + "/" + strings.Join(parts, "/")
}
