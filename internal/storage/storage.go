// Package storage persists uploaded media for organizations and users.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/atheneum-lms/atheneum/internal/shared"
)

// Namespace groups media by owner kind.
type Namespace string

const (
	NamespaceOrgs    Namespace = "orgs"
	NamespaceUsers   Namespace = "users"
	NamespaceCourses Namespace = "courses"
)

// ImageFormats is the allow-list for image uploads.
var ImageFormats = []string{"png", "jpg", "jpeg", "webp", "gif"}

// Key addresses one stored object. Category is the subdirectory inside the
// owner's space, e.g. "thumbnails", "logos" or "avatars".
type Key struct {
	Namespace Namespace
	OwnerUUID string
	Category  string
	Filename  string
}

// ObjectPath renders the slash-separated object path used by every backend.
func (k Key) ObjectPath() string {
	return path.Join("content", string(k.Namespace), k.OwnerUUID, k.Category, k.Filename)
}

// OwnerPrefix is the object path prefix shared by everything the owner stored.
func OwnerPrefix(ns Namespace, ownerUUID string) string {
	return path.Join("content", string(ns), ownerUUID) + "/"
}

func (k Key) validate(allowed []string) error {
	if k.Namespace == "" || k.OwnerUUID == "" || k.Category == "" || k.Filename == "" {
		return fmt.Errorf("%w: incomplete media key", shared.ErrUploadFailed)
	}
	if k.Filename != filepath.Base(k.Filename) || strings.Contains(k.Filename, "..") {
		return fmt.Errorf("%w: invalid file name %q", shared.ErrConflict, k.Filename)
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(k.Filename)), ".")
	if len(allowed) > 0 && !slices.Contains(allowed, ext) {
		return fmt.Errorf("%w: file format %q not allowed", shared.ErrConflict, ext)
	}
	return nil
}

// Store persists uploaded media. Save enforces the format allow-list and
// returns the stored file name.
type Store interface {
	Save(ctx context.Context, key Key, content io.Reader, allowed []string) (string, error)
	Remove(ctx context.Context, key Key) error
	RemoveOwner(ctx context.Context, ns Namespace, ownerUUID string) error
}

// Config selects and parameterizes a backend.
type Config struct {
	Backend   string
	MediaRoot string
	S3        S3Config
}

// S3Config carries bucket access settings.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// New builds the Store selected by cfg.Backend.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (Store, error) {
	switch cfg.Backend {
	case "s3":
		return NewS3Store(ctx, cfg.S3, logger)
	case "fs", "":
		return NewFSStore(cfg.MediaRoot, logger), nil
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.Backend)
	}
}
