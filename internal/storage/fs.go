package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/atheneum-lms/atheneum/internal/shared"
)

// FSStore keeps media on the local filesystem under a configured root.
type FSStore struct {
	root   string
	logger *slog.Logger
}

// NewFSStore returns a filesystem-backed Store rooted at root.
func NewFSStore(root string, logger *slog.Logger) *FSStore {
	return &FSStore{root: root, logger: logger}
}

// Root exposes the media root so the router can serve files from it.
func (s *FSStore) Root() string {
	return s.root
}

func (s *FSStore) Save(ctx context.Context, key Key, content io.Reader, allowed []string) (string, error) {
	if err := key.validate(allowed); err != nil {
		return "", err
	}
	target := filepath.Join(s.root, filepath.FromSlash(key.ObjectPath()))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("%w: create media directory: %v", shared.ErrUploadFailed, err)
	}
	f, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("%w: create media file: %v", shared.ErrUploadFailed, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, content); err != nil {
		_ = os.Remove(target)
		return "", fmt.Errorf("%w: write media file: %v", shared.ErrUploadFailed, err)
	}
	if s.logger != nil {
		s.logger.Debug("stored media file", slog.String("path", key.ObjectPath()))
	}
	return key.Filename, nil
}

func (s *FSStore) Remove(ctx context.Context, key Key) error {
	target := filepath.Join(s.root, filepath.FromSlash(key.ObjectPath()))
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: remove %s: %w", key.ObjectPath(), err)
	}
	return nil
}

func (s *FSStore) RemoveOwner(ctx context.Context, ns Namespace, ownerUUID string) error {
	if ownerUUID == "" {
		return errors.New("storage: owner uuid required")
	}
	target := filepath.Join(s.root, "content", string(ns), ownerUUID)
	if err := os.RemoveAll(target); err != nil {
		return fmt.Errorf("storage: remove owner %s/%s: %w", ns, ownerUUID, err)
	}
	return nil
}
