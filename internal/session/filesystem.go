package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/tablewise/tablewise/internal/utils"
)

// FilesystemStore keeps each session in its own directory under a root,
// with one subdirectory per blob kind. Blob names are sanitized before
// touching the filesystem, so a hostile name cannot escape the session
// directory.
type FilesystemStore struct {
	root string
}

// NewFilesystemStore creates the root directory if needed.
func NewFilesystemStore(root string) (*FilesystemStore, error) {
	if root == "" {
		return nil, errors.New("filesystem store: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("filesystem store: create root: %w", err)
	}
	return &FilesystemStore{root: root}, nil
}

func (s *FilesystemStore) sessionDir(sessionID string) (string, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return "", ErrSessionNotFound
	}
	return filepath.Join(s.root, sessionID), nil
}

func (s *FilesystemStore) blobPath(sessionID, kind, name string) (string, error) {
	dir, err := s.sessionDir(sessionID)
	if err != nil {
		return "", err
	}
	safe, err := utils.SanitizeFilename(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, kind, safe), nil
}

func (s *FilesystemStore) Create(ctx context.Context) (string, error) {
	id := uuid.NewString()
	dir := filepath.Join(s.root, id)
	for _, kind := range []string{KindUpload, KindArtifact} {
		if err := os.MkdirAll(filepath.Join(dir, kind), 0o755); err != nil {
			return "", fmt.Errorf("create session %s: %w", id, err)
		}
	}
	return id, nil
}

func (s *FilesystemStore) Exists(ctx context.Context, sessionID string) (bool, error) {
	dir, err := s.sessionDir(sessionID)
	if err != nil {
		return false, nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

func (s *FilesystemStore) Put(ctx context.Context, sessionID, kind, name string, data []byte) error {
	if err := s.requireSession(ctx, sessionID); err != nil {
		return err
	}
	path, err := s.blobPath(sessionID, kind, name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("put %s/%s: %w", kind, name, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("put %s/%s: %w", kind, name, err)
	}
	return nil
}

func (s *FilesystemStore) Get(ctx context.Context, sessionID, kind, name string) ([]byte, error) {
	if err := s.requireSession(ctx, sessionID); err != nil {
		return nil, err
	}
	path, err := s.blobPath(sessionID, kind, name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("get %s/%s: %w", kind, name, err)
	}
	return data, nil
}

// List returns blob names sorted by modification time, oldest first, so
// callers see uploads in the order they arrived.
func (s *FilesystemStore) List(ctx context.Context, sessionID, kind string) ([]string, error) {
	if err := s.requireSession(ctx, sessionID); err != nil {
		return nil, err
	}
	dir, err := s.sessionDir(sessionID)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(dir, kind))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	type stamped struct {
		name string
		mod  int64
	}
	var files []stamped
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, stamped{name: e.Name(), mod: info.ModTime().UnixNano()})
	}
	sort.SliceStable(files, func(i, j int) bool { return files[i].mod < files[j].mod })
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.name
	}
	return names, nil
}

func (s *FilesystemStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.requireSession(ctx, sessionID); err != nil {
		return err
	}
	dir, err := s.sessionDir(sessionID)
	if err != nil {
		return err
	}
	return os.RemoveAll(dir)
}

func (s *FilesystemStore) Close() error { return nil }

func (s *FilesystemStore) requireSession(ctx context.Context, sessionID string) error {
	ok, err := s.Exists(ctx, sessionID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSessionNotFound
	}
	return nil
}
