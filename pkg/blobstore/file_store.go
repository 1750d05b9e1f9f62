package blobstore

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

const snapshotExt = ".snapshot.json"

// FileStore keeps one snapshot file per client under a root directory.
// Writes go to a temp file in the same directory followed by an atomic rename,
// so a crash mid-write leaves the previous snapshot intact.
type FileStore struct {
	dir string
}

var _ Store = &FileStore{}

// NewFileStore creates the root directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot dir %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(clientID string) string {
	// Escape so arbitrary client ids map to safe file names.
	return filepath.Join(s.dir, url.PathEscape(clientID)+snapshotExt)
}

func (s *FileStore) ReadClientSnapshot(ctx context.Context, clientID string) ([]byte, error) {
	data, err := os.ReadFile(s.path(clientID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to read snapshot for %s: %w", clientID, err)
	}
	return data, nil
}

func (s *FileStore) WriteClientSnapshot(ctx context.Context, clientID string, data []byte) error {
	final := s.path(clientID)

	tmp, err := os.CreateTemp(s.dir, url.PathEscape(clientID)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp snapshot: %w", err)
	}

	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace snapshot for %s: %w", clientID, err)
	}
	return nil
}

func (s *FileStore) DeleteClientSnapshot(ctx context.Context, clientID string) error {
	err := os.Remove(s.path(clientID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete snapshot for %s: %w", clientID, err)
	}
	return nil
}

func (s *FileStore) ListClientIDs(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshot dir: %w", err)
	}

	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, snapshotExt) {
			continue
		}
		escaped := strings.TrimSuffix(name, snapshotExt)
		id, err := url.PathUnescape(escaped)
		if err != nil {
			continue // foreign file, not one of ours
		}
		ids = append(ids, id)
	}
	return ids, nil
}
