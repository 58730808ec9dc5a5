package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// TempPrefix starts the name of every in-flight write inside the upload
// directory. Anything watching the directory can ignore these files.
const TempPrefix = ".upload-"

// LocalFileStorage is a StorageEngine implementation that stores each upload
// as an individual file directly under dir. Writes land in a temporary file
// inside dir first and are linked into place, so a stored name never refers
// to a partially written payload.
type LocalFileStorage struct {
	dir string
}

// NewLocalFileStorage creates a new LocalFileStorage rooted at dir.
func NewLocalFileStorage(dir string) *LocalFileStorage {
	return &LocalFileStorage{dir: dir}
}

// Dir returns the upload directory.
func (s *LocalFileStorage) Dir() string {
	return s.dir
}

// FilePath computes the full filesystem path for the file stored as name.
func (s *LocalFileStorage) FilePath(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name), nil
}

func (s *LocalFileStorage) Init(ctx context.Context) error {
	if err := EnsureDir(s.dir); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}
	return nil
}

func (s *LocalFileStorage) PutFile(ctx context.Context, name string, contentType string, data []byte) error {
	objPath, err := s.FilePath(name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, TempPrefix+"*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Chmod(tempPath, 0o644); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := MoveFile(tempPath, objPath); err != nil {
		_ = os.Remove(tempPath)
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrExists, name)
		}
		return fmt.Errorf("move file into place: %w", err)
	}

	return nil
}

func (s *LocalFileStorage) GetFile(ctx context.Context, name string) ([]byte, error) {
	objPath, err := s.FilePath(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(objPath)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return data, err
}
