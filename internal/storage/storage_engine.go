package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidName = errors.New("invalid storage name")
	ErrNotFound    = errors.New("stored file not found")
	ErrExists      = errors.New("stored file already exists")
)

// StorageEngine defines the interface for a backend that persists uploaded
// file payloads under their generated storage names in a single flat
// namespace.
type StorageEngine interface {
	// Init prepares the backing store, creating it if it is absent. It is
	// called once during bootstrap and must be safe to call again on an
	// existing store without touching files already stored there.
	Init(ctx context.Context) error

	// PutFile stores data under name. Distinct names may be written
	// concurrently.
	PutFile(ctx context.Context, name string, contentType string, data []byte) error

	// GetFile retrieves the payload previously stored under name.
	GetFile(ctx context.Context, name string) ([]byte, error)
}

// ValidateName rejects storage names that would escape a flat namespace:
// empty names, "." and "..", path separators and control characters.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	}

	if strings.ContainsFunc(name, func(c rune) bool {
		return c < 0x20 || c == 0x7f
	}) {
		return fmt.Errorf("%w: %q contains a control character", ErrInvalidName, name)
	}

	return nil
}
