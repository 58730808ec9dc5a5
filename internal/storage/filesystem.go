package storage

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

// EnsureDir creates dir (and any missing parents) if it does not exist yet.
// An existing directory is left untouched.
func EnsureDir(dir string) error {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%s exists and is not a directory", dir)
		}
		return nil
	}

	if !os.IsNotExist(err) {
		return err
	}

	return os.MkdirAll(dir, 0o755)
}

func CopyFile(srcPath string, destPath string) error {
	srcFile, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	destFile, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}

	if _, err := destFile.ReadFrom(srcFile); err != nil {
		_ = destFile.Close()
		_ = os.Remove(destPath)
		return err
	}

	return destFile.Close()
}

// MoveFile moves srcPath to destPath without ever replacing an existing
// destination. The move is a hard link followed by removal of the source, so
// an existing destPath fails with an error matching os.ErrExist. Across
// filesystems the contents are copied instead.
func MoveFile(srcPath string, destPath string) error {
	err := os.Link(srcPath, destPath)
	if err != nil {
		var linkErr *os.LinkError
		if !errors.As(err, &linkErr) || !errors.Is(linkErr.Err, syscall.EXDEV) {
			return err
		}

		if err := CopyFile(srcPath, destPath); err != nil {
			return err
		}
	}

	// Best-effort cleanup of the source file; ignore ENOENT in case it was
	// moved or removed already.
	if err := os.Remove(srcPath); err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}
