package session

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileManager moves finished downloads out of the transport's temporary
// location. The source is deleted by the transport once Relocate returns.
type FileManager interface {
	Relocate(src, dst string) error
}

// OSFileManager relocates files on the local filesystem, replacing any
// existing destination.
type OSFileManager struct{}

func (OSFileManager) Relocate(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}
	if err := os.Remove(dst); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("replace destination: %w", err)
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	// rename fails across filesystems
	return copyFile(src, dst)
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	_, err = io.Copy(out, in)
	return err
}
