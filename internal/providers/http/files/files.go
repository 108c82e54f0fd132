package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

var (
	// ErrNotRegularFile is returned for uploads of directories or devices
	ErrNotRegularFile = errors.New("not a regular file")
	// ErrDestinationIsDir is returned when a download destination is a directory
	ErrDestinationIsDir = errors.New("destination is a directory")
)

// Upload describes a local file about to be sent
type Upload struct {
	Path        string
	Size        int64
	ContentType string
}

// PrepareUpload checks that path is a readable regular file and detects its
// content type.
func PrepareUpload(path string) (*Upload, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("file not found: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrNotRegularFile, path)
	}

	contentType := "application/octet-stream"
	if m, err := mimetype.DetectFile(path); err == nil {
		contentType = m.String()
	}

	return &Upload{Path: path, Size: info.Size(), ContentType: contentType}, nil
}

// PrepareDestination resolves a download destination to an absolute path and
// creates its parent directories. An existing file is overwritten later.
func PrepareDestination(path string) (string, error) {
	if path == "" {
		return "", errors.New("download destination required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrDestinationIsDir, abs)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	return abs, nil
}

// DestinationFor picks a file name inside dir for a download of rawPath,
// falling back to name when the URL path has no usable base name.
func DestinationFor(dir, rawPath, name string) string {
	base := filepath.Base(filepath.FromSlash(rawPath))
	if base == "." || base == string(filepath.Separator) || base == "" {
		base = name
	}
	return filepath.Join(dir, base)
}
