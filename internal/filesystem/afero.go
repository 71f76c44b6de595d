package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"

	"github.com/spf13/afero"
)

// AferoFilesystem implements Filesystem on top of an afero.Fs
type AferoFilesystem struct {
	fs     afero.Fs
	logger *slog.Logger
}

// NewAferoFilesystem wraps an existing afero.Fs
func NewAferoFilesystem(fs afero.Fs, logger *slog.Logger) *AferoFilesystem {
	return &AferoFilesystem{fs: fs, logger: logger}
}

// NewLocalFilesystem creates a handle rooted at a directory on local disk
func NewLocalFilesystem(root string, logger *slog.Logger) (*AferoFilesystem, error) {
	if root == "" {
		return nil, fmt.Errorf("local root cannot be empty")
	}

	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return NewAferoFilesystem(afero.NewBasePathFs(afero.NewOsFs(), root), logger), nil
}

// Write stores content at p, creating parent directories as needed
func (a *AferoFilesystem) Write(_ context.Context, p string, content []byte, overwrite bool) error {
	if !overwrite {
		exists, err := afero.Exists(a.fs, p)
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", p, err)
		}
		if exists {
			return fmt.Errorf("%w: %s", ErrFileExists, p)
		}
	}

	if dir := path.Dir(p); dir != "." && dir != "/" {
		if err := a.fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	if err := afero.WriteFile(a.fs, p, content, 0644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", p, err)
	}

	a.logger.Debug("file written", "path", p, "size", len(content))
	return nil
}

// Delete removes the file at p. A missing file is reported as NotRemoved.
func (a *AferoFilesystem) Delete(_ context.Context, p string) (RemoveResult, error) {
	if err := a.fs.Remove(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NotRemoved, nil
		}
		return RemoveUnknown, fmt.Errorf("failed to remove file %s: %w", p, err)
	}

	a.logger.Debug("file removed", "path", p)
	return Removed, nil
}

// Read opens the file at p for reading
func (a *AferoFilesystem) Read(_ context.Context, p string) (io.ReadCloser, error) {
	f, err := a.fs.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, p)
		}
		return nil, fmt.Errorf("failed to open file %s: %w", p, err)
	}
	return f, nil
}
