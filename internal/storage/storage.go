// Package storage binds upload operations to named filesystem handles.
package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/altafino/upload-storage/internal/filesystem"
)

// DefaultProtocol is the URI scheme ResolvePath uses when none is configured
const DefaultProtocol = "storage"

// ErrEmptyName is returned when an operation is given no file name
var ErrEmptyName = errors.New("file name cannot be empty")

// Storage performs uploads, removals and path resolution against the
// filesystem registered for each destination. It keeps no state of its own
// and returns backend errors unchanged.
type Storage struct {
	filesystems *filesystem.Map
	protocol    string
}

// Option configures a Storage
type Option func(*Storage)

// WithProtocol sets the URI scheme used for non-relative paths
func WithProtocol(protocol string) Option {
	return func(s *Storage) {
		if protocol != "" {
			s.protocol = protocol
		}
	}
}

// New creates a Storage over the given filesystem map
func New(filesystems *filesystem.Map, opts ...Option) *Storage {
	s := &Storage{
		filesystems: filesystems,
		protocol:    DefaultProtocol,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Protocol returns the URI scheme used by ResolvePath
func (s *Storage) Protocol() string {
	return s.protocol
}

// Upload writes content to dir/name on the destination, replacing any
// existing object. When the backend supports metadata the content type is
// stored after the write; an empty mimeType clears a previous one.
func (s *Storage) Upload(ctx context.Context, destination, dir, name string, content []byte, mimeType string) error {
	if name == "" {
		return ErrEmptyName
	}

	fs, err := s.filesystems.Get(destination)
	if err != nil {
		return err
	}

	path := JoinPath(dir, name)
	if err := fs.Write(ctx, path, content, true); err != nil {
		return err
	}

	if ms, ok := fs.(filesystem.MetadataSupporter); ok {
		return ms.SetMetadata(ctx, path, map[string]string{"contentType": mimeType})
	}

	return nil
}

// Remove deletes dir/name on the destination and passes the backend's
// result through as is
func (s *Storage) Remove(ctx context.Context, destination, dir, name string) (filesystem.RemoveResult, error) {
	if name == "" {
		return filesystem.RemoveUnknown, ErrEmptyName
	}

	fs, err := s.filesystems.Get(destination)
	if err != nil {
		return filesystem.RemoveUnknown, err
	}

	return fs.Delete(ctx, JoinPath(dir, name))
}

// ResolvePath returns dir/name, or protocol://destination/dir/name when
// relative is false
func (s *Storage) ResolvePath(destination, dir, name string, relative bool) string {
	path := JoinPath(dir, name)
	if relative {
		return path
	}
	return s.protocol + "://" + destination + "/" + path
}

// StreamWrapper returns a reader for the URIs this Storage produces
func (s *Storage) StreamWrapper() *StreamWrapper {
	return NewStreamWrapper(s.filesystems, s.protocol)
}

// JoinPath joins an optional directory and a name with a single separator
func JoinPath(dir, name string) string {
	dir = strings.Trim(dir, "/")
	name = strings.TrimLeft(name, "/")
	if dir == "" {
		return name
	}
	return dir + "/" + name
}
