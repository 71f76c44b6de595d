package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/altafino/upload-storage/internal/filesystem"
)

var (
	ErrInvalidURI       = errors.New("invalid storage uri")
	ErrProtocolMismatch = errors.New("protocol mismatch")
	ErrReadUnsupported  = errors.New("destination does not support reading")
)

// StreamWrapper opens protocol://destination/path URIs for reading
type StreamWrapper struct {
	filesystems *filesystem.Map
	protocol    string
}

// NewStreamWrapper creates a StreamWrapper registered under protocol
func NewStreamWrapper(filesystems *filesystem.Map, protocol string) *StreamWrapper {
	if protocol == "" {
		protocol = DefaultProtocol
	}
	return &StreamWrapper{filesystems: filesystems, protocol: protocol}
}

// Open resolves uri and streams the stored object
func (w *StreamWrapper) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	protocol, destination, path, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	if protocol != w.protocol {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrProtocolMismatch, protocol, w.protocol)
	}

	fs, err := w.filesystems.Get(destination)
	if err != nil {
		return nil, err
	}

	r, ok := fs.(filesystem.Reader)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrReadUnsupported, destination)
	}
	return r.Read(ctx, path)
}

// ParseURI splits protocol://destination/path into its parts
func ParseURI(uri string) (protocol, destination, path string, err error) {
	protocol, rest, ok := strings.Cut(uri, "://")
	if !ok || protocol == "" {
		return "", "", "", fmt.Errorf("%w: %q", ErrInvalidURI, uri)
	}

	destination, path, ok = strings.Cut(rest, "/")
	if !ok || destination == "" || path == "" {
		return "", "", "", fmt.Errorf("%w: %q", ErrInvalidURI, uri)
	}

	return protocol, destination, path, nil
}
