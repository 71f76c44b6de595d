// Package filesystem provides named storage handles with pluggable backends.
package filesystem

import (
	"context"
	"errors"
	"io"
)

// Filesystem is the interface every storage backend implements
type Filesystem interface {
	// Write stores content at path. When overwrite is false an existing
	// object is left untouched and ErrFileExists is returned.
	Write(ctx context.Context, path string, content []byte, overwrite bool) error

	// Delete removes the object at path and reports whether it did
	Delete(ctx context.Context, path string) (RemoveResult, error)
}

// MetadataSupporter is implemented by backends that can attach key-value
// attributes to a stored object
type MetadataSupporter interface {
	SetMetadata(ctx context.Context, path string, metadata map[string]string) error
	Metadata(ctx context.Context, path string) (map[string]string, error)
}

// Reader is implemented by backends that can stream a stored object back
type Reader interface {
	Read(ctx context.Context, path string) (io.ReadCloser, error)
}

// RemoveResult is the outcome of a delete as reported by the backend
type RemoveResult int

const (
	// RemoveUnknown means the backend cannot say whether anything was deleted
	RemoveUnknown RemoveResult = iota
	// Removed means the object existed and was deleted
	Removed
	// NotRemoved means there was nothing to delete
	NotRemoved
)

func (r RemoveResult) String() string {
	switch r {
	case Removed:
		return "removed"
	case NotRemoved:
		return "not removed"
	default:
		return "unknown"
	}
}

// Bool maps the result onto a nullable boolean
func (r RemoveResult) Bool() *bool {
	var b bool
	switch r {
	case Removed:
		b = true
	case NotRemoved:
		b = false
	default:
		return nil
	}
	return &b
}

// Common errors
var (
	ErrUnknownDestination = errors.New("unknown destination")
	ErrFileExists         = errors.New("file already exists")
	ErrFileNotFound       = errors.New("file not found")
	ErrUnsupportedType    = errors.New("unsupported storage type")
)

// Capabilities lists the optional interfaces a handle implements
func Capabilities(fs Filesystem) []string {
	caps := []string{"write", "delete"}
	if _, ok := fs.(Reader); ok {
		caps = append(caps, "read")
	}
	if _, ok := fs.(MetadataSupporter); ok {
		caps = append(caps, "metadata")
	}
	return caps
}
