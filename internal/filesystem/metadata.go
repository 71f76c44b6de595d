package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

// MetadataStore decorates a Filesystem with object metadata kept in BadgerDB
type MetadataStore struct {
	Filesystem
	db     *badger.DB
	logger *slog.Logger
}

// NewMetadataStore opens (or creates) a BadgerDB at dir. An empty dir keeps
// the database in memory.
func NewMetadataStore(fs Filesystem, dir string, logger *slog.Logger) (*MetadataStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(badgerLogger{logger: logger})
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata store: %w", err)
	}

	return &MetadataStore{Filesystem: fs, db: db, logger: logger}, nil
}

func metadataKey(path string) []byte {
	return []byte("meta:" + path)
}

// SetMetadata replaces the metadata stored for path
func (m *MetadataStore) SetMetadata(_ context.Context, path string, metadata map[string]string) error {
	// Empty values unset their key
	values := make(map[string]string, len(metadata))
	for k, v := range metadata {
		if v != "" {
			values[k] = v
		}
	}

	val, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to serialize metadata: %w", err)
	}

	if err := m.db.Update(func(txn *badger.Txn) error {
		if len(values) == 0 {
			return txn.Delete(metadataKey(path))
		}
		return txn.Set(metadataKey(path), val)
	}); err != nil {
		return fmt.Errorf("failed to store metadata for %s: %w", path, err)
	}

	m.logger.Debug("metadata stored", "path", path, "keys", len(values))
	return nil
}

// Metadata returns the metadata stored for path, or an empty map
func (m *MetadataStore) Metadata(_ context.Context, path string) (map[string]string, error) {
	metadata := map[string]string{}

	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metadataKey(path))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &metadata)
		})
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("failed to load metadata for %s: %w", path, err)
	}

	return metadata, nil
}

// Delete removes the object and its metadata
func (m *MetadataStore) Delete(ctx context.Context, path string) (RemoveResult, error) {
	result, err := m.Filesystem.Delete(ctx, path)
	if err != nil {
		return result, err
	}

	if err := m.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(metadataKey(path))
	}); err != nil {
		m.logger.Warn("failed to drop metadata", "path", path, "error", err)
	}

	return result, nil
}

// Read streams the object when the wrapped backend supports it
func (m *MetadataStore) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	r, ok := m.Filesystem.(Reader)
	if !ok {
		return nil, fmt.Errorf("backend %T cannot read objects", m.Filesystem)
	}
	return r.Read(ctx, path)
}

// Close closes the metadata database and the wrapped backend
func (m *MetadataStore) Close() error {
	var errs []error
	if c, ok := m.Filesystem.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	errs = append(errs, m.db.Close())
	return errors.Join(errs...)
}

// badgerLogger routes badger's logging through slog
type badgerLogger struct {
	logger *slog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...), "component", "badger")
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...), "component", "badger")
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...), "component", "badger")
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...), "component", "badger")
}
