package tracking

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/altafino/upload-storage/internal/types"
)

// Manager handles ingest tracking operations
type Manager struct {
	retentionDays int
	logger        *slog.Logger
	storage       Storage
	mu            sync.Mutex
	now           func() time.Time
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithClock sets the clock used to compute the retention cutoff
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a new tracking manager
func NewManager(cfg *types.Config, logger *slog.Logger, opts ...ManagerOption) (*Manager, error) {
	storage, err := NewStorage(cfg.Tracking.StorageType, cfg.Tracking.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracking storage: %w", err)
	}

	if err := storage.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize tracking storage: %w", err)
	}

	logger.Debug("initialized ingest tracking",
		"storage_type", cfg.Tracking.StorageType,
		"storage_path", cfg.Tracking.StoragePath)

	m := &Manager{
		retentionDays: cfg.Tracking.RetentionDays,
		logger:        logger,
		storage:       storage,
		now:           func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// Close cleans up resources
func (m *Manager) Close() error {
	return m.storage.Close()
}

// IsIngested checks if this version of a source file was already uploaded by the job
func (m *Manager) IsIngested(jobID, sourcePath string, size int64, modTime time.Time) (bool, error) {
	ingested, err := m.storage.HasRecord(jobID, sourcePath, size, modTime)
	if err != nil {
		m.logger.Error("failed to check if file was ingested",
			"job_id", jobID,
			"source_path", sourcePath,
			"error", err)
		return false, err
	}
	return ingested, nil
}

// Track records the outcome of an upload
func (m *Manager) Track(record FileRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.storage.AddRecord(record); err != nil {
		m.logger.Error("failed to track file",
			"job_id", record.JobID,
			"source_path", record.SourcePath,
			"error", err)
		return err
	}

	m.logger.Debug("tracked file",
		"job_id", record.JobID,
		"source_path", record.SourcePath,
		"stored_path", record.StoredPath,
		"status", record.Status)

	return nil
}

// CleanupOldRecords removes records older than the retention period. The
// latest upload of each source is kept so unchanged files are not uploaded again.
func (m *Manager) CleanupOldRecords() error {
	if m.retentionDays <= 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().AddDate(0, 0, -m.retentionDays)
	if err := m.storage.CleanupOldRecords(cutoff); err != nil {
		m.logger.Error("failed to clean up old records", "error", err)
		return err
	}

	m.logger.Debug("cleaned up old ingest tracking records",
		"retention_days", m.retentionDays)

	return nil
}

// Records returns tracked records matching filter
func (m *Manager) Records(filter map[string]string) ([]FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.storage.GetRecords(filter)
}
