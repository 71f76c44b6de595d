package tracking

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FileStorage implements the Storage interface using the filesystem
type FileStorage struct {
	basePath    string
	recordsPath string
	mu          sync.RWMutex
	initialized bool
}

// NewFileStorage creates a new file-based storage
func NewFileStorage(basePath string) (*FileStorage, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}

	return &FileStorage{
		basePath:    basePath,
		recordsPath: filepath.Join(basePath, "ingest_records.json"),
	}, nil
}

// Initialize prepares the storage for use
func (fs *FileStorage) Initialize() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.MkdirAll(fs.basePath, 0755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	if _, err := os.Stat(fs.recordsPath); os.IsNotExist(err) {
		if err := fs.saveRecords([]FileRecord{}); err != nil {
			return fmt.Errorf("failed to create records file: %w", err)
		}
	}

	fs.initialized = true
	return nil
}

// Close cleans up any resources
func (fs *FileStorage) Close() error {
	return nil
}

// AddRecord adds a new file record
func (fs *FileStorage) AddRecord(record FileRecord) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if !fs.initialized {
		return ErrStorageNotInitialized
	}

	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.UploadedAt.IsZero() {
		record.UploadedAt = time.Now().UTC()
	}

	records, err := fs.loadRecordsLocked()
	if err != nil {
		return err
	}

	records = append(records, record)

	return fs.saveRecords(records)
}

// HasRecord checks if this version of a source file was already uploaded
func (fs *FileStorage) HasRecord(jobID, sourcePath string, size int64, modTime time.Time) (bool, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if !fs.initialized {
		return false, ErrStorageNotInitialized
	}

	records, err := fs.loadRecordsLocked()
	if err != nil {
		return false, err
	}

	for _, record := range records {
		if record.Status == StatusUploaded &&
			record.JobID == jobID &&
			record.SourcePath == sourcePath &&
			record.Size == size &&
			record.ModTime.Equal(modTime) {
			return true, nil
		}
	}

	return false, nil
}

// GetRecords retrieves all file records, optionally filtered
func (fs *FileStorage) GetRecords(filter map[string]string) ([]FileRecord, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if !fs.initialized {
		return nil, ErrStorageNotInitialized
	}

	records, err := fs.loadRecordsLocked()
	if err != nil {
		return nil, err
	}

	if len(filter) == 0 {
		return records, nil
	}

	var filteredRecords []FileRecord
	for _, record := range records {
		if matches(record, filter) {
			filteredRecords = append(filteredRecords, record)
		}
	}

	return filteredRecords, nil
}

func matches(record FileRecord, filter map[string]string) bool {
	for key, value := range filter {
		var field string
		switch key {
		case "job_id":
			field = record.JobID
		case "source_path":
			field = record.SourcePath
		case "destination":
			field = record.Destination
		case "status":
			field = record.Status
		default:
			continue
		}
		if field != value {
			return false
		}
	}
	return true
}

// CleanupOldRecords removes records uploaded before the cutoff, keeping the
// latest uploaded record of each job and source path
func (fs *FileStorage) CleanupOldRecords(before time.Time) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if !fs.initialized {
		return ErrStorageNotInitialized
	}

	records, err := fs.loadRecordsLocked()
	if err != nil {
		return err
	}

	latest := make(map[[2]string]int)
	for i, record := range records {
		if record.Status == StatusUploaded {
			latest[[2]string{record.JobID, record.SourcePath}] = i
		}
	}

	newRecords := make([]FileRecord, 0, len(records))
	for i, record := range records {
		key := [2]string{record.JobID, record.SourcePath}
		if j, ok := latest[key]; (ok && i == j) || !record.UploadedAt.Before(before) {
			newRecords = append(newRecords, record)
		}
	}

	return fs.saveRecords(newRecords)
}

// loadRecordsLocked loads all records from the file (assumes lock is held)
func (fs *FileStorage) loadRecordsLocked() ([]FileRecord, error) {
	data, err := os.ReadFile(fs.recordsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read records file: %w", err)
	}

	if len(data) == 0 {
		return []FileRecord{}, nil
	}

	var records []FileRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse records file: %w", err)
	}

	return records, nil
}

// saveRecords saves all records to the file
func (fs *FileStorage) saveRecords(records []FileRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize records: %w", err)
	}

	if err := os.WriteFile(fs.recordsPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write records file: %w", err)
	}

	return nil
}
