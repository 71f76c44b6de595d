package tracking

import (
	"errors"
	"time"
)

// FileRecord represents a record of an ingested source file
type FileRecord struct {
	ID          string    `json:"id"`
	JobID       string    `json:"job_id"`
	SourcePath  string    `json:"source_path"`
	Size        int64     `json:"size"`
	ModTime     time.Time `json:"mod_time"`
	Destination string    `json:"destination"`
	StoredPath  string    `json:"stored_path"`
	MimeType    string    `json:"mime_type,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
	Status      string    `json:"status"`
}

// Record statuses
const (
	StatusUploaded = "uploaded"
	StatusFailed   = "failed"
)

// Storage defines the interface for tracking ingested files
type Storage interface {
	// Initialize prepares the storage for use
	Initialize() error

	// Close cleans up any resources used by the storage
	Close() error

	// AddRecord adds a new file record to the storage
	AddRecord(record FileRecord) error

	// HasRecord checks if this version of a source file was already uploaded by the job
	HasRecord(jobID, sourcePath string, size int64, modTime time.Time) (bool, error)

	// GetRecords retrieves all file records, optionally filtered
	GetRecords(filter map[string]string) ([]FileRecord, error)

	// CleanupOldRecords removes records uploaded before the cutoff. The latest
	// uploaded record of each job and source path is always kept.
	CleanupOldRecords(before time.Time) error
}

// NewStorage creates a new storage implementation based on the specified type
func NewStorage(storageType, storagePath string) (Storage, error) {
	switch storageType {
	case "file", "":
		return NewFileStorage(storagePath)
	case "sqlite":
		return NewSQLiteStorage(storagePath)
	default:
		return nil, ErrUnsupportedStorageType
	}
}

// Common errors
var (
	ErrUnsupportedStorageType = errors.New("unsupported storage type")
	ErrStorageNotInitialized  = errors.New("storage not initialized")
)
