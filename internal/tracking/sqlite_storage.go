package tracking

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStorage implements the Storage interface on an SQLite database
type SQLiteStorage struct {
	dbPath string
	db     *sql.DB
}

// NewSQLiteStorage creates storage backed by basePath/ingest_records.db
func NewSQLiteStorage(basePath string) (*SQLiteStorage, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}

	return &SQLiteStorage{dbPath: filepath.Join(basePath, "ingest_records.db")}, nil
}

// Initialize opens the database and creates the records table
func (s *SQLiteStorage) Initialize() error {
	if err := os.MkdirAll(filepath.Dir(s.dbPath), 0755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	db, err := sql.Open("sqlite", s.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open tracking database: %w", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS ingest_records (
			id TEXT PRIMARY KEY,
			job_id TEXT NOT NULL,
			source_path TEXT NOT NULL,
			size INTEGER NOT NULL,
			mod_time TIMESTAMP NOT NULL,
			destination TEXT NOT NULL,
			stored_path TEXT NOT NULL,
			mime_type TEXT,
			uploaded_at TIMESTAMP NOT NULL,
			status TEXT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to create records table: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database
func (s *SQLiteStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// AddRecord adds a new file record
func (s *SQLiteStorage) AddRecord(record FileRecord) error {
	if s.db == nil {
		return ErrStorageNotInitialized
	}

	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.UploadedAt.IsZero() {
		record.UploadedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(`INSERT INTO ingest_records
		(id, job_id, source_path, size, mod_time, destination, stored_path, mime_type, uploaded_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.JobID,
		record.SourcePath,
		record.Size,
		record.ModTime.UTC(),
		record.Destination,
		record.StoredPath,
		record.MimeType,
		record.UploadedAt.UTC(),
		record.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

// HasRecord checks if this version of a source file was already uploaded
func (s *SQLiteStorage) HasRecord(jobID, sourcePath string, size int64, modTime time.Time) (bool, error) {
	if s.db == nil {
		return false, ErrStorageNotInitialized
	}

	var exists bool
	err := s.db.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM ingest_records
		 WHERE status = ? AND job_id = ? AND source_path = ? AND size = ? AND mod_time = ?)`,
		StatusUploaded, jobID, sourcePath, size, modTime.UTC(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to query records: %w", err)
	}
	return exists, nil
}

// GetRecords retrieves all file records, optionally filtered
func (s *SQLiteStorage) GetRecords(filter map[string]string) ([]FileRecord, error) {
	if s.db == nil {
		return nil, ErrStorageNotInitialized
	}

	query := `SELECT id, job_id, source_path, size, mod_time, destination, stored_path, mime_type, uploaded_at, status
		FROM ingest_records`

	var (
		conds []string
		args  []any
	)
	for _, key := range []string{"job_id", "source_path", "destination", "status"} {
		if value, ok := filter[key]; ok {
			conds = append(conds, key+" = ?")
			args = append(args, value)
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY uploaded_at"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []FileRecord
	for rows.Next() {
		var (
			record   FileRecord
			mimeType sql.NullString
		)
		if err := rows.Scan(
			&record.ID,
			&record.JobID,
			&record.SourcePath,
			&record.Size,
			&record.ModTime,
			&record.Destination,
			&record.StoredPath,
			&mimeType,
			&record.UploadedAt,
			&record.Status,
		); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		record.MimeType = mimeType.String
		records = append(records, record)
	}

	return records, rows.Err()
}

// CleanupOldRecords removes records uploaded before the cutoff, keeping the
// latest uploaded record of each job and source path
func (s *SQLiteStorage) CleanupOldRecords(before time.Time) error {
	if s.db == nil {
		return ErrStorageNotInitialized
	}

	_, err := s.db.Exec(`DELETE FROM ingest_records
		WHERE uploaded_at < ?
		AND rowid NOT IN (
			SELECT MAX(rowid) FROM ingest_records
			WHERE status = ?
			GROUP BY job_id, source_path
		)`, before.UTC(), StatusUploaded)
	if err != nil {
		return fmt.Errorf("failed to clean up records: %w", err)
	}
	return nil
}
