// Package ingest sweeps local directories and uploads new files to a storage destination.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/altafino/upload-storage/internal/storage"
	"github.com/altafino/upload-storage/internal/tracking"
	"github.com/altafino/upload-storage/internal/types"
	"github.com/altafino/upload-storage/internal/utility/u_io"
	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"
)

// Tracker records which source files have been uploaded
type Tracker interface {
	IsIngested(jobID, sourcePath string, size int64, modTime time.Time) (bool, error)
	Track(record tracking.FileRecord) error
	CleanupOldRecords() error
}

// Result summarizes a single sweep
type Result struct {
	Uploaded int
	Skipped  int
	Failed   int
}

// Service runs the sweep for one ingest job
type Service struct {
	job     types.IngestConfig
	storage *storage.Storage
	tracker Tracker
	source  afero.Fs
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a service reading from the local filesystem
func NewService(job types.IngestConfig, st *storage.Storage, tracker Tracker, logger *slog.Logger) *Service {
	return NewServiceWithSource(job, st, tracker, afero.NewOsFs(), logger)
}

// NewServiceWithSource creates a service reading source files from fs
func NewServiceWithSource(job types.IngestConfig, st *storage.Storage, tracker Tracker, fs afero.Fs, logger *slog.Logger) *Service {
	logger.Debug("creating ingest service",
		"job_id", job.ID,
		"source_dir", job.SourceDir,
		"destination", job.Destination)

	return &Service{
		job:     job,
		storage: st,
		tracker: tracker,
		source:  fs,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run uploads every matching file in the source directory that has not been uploaded yet
func (s *Service) Run(ctx context.Context) (Result, error) {
	var result Result

	entries, err := afero.ReadDir(s.source, s.job.SourceDir)
	if err != nil {
		return result, fmt.Errorf("failed to read source directory: %w", err)
	}

	now := s.now()
	dir := ExpandDir(s.job.Dir, now, s.job.ID)

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		if ok, _ := path.Match(s.job.Pattern, entry.Name()); !ok {
			continue
		}

		sourcePath := filepath.Join(s.job.SourceDir, entry.Name())

		if s.job.MaxSize > 0 && entry.Size() > s.job.MaxSize {
			s.logger.Warn("skipping file exceeding max size",
				"source_path", sourcePath,
				"size", entry.Size(),
				"max_size", s.job.MaxSize)
			result.Skipped++
			continue
		}

		ingested, err := s.tracker.IsIngested(s.job.ID, sourcePath, entry.Size(), entry.ModTime())
		if err != nil {
			result.Failed++
			continue
		}
		if ingested {
			result.Skipped++
			continue
		}

		if err := s.ingestFile(ctx, sourcePath, dir, entry); err != nil {
			s.logger.Error("failed to ingest file",
				"job_id", s.job.ID,
				"source_path", sourcePath,
				"error", err)
			result.Failed++
			continue
		}
		result.Uploaded++
	}

	if err := s.tracker.CleanupOldRecords(); err != nil {
		s.logger.Warn("failed to clean up tracking records", "error", err)
	}

	s.logger.Info("ingest sweep finished",
		"job_id", s.job.ID,
		"uploaded", result.Uploaded,
		"skipped", result.Skipped,
		"failed", result.Failed)

	return result, nil
}

func (s *Service) ingestFile(ctx context.Context, sourcePath, dir string, info os.FileInfo) error {
	content, err := afero.ReadFile(s.source, sourcePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	name := info.Name()
	if s.job.SanitizeFilenames {
		name = u_io.CleanFilename(name)
	}

	mimeType := mimetype.Detect(content).String()

	record := tracking.FileRecord{
		JobID:       s.job.ID,
		SourcePath:  sourcePath,
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		Destination: s.job.Destination,
		StoredPath:  s.storage.ResolvePath(s.job.Destination, dir, name, false),
		MimeType:    mimeType,
		UploadedAt:  s.now(),
	}

	uploadErr := s.storage.Upload(ctx, s.job.Destination, dir, name, content, mimeType)
	if uploadErr != nil {
		record.Status = tracking.StatusFailed
	} else {
		record.Status = tracking.StatusUploaded
	}

	if err := s.tracker.Track(record); err != nil && uploadErr == nil {
		return fmt.Errorf("uploaded but failed to track: %w", err)
	}
	if uploadErr != nil {
		return uploadErr
	}

	s.logger.Debug("file ingested",
		"source_path", sourcePath,
		"stored_path", record.StoredPath,
		"mime_type", mimeType)

	if s.job.DeleteSource {
		if err := s.source.Remove(sourcePath); err != nil {
			s.logger.Warn("failed to delete source file", "source_path", sourcePath, "error", err)
		}
	}

	return nil
}

// ExpandDir replaces date and job placeholders in a destination directory
func ExpandDir(dir string, now time.Time, jobID string) string {
	if !strings.Contains(dir, "${") {
		return dir
	}

	replacements := []string{
		"${YYYY}", now.Format("2006"),
		"${YY}", now.Format("06"),
		"${MM}", now.Format("01"),
		"${DD}", now.Format("02"),
		"${HH}", now.Format("15"),
		"${mm}", now.Format("04"),
		"${ss}", now.Format("05"),
		"${job}", jobID,
	}

	return strings.NewReplacer(replacements...).Replace(dir)
}
