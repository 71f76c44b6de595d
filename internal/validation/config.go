package validation

import (
	"fmt"
	"path"
	"path/filepath"
	"time"

	"github.com/altafino/upload-storage/internal/types"
)

// ValidateConfig performs validation on a loaded configuration
func ValidateConfig(cfg *types.Config) error {
	if err := validateStorage(cfg); err != nil {
		return fmt.Errorf("storage validation failed: %w", err)
	}

	if err := validateDestinations(cfg); err != nil {
		return fmt.Errorf("destinations validation failed: %w", err)
	}

	if err := validateIngest(cfg); err != nil {
		return fmt.Errorf("ingest validation failed: %w", err)
	}

	if err := validateLogging(cfg); err != nil {
		return fmt.Errorf("logging validation failed: %w", err)
	}

	return nil
}

func validateStorage(cfg *types.Config) error {
	if cfg.Storage.Protocol == "" {
		return fmt.Errorf("storage.protocol is required")
	}

	if !isValidID(cfg.Storage.Protocol) {
		return fmt.Errorf("storage.protocol contains invalid characters (use only alphanumeric, dash, underscore)")
	}

	return nil
}

func validateDestinations(cfg *types.Config) error {
	if len(cfg.Destinations) == 0 {
		return fmt.Errorf("at least one destination is required")
	}

	for name, dest := range cfg.Destinations {
		if !isValidID(name) {
			return fmt.Errorf("destination %q contains invalid characters (use only alphanumeric, dash, underscore)", name)
		}
		if dest == nil {
			return fmt.Errorf("destination %s has no settings", name)
		}

		switch dest.Type {
		case "local":
			if dest.Local.Root == "" {
				return fmt.Errorf("destinations.%s.local.root is required", name)
			}
			if !filepath.IsAbs(dest.Local.Root) {
				return fmt.Errorf("destinations.%s.local.root must be absolute", name)
			}
		case "memory":
		case "s3":
			if dest.S3.Bucket == "" {
				return fmt.Errorf("destinations.%s.s3.bucket is required", name)
			}
		case "gdrive":
			if dest.GDrive.CredentialsFile == "" {
				return fmt.Errorf("destinations.%s.gdrive.credentials_file is required", name)
			}
			if dest.GDrive.ParentFolderID == "" {
				return fmt.Errorf("destinations.%s.gdrive.parent_folder_id is required", name)
			}
		default:
			return fmt.Errorf("destinations.%s.type must be one of: local, memory, s3, gdrive", name)
		}

		if dest.Metadata.Enabled && dest.Metadata.Dir != "" && !filepath.IsAbs(dest.Metadata.Dir) {
			return fmt.Errorf("destinations.%s.metadata.dir must be absolute", name)
		}
	}

	return nil
}

func validateIngest(cfg *types.Config) error {
	seen := make(map[string]bool)

	for i, job := range cfg.Ingest {
		if job.ID == "" {
			return fmt.Errorf("ingest[%d].id is required", i)
		}
		if !isValidID(job.ID) {
			return fmt.Errorf("ingest[%d].id contains invalid characters (use only alphanumeric, dash, underscore)", i)
		}
		if seen[job.ID] {
			return fmt.Errorf("duplicate ingest id %s", job.ID)
		}
		seen[job.ID] = true

		if !job.Enabled {
			continue
		}

		if job.SourceDir == "" || !filepath.IsAbs(job.SourceDir) {
			return fmt.Errorf("ingest.%s.source_dir must be an absolute path", job.ID)
		}

		if _, ok := cfg.Destinations[job.Destination]; !ok {
			return fmt.Errorf("ingest.%s.destination %q is not configured", job.ID, job.Destination)
		}

		if _, err := path.Match(job.Pattern, ""); err != nil {
			return fmt.Errorf("ingest.%s.pattern is invalid: %w", job.ID, err)
		}

		if job.MaxSize < 0 {
			return fmt.Errorf("ingest.%s.max_size must not be negative", job.ID)
		}

		if cfg.Tracking.StoragePath == "" || !filepath.IsAbs(cfg.Tracking.StoragePath) {
			return fmt.Errorf("tracking.storage_path must be absolute when ingest jobs are enabled")
		}

		if err := validateSchedule(job); err != nil {
			return fmt.Errorf("ingest.%s.schedule: %w", job.ID, err)
		}
	}

	switch cfg.Tracking.StorageType {
	case "", "file", "sqlite":
	default:
		return fmt.Errorf("tracking.storage_type must be 'file' or 'sqlite'")
	}

	if cfg.Tracking.RetentionDays < 0 {
		return fmt.Errorf("tracking.retention_days must not be negative")
	}

	return nil
}

func validateLogging(cfg *types.Config) error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"text": true,
		"json": true,
		"dev":  true,
	}

	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: text, json, dev")
	}

	return nil
}

func validateSchedule(job types.IngestConfig) error {
	sched := job.Schedule

	validFrequencies := map[string]bool{
		"minute": true,
		"hour":   true,
		"day":    true,
		"week":   true,
	}

	if !validFrequencies[sched.FrequencyEvery] {
		return fmt.Errorf("frequency_every must be one of: minute, hour, day, week")
	}

	if sched.FrequencyAmount < 1 {
		return fmt.Errorf("frequency_amount must be greater than 0")
	}

	var startAt time.Time
	if sched.StartAt != "" {
		t, err := time.Parse(time.RFC3339, sched.StartAt)
		if err != nil {
			return fmt.Errorf("start_at must be in RFC3339 format (e.g., 2006-01-02T15:04:05Z)")
		}
		startAt = t
	}

	if sched.StopAt != "" {
		stopAt, err := time.Parse(time.RFC3339, sched.StopAt)
		if err != nil {
			return fmt.Errorf("stop_at must be in RFC3339 format (e.g., 2006-01-02T15:04:05Z)")
		}

		if !startAt.IsZero() && stopAt.Before(startAt) {
			return fmt.Errorf("stop_at must be after start_at")
		}
	}

	// Additional frequency-specific validations
	switch sched.FrequencyEvery {
	case "minute":
		if sched.FrequencyAmount > 60 {
			return fmt.Errorf("frequency_amount must not exceed 60 for minute frequency")
		}
	case "hour":
		if sched.FrequencyAmount > 24 {
			return fmt.Errorf("frequency_amount must not exceed 24 for hour frequency")
		}
	case "day":
		if sched.FrequencyAmount > 31 {
			return fmt.Errorf("frequency_amount must not exceed 31 for day frequency")
		}
	case "week":
		if sched.FrequencyAmount > 52 {
			return fmt.Errorf("frequency_amount must not exceed 52 for week frequency")
		}
	}

	return nil
}

func isValidID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if !isValidIDChar(r) {
			return false
		}
	}
	return true
}

func isValidIDChar(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') ||
		r == '-' ||
		r == '_'
}
