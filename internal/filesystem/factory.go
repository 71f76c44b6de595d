package filesystem

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/altafino/upload-storage/internal/types"
	"github.com/spf13/afero"
)

// StorageType represents the type of storage backend
type StorageType string

const (
	StorageTypeLocal  StorageType = "local"
	StorageTypeMemory StorageType = "memory"
	StorageTypeS3     StorageType = "s3"
	StorageTypeGDrive StorageType = "gdrive"
)

// New creates a filesystem handle based on the destination configuration
func New(ctx context.Context, cfg *types.DestinationConfig, logger *slog.Logger) (Filesystem, error) {
	var (
		fs  Filesystem
		err error
	)

	switch StorageType(cfg.Type) {
	case StorageTypeLocal:
		fs, err = NewLocalFilesystem(cfg.Local.Root, logger)
	case StorageTypeMemory:
		fs = NewAferoFilesystem(afero.NewMemMapFs(), logger)
	case StorageTypeS3:
		fs, err = NewS3Filesystem(S3Options{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			Bucket:    cfg.S3.Bucket,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Prefix:    cfg.S3.Prefix,
		}, logger)
	case StorageTypeGDrive:
		fs, err = NewGDriveFilesystem(ctx, logger, cfg.GDrive.CredentialsFile, cfg.GDrive.ParentFolderID)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Metadata.Enabled {
		return NewMetadataStore(fs, cfg.Metadata.Dir, logger)
	}

	return fs, nil
}
