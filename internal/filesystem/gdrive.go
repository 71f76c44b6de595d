package filesystem

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const folderMimeType = "application/vnd.google-apps.folder"

// GDriveFilesystem implements Filesystem for Google Drive
type GDriveFilesystem struct {
	logger   *slog.Logger
	service  *drive.Service
	parentID string // Google Drive folder ID where files will be stored
}

// NewGDriveFilesystem creates a new Google Drive storage instance
func NewGDriveFilesystem(ctx context.Context, logger *slog.Logger, credentialsFile, parentFolderID string) (*GDriveFilesystem, error) {
	service, err := drive.NewService(ctx, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive client: %w", err)
	}

	return &GDriveFilesystem{
		logger:   logger,
		service:  service,
		parentID: parentFolderID,
	}, nil
}

// Write uploads content, replacing the media of an existing file when overwrite is set
func (gd *GDriveFilesystem) Write(ctx context.Context, p string, content []byte, overwrite bool) error {
	dir, name := splitPath(p)

	folderID, err := gd.ensureFolderStructure(ctx, dir)
	if err != nil {
		return fmt.Errorf("failed to ensure folder structure: %w", err)
	}

	existingID, err := gd.findChild(ctx, folderID, name, false)
	if err != nil {
		return err
	}

	if existingID != "" {
		if !overwrite {
			return fmt.Errorf("%w: %s", ErrFileExists, p)
		}

		if _, err := gd.service.Files.Update(existingID, &drive.File{}).
			Media(bytes.NewReader(content)).Context(ctx).Do(); err != nil {
			return fmt.Errorf("failed to update file: %w", err)
		}

		gd.logger.Debug("file updated", "path", p, "id", existingID, "size", len(content))
		return nil
	}

	file := &drive.File{
		Name:    name,
		Parents: []string{folderID},
	}

	uploadedFile, err := gd.service.Files.Create(file).Media(bytes.NewReader(content)).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}

	gd.logger.Debug("file uploaded successfully",
		"path", p,
		"id", uploadedFile.Id,
		"size", len(content))

	return nil
}

// Delete removes the file at p. A missing file is reported as NotRemoved.
func (gd *GDriveFilesystem) Delete(ctx context.Context, p string) (RemoveResult, error) {
	id, err := gd.lookup(ctx, p)
	if err != nil {
		return RemoveUnknown, err
	}
	if id == "" {
		return NotRemoved, nil
	}

	if err := gd.service.Files.Delete(id).Context(ctx).Do(); err != nil {
		return RemoveUnknown, fmt.Errorf("failed to delete file: %w", err)
	}

	gd.logger.Debug("file deleted", "path", p, "id", id)
	return Removed, nil
}

// Read downloads the file at p
func (gd *GDriveFilesystem) Read(ctx context.Context, p string) (io.ReadCloser, error) {
	id, err := gd.lookup(ctx, p)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, p)
	}

	resp, err := gd.service.Files.Get(id).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	return resp.Body, nil
}

// SetMetadata stores metadata as Drive file properties. The contentType
// key also sets the file's MIME type.
func (gd *GDriveFilesystem) SetMetadata(ctx context.Context, p string, metadata map[string]string) error {
	id, err := gd.lookup(ctx, p)
	if err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("%w: %s", ErrFileNotFound, p)
	}

	// Empty values are sent as null, which deletes the property
	update := &drive.File{Properties: map[string]string{}}
	for k, v := range metadata {
		if v == "" {
			update.NullFields = append(update.NullFields, "Properties."+k)
			continue
		}
		update.Properties[k] = v
	}
	if ct := metadata[contentTypeKey]; ct != "" {
		update.MimeType = ct
	}

	if _, err := gd.service.Files.Update(id, update).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to update file metadata: %w", err)
	}
	return nil
}

// Metadata returns the file's properties
func (gd *GDriveFilesystem) Metadata(ctx context.Context, p string) (map[string]string, error) {
	id, err := gd.lookup(ctx, p)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, p)
	}

	file, err := gd.service.Files.Get(id).Fields("properties", "mimeType").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get file metadata: %w", err)
	}

	metadata := make(map[string]string, len(file.Properties)+1)
	for k, v := range file.Properties {
		metadata[k] = v
	}
	if _, ok := metadata[contentTypeKey]; !ok && file.MimeType != "" {
		metadata[contentTypeKey] = file.MimeType
	}
	return metadata, nil
}

// Helper methods

// lookup resolves p to a file ID without creating folders. An empty ID
// means the file does not exist.
func (gd *GDriveFilesystem) lookup(ctx context.Context, p string) (string, error) {
	dir, name := splitPath(p)

	parentID := gd.parentID
	for _, part := range pathSegments(dir) {
		id, err := gd.findChild(ctx, parentID, part, true)
		if err != nil {
			return "", err
		}
		if id == "" {
			return "", nil
		}
		parentID = id
	}

	return gd.findChild(ctx, parentID, name, false)
}

func (gd *GDriveFilesystem) ensureFolderStructure(ctx context.Context, dir string) (string, error) {
	currentParentID := gd.parentID

	for _, part := range pathSegments(dir) {
		id, err := gd.findChild(ctx, currentParentID, part, true)
		if err != nil {
			return "", err
		}
		if id != "" {
			currentParentID = id
			continue
		}

		folder := &drive.File{
			Name:     part,
			MimeType: folderMimeType,
			Parents:  []string{currentParentID},
		}

		createdFolder, err := gd.service.Files.Create(folder).Fields("id").Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("failed to create folder: %w", err)
		}

		currentParentID = createdFolder.Id
	}

	return currentParentID, nil
}

func (gd *GDriveFilesystem) findChild(ctx context.Context, parentID, name string, folder bool) (string, error) {
	fileList, err := gd.service.Files.List().
		Q(childQuery(parentID, name, folder)).
		Fields("files(id)").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to search for %s: %w", name, err)
	}

	if len(fileList.Files) == 0 {
		return "", nil
	}
	return fileList.Files[0].Id, nil
}

func childQuery(parentID, name string, folder bool) string {
	op := "!="
	if folder {
		op = "="
	}
	return fmt.Sprintf("name = '%s' and '%s' in parents and mimeType %s '%s' and trashed = false",
		escapeQuery(name), escapeQuery(parentID), op, folderMimeType)
}

func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

func splitPath(p string) (dir, name string) {
	dir, name = path.Split(p)
	return strings.Trim(dir, "/"), name
}

func pathSegments(dir string) []string {
	var parts []string
	for _, part := range strings.Split(dir, "/") {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}
