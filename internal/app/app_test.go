package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/altafino/upload-storage/internal/filesystem"
	"github.com/altafino/upload-storage/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, sourceDir string) *types.Config {
	t.Helper()

	cfg := &types.Config{}
	cfg.Storage.Protocol = "storage"
	cfg.Destinations = map[string]*types.DestinationConfig{
		"scratch": {Type: "memory"},
	}
	cfg.Tracking.StorageType = "file"
	cfg.Tracking.StoragePath = t.TempDir()
	cfg.Tracking.RetentionDays = 30

	job := types.IngestConfig{
		ID:          "inbox",
		Enabled:     true,
		SourceDir:   sourceDir,
		Destination: "scratch",
		Dir:         "in",
		Pattern:     "*.txt",
	}
	job.Schedule.FrequencyEvery = "hour"
	job.Schedule.FrequencyAmount = 1
	job.Schedule.StartNow = true
	cfg.Ingest = []types.IngestConfig{job}

	return cfg
}

func TestAppRunsIngestJobs(t *testing.T) {
	sourceDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(sourceDir, "a.txt"), []byte("hello"), 0o644))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := New(context.Background(), testConfig(t, sourceDir), t.TempDir(), logger)
	require.NoError(t, err)
	require.NoError(t, a.Start())
	defer a.Stop()

	assert.Eventually(t, func() bool {
		rc, err := a.Storage().StreamWrapper().Open(context.Background(), "storage://scratch/in/a.txt")
		if err != nil {
			return false
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		return err == nil && string(data) == "hello"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestAppApplySwapsStorage(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig(t, t.TempDir())

	a, err := New(context.Background(), cfg, t.TempDir(), logger)
	require.NoError(t, err)
	defer a.Stop()

	assert.Equal(t, "storage", a.Storage().Protocol())

	next := testConfig(t, t.TempDir())
	next.Storage.Protocol = "files"
	next.Ingest = nil
	require.NoError(t, a.apply(next))

	assert.Equal(t, "files", a.Storage().Protocol())
	assert.Nil(t, a.tracker)
}

func TestNewFailsOnBadDestination(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig(t, t.TempDir())
	cfg.Destinations["broken"] = &types.DestinationConfig{Type: "ftp"}

	_, err := New(context.Background(), cfg, t.TempDir(), logger)
	assert.Error(t, err)
}

func metadataConfig(t *testing.T, root, metaDir string) *types.Config {
	t.Helper()

	cfg := testConfig(t, t.TempDir())
	cfg.Ingest = nil
	cfg.Destinations = map[string]*types.DestinationConfig{
		"avatars": {Type: "local"},
	}
	cfg.Destinations["avatars"].Local.Root = root
	cfg.Destinations["avatars"].Metadata.Enabled = true
	cfg.Destinations["avatars"].Metadata.Dir = metaDir
	return cfg
}

func TestAppApplyReopensMetadataDir(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	root, metaDir := t.TempDir(), filepath.Join(t.TempDir(), "meta")

	a, err := New(context.Background(), metadataConfig(t, root, metaDir), t.TempDir(), logger)
	require.NoError(t, err)
	defer a.Stop()

	ctx := context.Background()
	require.NoError(t, a.Storage().Upload(ctx, "avatars", "a", "f.png", []byte("png"), "image/png"))

	require.NoError(t, a.apply(metadataConfig(t, root, metaDir)))
	require.NoError(t, a.Storage().Upload(ctx, "avatars", "a", "g.png", []byte("png"), "image/png"))

	fs, err := a.filesystems.Get("avatars")
	require.NoError(t, err)
	ms, ok := fs.(filesystem.MetadataSupporter)
	require.True(t, ok)

	meta, err := ms.Metadata(ctx, "a/f.png")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"contentType": "image/png"}, meta)
}

func TestAppApplyRestoresPreviousConfig(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	root, metaDir := t.TempDir(), filepath.Join(t.TempDir(), "meta")

	a, err := New(context.Background(), metadataConfig(t, root, metaDir), t.TempDir(), logger)
	require.NoError(t, err)
	defer a.Stop()

	broken := metadataConfig(t, root, metaDir)
	broken.Storage.Protocol = "files"
	broken.Destinations["broken"] = &types.DestinationConfig{Type: "ftp"}
	assert.Error(t, a.apply(broken))

	assert.Equal(t, "storage", a.Storage().Protocol())
	assert.NoError(t, a.Storage().Upload(context.Background(), "avatars", "", "f.png", []byte("png"), "image/png"))
}
