package filesystem

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/altafino/upload-storage/internal/types"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAferoFilesystem_WriteCreatesParents(t *testing.T) {
	mem := afero.NewMemMapFs()
	fs := NewAferoFilesystem(mem, testLogger())
	ctx := context.Background()

	require.NoError(t, fs.Write(ctx, "a/b/c.txt", []byte("hello"), true))

	data, err := afero.ReadFile(mem, "a/b/c.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestAferoFilesystem_WriteOverwrite(t *testing.T) {
	fs := NewAferoFilesystem(afero.NewMemMapFs(), testLogger())
	ctx := context.Background()

	require.NoError(t, fs.Write(ctx, "file.txt", []byte("first"), true))
	require.NoError(t, fs.Write(ctx, "file.txt", []byte("second"), true))

	r, err := fs.Read(ctx, "file.txt")
	require.NoError(t, err)
	defer r.Close()

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestAferoFilesystem_WriteNoOverwrite(t *testing.T) {
	fs := NewAferoFilesystem(afero.NewMemMapFs(), testLogger())
	ctx := context.Background()

	require.NoError(t, fs.Write(ctx, "file.txt", []byte("first"), false))

	err := fs.Write(ctx, "file.txt", []byte("second"), false)
	assert.True(t, errors.Is(err, ErrFileExists))
}

func TestAferoFilesystem_Delete(t *testing.T) {
	fs := NewAferoFilesystem(afero.NewMemMapFs(), testLogger())
	ctx := context.Background()

	require.NoError(t, fs.Write(ctx, "dir/file.txt", []byte("x"), true))

	result, err := fs.Delete(ctx, "dir/file.txt")
	require.NoError(t, err)
	assert.Equal(t, Removed, result)

	result, err = fs.Delete(ctx, "dir/file.txt")
	require.NoError(t, err)
	assert.Equal(t, NotRemoved, result)
}

func TestAferoFilesystem_ReadMissing(t *testing.T) {
	fs := NewAferoFilesystem(afero.NewMemMapFs(), testLogger())

	_, err := fs.Read(context.Background(), "missing.txt")
	assert.True(t, errors.Is(err, ErrFileNotFound))
}

func TestLocalFilesystem_StaysUnderRoot(t *testing.T) {
	root := t.TempDir()
	fs, err := NewLocalFilesystem(root, testLogger())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, fs.Write(ctx, "uploads/photo.png", []byte("png"), true))

	data, err := os.ReadFile(filepath.Join(root, "uploads", "photo.png"))
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))

	result, err := fs.Delete(ctx, "uploads/photo.png")
	require.NoError(t, err)
	assert.Equal(t, Removed, result)

	_, err = os.Stat(filepath.Join(root, "uploads", "photo.png"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalFilesystem_EmptyRoot(t *testing.T) {
	_, err := NewLocalFilesystem("", testLogger())
	assert.Error(t, err)
}

func TestMetadataStore(t *testing.T) {
	ctx := context.Background()
	store, err := NewMetadataStore(NewAferoFilesystem(afero.NewMemMapFs(), testLogger()), "", testLogger())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Write(ctx, "img/a.png", []byte("png"), true))

	meta, err := store.Metadata(ctx, "img/a.png")
	require.NoError(t, err)
	assert.Empty(t, meta)

	require.NoError(t, store.SetMetadata(ctx, "img/a.png", map[string]string{"contentType": "image/png"}))

	meta, err = store.Metadata(ctx, "img/a.png")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"contentType": "image/png"}, meta)

	result, err := store.Delete(ctx, "img/a.png")
	require.NoError(t, err)
	assert.Equal(t, Removed, result)

	meta, err = store.Metadata(ctx, "img/a.png")
	require.NoError(t, err)
	assert.Empty(t, meta)
}

func TestMetadataStore_EmptyValuesUnset(t *testing.T) {
	ctx := context.Background()
	store, err := NewMetadataStore(NewAferoFilesystem(afero.NewMemMapFs(), testLogger()), "", testLogger())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SetMetadata(ctx, "a", map[string]string{"contentType": "image/png", "owner": "ops"}))
	require.NoError(t, store.SetMetadata(ctx, "a", map[string]string{"contentType": "", "owner": "ops"}))

	meta, err := store.Metadata(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"owner": "ops"}, meta)

	require.NoError(t, store.SetMetadata(ctx, "a", map[string]string{"contentType": ""}))

	meta, err = store.Metadata(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, meta)
}

func TestMetadataStore_OnDisk(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	inner := NewAferoFilesystem(afero.NewMemMapFs(), testLogger())

	store, err := NewMetadataStore(inner, dir, testLogger())
	require.NoError(t, err)
	require.NoError(t, store.SetMetadata(ctx, "doc.pdf", map[string]string{"contentType": "application/pdf"}))
	require.NoError(t, store.Close())

	reopened, err := NewMetadataStore(inner, dir, testLogger())
	require.NoError(t, err)
	defer reopened.Close()

	meta, err := reopened.Metadata(ctx, "doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", meta["contentType"])
}

func TestCapabilities(t *testing.T) {
	plain := NewAferoFilesystem(afero.NewMemMapFs(), testLogger())
	assert.Equal(t, []string{"write", "delete", "read"}, Capabilities(plain))

	store, err := NewMetadataStore(plain, "", testLogger())
	require.NoError(t, err)
	defer store.Close()
	assert.Equal(t, []string{"write", "delete", "read", "metadata"}, Capabilities(store))
}

func TestRemoveResult_Bool(t *testing.T) {
	require.NotNil(t, Removed.Bool())
	assert.True(t, *Removed.Bool())
	require.NotNil(t, NotRemoved.Bool())
	assert.False(t, *NotRemoved.Bool())
	assert.Nil(t, RemoveUnknown.Bool())

	assert.Equal(t, "removed", Removed.String())
	assert.Equal(t, "not removed", NotRemoved.String())
	assert.Equal(t, "unknown", RemoveUnknown.String())
}

func TestMap(t *testing.T) {
	m := NewMap()
	fs := NewAferoFilesystem(afero.NewMemMapFs(), testLogger())
	m.Set("b", fs)
	m.Set("a", fs)

	got, err := m.Get("a")
	require.NoError(t, err)
	assert.Same(t, fs, got)

	assert.True(t, m.Has("b"))
	assert.False(t, m.Has("c"))
	assert.Equal(t, []string{"a", "b"}, m.Names())

	_, err = m.Get("c")
	assert.True(t, errors.Is(err, ErrUnknownDestination))
	assert.Contains(t, err.Error(), `"c"`)

	require.NoError(t, m.Close())
	assert.Empty(t, m.Names())
}

func TestNewMapFromConfig(t *testing.T) {
	cfg := &types.Config{
		Destinations: map[string]*types.DestinationConfig{
			"scratch": {Type: "memory"},
			"disk":    {Type: "local"},
		},
	}
	cfg.Destinations["disk"].Local.Root = t.TempDir()
	cfg.Destinations["disk"].Metadata.Enabled = true

	m, err := NewMapFromConfig(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, []string{"disk", "scratch"}, m.Names())

	disk, err := m.Get("disk")
	require.NoError(t, err)
	_, ok := disk.(MetadataSupporter)
	assert.True(t, ok)

	scratch, err := m.Get("scratch")
	require.NoError(t, err)
	_, ok = scratch.(MetadataSupporter)
	assert.False(t, ok)
}

func TestNew_UnsupportedType(t *testing.T) {
	_, err := New(context.Background(), &types.DestinationConfig{Type: "ftp"}, testLogger())
	assert.True(t, errors.Is(err, ErrUnsupportedType))
}

func TestS3Filesystem_Key(t *testing.T) {
	fs, err := NewS3Filesystem(S3Options{Bucket: "uploads", Prefix: "/media/"}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, "media/a/b.png", fs.key("a/b.png"))

	fs, err = NewS3Filesystem(S3Options{Bucket: "uploads"}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, "a/b.png", fs.key("a/b.png"))

	_, err = NewS3Filesystem(S3Options{}, testLogger())
	assert.Error(t, err)
}

func TestCopySource(t *testing.T) {
	assert.Equal(t, "bucket/dir/my%20file.png", copySource("bucket", "dir/my file.png"))
}

func TestGDriveHelpers(t *testing.T) {
	dir, name := splitPath("a/b/c.txt")
	assert.Equal(t, "a/b", dir)
	assert.Equal(t, "c.txt", name)

	dir, name = splitPath("c.txt")
	assert.Equal(t, "", dir)
	assert.Equal(t, "c.txt", name)

	assert.Equal(t, []string{"a", "b"}, pathSegments("/a//b/"))
	assert.Empty(t, pathSegments(""))

	assert.Equal(t,
		`name = 'it\'s.txt' and 'root' in parents and mimeType != 'application/vnd.google-apps.folder' and trashed = false`,
		childQuery("root", "it's.txt", false))
	assert.Contains(t, childQuery("root", "docs", true), "mimeType = 'application/vnd.google-apps.folder'")
}
