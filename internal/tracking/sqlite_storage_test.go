package tracking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStorage(t *testing.T) {
	s, err := NewSQLiteStorage(t.TempDir())
	require.NoError(t, err)

	assert.ErrorIs(t, s.AddRecord(FileRecord{}), ErrStorageNotInitialized)

	require.NoError(t, s.Initialize())
	defer s.Close()

	modTime := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.AddRecord(FileRecord{
		JobID:       "inbox",
		SourcePath:  "/srv/inbox/a.pdf",
		Size:        10,
		ModTime:     modTime,
		Destination: "archive",
		StoredPath:  "storage://archive/a.pdf",
		MimeType:    "application/pdf",
		Status:      StatusUploaded,
	}))
	require.NoError(t, s.AddRecord(FileRecord{
		JobID:       "inbox",
		SourcePath:  "/srv/inbox/b.pdf",
		Size:        5,
		ModTime:     modTime,
		Destination: "archive",
		Status:      StatusFailed,
	}))

	has, err := s.HasRecord("inbox", "/srv/inbox/a.pdf", 10, modTime)
	require.NoError(t, err)
	assert.True(t, has)

	has, err = s.HasRecord("inbox", "/srv/inbox/b.pdf", 5, modTime)
	require.NoError(t, err)
	assert.False(t, has)

	all, err := s.GetRecords(nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	uploaded, err := s.GetRecords(map[string]string{"status": StatusUploaded})
	require.NoError(t, err)
	require.Len(t, uploaded, 1)
	assert.Equal(t, "application/pdf", uploaded[0].MimeType)
	assert.Equal(t, "storage://archive/a.pdf", uploaded[0].StoredPath)
	assert.NotEmpty(t, uploaded[0].ID)

	require.NoError(t, s.CleanupOldRecords(time.Now().AddDate(0, 0, -30)))
	all, err = s.GetRecords(nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSQLiteStorage_CleanupOldRecords(t *testing.T) {
	s, err := NewSQLiteStorage(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Initialize())
	defer s.Close()

	now := time.Now().UTC()
	for _, record := range cleanupRecords(now) {
		require.NoError(t, s.AddRecord(record))
	}

	require.NoError(t, s.CleanupOldRecords(now.AddDate(0, 0, -30)))

	records, err := s.GetRecords(nil)
	require.NoError(t, err)
	assertCleanedUp(t, now, records)
}
