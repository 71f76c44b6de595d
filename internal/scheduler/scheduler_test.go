package scheduler

import (
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/altafino/upload-storage/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s := NewScheduler(slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.Start()
	t.Cleanup(s.Stop)
	return s
}

func job(id string) types.IngestConfig {
	j := types.IngestConfig{ID: id, Enabled: true}
	j.Schedule.FrequencyEvery = "hour"
	j.Schedule.FrequencyAmount = 1
	return j
}

func TestUpdateJobStartNow(t *testing.T) {
	s := newTestScheduler(t)

	var runs atomic.Int32
	j := job("inbox")
	j.Schedule.StartNow = true

	require.NoError(t, s.UpdateJob(j, func() { runs.Add(1) }))
	assert.Eventually(t, func() bool { return runs.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"inbox"}, s.JobIDs())
}

func TestUpdateJobWaitsForSchedule(t *testing.T) {
	s := newTestScheduler(t)

	var runs atomic.Int32
	require.NoError(t, s.UpdateJob(job("inbox"), func() { runs.Add(1) }))

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, runs.Load())
	assert.Len(t, s.JobIDs(), 1)
}

func TestUpdateJobReplacesExisting(t *testing.T) {
	s := newTestScheduler(t)

	require.NoError(t, s.UpdateJob(job("inbox"), func() {}))
	require.NoError(t, s.UpdateJob(job("inbox"), func() {}))
	assert.Len(t, s.JobIDs(), 1)
}

func TestUpdateJobSkipped(t *testing.T) {
	s := newTestScheduler(t)

	disabled := job("disabled")
	disabled.Enabled = false
	require.NoError(t, s.UpdateJob(disabled, func() {}))

	expired := job("expired")
	expired.Schedule.StopAt = "2000-01-01T00:00:00Z"
	require.NoError(t, s.UpdateJob(expired, func() {}))

	assert.Empty(t, s.JobIDs())
}

func TestUpdateJobInvalid(t *testing.T) {
	s := newTestScheduler(t)

	bad := job("bad")
	bad.Schedule.FrequencyEvery = "month"
	assert.Error(t, s.UpdateJob(bad, func() {}))

	badStart := job("bad-start")
	badStart.Schedule.StartAt = "tomorrow"
	assert.Error(t, s.UpdateJob(badStart, func() {}))

	assert.Empty(t, s.JobIDs())
}

func TestStopTimeRemovesJob(t *testing.T) {
	s := newTestScheduler(t)

	current := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var now atomic.Value
	now.Store(current)
	s.now = func() time.Time { return now.Load().(time.Time) }

	var runs atomic.Int32
	j := job("inbox")
	j.Schedule.StopAt = current.Add(time.Hour).Format(time.RFC3339)

	require.NoError(t, s.UpdateJob(j, func() { runs.Add(1) }))

	now.Store(current.Add(2 * time.Hour))
	s.scheduler.RunAll()

	assert.Eventually(t, func() bool { return len(s.JobIDs()) == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, runs.Load())
}

func TestSyncAndRemove(t *testing.T) {
	s := newTestScheduler(t)

	require.NoError(t, s.UpdateJob(job("a"), func() {}))
	require.NoError(t, s.UpdateJob(job("b"), func() {}))
	require.NoError(t, s.UpdateJob(job("c"), func() {}))

	s.Sync([]types.IngestConfig{job("a"), job("b")})
	assert.ElementsMatch(t, []string{"a", "b"}, s.JobIDs())

	s.RemoveJob("a")
	s.RemoveJob("missing")
	assert.Equal(t, []string{"b"}, s.JobIDs())
}
