package scheduler

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/altafino/upload-storage/internal/types"
	"github.com/go-co-op/gocron"
)

type Scheduler struct {
	scheduler *gocron.Scheduler
	logger    *slog.Logger
	jobs      map[string]*gocron.Job
	mu        sync.RWMutex
	now       func() time.Time
}

// NewScheduler creates a new scheduler instance
func NewScheduler(logger *slog.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		logger:    logger,
		jobs:      make(map[string]*gocron.Job),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// UpdateJob replaces the scheduled task for an ingest job
func (s *Scheduler) UpdateJob(job types.IngestConfig, task func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(job.ID)

	if !job.Enabled {
		s.logger.Info("ingest job disabled", "id", job.ID)
		return nil
	}

	sched := job.Schedule

	var stopTime time.Time
	if sched.StopAt != "" {
		t, err := time.Parse(time.RFC3339, sched.StopAt)
		if err != nil {
			return fmt.Errorf("invalid stop time: %w", err)
		}

		// Skip jobs that would never run
		if t.Before(s.now()) {
			s.logger.Warn("skipping job schedule - stop time is in the past",
				"id", job.ID,
				"stop_at", sched.StopAt,
			)
			return nil
		}
		stopTime = t
	}

	jobFunc := func() {
		if !stopTime.IsZero() && s.now().After(stopTime) {
			s.logger.Info("stop time reached, removing job", "id", job.ID)
			go s.RemoveJob(job.ID)
			return
		}

		s.logger.Info("executing scheduled job",
			"id", job.ID,
			"time", s.now(),
		)
		task()
	}

	every := s.scheduler.Every(sched.FrequencyAmount)

	switch sched.FrequencyEvery {
	case "minute":
		every = every.Minutes()
	case "hour":
		every = every.Hours()
	case "day":
		every = every.Days()
	case "week":
		every = every.Weeks()
	default:
		return fmt.Errorf("invalid frequency: %s", sched.FrequencyEvery)
	}

	if sched.StartAt != "" {
		startTime, err := time.Parse(time.RFC3339, sched.StartAt)
		if err != nil {
			return fmt.Errorf("invalid start time: %w", err)
		}
		every = every.StartAt(startTime)
	} else if !sched.StartNow {
		every = every.WaitForSchedule()
	}

	scheduled, err := every.Tag(job.ID).Do(jobFunc)
	if err != nil {
		return fmt.Errorf("failed to schedule job: %w", err)
	}

	s.jobs[job.ID] = scheduled

	s.logger.Info("scheduled job updated",
		"id", job.ID,
		"frequency", fmt.Sprintf("every %d %s", sched.FrequencyAmount, sched.FrequencyEvery),
		"start_now", sched.StartNow,
		"start_at", sched.StartAt,
		"stop_at", sched.StopAt,
	)

	return nil
}

// RemoveJob removes the scheduled task for an ingest job
func (s *Scheduler) RemoveJob(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.removeLocked(id) {
		s.logger.Info("removed scheduled job", "id", id)
	}
}

// Sync removes every scheduled job whose id is not in keep
func (s *Scheduler) Sync(keep []types.IngestConfig) {
	wanted := make(map[string]bool, len(keep))
	for _, job := range keep {
		wanted[job.ID] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range s.jobs {
		if !wanted[id] {
			s.removeLocked(id)
			s.logger.Info("removed stale job", "id", id)
		}
	}
}

// JobIDs returns the ids of all scheduled jobs
func (s *Scheduler) JobIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.jobs))
	for id := range s.jobs {
		ids = append(ids, id)
	}
	return ids
}

func (s *Scheduler) removeLocked(id string) bool {
	job, exists := s.jobs[id]
	if !exists {
		return false
	}
	s.scheduler.RemoveByReference(job)
	delete(s.jobs, id)
	return true
}
