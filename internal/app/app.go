package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/altafino/upload-storage/internal/config"
	"github.com/altafino/upload-storage/internal/filesystem"
	"github.com/altafino/upload-storage/internal/ingest"
	"github.com/altafino/upload-storage/internal/scheduler"
	"github.com/altafino/upload-storage/internal/storage"
	"github.com/altafino/upload-storage/internal/tracking"
	"github.com/altafino/upload-storage/internal/types"
)

// App runs the scheduled ingest jobs against the configured destinations
type App struct {
	logger    *slog.Logger
	configDir string
	scheduler *scheduler.Scheduler
	watcher   *config.Watcher
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc

	mu          sync.RWMutex
	cfg         *types.Config
	filesystems *filesystem.Map
	storage     *storage.Storage
	tracker     *tracking.Manager
}

// New creates a new application instance from a validated configuration
func New(ctx context.Context, cfg *types.Config, configDir string, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithCancel(ctx)

	app := &App{
		logger:    logger,
		configDir: configDir,
		scheduler: scheduler.NewScheduler(logger),
		ctx:       ctx,
		cancel:    cancel,
	}

	if err := app.apply(cfg); err != nil {
		cancel()
		return nil, err
	}

	return app, nil
}

// Storage returns the adapter for the current configuration
func (a *App) Storage() *storage.Storage {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.storage
}

// Start starts all application services
func (a *App) Start() error {
	watcher, err := config.StartWatcher(a.configDir, a.currentConfig(), a.logger)
	if err != nil {
		return fmt.Errorf("failed to start config watcher: %w", err)
	}
	a.watcher = watcher

	a.scheduler.Start()

	if err := a.scheduleJobs(a.currentConfig()); err != nil {
		return err
	}

	a.wg.Add(1)
	go a.watchConfigs()

	return nil
}

// Stop gracefully stops all application services
func (a *App) Stop() {
	a.cancel()
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	a.wg.Wait()

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := closeResources(a.filesystems, a.tracker); err != nil {
		a.logger.Error("failed to close resources", "error", err)
	}
	a.filesystems = nil
	a.tracker = nil
}

// apply closes the current registry and tracker and opens new ones for cfg.
// Backends such as the badger metadata store lock their directory, so the old
// handles must be closed first. If cfg cannot be opened the previous
// configuration is reopened.
func (a *App) apply(cfg *types.Config) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := closeResources(a.filesystems, a.tracker); err != nil {
		a.logger.Warn("failed to close previous destinations", "error", err)
	}
	a.filesystems, a.tracker, a.storage = nil, nil, nil

	if err := a.openLocked(cfg); err != nil {
		if a.cfg != nil {
			if restoreErr := a.openLocked(a.cfg); restoreErr != nil {
				a.logger.Error("failed to restore previous configuration", "error", restoreErr)
			}
		}
		return err
	}
	a.cfg = cfg

	a.logger.Info("destinations configured",
		"destinations", a.filesystems.Names(),
		"protocol", cfg.Storage.Protocol,
		"ingest_jobs", len(cfg.Ingest),
	)

	return nil
}

func (a *App) openLocked(cfg *types.Config) error {
	filesystems, err := filesystem.NewMapFromConfig(a.ctx, cfg, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create destinations: %w", err)
	}

	var tracker *tracking.Manager
	if hasEnabledJobs(cfg) {
		tracker, err = tracking.NewManager(cfg, a.logger)
		if err != nil {
			filesystems.Close()
			return err
		}
	}

	a.filesystems = filesystems
	a.storage = storage.New(filesystems, storage.WithProtocol(cfg.Storage.Protocol))
	a.tracker = tracker
	return nil
}

func (a *App) scheduleJobs(cfg *types.Config) error {
	var errs []error
	for _, job := range cfg.Ingest {
		if err := a.scheduler.UpdateJob(job, a.jobTask(job)); err != nil {
			a.logger.Error("failed to update scheduler",
				"error", err,
				"id", job.ID,
			)
			errs = append(errs, fmt.Errorf("job %s: %w", job.ID, err))
		}
	}
	a.scheduler.Sync(cfg.Ingest)

	return errors.Join(errs...)
}

func (a *App) jobTask(job types.IngestConfig) func() {
	return func() {
		a.runJob(job)
	}
}

// runJob holds the read lock for the whole sweep so a reload cannot close
// the destinations underneath it
func (a *App) runJob(job types.IngestConfig) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.tracker == nil || a.storage == nil {
		return
	}

	svc := ingest.NewService(job, a.storage, a.tracker, a.logger)
	if _, err := svc.Run(a.ctx); err != nil {
		a.logger.Error("ingest job failed",
			"error", err,
			"id", job.ID,
		)
	}
}

func (a *App) currentConfig() *types.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

func (a *App) watchConfigs() {
	defer a.wg.Done()

	for range a.watcher.ReloadChan() {
		a.logger.Info("reloading services due to configuration change")

		cfg := a.watcher.Config()
		if err := a.apply(cfg); err != nil {
			a.logger.Error("failed to apply configuration", "error", err)
			continue
		}

		if err := a.scheduleJobs(cfg); err != nil {
			a.logger.Error("failed to update services", "error", err)
		}
	}
}

func hasEnabledJobs(cfg *types.Config) bool {
	for _, job := range cfg.Ingest {
		if job.Enabled {
			return true
		}
	}
	return false
}

func closeResources(filesystems *filesystem.Map, tracker *tracking.Manager) error {
	var errs []error
	if filesystems != nil {
		errs = append(errs, filesystems.Close())
	}
	if tracker != nil {
		errs = append(errs, tracker.Close())
	}
	return errors.Join(errs...)
}
