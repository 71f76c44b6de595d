package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/altafino/upload-storage/internal/types"
	"github.com/altafino/upload-storage/internal/validation"
	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the configuration when files in the config directory change
type Watcher struct {
	watcher    *fsnotify.Watcher
	configDir  string
	mu         sync.RWMutex
	current    *types.Config
	logger     *slog.Logger
	reloadChan chan struct{}
	done       chan struct{}
	stopOnce   sync.Once
}

// StartWatcher initializes and starts the configuration watcher
func StartWatcher(configDir string, initial *types.Config, logger *slog.Logger) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	cw := &Watcher{
		watcher:    watcher,
		configDir:  configDir,
		current:    initial,
		logger:     logger,
		reloadChan: make(chan struct{}, 1),
		done:       make(chan struct{}),
	}

	// Watch the config directory and its subdirectories
	if err := filepath.Walk(configDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return watcher.Add(path)
		}
		return nil
	}); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	go cw.watch()
	return cw, nil
}

// ReloadChan returns a channel that receives notifications when the config is reloaded
func (cw *Watcher) ReloadChan() <-chan struct{} {
	return cw.reloadChan
}

// Config returns the most recently loaded configuration
func (cw *Watcher) Config() *types.Config {
	cw.mu.RLock()
	defer cw.mu.RUnlock()
	return cw.current
}

func (cw *Watcher) watch() {
	defer close(cw.reloadChan)

	for {
		select {
		case <-cw.done:
			return

		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}

			// A templates directory created after start needs its own watch
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					cw.addDir(event.Name)
					continue
				}
			}

			// Skip temporary files and non-yaml files
			if strings.HasPrefix(filepath.Base(event.Name), ".") ||
				!strings.HasSuffix(event.Name, ".yaml") {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				cw.handleConfigChange(event.Name)
			}

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.logger.Error("watcher error", "error", err)
		}
	}
}

// addDir watches dir and reloads if it already holds yaml files
func (cw *Watcher) addDir(dir string) {
	if err := cw.watcher.Add(dir); err != nil {
		cw.logger.Error("failed to watch directory", "path", dir, "error", err)
		return
	}
	cw.logger.Debug("watching directory", "path", dir)

	matches, _ := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if len(matches) > 0 {
		cw.handleConfigChange(dir)
	}
}

func (cw *Watcher) handleConfigChange(path string) {
	cw.logger.Info("detected configuration change", "path", path)

	cfg, err := Load(cw.configDir, cw.logger)
	if err != nil {
		cw.logger.Error("failed to reload configuration",
			"error", err,
			"path", path,
		)
		return
	}

	if err := validation.ValidateConfig(cfg); err != nil {
		cw.logger.Error("reloaded configuration is invalid, keeping previous",
			"error", err,
			"path", path,
		)
		return
	}

	cw.mu.Lock()
	cw.current = cfg
	cw.mu.Unlock()

	cw.logger.Info("configuration reloaded successfully")

	// Notify listeners of the reload
	select {
	case cw.reloadChan <- struct{}{}:
	default:
		// Channel is full, skip notification
	}
}

// Stop stops the configuration watcher
func (cw *Watcher) Stop() error {
	var err error
	cw.stopOnce.Do(func() {
		close(cw.done)
		if cerr := cw.watcher.Close(); cerr != nil {
			err = fmt.Errorf("failed to close watcher: %w", cerr)
		}
	})
	return err
}
