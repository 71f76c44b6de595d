package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/altafino/upload-storage/internal/types"
	"github.com/spf13/viper"
	yaml "gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in the config directory
const FileName = "storage.yaml"

// Load reads the configuration from configDir, applies destination
// templates and viper overrides (flags and UPLOAD_STORAGE_* env vars)
func Load(configDir string, logger *slog.Logger) (*types.Config, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// Templates are optional
	templatesDir := filepath.Join(configDir, "templates")
	templates, err := LoadTemplates(templatesDir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	configPath := filepath.Join(configDir, FileName)
	cfg, err := loadSingleConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", configPath, err)
	}

	for name, dest := range cfg.Destinations {
		if dest == nil {
			return nil, fmt.Errorf("destination %s has no settings", name)
		}
		if dest.Template == "" {
			continue
		}
		if err := templates.Apply(dest, dest.Template); err != nil {
			return nil, fmt.Errorf("failed to apply template to destination %s: %w", name, err)
		}
	}

	applyOverrides(cfg)
	applyDefaults(cfg)

	logger.Debug("loaded configuration",
		"path", configPath,
		"destinations", len(cfg.Destinations),
		"ingest_jobs", len(cfg.Ingest),
		"protocol", cfg.Storage.Protocol,
	)

	return cfg, nil
}

func loadSingleConfig(path string) (*types.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expandedData := expandEnv(string(data))

	config := &types.Config{}
	if err := yaml.Unmarshal([]byte(expandedData), config); err != nil {
		return nil, err
	}

	return config, nil
}

// ingest path placeholders, left for the ingest service to resolve
var placeholders = map[string]bool{
	"YYYY": true, "YY": true, "MM": true, "DD": true,
	"HH": true, "mm": true, "ss": true, "job": true,
}

// expandEnv expands environment variables, keeping ingest placeholders intact
func expandEnv(s string) string {
	return os.Expand(s, func(name string) string {
		if placeholders[name] {
			return "${" + name + "}"
		}
		return os.Getenv(name)
	})
}

// applyOverrides copies values set through viper (bound flags or env) over the file values
func applyOverrides(cfg *types.Config) {
	if v := viper.GetString("logging.level"); v != "" {
		cfg.Logging.Level = v
	}
	if v := viper.GetString("logging.format"); v != "" {
		cfg.Logging.Format = v
	}
	if v := viper.GetString("storage.protocol"); v != "" {
		cfg.Storage.Protocol = v
	}
}

func applyDefaults(cfg *types.Config) {
	if cfg.Storage.Protocol == "" {
		cfg.Storage.Protocol = "storage"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Tracking.RetentionDays == 0 {
		cfg.Tracking.RetentionDays = 30
	}
	for i := range cfg.Ingest {
		if cfg.Ingest[i].Pattern == "" {
			cfg.Ingest[i].Pattern = "*"
		}
	}
}
