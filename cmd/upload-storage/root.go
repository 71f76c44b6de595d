package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/altafino/upload-storage/internal/config"
	"github.com/altafino/upload-storage/internal/filesystem"
	"github.com/altafino/upload-storage/internal/logger"
	"github.com/altafino/upload-storage/internal/storage"
	"github.com/altafino/upload-storage/internal/types"
	"github.com/altafino/upload-storage/internal/validation"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "UPLOAD_STORAGE"

type rootOptions struct {
	configDir string
	logLevel  string
	logFormat string
	protocol  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "upload-storage",
		Short: "Store uploaded files in named destinations",
		Long: `Upload, remove and resolve files stored in named destinations
(local directories, memory, S3 buckets or Google Drive folders), and run
scheduled ingest jobs that sweep local directories into them.`,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configDir, "config-dir", "./config", "config directory containing "+config.FileName)
	flags.StringVar(&opts.logLevel, "log-level", "", "override logging level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "override logging format (text, json, dev)")
	flags.StringVar(&opts.protocol, "protocol", "", "override the URI protocol")

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Bind flags to viper
	viper.BindPFlag("logging.level", flags.Lookup("log-level"))
	viper.BindPFlag("logging.format", flags.Lookup("log-format"))
	viper.BindPFlag("storage.protocol", flags.Lookup("protocol"))

	cmd.AddCommand(
		newUploadCmd(opts),
		newRemoveCmd(opts),
		newResolveCmd(opts),
		newCatCmd(opts),
		newDestinationsCmd(opts),
		newServeCmd(opts),
	)

	return cmd
}

// loadConfig reads and validates the configuration and builds a logger for it
func (o *rootOptions) loadConfig() (*types.Config, *slog.Logger, error) {
	bootstrap := logger.New(os.Stderr, viper.GetString("logging.level"), viper.GetString("logging.format"), false)

	cfg, err := config.Load(o.configDir, bootstrap)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := validation.ValidateConfig(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, logger.Setup(cfg), nil
}

// openStorage builds the destination registry and the adapter over it.
// The returned map must be closed by the caller.
func (o *rootOptions) openStorage(ctx context.Context) (*storage.Storage, *filesystem.Map, error) {
	cfg, log, err := o.loadConfig()
	if err != nil {
		return nil, nil, err
	}

	filesystems, err := filesystem.NewMapFromConfig(ctx, cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create destinations: %w", err)
	}

	return storage.New(filesystems, storage.WithProtocol(cfg.Storage.Protocol)), filesystems, nil
}
