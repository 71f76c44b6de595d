package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/altafino/upload-storage/internal/app"
	"github.com/altafino/upload-storage/internal/filesystem"
	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"
)

func newUploadCmd(opts *rootOptions) *cobra.Command {
	var dir, name, mimeType string

	cmd := &cobra.Command{
		Use:   "upload <destination> <file>",
		Short: "Upload a local file to a destination",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			destination, file := args[0], args[1]

			content, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", file, err)
			}

			if name == "" {
				name = filepath.Base(file)
			}
			if mimeType == "" {
				mimeType = mimetype.Detect(content).String()
			}

			st, filesystems, err := opts.openStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer filesystems.Close()

			if err := st.Upload(cmd.Context(), destination, dir, name, content, mimeType); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), st.ResolvePath(destination, dir, name, false))
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "directory inside the destination")
	cmd.Flags().StringVar(&name, "name", "", "stored file name (default is the local file name)")
	cmd.Flags().StringVar(&mimeType, "mime", "", "MIME type (detected from content when omitted)")

	return cmd
}

func newRemoveCmd(opts *rootOptions) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "remove <destination> <name>",
		Short: "Remove a stored file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, filesystems, err := opts.openStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer filesystems.Close()

			result, err := st.Remove(cmd.Context(), args[0], dir, args[1])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "directory inside the destination")

	return cmd
}

func newResolveCmd(opts *rootOptions) *cobra.Command {
	var (
		dir      string
		relative bool
	)

	cmd := &cobra.Command{
		Use:   "resolve <destination> <name>",
		Short: "Print the URI or relative path of a stored file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, filesystems, err := opts.openStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer filesystems.Close()

			if !filesystems.Has(args[0]) {
				return fmt.Errorf("%w: %q", filesystem.ErrUnknownDestination, args[0])
			}

			fmt.Fprintln(cmd.OutOrStdout(), st.ResolvePath(args[0], dir, args[1], relative))
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "directory inside the destination")
	cmd.Flags().BoolVar(&relative, "relative", false, "print dir/name instead of a URI")

	return cmd
}

func newCatCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cat <uri>",
		Short: "Write a stored file to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, filesystems, err := opts.openStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer filesystems.Close()

			rc, err := st.StreamWrapper().Open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer rc.Close()

			_, err = io.Copy(cmd.OutOrStdout(), rc)
			return err
		},
	}
}

func newDestinationsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "destinations",
		Short: "List configured destinations and their capabilities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.loadConfig()
			if err != nil {
				return err
			}

			filesystems, err := filesystem.NewMapFromConfig(cmd.Context(), cfg, log)
			if err != nil {
				return fmt.Errorf("failed to create destinations: %w", err)
			}
			defer filesystems.Close()

			out := cmd.OutOrStdout()
			for _, name := range filesystems.Names() {
				fs, err := filesystems.Get(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\t%s\t%s\n", name, cfg.Destinations[name].Type, strings.Join(filesystem.Capabilities(fs), ","))
			}
			return nil
		},
	}
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run scheduled ingest jobs until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.loadConfig()
			if err != nil {
				return err
			}

			application, err := app.New(cmd.Context(), cfg, opts.configDir, log)
			if err != nil {
				return fmt.Errorf("failed to create application: %w", err)
			}
			defer application.Stop()

			if err := application.Start(); err != nil {
				return fmt.Errorf("failed to start application: %w", err)
			}

			// Wait for shutdown signal
			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			log.Info("shutting down application")
			return nil
		},
	}
}
