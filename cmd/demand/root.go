package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/aouyang1/go-demand/config"
	"github.com/aouyang1/go-demand/export"
	"github.com/aouyang1/go-demand/metrics"
	"github.com/aouyang1/go-demand/store"
)

var (
	cfgPath    string
	profileDir string

	cfg      *config.Config
	profiler interface{ Stop() }
)

var rootCmd = &cobra.Command{
	Use:               "demand",
	Short:             "Electricity demand analysis and forecasting",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if profiler != nil {
			profiler.Stop()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "yaml or json configuration file")
	rootCmd.PersistentFlags().StringVar(&profileDir, "profile", "", "write a cpu profile to this directory")
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("unable to load config, %w", err)
	}
	logger, err := cfg.Logging.Logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	if profileDir != "" {
		profiler = profile.Start(profile.CPUProfile, profile.ProfilePath(profileDir), profile.NoShutdownHook)
	}
	return nil
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

// openStore opens the configured store, creating the database directory if needed
func openStore() (store.Store, error) {
	if path := cfg.Store.Path; path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("unable to create store directory, %w", err)
		}
	}
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to open store, %w", err)
	}
	return st, nil
}

func closeStore(st store.Store) {
	if err := st.Close(); err != nil {
		slog.Error("unable to close store", "error", err)
	}
}

func newRecorder() *metrics.Recorder {
	rec, err := metrics.NewRecorder(nil)
	if err != nil {
		slog.Warn("metrics disabled", "error", err)
		return nil
	}
	return rec
}

func openSink() (export.Multi, error) {
	sink, err := export.New(cfg.Export)
	if err != nil {
		return nil, fmt.Errorf("unable to open export sinks, %w", err)
	}
	return sink, nil
}

func closeSink(sink export.Multi) {
	if err := sink.Close(); err != nil {
		slog.Error("unable to close export sinks", "error", err)
	}
}
