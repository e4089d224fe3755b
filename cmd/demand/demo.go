package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/aouyang1/go-demand/pipeline"
)

var (
	demoOut   string
	demoStart string
	demoDays  int
	demoSeed  uint64
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Write a synthetic demand csv",
	Args:  cobra.NoArgs,
	RunE:  runDemo,
}

func init() {
	demoCmd.Flags().StringVarP(&demoOut, "out", "o", "", "csv path, defaults to data.path")
	demoCmd.Flags().StringVar(&demoStart, "start", "2015-01-01", "first day")
	demoCmd.Flags().IntVar(&demoDays, "days", 3287, "number of days")
	demoCmd.Flags().Uint64Var(&demoSeed, "seed", 1, "random seed")
	rootCmd.AddCommand(demoCmd)
}

func runDemo(cmd *cobra.Command, args []string) error {
	start, err := time.Parse(time.DateOnly, demoStart)
	if err != nil {
		return fmt.Errorf("unable to parse start, %w", err)
	}
	if demoDays <= 0 {
		return fmt.Errorf("days must be positive, got %d", demoDays)
	}
	out := demoOut
	if out == "" {
		out = cfg.Data.Path
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("unable to create output directory, %w", err)
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("unable to create %s, %w", out, err)
	}
	defer f.Close()

	frame := pipeline.GenerateDemo(start, demoDays, demoSeed)
	if err := frame.WriteCSV(f); err != nil {
		return fmt.Errorf("unable to write %s, %w", out, err)
	}
	slog.Info("wrote demo data", "path", out, "days", frame.Len())
	return nil
}
