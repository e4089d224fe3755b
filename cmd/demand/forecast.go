package main

import (
	"github.com/spf13/cobra"

	"github.com/aouyang1/go-demand/pipeline"
	"github.com/aouyang1/go-demand/store"
)

var forecastModel string

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Fit a single forecast model and publish its run",
	Args:  cobra.NoArgs,
	RunE:  runForecast,
}

func init() {
	forecastCmd.Flags().StringVarP(&forecastModel, "model", "m", store.ModelBoosting, "boosting or decomposition")
	rootCmd.AddCommand(forecastCmd)
}

func runForecast(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	sink, err := openSink()
	if err != nil {
		return err
	}
	defer closeSink(sink)

	p, err := pipeline.New(cfg.PipelineConfig(), st, sink, newRecorder())
	if err != nil {
		return err
	}
	run, err := p.RunModel(ctx, forecastModel)
	if err != nil {
		return err
	}
	return printRuns(cmd.OutOrStdout(), []*store.Run{run})
}
