package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aouyang1/go-demand/pipeline"
	"github.com/aouyang1/go-demand/store"
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Load, analyze, forecast, chart and export the demand data",
	Args:  cobra.NoArgs,
	RunE:  runPipeline,
}

var pipelineSummary bool

func init() {
	pipelineCmd.Flags().BoolVarP(&pipelineSummary, "summary", "s", false, "print the fitted decomposition model")
	rootCmd.AddCommand(pipelineCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
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
	res, err := p.Run(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var runs []*store.Run
	if res.Decomposition != nil {
		runs = append(runs, res.Decomposition.Run)
		if pipelineSummary {
			if err := res.Decomposition.Model.TablePrint(out, "", "  "); err != nil {
				return err
			}
		}
	}
	if res.Boosting != nil {
		runs = append(runs, res.Boosting.Run)
	}
	return printRuns(out, runs)
}

// printRuns writes one row per run metric
func printRuns(w io.Writer, runs []*store.Run) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MODEL\tRUN\tDAYS\tMETRIC\tVALUE")
	for _, run := range runs {
		names := make([]string, 0, len(run.Metrics))
		for name := range run.Metrics {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%.3f\n", run.Model, run.ID.String()[:8], len(run.Points), name, run.Metrics[name])
		}
	}
	return tw.Flush()
}
