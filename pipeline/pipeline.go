// Package pipeline runs the sequential demand analysis from the raw csv to exported
// forecasts
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aouyang1/go-demand/dataset"
	"github.com/aouyang1/go-demand/eda"
	"github.com/aouyang1/go-demand/export"
	"github.com/aouyang1/go-demand/forecast"
	"github.com/aouyang1/go-demand/metrics"
	"github.com/aouyang1/go-demand/models"
	"github.com/aouyang1/go-demand/plot"
	"github.com/aouyang1/go-demand/recursive"
	"github.com/aouyang1/go-demand/store"
)

const (
	DefaultHorizon              = 30
	DefaultHoldout              = 30
	DefaultDecompositionHorizon = 1000
	DefaultDataPath             = "data/ap_electricity_demand.csv"

	// historyShown is the number of trailing days drawn next to the boosting forecast
	historyShown = 90
)

var (
	ErrNegativeHorizon = errors.New("horizon must be non-negative")
	ErrNegativeHoldout = errors.New("holdout must be non-negative")
	ErrNoData          = errors.New("no data path and no stored observations")
	ErrUnknownModel    = errors.New("unknown forecast model")
)

type Config struct {
	DataPath string          `json:"data_path"`
	Dataset  dataset.Options `json:"dataset"`

	// ChartsPath is the html file the dashboard charts are rendered to. Empty skips it.
	ChartsPath  string `json:"charts_path"`
	Temperature string `json:"temperature"`

	// Horizon is the number of days forecast by the boosting model
	Horizon int `json:"horizon"`

	// Holdout is the number of trailing training rows scored out of sample
	Holdout              int                     `json:"holdout"`
	DecompositionHorizon int                     `json:"decomposition_horizon"`
	Rolling              recursive.RollingSource `json:"rolling"`

	Forecast *forecast.Options               `json:"forecast"`
	Boosting *models.GradientBoostingOptions `json:"boosting"`
}

func NewDefaultConfig() *Config {
	fopt := forecast.NewDefaultOptions()
	fopt.Regressors = []string{plot.DefaultTemperature}
	// demand seasonality scales with its level
	fopt.UseLog = true
	return &Config{
		DataPath:             DefaultDataPath,
		Temperature:          plot.DefaultTemperature,
		Horizon:              DefaultHorizon,
		Holdout:              DefaultHoldout,
		DecompositionHorizon: DefaultDecompositionHorizon,
		Rolling:              recursive.RollingHistorical,
		Forecast:             fopt,
		Boosting:             models.NewDefaultGradientBoostingOptions(),
	}
}

// Validate returns a copy of the config with defaults filled in
func (c *Config) Validate() (*Config, error) {
	if c == nil {
		return NewDefaultConfig(), nil
	}
	res := *c
	if res.Horizon < 0 {
		return nil, fmt.Errorf("horizon %d, %w", res.Horizon, ErrNegativeHorizon)
	}
	if res.DecompositionHorizon < 0 {
		return nil, fmt.Errorf("decomposition horizon %d, %w", res.DecompositionHorizon, ErrNegativeHorizon)
	}
	if res.Holdout < 0 {
		return nil, fmt.Errorf("got %d, %w", res.Holdout, ErrNegativeHoldout)
	}
	if res.Temperature == "" {
		res.Temperature = plot.DefaultTemperature
	}
	if res.Forecast == nil {
		res.Forecast = NewDefaultConfig().Forecast
	}
	if _, err := res.Forecast.Validate(); err != nil {
		return nil, fmt.Errorf("unable to validate forecast options, %w", err)
	}
	boosting, err := res.Boosting.Validate()
	if err != nil {
		return nil, fmt.Errorf("unable to validate boosting options, %w", err)
	}
	res.Boosting = boosting
	return &res, nil
}

// Pipeline owns the collaborators of a run. Store, sink and recorder are optional.
type Pipeline struct {
	cfg      *Config
	store    store.Store
	sink     export.Sink
	recorder *metrics.Recorder
}

func New(cfg *Config, st store.Store, sink export.Sink, rec *metrics.Recorder) (*Pipeline, error) {
	cfg, err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	return &Pipeline{cfg: cfg, store: st, sink: sink, recorder: rec}, nil
}

// Config returns the validated config in use
func (p *Pipeline) Config() Config {
	return *p.cfg
}

// Result carries every artifact of a run
type Result struct {
	Frame         *dataset.Frame
	Analysis      *Analysis
	Decomposition *Decomposition
	Boosting      *Boosting
	Charts        []plot.Named
}

// Run executes every step in order. A failing forecast model is logged and skipped so
// the remaining steps still run; loading and analysis failures abort.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	frame, err := p.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := frame.Validate(); err != nil {
		slog.Warn("daily index has gaps", "error", err)
	}
	if err := p.persistObservations(ctx, frame); err != nil {
		return nil, err
	}

	analysis, err := Analyze(frame)
	if err != nil {
		return nil, fmt.Errorf("unable to analyze data, %w", err)
	}
	slog.Info("analyzed demand",
		"records", analysis.Summary.Records,
		"start", analysis.Summary.Start.Format(time.DateOnly),
		"end", analysis.Summary.End.Format(time.DateOnly),
		"mean", eda.Round(analysis.Summary.Mean, 2),
		"peak_month", analysis.Insights.PeakMonth,
	)

	res := &Result{Frame: frame, Analysis: analysis}

	res.Decomposition, err = p.FitDecomposition(ctx, frame)
	if err != nil {
		slog.Error("decomposition forecast failed", "error", err)
	} else if err := p.publish(ctx, res.Decomposition.Run); err != nil {
		return nil, err
	}

	res.Boosting, err = p.FitBoosting(ctx, frame)
	if err != nil {
		slog.Error("boosting forecast failed", "error", err)
	} else if err := p.publish(ctx, res.Boosting.Run); err != nil {
		return nil, err
	}

	res.Charts = plot.Build(p.chartInputs(res))
	if p.cfg.ChartsPath != "" {
		if err := writeCharts(p.cfg.ChartsPath, res.Charts); err != nil {
			return nil, err
		}
		slog.Info("rendered charts", "path", p.cfg.ChartsPath, "charts", len(res.Charts))
	}

	slog.Info("pipeline complete", "duration", time.Since(start))
	return res, nil
}

// RunModel loads the data and fits, persists and exports a single forecast model
func (p *Pipeline) RunModel(ctx context.Context, model string) (*store.Run, error) {
	if model != store.ModelBoosting && model != store.ModelDecomposition {
		return nil, fmt.Errorf("%q, %w", model, ErrUnknownModel)
	}
	frame, err := p.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := p.persistObservations(ctx, frame); err != nil {
		return nil, err
	}

	var run *store.Run
	switch model {
	case store.ModelBoosting:
		res, err := p.FitBoosting(ctx, frame)
		if err != nil {
			return nil, err
		}
		run = res.Run
	case store.ModelDecomposition:
		res, err := p.FitDecomposition(ctx, frame)
		if err != nil {
			return nil, err
		}
		run = res.Run
	}
	if err := p.publish(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// Load reads the csv at the configured path. Without a path the stored observations
// are used.
func (p *Pipeline) Load(ctx context.Context) (*dataset.Frame, error) {
	if p.cfg.DataPath == "" {
		if p.store == nil {
			return nil, ErrNoData
		}
		recs, err := p.store.Observations(ctx)
		if err != nil {
			return nil, fmt.Errorf("unable to read stored observations, %w", err)
		}
		if len(recs) == 0 {
			return nil, ErrNoData
		}
		slog.Info("loaded stored observations", "records", len(recs))
		return dataset.FromRecords(recs), nil
	}

	raw, err := dataset.LoadFile(p.cfg.DataPath)
	if err != nil {
		return nil, err
	}
	frame, err := dataset.Prepare(raw, &p.cfg.Dataset)
	if err != nil {
		return nil, fmt.Errorf("unable to prepare %s, %w", p.cfg.DataPath, err)
	}
	slog.Info("loaded dataset",
		"path", p.cfg.DataPath,
		"rows", len(raw.Records),
		"days", frame.Len(),
		"covariates", frame.CovariateNames(),
		"holiday", frame.Holiday != nil,
	)
	return frame, nil
}

func (p *Pipeline) persistObservations(ctx context.Context, frame *dataset.Frame) error {
	if p.store == nil || p.cfg.DataPath == "" {
		return nil
	}
	if err := p.store.SaveObservations(ctx, frame.Head(frame.Len())); err != nil {
		return fmt.Errorf("unable to persist observations, %w", err)
	}
	return nil
}

func (p *Pipeline) publish(ctx context.Context, run *store.Run) error {
	if p.store != nil {
		if err := p.store.SaveRun(ctx, run); err != nil {
			return fmt.Errorf("unable to persist %s run, %w", run.Model, err)
		}
	}
	if p.sink != nil {
		// exports are best effort, the run is already persisted
		if err := p.sink.Export(ctx, run); err != nil {
			slog.Warn("export incomplete", "model", run.Model, "error", err)
		}
	}
	return nil
}

func (p *Pipeline) chartInputs(res *Result) plot.Inputs {
	in := plot.Inputs{
		Frame:       res.Frame,
		Monthly:     res.Analysis.Monthly,
		Yearly:      res.Analysis.Yearly,
		MonthOfYear: res.Analysis.MonthOfYear,
		Heatmap:     res.Analysis.Heatmap,
		Holiday:     res.Analysis.Holiday,
		Temperature: p.cfg.Temperature,
	}
	if res.Decomposition != nil {
		in.Decomposition = res.Decomposition.Fitted.Append(res.Decomposition.Forecast)
	}
	if b := res.Boosting; b != nil {
		n := min(historyShown, res.Frame.Len())
		start := res.Frame.Len() - n
		in.Boosting = &plot.BoostingSeries{
			HistoryT:      res.Frame.Dates[start:],
			HistoryY:      res.Frame.Demand[start:],
			TestT:         b.TestT,
			TestPredicted: b.TestPredicted,
			Future:        b.Future,
		}
	}
	return in
}

func writeCharts(path string, named []plot.Named) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("unable to create chart directory, %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create chart file, %w", err)
	}
	defer f.Close()
	if err := plot.RenderPage(f, "Electricity Demand Analysis", named); err != nil {
		return fmt.Errorf("unable to render charts, %w", err)
	}
	return nil
}
