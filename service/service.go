// Package service serves the cached analysis and the stored forecasts to the http
// front-ends
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/aouyang1/go-demand/dataset"
	"github.com/aouyang1/go-demand/eda"
	"github.com/aouyang1/go-demand/forecast"
	"github.com/aouyang1/go-demand/metrics"
	"github.com/aouyang1/go-demand/pipeline"
	"github.com/aouyang1/go-demand/plot"
	"github.com/aouyang1/go-demand/recursive"
	"github.com/aouyang1/go-demand/store"
)

const (
	// DefaultHeadRows is the number of records shown on the data overview
	DefaultHeadRows = 10

	// historyShown is the number of trailing days drawn next to the boosting forecast
	historyShown = 90
)

var (
	ErrUnknownModel  = errors.New("unknown forecast model")
	ErrNoForecast    = errors.New("forecast not available")
	ErrChartNotFound = errors.New("chart not found")
)

// Models lists the forecast models in display order
var Models = []string{store.ModelDecomposition, store.ModelBoosting}

// Service reads through a Cache over the store. The csv at the configured data path
// seeds the store when it has no observations yet.
type Service struct {
	store    store.Store
	pipeline *pipeline.Pipeline
	cache    *Cache
}

func New(cfg *pipeline.Config, st store.Store, rec *metrics.Recorder) (*Service, error) {
	p, err := pipeline.New(cfg, st, nil, rec)
	if err != nil {
		return nil, err
	}
	s := &Service{store: st, pipeline: p}
	s.cache = NewCache(s.load, rec)
	return s, nil
}

func (s *Service) load(ctx context.Context) (*Snapshot, error) {
	start := time.Now()
	frame, err := s.loadFrame(ctx)
	if err != nil {
		return nil, err
	}
	analysis, err := pipeline.Analyze(frame)
	if err != nil {
		return nil, fmt.Errorf("unable to analyze data, %w", err)
	}

	runs := make(map[string]*store.Run, len(Models))
	for _, model := range Models {
		run, err := s.store.LatestRun(ctx, model)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("unable to read %s run, %w", model, err)
		}
		runs[model] = run
	}

	snap := &Snapshot{
		Frame:    frame,
		Analysis: analysis,
		Runs:     runs,
		Loaded:   time.Now(),
	}
	snap.Charts = plot.Build(chartInputs(snap, s.pipeline.Config().Temperature))
	slog.Info("loaded snapshot",
		"records", frame.Len(),
		"runs", len(runs),
		"charts", len(snap.Charts),
		"duration", time.Since(start),
	)
	return snap, nil
}

func (s *Service) loadFrame(ctx context.Context) (*dataset.Frame, error) {
	recs, err := s.store.Observations(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to read stored observations, %w", err)
	}
	if len(recs) > 0 {
		return dataset.FromRecords(recs), nil
	}
	if s.pipeline.Config().DataPath == "" {
		return nil, pipeline.ErrNoData
	}

	frame, err := s.pipeline.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveObservations(ctx, frame.Head(frame.Len())); err != nil {
		return nil, fmt.Errorf("unable to persist observations, %w", err)
	}
	return frame, nil
}

// Snapshot returns the cached snapshot
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	return s.cache.Get(ctx)
}

// Data returns up to the first n records
func (s *Service) Data(ctx context.Context, n int) ([]dataset.Record, error) {
	snap, err := s.cache.Get(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Frame.Head(n), nil
}

func (s *Service) Summary(ctx context.Context) (*eda.Summary, error) {
	snap, err := s.cache.Get(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Analysis.Summary, nil
}

func (s *Service) Insights(ctx context.Context) (*eda.Insights, error) {
	snap, err := s.cache.Get(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Analysis.Insights, nil
}

// Aggregates are the grouped means shown on the visualizations page
type Aggregates struct {
	Monthly     []eda.PeriodMean   `json:"monthly"`
	Yearly      []eda.PeriodMean   `json:"yearly"`
	MonthOfYear []eda.MonthMean    `json:"month_of_year"`
	Heatmap     eda.Heatmap        `json:"heatmap"`
	Holiday     []eda.DayTypeStats `json:"holiday,omitempty"`
}

func (s *Service) Aggregates(ctx context.Context) (*Aggregates, error) {
	snap, err := s.cache.Get(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Aggregates(), nil
}

// Forecast returns the latest run of the model or ErrNoForecast when none is stored
func (s *Service) Forecast(ctx context.Context, model string) (*store.Run, error) {
	if !slices.Contains(Models, model) {
		return nil, fmt.Errorf("%q, %w", model, ErrUnknownModel)
	}
	snap, err := s.cache.Get(ctx)
	if err != nil {
		return nil, err
	}
	run, exists := snap.Runs[model]
	if !exists {
		return nil, fmt.Errorf("%s, %w", model, ErrNoForecast)
	}
	return run, nil
}

// ForecastStats summarizes a stored run for the forecasting page
type ForecastStats struct {
	Model   string             `json:"model"`
	Count   int                `json:"count"`
	Start   time.Time          `json:"start"`
	End     time.Time          `json:"end"`
	Created time.Time          `json:"created"`
	Yearly  []eda.PeriodMean   `json:"yearly"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// NewForecastStats groups the forecast values of the run by calendar year
func NewForecastStats(run *store.Run) ForecastStats {
	st := ForecastStats{
		Model:   run.Model,
		Count:   len(run.Points),
		Created: run.Created,
		Metrics: run.Metrics,
	}
	if len(run.Points) == 0 {
		return st
	}
	st.Start = run.Points[0].Date
	st.End = run.Points[len(run.Points)-1].Date

	f := &dataset.Frame{
		Dates:  make([]time.Time, len(run.Points)),
		Demand: make([]float64, len(run.Points)),
	}
	for i, p := range run.Points {
		f.Dates[i] = p.Date
		f.Demand[i] = p.Value
	}
	st.Yearly = eda.YearlyMeans(f)
	return st
}

// ForecastStats returns the stats of every model with a stored run in display order
func (s *Service) ForecastStats(ctx context.Context) ([]ForecastStats, error) {
	snap, err := s.cache.Get(ctx)
	if err != nil {
		return nil, err
	}
	var res []ForecastStats
	for _, model := range Models {
		if run, exists := snap.Runs[model]; exists {
			res = append(res, NewForecastStats(run))
		}
	}
	return res, nil
}

func (s *Service) Charts(ctx context.Context) ([]plot.Named, error) {
	snap, err := s.cache.Get(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Charts, nil
}

func (s *Service) Chart(ctx context.Context, name string) (plot.Named, error) {
	snap, err := s.cache.Get(ctx)
	if err != nil {
		return plot.Named{}, err
	}
	c, exists := plot.Find(snap.Charts, name)
	if !exists {
		return plot.Named{}, fmt.Errorf("%q, %w", name, ErrChartNotFound)
	}
	return c, nil
}

// Reload drops the cached snapshot and loads a fresh one
func (s *Service) Reload(ctx context.Context) (*Snapshot, error) {
	s.cache.Invalidate()
	return s.cache.Get(ctx)
}

func chartInputs(snap *Snapshot, temperature string) plot.Inputs {
	a := snap.Analysis
	in := plot.Inputs{
		Frame:       snap.Frame,
		Monthly:     a.Monthly,
		Yearly:      a.Yearly,
		MonthOfYear: a.MonthOfYear,
		Heatmap:     a.Heatmap,
		Holiday:     a.Holiday,
		Temperature: temperature,
	}
	if run, exists := snap.Runs[store.ModelDecomposition]; exists {
		in.Decomposition = runResults(run)
	}
	if run, exists := snap.Runs[store.ModelBoosting]; exists {
		n := min(historyShown, snap.Frame.Len())
		start := snap.Frame.Len() - n
		future := make([]recursive.Point, len(run.Points))
		for i, p := range run.Points {
			future[i] = recursive.Point{Date: p.Date, Value: p.Value}
		}
		in.Boosting = &plot.BoostingSeries{
			HistoryT: snap.Frame.Dates[start:],
			HistoryY: snap.Frame.Demand[start:],
			Future:   future,
		}
	}
	return in
}

// runResults rebuilds forecast results from a stored run. Components are not stored so
// they are left empty.
func runResults(run *store.Run) *forecast.Results {
	res := &forecast.Results{
		T:        make([]time.Time, len(run.Points)),
		Forecast: make([]float64, len(run.Points)),
		Lower:    make([]float64, len(run.Points)),
		Upper:    make([]float64, len(run.Points)),
	}
	for i, p := range run.Points {
		res.T[i] = p.Date
		res.Forecast[i] = p.Value
		res.Lower[i] = p.Value
		res.Upper[i] = p.Value
		if run.Bounded {
			res.Lower[i] = p.Lower
			res.Upper[i] = p.Upper
		}
	}
	return res
}
