package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aouyang1/go-demand/dataset"
	"github.com/aouyang1/go-demand/forecast"
	"github.com/aouyang1/go-demand/store"
)

// Decomposition is the fitted trend and seasonality model with its forecast
type Decomposition struct {
	Model    forecast.Model
	Fitted   *forecast.Results
	Forecast *forecast.Results
	Run      *store.Run
}

// FitDecomposition fits the decomposition model on the whole frame and forecasts the
// configured horizon. Configured regressors missing from the frame are dropped.
func (p *Pipeline) FitDecomposition(ctx context.Context, frame *dataset.Frame) (res *Decomposition, err error) {
	start := time.Now()
	defer func() {
		steps := 0
		if res != nil {
			steps = res.Forecast.Len()
		}
		p.recorder.ObserveForecast(store.ModelDecomposition, steps, time.Since(start), err)
	}()

	ds, err := frame.Dataset()
	if err != nil {
		return nil, err
	}

	opt := *p.cfg.Forecast
	opt.Regressors = nil
	for _, name := range p.cfg.Forecast.Regressors {
		if _, exists := ds.X[name]; !exists {
			slog.Warn("skipping regressor missing from data", "regressor", name)
			continue
		}
		opt.Regressors = append(opt.Regressors, name)
	}

	f, err := forecast.New(&opt)
	if err != nil {
		return nil, err
	}
	if err := f.Fit(ds); err != nil {
		return nil, fmt.Errorf("unable to fit decomposition model, %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fitted, err := f.Predict(ds.T, ds.X)
	if err != nil {
		return nil, fmt.Errorf("unable to predict training window, %w", err)
	}
	future, err := f.PredictDays(p.cfg.DecompositionHorizon)
	if err != nil {
		return nil, fmt.Errorf("unable to forecast, %w", err)
	}
	model, err := f.Model()
	if err != nil {
		return nil, err
	}

	points := make([]store.Point, future.Len())
	for i := range points {
		points[i] = store.Point{
			Date:  future.T[i],
			Value: future.Forecast[i],
			Lower: future.Lower[i],
			Upper: future.Upper[i],
		}
	}
	run := store.NewRun(store.ModelDecomposition, points)
	run.Bounded = true
	scores := f.Scores()
	run.Metrics["mape"] = scores.MAPE
	run.Metrics["mse"] = scores.MSE
	run.Metrics["r2"] = scores.R2
	run.Metrics["mae"] = scores.MAE
	run.Metrics["rmse"] = scores.RMSE
	run.Metrics["sigma"] = f.Sigma()

	slog.Info("decomposition forecast complete",
		"features", len(f.FeatureLabels()),
		"regressors", opt.Regressors,
		"mape", scores.MAPE,
		"r2", scores.R2,
		"horizon", future.Len(),
		"run", run.ID.String(),
	)
	return &Decomposition{Model: model, Fitted: fitted, Forecast: future, Run: run}, nil
}
