package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/aouyang1/go-demand/dataset"
	"github.com/aouyang1/go-demand/feature"
	"github.com/aouyang1/go-demand/forecast"
	"github.com/aouyang1/go-demand/models"
	"github.com/aouyang1/go-demand/recursive"
	"github.com/aouyang1/go-demand/stats"
	"github.com/aouyang1/go-demand/store"
)

// vifWindow bounds the rows used for the collinearity check
const vifWindow = 365

// Boosting is the gradient boosting model scored on the holdout together with its
// recursive forecast
type Boosting struct {
	Regressor *models.Regressor

	TrainMAE  float64
	TrainRMSE float64
	TestMAE   float64
	TestRMSE  float64

	TestT         []time.Time
	TestActual    []float64
	TestPredicted []float64

	// VIF is the variance inflation factor of every feature over the most recent rows
	VIF    map[string]float64
	Future []recursive.Point
	Run    *store.Run
}

// FitBoosting trains on every feature row except the trailing holdout, scores both
// parts and forecasts the configured horizon from the end of the frame
func (p *Pipeline) FitBoosting(ctx context.Context, frame *dataset.Frame) (*Boosting, error) {
	ds, err := frame.Dataset()
	if err != nil {
		return nil, err
	}
	ts, err := feature.NewTrainingSet(ds)
	if err != nil {
		return nil, err
	}
	holdout := min(p.cfg.Holdout, ts.Len()-1)
	train, test := ts.Split(ts.Len() - holdout)
	slog.Info("training boosting model", "train", train.Len(), "test", test.Len())

	gbrt, err := models.NewGradientBoosting(p.cfg.Boosting)
	if err != nil {
		return nil, err
	}
	reg, err := models.FitRegressor(train, gbrt)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Boosting{Regressor: reg, VIF: featureVIF(ts)}
	if res.TrainMAE, res.TrainRMSE, _, err = score(reg, train); err != nil {
		return nil, fmt.Errorf("unable to score training rows, %w", err)
	}
	if test.Len() > 0 {
		if res.TestMAE, res.TestRMSE, res.TestPredicted, err = score(reg, test); err != nil {
			return nil, fmt.Errorf("unable to score holdout rows, %w", err)
		}
		res.TestT = test.T
		res.TestActual = test.Y
	}

	ropt := &recursive.Options{
		Name:     store.ModelBoosting,
		Rolling:  p.cfg.Rolling,
		Observer: p.recorder,
	}
	res.Future, err = recursive.Forecast(ctx, reg, ds, p.cfg.Horizon, ropt)
	if err != nil {
		return nil, err
	}

	points := make([]store.Point, len(res.Future))
	for i, pnt := range res.Future {
		points[i] = store.Point{Date: pnt.Date, Value: pnt.Value}
	}
	res.Run = store.NewRun(store.ModelBoosting, points)
	res.Run.Rolling = p.cfg.Rolling.String()
	res.Run.Metrics["train_mae"] = res.TrainMAE
	res.Run.Metrics["train_rmse"] = res.TrainRMSE
	if test.Len() > 0 {
		res.Run.Metrics["test_mae"] = res.TestMAE
		res.Run.Metrics["test_rmse"] = res.TestRMSE
		if mean := meanOf(test.Y); mean != 0 {
			res.Run.Metrics["test_mae_pct"] = res.TestMAE / mean * 100
		}
	}

	slog.Info("boosting forecast complete",
		"trees", gbrt.NumTrees(),
		"train_mae", res.TrainMAE,
		"train_rmse", res.TrainRMSE,
		"test_mae", res.TestMAE,
		"test_rmse", res.TestRMSE,
		"horizon", len(res.Future),
		"rolling", p.cfg.Rolling.String(),
		"run", res.Run.ID.String(),
	)
	return res, nil
}

func score(reg *models.Regressor, ts *feature.TrainingSet) (mae, rmse float64, predicted []float64, err error) {
	predicted, err = reg.PredictSet(ts.X)
	if err != nil {
		return 0, 0, nil, err
	}
	if mae, err = forecast.MAE(predicted, ts.Y); err != nil {
		return 0, 0, nil, err
	}
	if rmse, err = forecast.RMSE(predicted, ts.Y); err != nil {
		return 0, 0, nil, err
	}
	return mae, rmse, predicted, nil
}

func meanOf(y []float64) float64 {
	var sum float64
	for _, v := range y {
		sum += v
	}
	return sum / float64(len(y))
}

// featureVIF logs features whose variance is largely explained by the others. Failures
// are logged and return nil since the check is informational.
func featureVIF(ts *feature.TrainingSet) map[string]float64 {
	_, recent := ts.Split(ts.Len() - vifWindow)
	cols := make(map[string][]float64, len(recent.X))
	for label, d := range recent.X {
		cols[label] = d.Data
	}
	vif, err := stats.VarianceInflationFactor(cols)
	if err != nil {
		slog.Warn("unable to compute variance inflation factors", "error", err)
		return nil
	}

	labels := make([]string, 0, len(vif))
	for label := range vif {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		v := vif[label]
		if v > 10 || math.IsInf(v, 1) {
			slog.Debug("collinear feature", "feature", label, "vif", v)
		}
		if math.IsInf(v, 0) || math.IsNaN(v) {
			delete(vif, label)
		}
	}
	return vif
}
