// Package recursive produces multi-day forecasts from a one-day-ahead model by feeding each
// prediction back as an observation for the lag features of the following days.
package recursive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/aouyang1/go-demand/feature"
	"github.com/aouyang1/go-demand/timedataset"
)

var (
	ErrInsufficientHistory = errors.New("insufficient history for lag features")
	ErrNegativeHorizon     = errors.New("horizon must be non-negative")
	ErrNoModel             = errors.New("no prediction model")
	ErrInvalidPrediction   = errors.New("model returned a non-finite prediction")
	ErrUnknownRolling      = errors.New("unknown rolling source")
)

// ModelInvocationError is returned when the model fails on the vector of a step
type ModelInvocationError struct {
	Step int
	Date time.Time
	Err  error
}

func (e *ModelInvocationError) Error() string {
	return fmt.Sprintf("model failed at step %d (%s), %v", e.Step, e.Date.Format(time.DateOnly), e.Err)
}

func (e *ModelInvocationError) Unwrap() error {
	return e.Err
}

// Predictor scores a single feature vector
type Predictor interface {
	Predict(v feature.Vector) (float64, error)
}

// PredictorFunc adapts a function to a Predictor
type PredictorFunc func(v feature.Vector) (float64, error)

func (f PredictorFunc) Predict(v feature.Vector) (float64, error) {
	return f(v)
}

// Observer is notified once per finished forecast
type Observer interface {
	ObserveForecast(model string, steps int, d time.Duration, err error)
}

// CovariateFunc returns the covariates for a forecast day. last holds the covariates of
// the final historical observation.
type CovariateFunc func(step int, date time.Time, last map[string]float64) map[string]float64

// CarryForward repeats the last observed covariates for every forecast day
func CarryForward(_ int, _ time.Time, last map[string]float64) map[string]float64 {
	return last
}

// Point is a forecast value for a single day
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Forecaster runs the recursive loop over a single model
type Forecaster struct {
	model Predictor
	opt   *Options
}

func New(model Predictor, opt *Options) (*Forecaster, error) {
	if model == nil {
		return nil, ErrNoModel
	}
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &Forecaster{model: model, opt: opt}, nil
}

// Options returns the validated options in use
func (f *Forecaster) Options() Options {
	return *f.opt
}

// Forecast predicts the h days following the last observation of history. The history is
// not modified. Either all h points are returned or an error with no points.
func (f *Forecaster) Forecast(ctx context.Context, history *timedataset.TimeDataset, h int) (res []Point, err error) {
	start := time.Now()
	defer func() {
		if f.opt.Observer != nil {
			f.opt.Observer.ObserveForecast(f.opt.Name, len(res), time.Since(start), err)
		}
	}()

	if h < 0 {
		return nil, fmt.Errorf("got %d, %w", h, ErrNegativeHorizon)
	}
	if history.Len() < feature.MaxLookback {
		return nil, fmt.Errorf("need at least %d observations but have %d, %w",
			feature.MaxLookback, history.Len(), ErrInsufficientHistory)
	}
	if h == 0 {
		return []Point{}, nil
	}

	tail := history.Tail(feature.MaxLookback)
	last := tail.At(-1)

	// extended holds the historical tail followed by every prediction so far
	extended := make([]float64, 0, len(tail.Y)+h)
	extended = append(extended, tail.Y...)

	points := make([]Point, 0, h)
	for i := 0; i < h; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		date := last.T.AddDate(0, 0, i+1)
		v, err := feature.NewVector(date, extended, len(extended), f.opt.Covariates(i, date, last.Covariates))
		if err != nil {
			return nil, err
		}
		if f.opt.Rolling == RollingHistorical {
			if err := v.SetRolling(tail.Y, len(tail.Y)); err != nil {
				return nil, err
			}
		}

		val, err := f.model.Predict(v)
		if err == nil && (math.IsNaN(val) || math.IsInf(val, 0)) {
			err = fmt.Errorf("got %f, %w", val, ErrInvalidPrediction)
		}
		if err != nil {
			return nil, &ModelInvocationError{Step: i, Date: date, Err: err}
		}

		extended = append(extended, val)
		points = append(points, Point{Date: date, Value: val})
	}

	slog.Debug("recursive forecast complete",
		"model", f.opt.Name,
		"horizon", h,
		"rolling", f.opt.Rolling.String(),
		"duration", time.Since(start),
	)
	return points, nil
}

// Forecast runs a one-off forecast with the given model and options
func Forecast(ctx context.Context, model Predictor, history *timedataset.TimeDataset, h int, opt *Options) ([]Point, error) {
	f, err := New(model, opt)
	if err != nil {
		return nil, err
	}
	return f.Forecast(ctx, history, h)
}

// Values returns the predicted values in order
func Values(points []Point) []float64 {
	res := make([]float64, len(points))
	for i, p := range points {
		res[i] = p.Value
	}
	return res
}
