// Package forecast fits a decomposable trend, seasonality and holiday model to a daily
// demand series
package forecast

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/aouyang1/go-demand/feature"
	"github.com/aouyang1/go-demand/forecast/util"
	"github.com/aouyang1/go-demand/models"
	"github.com/aouyang1/go-demand/stats"
	"github.com/aouyang1/go-demand/timedataset"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrInsufficientTrainingData = errors.New("need at least two training points")
	ErrNonPositive              = errors.New("multiplicative mode requires positive values")
	ErrMissingRegressor         = errors.New("regressor not found in dataset covariates")
	ErrRegressorLen             = errors.New("regressor values have a different length than time")
	ErrUntrainedForecast        = errors.New("forecast has not been trained yet")
)

// Forecast represents a single forecast model of a time series. This is a linear model
// using a piecewise linear trend, fourier seasonalities, holiday events and external
// regressors.
type Forecast struct {
	opt     *Options
	scores  *Scores
	fLabels *feature.Labels

	trainStartTime time.Time
	trainEndTime   time.Time
	residual       []float64
	sigma          float64
	regressors     map[string]RegressorScale

	coef      []float64
	intercept float64

	trained bool
}

// New creates a new instance of a Forecast model using the provided options. If no options
// are provided a default is used.
func New(opt *Options) (*Forecast, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, fmt.Errorf("unable to validate options, %w", err)
	}
	return &Forecast{
		opt: opt,
	}, nil
}

// Fit takes the input training data and fits a forecast model. The time points must be
// strictly increasing. NaN observations are skipped.
func (f *Forecast) Fit(td *timedataset.TimeDataset) error {
	if td == nil || td.Len() == 0 {
		return timedataset.ErrNoTrainingData
	}
	if td.Len() < 2 {
		return ErrInsufficientTrainingData
	}

	f.trainStartTime = td.T[0]
	f.trainEndTime = td.T[td.Len()-1]

	y := make([]float64, td.Len())
	copy(y, td.Y)
	if f.opt.UseLog {
		for i, v := range y {
			if v <= 0 {
				return fmt.Errorf("value %.3f at %s, %w", v, td.T[i].Format(time.DateOnly), ErrNonPositive)
			}
		}
		util.SliceMap(y, math.Log)
	}

	f.regressors = make(map[string]RegressorScale, len(f.opt.Regressors))
	for _, name := range f.opt.Regressors {
		col, exists := td.X[name]
		if !exists {
			return fmt.Errorf("%q, %w", name, ErrMissingRegressor)
		}
		f.regressors[name] = newRegressorScale(col)
	}

	f.opt.ChangepointOptions.GenerateAutoChangepoints(f.trainStartTime, f.trainEndTime)

	x := f.generateFeatures(td.T, td.X)
	f.fLabels = x.Labels()
	xMx := x.Matrix(false)

	if err := f.fitWithOutliers(xMx, y); err != nil {
		return err
	}

	fitted, err := f.predictMatrix(xMx)
	if err != nil {
		return err
	}
	f.residual = make([]float64, len(y))
	var sumSq float64
	var n int
	for i := range y {
		f.residual[i] = y[i] - fitted[i]
		if math.IsNaN(f.residual[i]) {
			continue
		}
		sumSq += f.residual[i] * f.residual[i]
		n++
	}
	if n > 0 {
		f.sigma = math.Sqrt(sumSq / float64(n))
	}

	if f.opt.UseLog {
		util.SliceMap(fitted, math.Exp)
	}
	f.scores, err = NewScores(fitted, td.Y)
	if err != nil {
		return fmt.Errorf("unable to score forecast, %w", err)
	}
	f.trained = true

	slog.Debug("fit decomposition model",
		"features", f.fLabels.Len(), "points", td.Len(),
		"mape", f.scores.MAPE, "r2", f.scores.R2)
	return nil
}

// fitWithOutliers fits the model and drops residual outliers between passes, marking
// them NaN in y so the next pass skips them
func (f *Forecast) fitWithOutliers(x *mat.Dense, y []float64) error {
	outlierOpt := f.opt.OutlierOptions
	for pass := 0; ; pass++ {
		if err := f.fitLinear(x, y); err != nil {
			return err
		}
		if pass >= outlierOpt.NumPasses {
			return nil
		}

		fitted, err := f.predictMatrix(x)
		if err != nil {
			return err
		}
		residual := make([]float64, 0, len(y))
		idx := make([]int, 0, len(y))
		for i := range y {
			if math.IsNaN(y[i]) {
				continue
			}
			residual = append(residual, y[i]-fitted[i])
			idx = append(idx, i)
		}
		outliers := stats.DetectOutliers(
			residual,
			outlierOpt.LowerPercentile,
			outlierOpt.UpperPercentile,
			outlierOpt.TukeyFactor,
		)
		if len(outliers) == 0 {
			return nil
		}
		slog.Debug("removing residual outliers", "pass", pass, "count", len(outliers))
		for _, i := range outliers {
			y[idx[i]] = math.NaN()
		}
	}
}

// fitLinear fits a ridge regression on the rows with a defined target. The target is
// scaled by its largest magnitude so the penalty is independent of the demand units.
func (f *Forecast) fitLinear(x *mat.Dense, y []float64) error {
	_, n := x.Dims()
	rows := make([]int, 0, len(y))
	yScale := 0.0
	for i, v := range y {
		if math.IsNaN(v) {
			continue
		}
		rows = append(rows, i)
		yScale = math.Max(yScale, math.Abs(v))
	}
	if len(rows) < 2 {
		return ErrInsufficientTrainingData
	}
	if yScale == 0 {
		yScale = 1
	}

	xFit := mat.NewDense(len(rows), n, nil)
	yFit := mat.NewDense(len(rows), 1, nil)
	for r, i := range rows {
		xFit.SetRow(r, x.RawRowView(i))
		yFit.Set(r, 0, y[i]/yScale)
	}

	model, err := models.NewOLSRegression(&models.OLSOptions{
		FitIntercept: true,
		Lambda:       f.opt.Regularization,
	})
	if err != nil {
		return err
	}
	if err := model.Fit(xFit, yFit); err != nil {
		return fmt.Errorf("unable to fit decomposition model, %w", err)
	}

	f.intercept = model.Intercept() * yScale
	f.coef = model.Coef()
	for i := range f.coef {
		f.coef[i] *= yScale
	}
	return nil
}

func (f *Forecast) predictMatrix(x *mat.Dense) ([]float64, error) {
	m, n := x.Dims()
	if n != len(f.coef) {
		return nil, fmt.Errorf("got %d features, expected %d, %w", n, len(f.coef), models.ErrFeatureLenMismatch)
	}
	res := make([]float64, m)
	for i := 0; i < m; i++ {
		val := f.intercept
		for j, c := range f.coef {
			val += c * x.At(i, j)
		}
		res[i] = val
	}
	return res, nil
}

// Predict returns the forecast for each time point. Regressor columns in x may be
// shorter than t or contain NaN; missing values are carried forward from the last known
// value. Longer columns are rejected.
func (f *Forecast) Predict(t []time.Time, x map[string][]float64) (*Results, error) {
	if !f.trained {
		return nil, ErrUntrainedForecast
	}
	for _, name := range f.opt.Regressors {
		if len(x[name]) > len(t) {
			return nil, fmt.Errorf("%q has %d values for %d time points, %w", name, len(x[name]), len(t), ErrRegressorLen)
		}
	}

	features := f.generateFeatures(t, x)
	res := &Results{
		T:          append([]time.Time(nil), t...),
		Forecast:   make([]float64, len(t)),
		Lower:      make([]float64, len(t)),
		Upper:      make([]float64, len(t)),
		Components: newComponents(len(t)),
	}

	for i := range res.Components.Trend {
		res.Components.Trend[i] = f.intercept
	}
	for j, label := range f.fLabels.Labels() {
		// features without a column in this window, e.g. a holiday outside of it, are zero
		col, exists := features.Get(label)
		if !exists {
			continue
		}
		comp := res.Components.get(componentOf(label))
		for i, v := range col {
			comp[i] += f.coef[j] * v
		}
	}

	band := f.opt.IntervalZScore * f.sigma
	for i := range t {
		yhat := res.Components.Trend[i] +
			res.Components.Seasonality[i] +
			res.Components.Events[i] +
			res.Components.Regressors[i]
		res.Forecast[i] = yhat
		res.Lower[i] = yhat - band
		res.Upper[i] = yhat + band
	}
	if f.opt.UseLog {
		util.SliceMap(res.Forecast, math.Exp)
		util.SliceMap(res.Lower, math.Exp)
		util.SliceMap(res.Upper, math.Exp)
	}
	return res, nil
}

// PredictDays forecasts the h days following the end of training with regressors held
// at their last observed value
func (f *Forecast) PredictDays(h int) (*Results, error) {
	if !f.trained {
		return nil, ErrUntrainedForecast
	}
	future := timedataset.Days{f.trainEndTime}.Next(h)
	return f.Predict(future, nil)
}

// FeatureLabels returns the slice of feature labels in the order of the coefficients
func (f *Forecast) FeatureLabels() []feature.Feature {
	if f.fLabels == nil {
		return nil
	}
	return f.fLabels.Labels()
}

// Coefficients returns a map of the feature label string to the coefficient value
func (f *Forecast) Coefficients() (map[string]float64, error) {
	if !f.trained {
		return nil, ErrUntrainedForecast
	}
	labels := f.fLabels.Labels()
	coef := make(map[string]float64, len(labels))
	for i, label := range labels {
		coef[label.String()] = f.coef[i]
	}
	return coef, nil
}

// Intercept returns the intercept of the fit in the units of the fitted target
func (f *Forecast) Intercept() float64 {
	return f.intercept
}

// Scores returns the fit scores on the training data
func (f *Forecast) Scores() Scores {
	if f.scores == nil {
		return Scores{}
	}
	return *f.scores
}

// Residuals returns the training residuals. Points removed as outliers are NaN.
func (f *Forecast) Residuals() []float64 {
	res := make([]float64, len(f.residual))
	copy(res, f.residual)
	return res
}

// Sigma returns the standard deviation of the training residuals
func (f *Forecast) Sigma() float64 {
	return f.sigma
}

// TrainEndTime returns the last training time point
func (f *Forecast) TrainEndTime() time.Time {
	return f.trainEndTime
}
