package forecast

import (
	"math"
	"testing"
	"time"

	"github.com/aouyang1/go-demand/timedataset"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bareOptions disables every component except linear growth
func bareOptions() *Options {
	return &Options{}
}

func TestFitLinear(t *testing.T) {
	days := timedataset.GenerateDays(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), 50)
	td, err := timedataset.NewUnivariateDataset(days, timedataset.GenerateLinearY(50, 100, 2))
	require.NoError(t, err)

	f, err := New(bareOptions())
	require.NoError(t, err)
	require.NoError(t, f.Fit(td))

	res, err := f.PredictDays(10)
	require.NoError(t, err)
	require.Equal(t, 10, res.Len())
	assert.Equal(t, time.Date(2020, 2, 20, 0, 0, 0, 0, time.UTC), res.T[0])
	assert.InDelta(t, 200.0, res.Forecast[0], 1e-6)
	assert.InDelta(t, 218.0, res.Forecast[9], 1e-6)
	assert.InDelta(t, 0.0, f.Sigma(), 1e-6)

	scores := f.Scores()
	assert.Less(t, scores.MAPE, 1e-6)
	assert.InDelta(t, 1.0, scores.R2, 1e-6)
}

func TestFitEvents(t *testing.T) {
	days := timedataset.GenerateDays(time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC), 3*365)
	y := timedataset.GenerateConstY(len(days), 100)
	for i, d := range days {
		if d.Month() == time.January && d.Day() == 26 {
			y[i] += 50
		}
	}
	td, err := timedataset.NewUnivariateDataset(days, y)
	require.NoError(t, err)

	opt := bareOptions()
	opt.EventOptions.NationalHolidays = true
	f, err := New(opt)
	require.NoError(t, err)
	require.NoError(t, f.Fit(td))

	coef, err := f.Coefficients()
	require.NoError(t, err)
	assert.InDelta(t, 50.0, coef["event_Republic_Day"], 1e-6)
	assert.InDelta(t, 0.0, coef["event_Independence_Day"], 1e-6)

	future := []time.Time{
		time.Date(2021, 1, 25, 0, 0, 0, 0, time.UTC),
		time.Date(2021, 1, 26, 0, 0, 0, 0, time.UTC),
	}
	res, err := f.Predict(future, nil)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{100, 150}, res.Forecast, 1e-6)
	assert.InDeltaSlice(t, []float64{0, 50}, res.Components.Events, 1e-6)
}

func TestFitDailyDemand(t *testing.T) {
	td := timedataset.GenerateDailyDemand(time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC), 3*365, 42)

	opt := NewDefaultOptions()
	opt.Regressors = []string{"temp"}
	f, err := New(opt)
	require.NoError(t, err)
	require.NoError(t, f.Fit(td))

	scores := f.Scores()
	assert.Less(t, scores.MAPE, 0.05)
	assert.Greater(t, scores.R2, 0.8)
	assert.Len(t, f.Residuals(), td.Len())

	res, err := f.Predict(td.T, td.X)
	require.NoError(t, err)
	for i := range res.T {
		sum := res.Components.Trend[i] + res.Components.Seasonality[i] +
			res.Components.Events[i] + res.Components.Regressors[i]
		require.InDelta(t, res.Forecast[i], sum, 1e-9)
		require.LessOrEqual(t, res.Lower[i], res.Forecast[i])
		require.GreaterOrEqual(t, res.Upper[i], res.Forecast[i])
	}
}

func TestFitMultiplicative(t *testing.T) {
	td := timedataset.GenerateDailyDemand(time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC), 2*365, 3)

	opt := NewDefaultOptions()
	opt.UseLog = true
	f, err := New(opt)
	require.NoError(t, err)
	require.NoError(t, f.Fit(td))
	assert.Less(t, f.Scores().MAPE, 0.05)

	res, err := f.PredictDays(30)
	require.NoError(t, err)
	for i := range res.T {
		sum := res.Components.Trend[i] + res.Components.Seasonality[i] +
			res.Components.Events[i] + res.Components.Regressors[i]
		require.InDelta(t, math.Exp(sum), res.Forecast[i], 1e-6)
		require.Greater(t, res.Lower[i], 0.0)
	}
}

func TestFitErrors(t *testing.T) {
	day := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	days := timedataset.GenerateDays(day, 10)

	testData := map[string]struct {
		opt *Options
		td  *timedataset.TimeDataset
		err error
	}{
		"nil dataset": {
			td:  nil,
			err: timedataset.ErrNoTrainingData,
		},
		"single point": {
			td:  &timedataset.TimeDataset{T: days[:1], Y: []float64{1}},
			err: ErrInsufficientTrainingData,
		},
		"non positive in multiplicative mode": {
			opt: &Options{UseLog: true},
			td:  &timedataset.TimeDataset{T: days, Y: timedataset.GenerateConstY(10, 0)},
			err: ErrNonPositive,
		},
		"missing regressor": {
			opt: &Options{Regressors: []string{"temp"}},
			td:  &timedataset.TimeDataset{T: days, Y: timedataset.GenerateConstY(10, 1)},
			err: ErrMissingRegressor,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			opt := td.opt
			if opt == nil {
				opt = bareOptions()
			}
			f, err := New(opt)
			require.NoError(t, err)
			assert.ErrorIs(t, f.Fit(td.td), td.err)
		})
	}
}

func TestPredictErrors(t *testing.T) {
	f, err := New(bareOptions())
	require.NoError(t, err)

	_, err = f.Predict([]time.Time{time.Now()}, nil)
	assert.ErrorIs(t, err, ErrUntrainedForecast)
	_, err = f.PredictDays(1)
	assert.ErrorIs(t, err, ErrUntrainedForecast)
	_, err = f.Coefficients()
	assert.ErrorIs(t, err, ErrUntrainedForecast)
	_, err = f.Model()
	assert.ErrorIs(t, err, ErrUntrainedForecast)

	td := timedataset.GenerateDailyDemand(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), 60, 1)
	f, err = New(&Options{Regressors: []string{"temp"}})
	require.NoError(t, err)
	require.NoError(t, f.Fit(td))

	_, err = f.Predict(td.T[:2], map[string][]float64{"temp": {1, 2, 3}})
	assert.ErrorIs(t, err, ErrRegressorLen)

	res, err := f.PredictDays(0)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Len())
}

func TestRegressorCarryForward(t *testing.T) {
	days := timedataset.GenerateDays(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), 40)
	temp := make([]float64, len(days))
	y := make([]float64, len(days))
	for i := range days {
		temp[i] = float64(i % 5)
		y[i] = 10 + 3*temp[i]
	}
	td, err := timedataset.NewDataset(days, y, map[string][]float64{"temp": temp})
	require.NoError(t, err)

	f, err := New(&Options{Regressors: []string{"temp"}})
	require.NoError(t, err)
	require.NoError(t, f.Fit(td))

	future := timedataset.Days(days).Next(3)
	res, err := f.Predict(future, map[string][]float64{"temp": {2, math.NaN()}})
	require.NoError(t, err)
	assert.InDelta(t, res.Forecast[0], res.Forecast[1], 1e-9)
	assert.InDelta(t, res.Forecast[1], res.Forecast[2], 1e-9)

	held, err := f.PredictDays(1)
	require.NoError(t, err)
	last := temp[len(temp)-1]
	assert.InDelta(t, 3*(last-2), held.Components.Regressors[0]-res.Components.Regressors[0], 1e-6)
}

func TestModelRoundTrip(t *testing.T) {
	td := timedataset.GenerateDailyDemand(time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC), 2*365, 11)

	opt := NewDefaultOptions()
	opt.Regressors = []string{"temp"}
	f, err := New(opt)
	require.NoError(t, err)
	require.NoError(t, f.Fit(td))

	model, err := f.Model()
	require.NoError(t, err)
	out, err := json.Marshal(model)
	require.NoError(t, err)

	var decoded Model
	require.NoError(t, json.Unmarshal(out, &decoded))
	restored, err := NewFromModel(decoded)
	require.NoError(t, err)

	expected, err := f.PredictDays(60)
	require.NoError(t, err)
	actual, err := restored.PredictDays(60)
	require.NoError(t, err)

	assert.InDeltaSlice(t, expected.Forecast, actual.Forecast, 1e-9)
	assert.InDeltaSlice(t, expected.Upper, actual.Upper, 1e-9)
	assert.Equal(t, f.Scores(), restored.Scores())
	assert.Equal(t, len(f.FeatureLabels()), len(restored.FeatureLabels()))
}

func TestNewFromModelMissingRegressor(t *testing.T) {
	_, err := NewFromModel(Model{Options: &Options{Regressors: []string{"temp"}}})
	assert.ErrorIs(t, err, ErrMissingRegressor)
}
