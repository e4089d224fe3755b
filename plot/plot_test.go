package plot

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/aouyang1/go-demand/dataset"
	"github.com/aouyang1/go-demand/eda"
	"github.com/aouyang1/go-demand/forecast"
	"github.com/aouyang1/go-demand/recursive"
	"github.com/aouyang1/go-demand/timedataset"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFrame() *dataset.Frame {
	td := timedataset.GenerateDailyDemand(time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC), 400, 3)
	holiday := make([]bool, td.Len())
	for i := 0; i < len(holiday); i += 30 {
		holiday[i] = true
	}
	return dataset.FromDataset(td, holiday)
}

func testInputs(t *testing.T) Inputs {
	f := testFrame()
	hol, err := eda.HolidayImpact(f)
	require.NoError(t, err)

	ds, err := f.Dataset()
	require.NoError(t, err)
	opt := forecast.NewDefaultOptions()
	opt.Regressors = []string{DefaultTemperature}
	fc, err := forecast.New(opt)
	require.NoError(t, err)
	require.NoError(t, fc.Fit(ds))
	res, err := fc.PredictDays(30)
	require.NoError(t, err)

	last := f.Dates[f.Len()-1]
	return Inputs{
		Frame:         f,
		Monthly:       eda.MonthlyMeans(f),
		Yearly:        eda.YearlyMeans(f),
		MonthOfYear:   eda.MonthOfYearMeans(f),
		Heatmap:       eda.NewHeatmap(f),
		Holiday:       hol,
		Decomposition: res,
		Boosting: &BoostingSeries{
			HistoryT:      f.Dates[f.Len()-10:],
			HistoryY:      f.Demand[f.Len()-10:],
			TestT:         f.Dates[f.Len()-5:],
			TestPredicted: f.Demand[f.Len()-5:],
			Future: []recursive.Point{
				{Date: last.AddDate(0, 0, 1), Value: 1},
				{Date: last.AddDate(0, 0, 2), Value: 2},
			},
		},
	}
}

func TestLineData(t *testing.T) {
	res := lineData([]float64{1, math.NaN(), 3})
	assert.Equal(t, []opts.LineData{{Value: 1.0}, {Value: missingValue}, {Value: 3.0}}, res)
}

func TestBuild(t *testing.T) {
	testData := map[string]struct {
		in       func(t *testing.T) Inputs
		expected []string
	}{
		"empty": {
			in:       func(t *testing.T) Inputs { return Inputs{} },
			expected: nil,
		},
		"eda only": {
			in: func(t *testing.T) Inputs {
				in := testInputs(t)
				in.Decomposition = nil
				in.Boosting = nil
				return in
			},
			expected: []string{
				NameDemand, NameMonthly, NameYearly, NameMonthOfYear,
				NameTemperature, NameHoliday, NameHeatmap,
			},
		},
		"full": {
			in: testInputs,
			expected: []string{
				NameDemand, NameMonthly, NameYearly, NameMonthOfYear,
				NameTemperature, NameHoliday, NameHeatmap,
				NameDecomposition, NameComponents, NameBoosting,
			},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res := Build(td.in(t))
			var names []string
			for _, n := range res {
				names = append(names, n.Name)
				assert.NotEmpty(t, n.Title)
			}
			assert.Equal(t, td.expected, names)
		})
	}
}

func TestRenderPage(t *testing.T) {
	named := Build(testInputs(t))

	var b bytes.Buffer
	require.NoError(t, RenderPage(&b, "Electricity Demand", named))
	html := b.String()
	assert.Contains(t, html, "<title>Electricity Demand</title>")
	assert.Contains(t, html, "Electricity Demand Over Time")
	assert.Contains(t, html, "Gradient Boosting Forecast")

	c, found := Find(named, NameHeatmap)
	require.True(t, found)
	b.Reset()
	require.NoError(t, c.Chart.Render(&b))
	assert.Contains(t, b.String(), "Electricity Demand Heatmap")

	_, found = Find(named, "unknown")
	assert.False(t, found)
}

func TestCovariateScatterMissing(t *testing.T) {
	_, err := CovariateScatter(testFrame(), "humidity")
	assert.ErrorIs(t, err, ErrMissingCovariate)
}

func TestBoostingForecastAlignment(t *testing.T) {
	in := testInputs(t)
	line := BoostingForecast(*in.Boosting)
	require.Len(t, line.MultiSeries, 3)

	// holdout predictions sit on the last five history days and the forecast after them
	holdout := line.MultiSeries[1].Data.([]opts.LineData)
	require.Len(t, holdout, 12)
	assert.Equal(t, missingValue, holdout[4].Value)
	assert.Equal(t, in.Boosting.TestPredicted[0], holdout[5].Value)

	future := line.MultiSeries[2].Data.([]opts.LineData)
	assert.Equal(t, missingValue, future[9].Value)
	assert.Equal(t, 1.0, future[10].Value)
}
