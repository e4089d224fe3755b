package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aouyang1/go-demand/export"
	"github.com/aouyang1/go-demand/models"
	"github.com/aouyang1/go-demand/plot"
	"github.com/aouyang1/go-demand/recursive"
	"github.com/aouyang1/go-demand/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var demoStart = time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)

func writeDemo(t *testing.T, days int) string {
	path := filepath.Join(t.TempDir(), "demand.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, GenerateDemo(demoStart, days, 7).WriteCSV(f))
	return path
}

func testConfig(t *testing.T, days int) *Config {
	cfg := NewDefaultConfig()
	cfg.DataPath = writeDemo(t, days)
	cfg.DecompositionHorizon = 60
	cfg.Boosting = &models.GradientBoostingOptions{
		NEstimators:    20,
		MaxDepth:       3,
		LearningRate:   0.3,
		MinSamplesLeaf: 5,
		Lambda:         1,
	}
	return cfg
}

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NotNil(t, cfg.Forecast)
	assert.True(t, cfg.Forecast.UseLog)
	assert.Equal(t, []string{plot.DefaultTemperature}, cfg.Forecast.Regressors)

	res, err := cfg.Validate()
	require.NoError(t, err)
	assert.True(t, res.Forecast.UseLog)

	res, err = (&Config{}).Validate()
	require.NoError(t, err)
	assert.True(t, res.Forecast.UseLog)
}

func TestConfigValidate(t *testing.T) {
	testData := map[string]struct {
		cfg *Config
		err error
	}{
		"nil":                  {cfg: nil},
		"negative horizon":     {cfg: &Config{Horizon: -1}, err: ErrNegativeHorizon},
		"negative decomp":      {cfg: &Config{DecompositionHorizon: -1}, err: ErrNegativeHorizon},
		"negative holdout":     {cfg: &Config{Holdout: -1}, err: ErrNegativeHoldout},
		"defaults filled":      {cfg: &Config{}},
		"bad boosting options": {cfg: &Config{Boosting: &models.GradientBoostingOptions{}}, err: models.ErrInvalidEstimators},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res, err := td.cfg.Validate()
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, res.Forecast)
			assert.NotNil(t, res.Boosting)
			assert.Equal(t, plot.DefaultTemperature, res.Temperature)
		})
	}
}

func TestRun(t *testing.T) {
	cfg := testConfig(t, 2*365)
	outDir := t.TempDir()
	cfg.ChartsPath = filepath.Join(outDir, "dashboards", "index.html")

	st := store.NewMemory()
	p, err := New(cfg, st, export.NewCSV(outDir), nil)
	require.NoError(t, err)

	ctx := context.Background()
	res, err := p.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2*365, res.Frame.Len())
	assert.Equal(t, 2*365, res.Analysis.Summary.Records)
	assert.Len(t, res.Analysis.Yearly, 2)
	assert.Len(t, res.Analysis.Holiday, 2)
	assert.Empty(t, res.Analysis.Gaps)

	require.NotNil(t, res.Decomposition)
	assert.Equal(t, 60, res.Decomposition.Forecast.Len())
	assert.Equal(t, 2*365, res.Decomposition.Fitted.Len())
	assert.Less(t, res.Decomposition.Run.Metrics["mape"], 0.1)
	for i := range res.Decomposition.Forecast.T {
		require.Greater(t, res.Decomposition.Forecast.Lower[i], 0.0)
	}

	require.NotNil(t, res.Boosting)
	assert.Len(t, res.Boosting.Future, DefaultHorizon)
	assert.Len(t, res.Boosting.TestPredicted, DefaultHoldout)
	assert.Equal(t, res.Frame.Dates[res.Frame.Len()-1].AddDate(0, 0, 1), res.Boosting.Future[0].Date)
	assert.Greater(t, res.Boosting.TestMAE, 0.0)
	assert.Equal(t, recursive.RollingHistorical.String(), res.Boosting.Run.Rolling)

	obs, err := st.Observations(ctx)
	require.NoError(t, err)
	assert.Len(t, obs, 2*365)

	run, err := st.LatestRun(ctx, store.ModelBoosting)
	require.NoError(t, err)
	assert.Equal(t, res.Boosting.Run.ID, run.ID)
	run, err = st.LatestRun(ctx, store.ModelDecomposition)
	require.NoError(t, err)
	assert.True(t, run.Bounded)

	for _, name := range []string{"xgboost_forecast.csv", "prophet_forecast.csv"} {
		data, err := os.ReadFile(filepath.Join(outDir, name))
		require.NoError(t, err)
		assert.Greater(t, strings.Count(string(data), "\n"), 30)
	}

	html, err := os.ReadFile(cfg.ChartsPath)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Gradient Boosting Forecast")
	assert.Len(t, res.Charts, 10)
}

func TestRunFromStore(t *testing.T) {
	cfg := testConfig(t, 400)
	st := store.NewMemory()
	p, err := New(cfg, st, nil, nil)
	require.NoError(t, err)
	_, err = p.Run(context.Background())
	require.NoError(t, err)

	cfg.DataPath = ""
	p, err = New(cfg, st, nil, nil)
	require.NoError(t, err)
	frame, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 400, frame.Len())

	p, err = New(cfg, store.NewMemory(), nil, nil)
	require.NoError(t, err)
	_, err = p.Load(context.Background())
	assert.ErrorIs(t, err, ErrNoData)
}

func TestRunModel(t *testing.T) {
	cfg := testConfig(t, 200)
	cfg.Horizon = 7
	outDir := t.TempDir()
	st := store.NewMemory()
	p, err := New(cfg, st, export.NewCSV(outDir), nil)
	require.NoError(t, err)
	ctx := context.Background()

	testData := map[string]struct {
		model  string
		points int
		file   string
		err    error
	}{
		"boosting":      {model: store.ModelBoosting, points: 7, file: "xgboost_forecast.csv"},
		"decomposition": {model: store.ModelDecomposition, points: 60, file: "prophet_forecast.csv"},
		"unknown":       {model: "prophet", err: ErrUnknownModel},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			run, err := p.RunModel(ctx, td.model)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, run.Points, td.points)

			stored, err := st.LatestRun(ctx, td.model)
			require.NoError(t, err)
			assert.Equal(t, run.ID, stored.ID)
			assert.FileExists(t, filepath.Join(outDir, td.file))
		})
	}
}

func TestGenerateDemo(t *testing.T) {
	f := GenerateDemo(demoStart, 60, 1)
	require.Equal(t, 60, f.Len())
	require.Len(t, f.Holiday, 60)

	// 2019-01-06 is a Sunday and 2019-01-26 is Republic Day
	assert.True(t, f.Holiday[5])
	assert.True(t, f.Holiday[25])
	assert.False(t, f.Holiday[0])
	assert.Contains(t, f.Covariates, "temp")
}
