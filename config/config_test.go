package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aouyang1/go-demand/pipeline"
	"github.com/aouyang1/go-demand/recursive"
	"github.com/aouyang1/go-demand/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, data string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `data:
  path: "input/demand.csv"
  dataset:
    demand_column: "load"
store:
  path: ""
pipeline:
  horizon: 14
  holdout: 60
  rolling: extended
forecast:
  interval_z_score: 1.96
boosting:
  n_estimators: 50
server:
  addr: ":8080"
  mode: reactive
  read_timeout: 3s
export:
  csv_dir: "out"
  mqtt:
    broker: "tcp://localhost:1883"
    topic_prefix: "grid/forecast"
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "input/demand.csv", cfg.Data.Path)
	assert.Equal(t, "load", cfg.Data.Dataset.DemandColumn)
	assert.Equal(t, "", cfg.Store.Path)
	assert.Equal(t, 14, cfg.Pipeline.Horizon)
	assert.Equal(t, 60, cfg.Pipeline.Holdout)
	assert.Equal(t, recursive.RollingExtended, cfg.Pipeline.Rolling)
	assert.Equal(t, pipeline.DefaultDecompositionHorizon, cfg.Pipeline.DecompositionHorizon)
	assert.InDelta(t, 1.96, cfg.Forecast.IntervalZScore, 1e-9)
	assert.True(t, cfg.Forecast.UseLog)
	assert.Equal(t, 50, cfg.Boosting.NEstimators)
	assert.Equal(t, 6, cfg.Boosting.MaxDepth)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, server.ModeReactive, cfg.Server.Mode)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "out", cfg.Export.CSVDir)
	require.NotNil(t, cfg.Export.MQTT)
	assert.Equal(t, "grid/forecast", cfg.Export.MQTT.TopicPrefix)
	assert.Nil(t, cfg.Export.Influx)
	assert.Equal(t, FormatJSON, cfg.Logging.Format)

	pcfg := cfg.PipelineConfig()
	assert.Equal(t, "input/demand.csv", pcfg.DataPath)
	assert.Equal(t, 14, pcfg.Horizon)
	assert.Equal(t, recursive.RollingExtended, pcfg.Rolling)
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "config.json", `{"pipeline": {"horizon": 7}, "server": {"mode": "classic"}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Pipeline.Horizon)
	assert.Equal(t, pipeline.DefaultDataPath, cfg.Data.Path)
	assert.Equal(t, DefaultStorePath, cfg.Store.Path)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("DEMAND_SERVER__ADDR", "0.0.0.0:9000")
	t.Setenv("DEMAND_PIPELINE__HORIZON", "45")
	t.Setenv("DEMAND_PIPELINE__ROLLING", "extended")
	t.Setenv("DEMAND_LOGGING__LEVEL", "warn")
	t.Setenv("DEMAND_FORECAST__USE_LOG", "false")

	path := writeFile(t, "config.yaml", "pipeline:\n  horizon: 10\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
	assert.Equal(t, 45, cfg.Pipeline.Horizon)
	assert.Equal(t, recursive.RollingExtended, cfg.Pipeline.Rolling)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.False(t, cfg.Forecast.UseLog)
	assert.InDelta(t, 1.96, cfg.Forecast.IntervalZScore, 1e-9)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, 45, cfg.Pipeline.Horizon)
	assert.False(t, cfg.Forecast.UseLog)
}

func TestLoadErrors(t *testing.T) {
	testData := map[string]struct {
		name string
		data string
		err  error
	}{
		"unsupported format": {name: "config.toml", data: "x = 1", err: ErrUnsupportedFormat},
		"negative horizon":   {name: "config.yaml", data: "pipeline:\n  horizon: -1\n", err: pipeline.ErrNegativeHorizon},
		"unknown mode":       {name: "config.yaml", data: "server:\n  mode: streamlit\n", err: server.ErrUnknownMode},
		"unknown level":      {name: "config.yaml", data: "logging:\n  level: verbose\n", err: ErrUnknownLevel},
		"unknown format":     {name: "config.yaml", data: "logging:\n  format: xml\n", err: ErrUnknownFormat},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, td.name, td.data))
			assert.ErrorIs(t, err, td.err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLogger(t *testing.T) {
	testData := map[string]struct {
		cfg      LoggingConfig
		contains string
		empty    bool
	}{
		"text info":  {cfg: LoggingConfig{Level: "info", Format: FormatText}, contains: "msg=hello"},
		"json":       {cfg: LoggingConfig{Level: "debug", Format: FormatJSON}, contains: `"msg":"hello"`},
		"error only": {cfg: LoggingConfig{Level: "error"}, empty: true},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := td.cfg.Logger(&buf)
			require.NoError(t, err)
			logger.Info("hello", slog.Int("n", 1))
			if td.empty {
				assert.Empty(t, buf.String())
				return
			}
			assert.Contains(t, buf.String(), td.contains)
		})
	}
}
