// Package config loads the demand settings from a yaml or json file with environment
// overrides
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/aouyang1/go-demand/dataset"
	"github.com/aouyang1/go-demand/export"
	"github.com/aouyang1/go-demand/forecast"
	"github.com/aouyang1/go-demand/models"
	"github.com/aouyang1/go-demand/pipeline"
	"github.com/aouyang1/go-demand/recursive"
	"github.com/aouyang1/go-demand/server"
)

// EnvPrefix marks the environment overrides. Nested keys are separated by a double
// underscore, DEMAND_SERVER__ADDR sets server.addr.
const EnvPrefix = "DEMAND_"

const DefaultStorePath = "data/demand.db"

var ErrUnsupportedFormat = errors.New("unsupported config format")

type Config struct {
	Data     DataConfig                      `json:"data"`
	Store    StoreConfig                     `json:"store"`
	Pipeline PipelineConfig                  `json:"pipeline"`
	Forecast *forecast.Options               `json:"forecast"`
	Boosting *models.GradientBoostingOptions `json:"boosting"`
	Server   server.Config                   `json:"server"`
	Export   export.Config                   `json:"export"`
	Logging  LoggingConfig                   `json:"logging"`
}

// DataConfig locates the source csv. An empty path reads the stored observations.
type DataConfig struct {
	Path    string          `json:"path"`
	Dataset dataset.Options `json:"dataset"`
}

// StoreConfig locates the sqlite database. An empty path keeps everything in memory.
type StoreConfig struct {
	Path string `json:"path"`
}

type PipelineConfig struct {
	ChartsPath           string                  `json:"charts_path"`
	Temperature          string                  `json:"temperature"`
	Horizon              int                     `json:"horizon"`
	Holdout              int                     `json:"holdout"`
	DecompositionHorizon int                     `json:"decomposition_horizon"`
	Rolling              recursive.RollingSource `json:"rolling"`
}

func NewDefaultConfig() *Config {
	p := pipeline.NewDefaultConfig()
	return &Config{
		Data:  DataConfig{Path: p.DataPath},
		Store: StoreConfig{Path: DefaultStorePath},
		Pipeline: PipelineConfig{
			ChartsPath:           "dashboards/index.html",
			Temperature:          p.Temperature,
			Horizon:              p.Horizon,
			Holdout:              p.Holdout,
			DecompositionHorizon: p.DecompositionHorizon,
			Rolling:              p.Rolling,
		},
		Forecast: p.Forecast,
		Boosting: p.Boosting,
		Server:   *server.NewDefaultConfig(),
		Export:   export.Config{CSVDir: "data"},
		Logging:  NewDefaultLoggingConfig(),
	}
}

// Load reads the file at path over the defaults and applies the environment overrides.
// An empty path only applies the environment.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("%s, %w", ext, ErrUnsupportedFormat)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("unable to load %s, %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("unable to load environment, %w", err)
	}

	cfg := NewDefaultConfig()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("unable to decode config, %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envKey(s string) string {
	s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func (c *Config) Validate() error {
	if _, err := c.PipelineConfig().Validate(); err != nil {
		return fmt.Errorf("invalid pipeline config, %w", err)
	}
	if _, err := c.Server.Validate(); err != nil {
		return fmt.Errorf("invalid server config, %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("invalid logging config, %w", err)
	}
	return nil
}

// PipelineConfig assembles the pipeline settings spread over the data, pipeline,
// forecast and boosting sections
func (c *Config) PipelineConfig() *pipeline.Config {
	return &pipeline.Config{
		DataPath:             c.Data.Path,
		Dataset:              c.Data.Dataset,
		ChartsPath:           c.Pipeline.ChartsPath,
		Temperature:          c.Pipeline.Temperature,
		Horizon:              c.Pipeline.Horizon,
		Holdout:              c.Pipeline.Holdout,
		DecompositionHorizon: c.Pipeline.DecompositionHorizon,
		Rolling:              c.Pipeline.Rolling,
		Forecast:             c.Forecast,
		Boosting:             c.Boosting,
	}
}
