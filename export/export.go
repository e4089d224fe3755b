// Package export publishes forecast runs to files, time series databases and brokers
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aouyang1/go-demand/store"
)

// Sink receives every finished forecast run
type Sink interface {
	Export(ctx context.Context, run *store.Run) error
}

// Closer is implemented by sinks holding connections
type Closer interface {
	Close() error
}

// Config enables each sink. Zero values leave a sink disabled.
type Config struct {
	CSVDir string        `json:"csv_dir"`
	Influx *InfluxConfig `json:"influx"`
	MQTT   *MQTTConfig   `json:"mqtt"`
}

// New connects every enabled sink. When none is enabled an empty Multi is returned.
func New(cfg Config) (Multi, error) {
	var sinks Multi
	if cfg.CSVDir != "" {
		sinks = append(sinks, NewCSV(cfg.CSVDir))
	}
	if cfg.Influx != nil && cfg.Influx.URL != "" {
		sinks = append(sinks, NewInflux(*cfg.Influx))
	}
	if cfg.MQTT != nil && cfg.MQTT.Broker != "" {
		m, err := NewMQTT(*cfg.MQTT)
		if err != nil {
			_ = sinks.Close()
			return nil, fmt.Errorf("unable to connect mqtt sink, %w", err)
		}
		sinks = append(sinks, m)
	}
	return sinks, nil
}

// Multi fans a run out to every sink. A failing sink does not stop the others.
type Multi []Sink

func (m Multi) Export(ctx context.Context, run *store.Run) error {
	var errs []error
	for _, s := range m {
		if err := s.Export(ctx, run); err != nil {
			slog.Warn("unable to export forecast run", "model", run.Model, "run", run.ID.String(), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink that holds a connection
func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if c, ok := s.(Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
