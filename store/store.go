// Package store persists observations and forecast runs
package store

import (
	"context"
	"errors"
	"time"

	"github.com/aouyang1/go-demand/dataset"
	"github.com/google/uuid"
)

const (
	ModelBoosting      = "boosting"
	ModelDecomposition = "decomposition"
)

var (
	ErrNotFound = errors.New("no run found")
	ErrClosed   = errors.New("store is closed")
	ErrNoModel  = errors.New("run has no model name")
)

// Point is one forecast day. Lower and Upper are only meaningful for bounded runs.
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
	Lower float64   `json:"lower,omitempty"`
	Upper float64   `json:"upper,omitempty"`
}

// Run is a persisted forecast of a single model
type Run struct {
	ID      uuid.UUID          `json:"id"`
	Model   string             `json:"model"`
	Created time.Time          `json:"created"`
	Rolling string             `json:"rolling,omitempty"`
	Bounded bool               `json:"bounded"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
	Points  []Point            `json:"points"`
}

// NewRun stamps a run with a fresh id and the current time
func NewRun(model string, points []Point) *Run {
	return &Run{
		ID:      uuid.New(),
		Model:   model,
		Created: time.Now().UTC().Round(0),
		Metrics: make(map[string]float64),
		Points:  points,
	}
}

// Store persists the prepared observations and every forecast run
type Store interface {
	// SaveObservations upserts records by date
	SaveObservations(ctx context.Context, recs []dataset.Record) error

	// Observations returns every record sorted by date
	Observations(ctx context.Context) ([]dataset.Record, error)

	SaveRun(ctx context.Context, run *Run) error

	// LatestRun returns the most recently created run of the model or ErrNotFound
	LatestRun(ctx context.Context, model string) (*Run, error)

	Close() error
}

// Open returns the sqlite store at path or an in-memory store when path is empty
func Open(path string) (Store, error) {
	if path == "" {
		return NewMemory(), nil
	}
	return NewSQLite(path)
}
