package service

import (
	"context"
	"sync"
	"time"

	"github.com/aouyang1/go-demand/dataset"
	"github.com/aouyang1/go-demand/metrics"
	"github.com/aouyang1/go-demand/pipeline"
	"github.com/aouyang1/go-demand/plot"
	"github.com/aouyang1/go-demand/store"
)

// Snapshot is everything the front-ends read. A snapshot is never modified once it is
// cached.
type Snapshot struct {
	Frame    *dataset.Frame
	Analysis *pipeline.Analysis
	Runs     map[string]*store.Run
	Charts   []plot.Named
	Loaded   time.Time
}

func (s *Snapshot) Aggregates() *Aggregates {
	a := s.Analysis
	return &Aggregates{
		Monthly:     a.Monthly,
		Yearly:      a.Yearly,
		MonthOfYear: a.MonthOfYear,
		Heatmap:     a.Heatmap,
		Holiday:     a.Holiday,
	}
}

// LoadFunc builds a fresh snapshot
type LoadFunc func(ctx context.Context) (*Snapshot, error)

// Cache holds the most recent snapshot. The first Get populates it and Invalidate
// drops it so the next Get loads again.
type Cache struct {
	mu       sync.Mutex
	snap     *Snapshot
	load     LoadFunc
	recorder *metrics.Recorder
}

func NewCache(load LoadFunc, rec *metrics.Recorder) *Cache {
	return &Cache{load: load, recorder: rec}
}

// Get returns the cached snapshot, loading it on a miss. Concurrent misses wait on the
// same load instead of loading twice.
func (c *Cache) Get(ctx context.Context) (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snap != nil {
		c.recorder.ObserveCache(true)
		return c.snap, nil
	}
	c.recorder.ObserveCache(false)

	snap, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	c.snap = snap
	return snap, nil
}

func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.snap = nil
	c.mu.Unlock()
}
