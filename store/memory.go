package store

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/aouyang1/go-demand/dataset"
)

// Memory keeps everything in process and is safe for concurrent use
type Memory struct {
	mu     sync.RWMutex
	obs    map[time.Time]dataset.Record
	runs   map[string][]*Run
	closed bool
}

func NewMemory() *Memory {
	return &Memory{
		obs:  make(map[time.Time]dataset.Record),
		runs: make(map[string][]*Run),
	}
}

func copyRecord(rec dataset.Record) dataset.Record {
	rec.Covariates = maps.Clone(rec.Covariates)
	if rec.Holiday != nil {
		h := *rec.Holiday
		rec.Holiday = &h
	}
	return rec
}

func copyRun(run *Run) *Run {
	res := *run
	res.Metrics = maps.Clone(run.Metrics)
	res.Points = slices.Clone(run.Points)
	return &res
}

func (m *Memory) SaveObservations(ctx context.Context, recs []dataset.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.obs[rec.Date] = copyRecord(rec)
	}
	return nil
}

func (m *Memory) Observations(ctx context.Context) ([]dataset.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	res := make([]dataset.Record, 0, len(m.obs))
	for _, rec := range m.obs {
		res = append(res, copyRecord(rec))
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Date.Before(res[j].Date)
	})
	return res, nil
}

func (m *Memory) SaveRun(ctx context.Context, run *Run) error {
	if run.Model == "" {
		return ErrNoModel
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.runs[run.Model] = append(m.runs[run.Model], copyRun(run))
	return nil
}

func (m *Memory) LatestRun(ctx context.Context, model string) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	runs := m.runs[model]
	if len(runs) == 0 {
		return nil, ErrNotFound
	}
	latest := runs[0]
	for _, run := range runs[1:] {
		// later saves win ties on the creation time
		if !run.Created.Before(latest.Created) {
			latest = run
		}
	}
	return copyRun(latest), nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
