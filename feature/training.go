package feature

import (
	"fmt"
	"math"
	"time"

	"github.com/aouyang1/go-demand/timedataset"
)

// TrainingSet holds one row per target day that has a full lookback window
type TrainingSet struct {
	T []time.Time
	X Set
	Y []float64
}

// NewTrainingSet derives the default features for every day of the dataset after the first
// MaxLookback days. Rows with a NaN in any feature or target are dropped.
func NewTrainingSet(td *timedataset.TimeDataset) (*TrainingSet, error) {
	if td.Len() <= MaxLookback {
		return nil, fmt.Errorf("need more than %d observations but have %d, %w",
			MaxLookback, td.Len(), ErrInsufficientHistory)
	}

	labels := NewLabels(DefaultLabels(td.CovariateNames()))
	cols := make([][]float64, labels.Len())
	ts := &TrainingSet{}

	for pos := MaxLookback; pos < td.Len(); pos++ {
		obs := td.At(pos)
		v, err := NewVector(obs.T, td.Y, pos, obs.Covariates)
		if err != nil {
			return nil, err
		}
		row, err := v.Row(labels)
		if err != nil {
			return nil, err
		}
		if hasNaN(row) || math.IsNaN(obs.Y) {
			continue
		}
		for i, val := range row {
			cols[i] = append(cols[i], val)
		}
		ts.T = append(ts.T, obs.T)
		ts.Y = append(ts.Y, obs.Y)
	}
	if len(ts.Y) == 0 {
		return nil, fmt.Errorf("no complete rows, %w", ErrInsufficientHistory)
	}

	ts.X = NewSet()
	for i, l := range labels.Labels() {
		ts.X.Add(l, cols[i])
	}
	return ts, nil
}

// Len returns the number of training rows
func (ts *TrainingSet) Len() int {
	if ts == nil {
		return 0
	}
	return len(ts.Y)
}

func hasNaN(row []float64) bool {
	for _, v := range row {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// Split returns the first n rows and the remaining rows. n is clamped to the number of
// rows.
func (ts *TrainingSet) Split(n int) (*TrainingSet, *TrainingSet) {
	n = min(max(n, 0), ts.Len())
	head := &TrainingSet{T: ts.T[:n], X: NewSet(), Y: ts.Y[:n]}
	tail := &TrainingSet{T: ts.T[n:], X: NewSet(), Y: ts.Y[n:]}
	for _, d := range ts.X {
		head.X.Add(d.F, d.Data[:n])
		tail.X.Add(d.F, d.Data[n:])
	}
	return head, tail
}
