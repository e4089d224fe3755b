package timedataset

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

var (
	ErrNoTrainingData     = errors.New("no training data")
	ErrNonMontonic        = errors.New("time feature is not monotonic")
	ErrDatasetLenMismatch = errors.New("time feature has a different length than observations")
	ErrCovariateLen       = errors.New("covariate has a different length than observations")
	ErrNonContiguous      = errors.New("daily series has a gap")
)

// Day is the spacing between consecutive points of a daily series.
const Day = 24 * time.Hour

// Observation is a single point of a TimeDataset along with any covariate values.
type Observation struct {
	T          time.Time
	Y          float64
	Covariates map[string]float64
}

// TimeDataset represents a time series storing a slice of time points and values.
// Both must be of the same length. X optionally holds named covariate columns which
// must also match the length of T.
type TimeDataset struct {
	T []time.Time
	Y []float64
	X map[string][]float64
}

// NewUnivariateDataset returns an instance of a TimeDataset given a time and value slice.
func NewUnivariateDataset(t []time.Time, y []float64) (*TimeDataset, error) {
	return NewDataset(t, y, nil)
}

// NewDataset returns a TimeDataset with covariates. Inputs are copied.
func NewDataset(t []time.Time, y []float64, x map[string][]float64) (*TimeDataset, error) {
	if len(y) == 0 {
		return nil, ErrNoTrainingData
	}
	if len(t) != len(y) {
		return nil, fmt.Errorf(
			"time feature has length of %d, but values has a length of %d, %w",
			len(t), len(y), ErrDatasetLenMismatch,
		)
	}
	for name, col := range x {
		if len(col) != len(y) {
			return nil, fmt.Errorf("covariate %q has length %d, expected %d, %w", name, len(col), len(y), ErrCovariateLen)
		}
	}

	var lastT time.Time
	for i := 0; i < len(t); i++ {
		currT := t[i]
		if currT.Before(lastT) || currT.Equal(lastT) {
			return nil, fmt.Errorf("non-monotonic at %d, %w", i, ErrNonMontonic)
		}
		lastT = currT
	}

	td := &TimeDataset{T: t, Y: y, X: x}
	return td.Copy(), nil
}

// Len returns the number of observations
func (td *TimeDataset) Len() int {
	if td == nil {
		return 0
	}
	return len(td.T)
}

// Copy returns a deep copy of the dataset
func (td *TimeDataset) Copy() *TimeDataset {
	tSeries := make([]time.Time, len(td.T))
	ySeries := make([]float64, len(td.T))
	copy(tSeries, td.T)
	copy(ySeries, td.Y)
	res := &TimeDataset{
		T: tSeries,
		Y: ySeries,
	}
	if td.X != nil {
		res.X = make(map[string][]float64, len(td.X))
		for name, col := range td.X {
			c := make([]float64, len(col))
			copy(c, col)
			res.X[name] = c
		}
	}
	return res
}

// CovariateNames returns the sorted covariate column names
func (td *TimeDataset) CovariateNames() []string {
	if td == nil {
		return nil
	}
	names := make([]string, 0, len(td.X))
	for name := range td.X {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// At returns the observation at position i. Negative positions index from the end.
func (td *TimeDataset) At(i int) Observation {
	if i < 0 {
		i += len(td.T)
	}
	obs := Observation{T: td.T[i], Y: td.Y[i]}
	if len(td.X) > 0 {
		obs.Covariates = make(map[string]float64, len(td.X))
		for name, col := range td.X {
			obs.Covariates[name] = col[i]
		}
	}
	return obs
}

// Tail returns a copy of the last n observations. If n exceeds the length of the
// dataset the whole dataset is copied.
func (td *TimeDataset) Tail(n int) *TimeDataset {
	if td == nil {
		return nil
	}
	if n > len(td.T) {
		n = len(td.T)
	}
	if n < 0 {
		n = 0
	}
	start := len(td.T) - n
	res := &TimeDataset{T: td.T[start:], Y: td.Y[start:]}
	if td.X != nil {
		res.X = make(map[string][]float64, len(td.X))
		for name, col := range td.X {
			res.X[name] = col[start:]
		}
	}
	return res.Copy()
}

// DropNan returns a copy of the dataset without any observation whose value is NaN
func (td *TimeDataset) DropNan() *TimeDataset {
	if td == nil {
		return nil
	}
	res := &TimeDataset{
		T: make([]time.Time, 0, len(td.T)),
		Y: make([]float64, 0, len(td.Y)),
	}
	if td.X != nil {
		res.X = make(map[string][]float64, len(td.X))
		for name := range td.X {
			res.X[name] = make([]float64, 0, len(td.Y))
		}
	}
	for i := 0; i < len(td.T); i++ {
		if math.IsNaN(td.Y[i]) {
			continue
		}
		res.T = append(res.T, td.T[i])
		res.Y = append(res.Y, td.Y[i])
		for name, col := range td.X {
			res.X[name] = append(res.X[name], col[i])
		}
	}
	return res
}

// ValidateDaily checks that consecutive observations are exactly one calendar day apart
func (td *TimeDataset) ValidateDaily() error {
	if td == nil || len(td.T) == 0 {
		return ErrNoTrainingData
	}
	for i := 1; i < len(td.T); i++ {
		expected := td.T[i-1].AddDate(0, 0, 1)
		if !td.T[i].Equal(expected) {
			return fmt.Errorf("expected %s after %s but got %s, %w",
				expected.Format(time.DateOnly), td.T[i-1].Format(time.DateOnly),
				td.T[i].Format(time.DateOnly), ErrNonContiguous)
		}
	}
	return nil
}
