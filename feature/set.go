package feature

import (
	"slices"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Data pairs a feature with its column of values
type Data struct {
	F    Feature
	Data []float64
}

// Set holds the feature columns of a design matrix keyed by feature label. Columns
// are laid out in label order so two sets with the same features produce the same
// matrix layout.
type Set map[string]Data

func NewSet() Set {
	return make(Set)
}

// Add replaces any column already stored under the feature's label
func (s Set) Add(f Feature, data []float64) Set {
	s[f.String()] = Data{F: f, Data: data}
	return s
}

func (s Set) Get(f Feature) ([]float64, bool) {
	d, exists := s[f.String()]
	return d.Data, exists
}

// Update merges other into the set
func (s Set) Update(other Set) Set {
	for k, v := range other {
		s[k] = v
	}
	return s
}

// Len is the number of rows, taken from any column
func (s Set) Len() int {
	for _, d := range s {
		return len(d.Data)
	}
	return 0
}

func (s Set) Labels() *Labels {
	if s == nil {
		return nil
	}
	feats := make([]Feature, 0, len(s))
	for _, d := range s {
		feats = append(feats, d.F)
	}
	slices.SortFunc(feats, func(a, b Feature) int {
		return strings.Compare(a.String(), b.String())
	})
	return NewLabels(feats)
}

// Matrix lays the set out as rows of observations and columns of features. With
// intercept the first column is all ones. Empty sets return nil.
func (s Set) Matrix(intercept bool) *mat.Dense {
	rows := s.Len()
	if len(s) == 0 || rows == 0 {
		return nil
	}

	offset := 0
	if intercept {
		offset = 1
	}
	m := mat.NewDense(rows, len(s)+offset, nil)
	if intercept {
		for i := 0; i < rows; i++ {
			m.Set(i, 0, 1)
		}
	}
	for j, l := range s.Labels().Labels() {
		m.SetCol(j+offset, s[l.String()].Data)
	}
	return m
}
