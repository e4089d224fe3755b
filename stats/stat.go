// Package stats holds diagnostics shared by the forecasting models
package stats

import (
	"errors"
	"maps"
	"math"
	"slices"

	"github.com/aouyang1/go-demand/models"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrMinimumFeatures    = errors.New("need at least 2 features to compute VIF")
	ErrFeatureLenMismatch = errors.New("some feature length is not consistent")
	ErrFeatureLen         = errors.New("must have at least 2 points per feature")
)

// DetectOutliers flags the points lying outside the [lowerPerc, upperPerc] percentile
// band after it is widened on both sides by tukeyFactor times its width. Percentiles
// are clamped to [0, 1].
func DetectOutliers(y []float64, lowerPerc, upperPerc, tukeyFactor float64) []int {
	if len(y) == 0 {
		return nil
	}
	lower, upper := percentileBand(y, max(lowerPerc, 0), min(upperPerc, 1))
	pad := (upper - lower) * max(tukeyFactor, 0)
	lower, upper = lower-pad, upper+pad

	var idx []int
	for i, v := range y {
		if v < lower || v > upper {
			idx = append(idx, i)
		}
	}
	return idx
}

// percentileBand rounds the lower rank down and the upper rank up
func percentileBand(y []float64, lowerPerc, upperPerc float64) (float64, float64) {
	sorted := slices.Clone(y)
	slices.Sort(sorted)
	n := float64(len(sorted))
	lo := min(int(math.Floor(n*lowerPerc)), len(sorted)-1)
	hi := min(int(math.Ceil(n*upperPerc)), len(sorted)-1)
	return sorted[lo], sorted[hi]
}

// VarianceInflationFactor regresses every feature on all the others and returns
// 1 / (1 - R^2) per feature. Perfectly explained features report +Inf.
func VarianceInflationFactor(features map[string][]float64) (map[string]float64, error) {
	if len(features) < 2 {
		return nil, ErrMinimumFeatures
	}
	n := len(features)
	var m int
	for _, feature := range features {
		if len(feature) < 2 {
			return nil, ErrFeatureLen
		}
		if m == 0 {
			m = len(feature)
			continue
		}
		if m != len(feature) {
			return nil, ErrFeatureLenMismatch
		}
	}

	labels := slices.Sorted(maps.Keys(features))

	vif := make(map[string]float64, n)
	x := mat.NewDense(m, n-1, nil)
	for _, label := range labels {
		c := 0
		for _, other := range labels {
			if other == label {
				continue
			}
			x.SetCol(c, features[other])
			c++
		}
		y := mat.NewDense(m, 1, features[label])

		model, err := models.NewOLSRegression(nil)
		if err != nil {
			return nil, err
		}
		if err := model.Fit(x, y); err != nil {
			return nil, err
		}
		predicted, err := model.Predict(x)
		if err != nil {
			return nil, err
		}

		r2 := stat.RSquaredFrom(predicted, features[label], nil)
		vif[label] = 1.0 / (1.0 - r2)
		if r2 >= 1.0 {
			vif[label] = math.Inf(1)
		}
	}
	return vif, nil
}
