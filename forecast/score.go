package forecast

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var ErrResLenMismatch = errors.New("predicted and actual have different lengths")

// Scores are the in-sample accuracy of a fit. Points where either series is NaN are
// left out of every score.
type Scores struct {
	MSE  float64 `json:"mse"`
	MAPE float64 `json:"mape"`
	R2   float64 `json:"r2"`
	MAE  float64 `json:"mae"`
	RMSE float64 `json:"rmse"`
}

// NewScores scores predicted against actual
func NewScores(predicted, actual []float64) (*Scores, error) {
	p, a, err := defined(predicted, actual)
	if err != nil {
		return nil, err
	}
	mse := meanSquared(p, a)
	return &Scores{
		MSE:  mse,
		MAPE: meanPercent(p, a),
		R2:   rSquared(p, a),
		MAE:  meanAbsolute(p, a),
		RMSE: math.Sqrt(mse),
	}, nil
}

// defined drops the pairs where either value is NaN
func defined(predicted, actual []float64) ([]float64, []float64, error) {
	if len(predicted) != len(actual) {
		return nil, nil, fmt.Errorf("expected %d, but got %d, %w", len(actual), len(predicted), ErrResLenMismatch)
	}
	p := make([]float64, 0, len(predicted))
	a := make([]float64, 0, len(actual))
	for i, v := range actual {
		if math.IsNaN(v) || math.IsNaN(predicted[i]) {
			continue
		}
		p = append(p, predicted[i])
		a = append(a, v)
	}
	return p, a, nil
}

func meanSquared(p, a []float64) float64 {
	if len(a) == 0 {
		return 0
	}
	d := floats.Distance(p, a, 2)
	return d * d / float64(len(a))
}

func meanAbsolute(p, a []float64) float64 {
	if len(a) == 0 {
		return 0
	}
	return floats.Distance(p, a, 1) / float64(len(a))
}

// meanPercent skips zero actuals
func meanPercent(p, a []float64) float64 {
	var sum float64
	var n int
	for i, v := range a {
		if v == 0 {
			continue
		}
		sum += math.Abs((v - p[i]) / v)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// rSquared treats a constant actual series as a perfect fit
func rSquared(p, a []float64) float64 {
	r2 := stat.RSquaredFrom(p, a, nil)
	if math.IsNaN(r2) {
		return 1
	}
	return r2
}

// MSE is the mean squared error. Zero is a perfect match.
func MSE(predicted, actual []float64) (float64, error) {
	p, a, err := defined(predicted, actual)
	if err != nil {
		return 0, err
	}
	return meanSquared(p, a), nil
}

// MAE is the mean absolute error in the units of the series
func MAE(predicted, actual []float64) (float64, error) {
	p, a, err := defined(predicted, actual)
	if err != nil {
		return 0, err
	}
	return meanAbsolute(p, a), nil
}

func RMSE(predicted, actual []float64) (float64, error) {
	mse, err := MSE(predicted, actual)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAPE is the mean of abs((y-yhat)/y) as a fraction
func MAPE(predicted, actual []float64) (float64, error) {
	p, a, err := defined(predicted, actual)
	if err != nil {
		return 0, err
	}
	return meanPercent(p, a), nil
}

// RSquared is 1 for a perfect fit and 0 when the prediction explains nothing beyond
// the mean
func RSquared(predicted, actual []float64) (float64, error) {
	p, a, err := defined(predicted, actual)
	if err != nil {
		return 0, err
	}
	return rSquared(p, a), nil
}
