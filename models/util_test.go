package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// assertLinearFit fits the model and expects the exact coefficients back with a
// perfect score
func assertLinearFit(t *testing.T, model LinearModel, x, y mat.Matrix, intercept float64, coef []float64, tol float64) {
	t.Helper()
	require.NoError(t, model.Fit(x, y))

	assert.InDelta(t, intercept, model.Intercept(), tol)
	assert.InDeltaSlice(t, coef, model.Coef(), tol)

	r2, err := model.Score(x, y)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, r2, tol)
}

// demandDesign builds n days of a bias column, a linear trend and weekly sine
// harmonics filling the remaining columns. The target is the day of week weighted
// trend so every model has a non trivial signal.
func demandDesign(n, cols int) (*mat.Dense, *mat.Dense) {
	x := mat.NewDense(n, cols, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		x.Set(i, 0, 1)
		if cols > 1 {
			x.Set(i, 1, float64(i))
		}
		for j := 2; j < cols; j++ {
			x.Set(i, j, math.Sin(2*math.Pi*float64((j-1)*i)/7))
		}
		y.Set(i, 0, 100+0.5*float64(i)+10*float64(i%7))
	}
	return x, y
}
