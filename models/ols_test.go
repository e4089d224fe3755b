package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestOLSOptionsValidate(t *testing.T) {
	testData := map[string]struct {
		opt      *OLSOptions
		err      error
		expected *OLSOptions
	}{
		"nil":             {expected: NewDefaultOLSOptions()},
		"valid":           {opt: &OLSOptions{Lambda: 2}, expected: &OLSOptions{Lambda: 2}},
		"negative lambda": {opt: &OLSOptions{Lambda: -1}, err: ErrNegativeLambda},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			opt, err := td.opt.Validate()
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, td.expected, opt)
		})
	}
}

func TestOLSRegression(t *testing.T) {
	tol := 1e-5
	testData := map[string]struct {
		x         [][]float64
		y         []float64
		opt       *OLSOptions
		intercept float64
		coef      []float64
	}{
		"ols model intercept": {
			x: [][]float64{
				{0, 0},
				{3, 5},
				{9, 20},
				{12, 6},
				{15, 10},
			},
			y:         []float64{2, 31, 109, 62, 87},
			intercept: 2.0,
			coef:      []float64{3.0, 4.0},
		},
		"ols model no intercept": {
			x: [][]float64{
				{1, 0, 0},
				{1, 3, 5},
				{1, 9, 20},
				{1, 12, 6},
				{1, 15, 10},
			},
			y: []float64{2, 31, 109, 62, 87},
			opt: &OLSOptions{
				FitIntercept: false,
			},
			intercept: 0.0,
			coef:      []float64{2.0, 3.0, 4.0},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			x := rowsDense(td.x)

			y := mat.NewDense(len(td.y), 1, td.y)

			model, err := NewOLSRegression(td.opt)
			require.Nil(t, err)

			assertLinearFit(t, model, x, y, td.intercept, td.coef, tol)
		})
	}
}

func rowsDense(rows [][]float64) *mat.Dense {
	x := mat.NewDense(len(rows), len(rows[0]), nil)
	for i, row := range rows {
		x.SetRow(i, row)
	}
	return x
}

func TestOLSRidgeShrinks(t *testing.T) {
	x := rowsDense([][]float64{{0}, {1}, {2}, {3}, {4}})
	y := mat.NewDense(5, 1, []float64{1, 3, 5, 7, 9})

	ols, err := NewOLSRegression(nil)
	require.NoError(t, err)
	require.NoError(t, ols.Fit(x, y))

	ridge, err := NewOLSRegression(&OLSOptions{FitIntercept: true, Lambda: 10})
	require.NoError(t, err)
	require.NoError(t, ridge.Fit(x, y))

	assert.InDelta(t, 2.0, ols.Coef()[0], 1e-9)
	// closed form with centered x: sxy / (sxx + lambda) = 20 / (10 + 10)
	assert.InDelta(t, 1.0, ridge.Coef()[0], 1e-9)
	assert.InDelta(t, 3.0, ridge.Intercept(), 1e-9)
}

func TestOLSPredictErrors(t *testing.T) {
	model, err := NewOLSRegression(nil)
	require.NoError(t, err)

	_, err = model.Predict(mat.NewDense(1, 1, []float64{1}))
	assert.ErrorIs(t, err, ErrNotFitted)

	x := mat.NewDense(3, 1, []float64{1, 2, 3})
	require.NoError(t, model.Fit(x, mat.NewDense(3, 1, []float64{2, 4, 6})))

	_, err = model.Predict(mat.NewDense(1, 2, []float64{1, 2}))
	assert.ErrorIs(t, err, ErrFeatureLenMismatch)

	err = model.Fit(x, mat.NewDense(2, 1, []float64{1, 2}))
	assert.ErrorIs(t, err, ErrTargetLenMismatch)
}

func BenchmarkOLSRegression(b *testing.B) {
	x, y := demandDesign(1000, 12)
	opt := &OLSOptions{Lambda: 1}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		model, err := NewOLSRegression(opt)
		if err != nil {
			b.Fatal(err)
		}
		if err := model.Fit(x, y); err != nil {
			b.Fatal(err)
		}
	}
}
