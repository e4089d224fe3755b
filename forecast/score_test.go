package forecast

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScores(t *testing.T) {
	testData := map[string]struct {
		predicted []float64
		actual    []float64
		expected  *Scores
		err       error
	}{
		"length mismatch": {
			predicted: []float64{1},
			actual:    []float64{1, 2},
			err:       ErrResLenMismatch,
		},
		"perfect": {
			predicted: []float64{1, 2, 3},
			actual:    []float64{1, 2, 3},
			expected:  &Scores{R2: 1},
		},
		"off by one and three": {
			predicted: []float64{2, 5},
			actual:    []float64{1, 2},
			expected: &Scores{
				MSE:  5,
				MAPE: 1.25,
				R2:   1 - 10/0.5,
				MAE:  2,
				RMSE: math.Sqrt(5),
			},
		},
		"nan skipped": {
			predicted: []float64{2, math.NaN(), 4, 3},
			actual:    []float64{1, 7, math.NaN(), 3},
			expected: &Scores{
				MSE:  0.5,
				MAPE: 0.5,
				R2:   0.5,
				MAE:  0.5,
				RMSE: math.Sqrt(0.5),
			},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res, err := NewScores(td.predicted, td.actual)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, td.expected.MSE, res.MSE, 1e-9)
			assert.InDelta(t, td.expected.MAPE, res.MAPE, 1e-9)
			assert.InDelta(t, td.expected.MAE, res.MAE, 1e-9)
			assert.InDelta(t, td.expected.RMSE, res.RMSE, 1e-9)
			assert.InDelta(t, td.expected.R2, res.R2, 1e-9)
		})
	}
}

func TestRMSE(t *testing.T) {
	res, err := RMSE([]float64{0, 0}, []float64{3, 4})
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(12.5), res, 1e-9)

	_, err = RMSE([]float64{0}, nil)
	assert.ErrorIs(t, err, ErrResLenMismatch)
}
