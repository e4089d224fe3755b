package models

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func stepData() (*mat.Dense, *mat.Dense) {
	x := make([]float64, 20)
	y := make([]float64, 20)
	for i := range x {
		x[i] = float64(i)
		if i >= 10 {
			y[i] = 10
		}
	}
	return mat.NewDense(20, 1, x), mat.NewDense(20, 1, y)
}

func TestGradientBoostingOptionsValidate(t *testing.T) {
	testData := map[string]struct {
		opt *GradientBoostingOptions
		err error
	}{
		"nil":           {},
		"defaults":      {opt: NewDefaultGradientBoostingOptions()},
		"no estimators": {opt: &GradientBoostingOptions{MaxDepth: 1, LearningRate: 0.1, MinSamplesLeaf: 1}, err: ErrInvalidEstimators},
		"zero depth":    {opt: &GradientBoostingOptions{NEstimators: 1, LearningRate: 0.1, MinSamplesLeaf: 1}, err: ErrInvalidDepth},
		"learn rate":    {opt: &GradientBoostingOptions{NEstimators: 1, MaxDepth: 1, LearningRate: 2, MinSamplesLeaf: 1}, err: ErrInvalidLearnRate},
		"leaf size":     {opt: &GradientBoostingOptions{NEstimators: 1, MaxDepth: 1, LearningRate: 0.1}, err: ErrInvalidLeafSize},
		"lambda":        {opt: &GradientBoostingOptions{NEstimators: 1, MaxDepth: 1, LearningRate: 0.1, MinSamplesLeaf: 1, Lambda: -1}, err: ErrNegativeLambda},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			opt, err := td.opt.Validate()
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, opt)
		})
	}
}

func TestGradientBoostingFitStep(t *testing.T) {
	x, y := stepData()

	model, err := NewGradientBoosting(nil)
	require.NoError(t, err)
	require.NoError(t, model.Fit(x, y))
	assert.Equal(t, 100, model.NumTrees())

	res, err := model.Predict(mat.NewDense(3, 1, []float64{2, 9.4, 15}))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 0, 10}, res, 0.01)

	r2, err := model.Score(x, y)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, r2, 1e-4)
}

func TestGradientBoostingConstantTarget(t *testing.T) {
	x := mat.NewDense(4, 2, []float64{1, 2, 3, 4, 5, 6, 7, 8})
	y := mat.NewDense(4, 1, []float64{3, 3, 3, 3})

	model, err := NewGradientBoosting(&GradientBoostingOptions{
		NEstimators: 5, MaxDepth: 3, LearningRate: 0.5, MinSamplesLeaf: 1,
	})
	require.NoError(t, err)
	require.NoError(t, model.Fit(x, y))

	val, err := model.PredictRow([]float64{100, -100})
	require.NoError(t, err)
	assert.Equal(t, 3.0, val)
}

func TestGradientBoostingDeterministic(t *testing.T) {
	x, y := demandDesign(200, 4)

	fit := func() []float64 {
		model, err := NewGradientBoosting(&GradientBoostingOptions{
			NEstimators: 20, MaxDepth: 4, LearningRate: 0.1, MinSamplesLeaf: 2, Lambda: 1,
		})
		require.NoError(t, err)
		require.NoError(t, model.Fit(x, y))
		res, err := model.Predict(x)
		require.NoError(t, err)
		return res
	}
	assert.Equal(t, fit(), fit())
}

func TestGradientBoostingJSON(t *testing.T) {
	x, y := stepData()
	model, err := NewGradientBoosting(&GradientBoostingOptions{
		NEstimators: 10, MaxDepth: 2, LearningRate: 0.3, MinSamplesLeaf: 1,
	})
	require.NoError(t, err)
	require.NoError(t, model.Fit(x, y))

	out, err := json.Marshal(model)
	require.NoError(t, err)

	var next GradientBoosting
	require.NoError(t, json.Unmarshal(out, &next))

	exp, err := model.Predict(x)
	require.NoError(t, err)
	res, err := next.Predict(x)
	require.NoError(t, err)
	assert.Equal(t, exp, res)
}

func TestGradientBoostingPredictErrors(t *testing.T) {
	model, err := NewGradientBoosting(nil)
	require.NoError(t, err)

	_, err = model.PredictRow([]float64{1})
	assert.ErrorIs(t, err, ErrNotFitted)

	x, y := stepData()
	require.NoError(t, model.Fit(x, y))
	_, err = model.PredictRow([]float64{1, 2})
	assert.ErrorIs(t, err, ErrFeatureLenMismatch)

	_, err = model.Predict(nil)
	assert.ErrorIs(t, err, ErrNoDesignMatrix)
}
