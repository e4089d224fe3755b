package models

import (
	"errors"
	"fmt"
	"slices"

	"github.com/aouyang1/go-demand/feature"
	"gonum.org/v1/gonum/mat"
)

var ErrLabelMismatch = errors.New("feature labels do not match the fitted labels")

// RowPredictor is implemented by models that can score a single row without building a
// matrix
type RowPredictor interface {
	PredictRow(row []float64) (float64, error)
}

// Regressor binds a fitted model to the ordered feature labels it was trained on so it can
// score feature vectors
type Regressor struct {
	Labels *feature.Labels
	Model  Model
}

// FitRegressor fits the model on the training set
func FitRegressor(ts *feature.TrainingSet, model Model) (*Regressor, error) {
	if ts.Len() == 0 {
		return nil, ErrNoTrainingMatrix
	}
	x := ts.X.Matrix(false)
	y := mat.NewDense(len(ts.Y), 1, ts.Y)
	if err := model.Fit(x, y); err != nil {
		return nil, fmt.Errorf("unable to fit regressor, %w", err)
	}
	return &Regressor{Labels: ts.X.Labels(), Model: model}, nil
}

// Predict scores a single feature vector. Features the vector cannot supply fail with
// feature.ErrMissingFeature.
func (r *Regressor) Predict(v feature.Vector) (float64, error) {
	row, err := v.Row(r.Labels)
	if err != nil {
		return 0, err
	}
	if rp, ok := r.Model.(RowPredictor); ok {
		return rp.PredictRow(row)
	}
	res, err := r.Model.Predict(mat.NewDense(1, len(row), row))
	if err != nil {
		return 0, err
	}
	return res[0], nil
}

// PredictSet scores every row of a feature set built with the same labels
func (r *Regressor) PredictSet(s feature.Set) ([]float64, error) {
	if !slices.Equal(s.Labels().Strings(), r.Labels.Strings()) {
		return nil, ErrLabelMismatch
	}
	x := s.Matrix(false)
	if x == nil {
		return nil, ErrNoDesignMatrix
	}
	return r.Model.Predict(x)
}
