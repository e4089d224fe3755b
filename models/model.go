// Package models is a collection of regression fitting implementations used by the
// decomposition and lag-feature forecasters
package models

import (
	"gonum.org/v1/gonum/mat"
)

// Model is a regressor over a design matrix with one row per observation and a single
// column target matrix
type Model interface {
	Fit(x, y mat.Matrix) error
	Predict(x mat.Matrix) ([]float64, error)
	Score(x, y mat.Matrix) (float64, error)
}

// LinearModel exposes the fitted coefficients of a linear model
type LinearModel interface {
	Model
	Intercept() float64
	Coef() []float64
}
