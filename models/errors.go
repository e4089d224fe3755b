package models

import (
	"errors"
)

var (
	ErrNoOptions          = errors.New("no initialized model options")
	ErrTargetLenMismatch  = errors.New("target length does not match target rows")
	ErrNoTrainingMatrix   = errors.New("no training matrix")
	ErrNoTargetMatrix     = errors.New("no target matrix")
	ErrNoDesignMatrix     = errors.New("no design matrix for inference")
	ErrFeatureLenMismatch = errors.New("number of features does not match number of model coefficients")
	ErrNegativeLambda     = errors.New("regularization must be non-negative")
	ErrNotFitted          = errors.New("model has not been fit")
	ErrInvalidEstimators  = errors.New("number of estimators must be positive")
	ErrInvalidDepth       = errors.New("max depth must be positive")
	ErrInvalidLearnRate   = errors.New("learning rate must be in (0, 1]")
	ErrInvalidLeafSize    = errors.New("min samples per leaf must be positive")
)
