package models

import (
	"fmt"

	"github.com/goccy/go-json"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

type GradientBoostingOptions struct {
	NEstimators    int     `json:"n_estimators"`
	MaxDepth       int     `json:"max_depth"`
	LearningRate   float64 `json:"learning_rate"`
	MinSamplesLeaf int     `json:"min_samples_leaf"`

	// Lambda is the L2 penalty on leaf weights
	Lambda float64 `json:"lambda"`
}

func NewDefaultGradientBoostingOptions() *GradientBoostingOptions {
	return &GradientBoostingOptions{
		NEstimators:    100,
		MaxDepth:       6,
		LearningRate:   0.1,
		MinSamplesLeaf: 1,
		Lambda:         1.0,
	}
}

func (o *GradientBoostingOptions) Validate() (*GradientBoostingOptions, error) {
	if o == nil {
		return NewDefaultGradientBoostingOptions(), nil
	}
	if o.NEstimators <= 0 {
		return nil, fmt.Errorf("got %d, %w", o.NEstimators, ErrInvalidEstimators)
	}
	if o.MaxDepth <= 0 {
		return nil, fmt.Errorf("got %d, %w", o.MaxDepth, ErrInvalidDepth)
	}
	if o.LearningRate <= 0 || o.LearningRate > 1 {
		return nil, fmt.Errorf("got %f, %w", o.LearningRate, ErrInvalidLearnRate)
	}
	if o.MinSamplesLeaf <= 0 {
		return nil, fmt.Errorf("got %d, %w", o.MinSamplesLeaf, ErrInvalidLeafSize)
	}
	if o.Lambda < 0 {
		return nil, fmt.Errorf("got %f, %w", o.Lambda, ErrNegativeLambda)
	}
	return o, nil
}

// GradientBoosting fits an additive ensemble of regression trees to the residuals of
// the squared loss. Each tree is scaled by the learning rate. Fitting is deterministic.
type GradientBoosting struct {
	opt   *GradientBoostingOptions
	base  float64
	trees []*regressionTree
	nFeat int
}

func NewGradientBoosting(opt *GradientBoostingOptions) (*GradientBoosting, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &GradientBoosting{opt: opt}, nil
}

func rowsOf(x mat.Matrix) [][]float64 {
	m, _ := x.Dims()
	rows := make([][]float64, m)
	for i := 0; i < m; i++ {
		rows[i] = mat.Row(nil, i, x)
	}
	return rows
}

func (g *GradientBoosting) Fit(x, y mat.Matrix) error {
	if g.opt == nil {
		return ErrNoOptions
	}
	if x == nil {
		return ErrNoTrainingMatrix
	}
	if y == nil {
		return ErrNoTargetMatrix
	}
	m, n := x.Dims()
	ym, _ := y.Dims()
	if ym != m {
		return fmt.Errorf("training data has %d rows and target has %d row, %w", m, ym, ErrTargetLenMismatch)
	}

	rows := rowsOf(x)
	target := mat.Col(nil, 0, y)

	g.nFeat = n
	g.base = stat.Mean(target, nil)
	g.trees = make([]*regressionTree, 0, g.opt.NEstimators)

	pred := make([]float64, m)
	for i := range pred {
		pred[i] = g.base
	}
	resid := make([]float64, m)
	params := treeParams{
		maxDepth:       g.opt.MaxDepth,
		minSamplesLeaf: g.opt.MinSamplesLeaf,
		lambda:         g.opt.Lambda,
	}

	for e := 0; e < g.opt.NEstimators; e++ {
		for i := range resid {
			resid[i] = target[i] - pred[i]
		}
		tree := growTree(rows, resid, params)
		for i, row := range rows {
			pred[i] += g.opt.LearningRate * tree.predict(row)
		}
		g.trees = append(g.trees, tree)
	}
	return nil
}

// PredictRow evaluates the ensemble on a single row of features
func (g *GradientBoosting) PredictRow(row []float64) (float64, error) {
	if g.trees == nil {
		return 0, ErrNotFitted
	}
	if len(row) != g.nFeat {
		return 0, fmt.Errorf("got %d features, but expected %d, %w", len(row), g.nFeat, ErrFeatureLenMismatch)
	}
	res := g.base
	for _, tree := range g.trees {
		res += g.opt.LearningRate * tree.predict(row)
	}
	return res, nil
}

func (g *GradientBoosting) Predict(x mat.Matrix) ([]float64, error) {
	if g.opt == nil {
		return nil, ErrNoOptions
	}
	if x == nil {
		return nil, ErrNoDesignMatrix
	}
	rows := rowsOf(x)
	res := make([]float64, len(rows))
	for i, row := range rows {
		val, err := g.PredictRow(row)
		if err != nil {
			return nil, err
		}
		res[i] = val
	}
	return res, nil
}

func (g *GradientBoosting) Score(x, y mat.Matrix) (float64, error) {
	return r2Score(g, x, y)
}

// NumTrees returns the number of fitted trees
func (g *GradientBoosting) NumTrees() int {
	return len(g.trees)
}

type gradientBoostingJSON struct {
	Options *GradientBoostingOptions `json:"options"`
	Base    float64                  `json:"base"`
	NFeat   int                      `json:"n_features"`
	Trees   []*regressionTree        `json:"trees"`
}

func (g *GradientBoosting) MarshalJSON() ([]byte, error) {
	return json.Marshal(gradientBoostingJSON{
		Options: g.opt,
		Base:    g.base,
		NFeat:   g.nFeat,
		Trees:   g.trees,
	})
}

func (g *GradientBoosting) UnmarshalJSON(data []byte) error {
	var in gradientBoostingJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	opt, err := in.Options.Validate()
	if err != nil {
		return err
	}
	g.opt = opt
	g.base = in.Base
	g.nFeat = in.NFeat
	g.trees = in.Trees
	return nil
}
