package models

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

type OLSOptions struct {
	FitIntercept bool `json:"fit_intercept"`

	// Lambda adds an L2 penalty on every coefficient except the intercept
	Lambda float64 `json:"lambda"`
}

func NewDefaultOLSOptions() *OLSOptions {
	return &OLSOptions{
		FitIntercept: true,
	}
}

func (o *OLSOptions) Validate() (*OLSOptions, error) {
	if o == nil {
		return NewDefaultOLSOptions(), nil
	}
	if o.Lambda < 0 {
		return nil, fmt.Errorf("got %f, %w", o.Lambda, ErrNegativeLambda)
	}
	return o, nil
}

// OLSRegression computes ordinary least squares using QR factorization. A positive
// lambda turns it into ridge regression by augmenting the design with sqrt(lambda)*I.
type OLSRegression struct {
	opt       *OLSOptions
	coef      []float64
	intercept float64
	fitted    bool
}

func NewOLSRegression(opt *OLSOptions) (*OLSRegression, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &OLSRegression{
		opt: opt,
	}, nil
}

// design prepends a column of ones when the intercept is fitted
func (o *OLSRegression) design(x mat.Matrix) mat.Matrix {
	if !o.opt.FitIntercept {
		return x
	}
	m, n := x.Dims()
	d := mat.NewDense(m, n+1, nil)
	for i := 0; i < m; i++ {
		d.Set(i, 0, 1)
	}
	d.Slice(0, m, 1, n+1).(*mat.Dense).Copy(x)
	return d
}

// ridge stacks sqrt(lambda) on the diagonal of every penalized column under the design
// with zero targets, the intercept column is left unpenalized
func (o *OLSRegression) ridge(x mat.Matrix, y *mat.VecDense) (mat.Matrix, *mat.VecDense) {
	m, n := x.Dims()
	first := 0
	if o.opt.FitIntercept {
		first = 1
	}
	extra := n - first

	aug := mat.NewDense(m+extra, n, nil)
	aug.Slice(0, m, 0, n).(*mat.Dense).Copy(x)
	penalty := math.Sqrt(o.opt.Lambda)
	for j := first; j < n; j++ {
		aug.Set(m+j-first, j, penalty)
	}

	yAug := mat.NewVecDense(m+extra, nil)
	yAug.SliceVec(0, m).(*mat.VecDense).CopyVec(y)
	return aug, yAug
}

// backSolve solves r*c = qty for the leading n rows of the triangular r. Columns with a
// vanishing pivot carry no information and get a zero coefficient.
func backSolve(r *mat.Dense, qty *mat.VecDense, n int) []float64 {
	c := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		pivot := r.At(i, i)
		if math.Abs(pivot) < 1e-12 {
			continue
		}
		v := qty.AtVec(i)
		for j := i + 1; j < n; j++ {
			v -= c[j] * r.At(i, j)
		}
		c[i] = v / pivot
	}
	return c
}

func (o *OLSRegression) Fit(x, y mat.Matrix) error {
	if o.opt == nil {
		return ErrNoOptions
	}
	if x == nil {
		return ErrNoTrainingMatrix
	}
	if y == nil {
		return ErrNoTargetMatrix
	}
	m, _ := x.Dims()
	if ym, _ := y.Dims(); ym != m {
		return fmt.Errorf("training data has %d rows and target has %d row, %w", m, ym, ErrTargetLenMismatch)
	}

	d := o.design(x)
	_, n := d.Dims()
	target := mat.NewVecDense(m, mat.Col(nil, 0, y))
	if o.opt.Lambda > 0 {
		d, target = o.ridge(d, target)
	}

	var qr mat.QR
	qr.Factorize(d)
	var q, r mat.Dense
	qr.QTo(&q)
	qr.RTo(&r)

	var qty mat.VecDense
	qty.MulVec(q.T(), target)
	c := backSolve(&r, &qty, n)

	o.intercept = 0
	if o.opt.FitIntercept {
		o.intercept, c = c[0], c[1:]
	}
	o.coef = c
	o.fitted = true
	return nil
}

func (o *OLSRegression) Predict(x mat.Matrix) ([]float64, error) {
	if o.opt == nil {
		return nil, ErrNoOptions
	}
	if x == nil {
		return nil, ErrNoDesignMatrix
	}
	if !o.fitted {
		return nil, ErrNotFitted
	}
	if _, n := x.Dims(); n != len(o.coef) {
		return nil, fmt.Errorf("got %d features in design matrix, but expected %d, %w", n, len(o.coef), ErrFeatureLenMismatch)
	}

	var res mat.VecDense
	res.MulVec(x, mat.NewVecDense(len(o.coef), o.Coef()))
	out := mat.Col(nil, 0, &res)
	for i := range out {
		out[i] += o.intercept
	}
	return out, nil
}

func (o *OLSRegression) Score(x, y mat.Matrix) (float64, error) {
	return r2Score(o, x, y)
}

func (o *OLSRegression) Intercept() float64 {
	return o.intercept
}

func (o *OLSRegression) Coef() []float64 {
	c := make([]float64, len(o.coef))
	copy(c, o.coef)
	return c
}

// r2Score predicts x with the model and returns the coefficient of determination
func r2Score(model Model, x, y mat.Matrix) (float64, error) {
	if x == nil {
		return 0.0, ErrNoDesignMatrix
	}
	if y == nil {
		return 0.0, ErrNoTargetMatrix
	}

	m, _ := x.Dims()
	ym, _ := y.Dims()
	if m != ym {
		return 0.0, fmt.Errorf("design matrix has %d rows and target has %d rows, %w", m, ym, ErrTargetLenMismatch)
	}

	res, err := model.Predict(x)
	if err != nil {
		return 0.0, err
	}

	ySlice := mat.Col(nil, 0, y)
	return stat.RSquaredFrom(res, ySlice, nil), nil
}
