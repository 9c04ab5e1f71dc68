package forecast

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ridge keeps XᵀX positive definite when features are collinear
const ridge = 1e-9

// Model is a linear model fitted on standardized features
type Model struct {
	Features  []string
	Means     []float64
	Scales    []float64 // Zero for a feature with no variance, which is then ignored
	Intercept float64
	Coef      []float64 // Per standardized feature
}

// Score holds goodness-of-fit metrics on a dataset
type Score struct {
	MSE  float64
	R2   float64
	Rows int
}

// Fit fits y ~ x by least squares. Features are standardized, the intercept
// is the mean of y, and coefficients come from a Cholesky solve of the normal
// equations, falling back to an SVD pseudo-inverse.
func Fit(features []string, x [][]float64, y []float64) (*Model, error) {
	n := len(y)
	if n == 0 {
		return nil, errors.New("no rows to fit")
	}
	if len(x) != n {
		return nil, fmt.Errorf("feature rows (%d) do not match targets (%d)", len(x), n)
	}
	p := len(features)

	m := &Model{
		Features: features,
		Means:    make([]float64, p),
		Scales:   make([]float64, p),
		Coef:     make([]float64, p),
	}

	col := make([]float64, n)
	for j := 0; j < p; j++ {
		for i := range x {
			if len(x[i]) != p {
				return nil, fmt.Errorf("row %d has %d features, want %d", i, len(x[i]), p)
			}
			col[i] = x[i][j]
		}
		mean, std := stat.MeanStdDev(col, nil)
		m.Means[j] = mean
		if std > 1e-12 && !math.IsNaN(std) {
			m.Scales[j] = std
		}
	}

	X := mat.NewDense(n, p, nil)
	for i := range x {
		X.SetRow(i, m.standardize(x[i]))
	}

	m.Intercept = stat.Mean(y, nil)
	yc := mat.NewVecDense(n, nil)
	for i, v := range y {
		yc.SetVec(i, v-m.Intercept)
	}

	beta, err := solve(X, yc)
	if err != nil {
		return nil, err
	}
	for j := 0; j < p; j++ {
		m.Coef[j] = beta.AtVec(j)
	}
	return m, nil
}

func solve(X *mat.Dense, y *mat.VecDense) (*mat.VecDense, error) {
	_, p := X.Dims()

	var xtx mat.SymDense
	xtx.SymOuterK(1, X.T())
	for i := 0; i < p; i++ {
		xtx.SetSym(i, i, xtx.At(i, i)+ridge)
	}

	var xty mat.VecDense
	xty.MulVec(X.T(), y)

	var chol mat.Cholesky
	if ok := chol.Factorize(&xtx); ok {
		var beta mat.VecDense
		if err := chol.SolveVecTo(&beta, &xty); err == nil {
			return &beta, nil
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(X, mat.SVDThin); !ok {
		return nil, errors.New("regression: SVD factorization failed")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	values := svd.Values(nil)

	var uty mat.VecDense
	uty.MulVec(u.T(), y)
	for i, s := range values {
		if s > 1e-12 {
			uty.SetVec(i, uty.AtVec(i)/s)
		} else {
			uty.SetVec(i, 0)
		}
	}

	var beta mat.VecDense
	beta.MulVec(&v, &uty)
	return &beta, nil
}

func (m *Model) standardize(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		if m.Scales[j] == 0 {
			continue
		}
		out[j] = (v - m.Means[j]) / m.Scales[j]
	}
	return out
}

// Predict returns the model's estimate for one feature row
func (m *Model) Predict(row []float64) float64 {
	y := m.Intercept
	for j, v := range m.standardize(row) {
		y += m.Coef[j] * v
	}
	return y
}

// PredictAll returns estimates for every row
func (m *Model) PredictAll(x [][]float64) []float64 {
	out := make([]float64, len(x))
	for i, row := range x {
		out[i] = m.Predict(row)
	}
	return out
}

// Evaluate scores predictions against actual values. A constant target scores
// R² 1 when matched exactly and 0 otherwise.
func Evaluate(actual, predicted []float64) Score {
	n := len(actual)
	if n == 0 {
		return Score{}
	}

	var ssRes float64
	for i := range actual {
		d := actual[i] - predicted[i]
		ssRes += d * d
	}

	mean := stat.Mean(actual, nil)
	var ssTot float64
	for _, v := range actual {
		ssTot += (v - mean) * (v - mean)
	}

	score := Score{MSE: ssRes / float64(n), Rows: n}
	switch {
	case ssTot > 0:
		score.R2 = stat.RSquaredFrom(predicted, actual, nil)
	case ssRes == 0:
		score.R2 = 1
	}
	return score
}
