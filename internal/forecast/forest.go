package forecast

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"
)

const (
	forestTrees    = 100
	forestMaxDepth = 16
	forestMinLeaf  = 1
	forestSeed     = 42
)

// Regressor estimates a target from a feature row
type Regressor interface {
	Predict(row []float64) float64
	PredictAll(x [][]float64) []float64
}

type treeNode struct {
	leaf    bool
	value   float64
	feature int
	thresh  float64
	left    *treeNode
	right   *treeNode
}

// Forest is an ensemble of regression trees grown on bootstrap samples
type Forest struct {
	Features []string
	trees    []*treeNode
}

// FitForest grows a forest on x. Trees split on every feature and stop at
// pure nodes or the depth limit. The sampling seed is fixed, so the same
// inputs always grow the same forest.
func FitForest(features []string, x [][]float64, y []float64) (*Forest, error) {
	n := len(y)
	if n == 0 {
		return nil, errors.New("no rows to fit")
	}
	if len(x) != n {
		return nil, fmt.Errorf("feature rows (%d) do not match targets (%d)", len(x), n)
	}
	for i, row := range x {
		if len(row) != len(features) {
			return nil, fmt.Errorf("row %d has %d features, want %d", i, len(row), len(features))
		}
	}

	rng := rand.New(rand.NewSource(forestSeed))
	f := &Forest{Features: features, trees: make([]*treeNode, 0, forestTrees)}
	for t := 0; t < forestTrees; t++ {
		sample := make([]int, n)
		for i := range sample {
			sample[i] = rng.Intn(n)
		}
		f.trees = append(f.trees, growTree(x, y, sample, 0))
	}
	return f, nil
}

func growTree(x [][]float64, y []float64, idx []int, depth int) *treeNode {
	leaf := &treeNode{leaf: true, value: meanAt(y, idx)}
	if depth >= forestMaxDepth || len(idx) < 2*forestMinLeaf {
		return leaf
	}

	feature, thresh, ok := bestSplit(x, y, idx)
	if !ok {
		return leaf
	}

	var left, right []int
	for _, i := range idx {
		if x[i][feature] <= thresh {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return &treeNode{
		feature: feature,
		thresh:  thresh,
		left:    growTree(x, y, left, depth+1),
		right:   growTree(x, y, right, depth+1),
	}
}

// bestSplit finds the feature and threshold with the largest drop in squared
// error. ok is false when no split improves on the node.
func bestSplit(x [][]float64, y []float64, idx []int) (feature int, thresh float64, ok bool) {
	n := len(idx)
	var total float64
	for _, i := range idx {
		total += y[i]
	}
	best := total * total / float64(n)
	const eps = 1e-12

	order := make([]int, n)
	for f := range x[idx[0]] {
		copy(order, idx)
		sort.SliceStable(order, func(a, b int) bool { return x[order[a]][f] < x[order[b]][f] })

		var leftSum float64
		for k := 0; k < n-1; k++ {
			leftSum += y[order[k]]
			lo, hi := x[order[k]][f], x[order[k+1]][f]
			if lo == hi {
				continue
			}
			nl, nr := k+1, n-k-1
			if nl < forestMinLeaf || nr < forestMinLeaf {
				continue
			}
			rightSum := total - leftSum
			score := leftSum*leftSum/float64(nl) + rightSum*rightSum/float64(nr)
			if score > best+eps {
				best, feature, thresh, ok = score, f, (lo+hi)/2, true
			}
		}
	}
	return feature, thresh, ok
}

func meanAt(y []float64, idx []int) float64 {
	vals := make([]float64, len(idx))
	for k, i := range idx {
		vals[k] = y[i]
	}
	return stat.Mean(vals, nil)
}

func (t *treeNode) predict(row []float64) float64 {
	for !t.leaf {
		if row[t.feature] <= t.thresh {
			t = t.left
		} else {
			t = t.right
		}
	}
	return t.value
}

// Predict averages the trees' estimates for one feature row
func (f *Forest) Predict(row []float64) float64 {
	var sum float64
	for _, t := range f.trees {
		sum += t.predict(row)
	}
	return sum / float64(len(f.trees))
}

// PredictAll returns estimates for every row
func (f *Forest) PredictAll(x [][]float64) []float64 {
	out := make([]float64, len(x))
	for i, row := range x {
		out[i] = f.Predict(row)
	}
	return out
}
