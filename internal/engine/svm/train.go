package svm

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/exp/rand"
)

// Params controls training.
type Params struct {
	C        float64 // penalty for margin violations
	Balanced bool    // weight classes inversely to their frequency
	MaxIter  int     // passes over the data per separator
	Tol      float64 // stop when the projected gradient spread falls below Tol
	Seed     uint64  // seeds the coordinate visiting order
}

// DefaultParams mirrors the usual linear SVM defaults (C=1, tolerance 0.1).
func DefaultParams() Params {
	return Params{C: 1, MaxIter: 1000, Tol: 0.1, Seed: 42}
}

// Fit trains a one-vs-rest model on rows xs with class indices y in [0, numClasses).
// Each binary problem is the L2-regularised hinge-loss SVM solved by dual
// coordinate descent; the bias is learned as the weight of a constant feature.
func Fit(xs [][]float32, y []int, numClasses int, p Params) (*Model, error) {
	if len(xs) == 0 {
		return nil, errors.New("svm: no training rows")
	}
	if len(xs) != len(y) {
		return nil, fmt.Errorf("svm: %d rows but %d labels", len(xs), len(y))
	}
	if numClasses < 1 {
		return nil, fmt.Errorf("svm: invalid class count %d", numClasses)
	}
	if p.C <= 0 {
		p.C = 1
	}
	if p.MaxIter <= 0 {
		p.MaxIter = DefaultParams().MaxIter
	}

	dim := len(xs[0])
	if dim == 0 {
		return nil, errors.New("svm: zero-length feature vectors")
	}
	rows := make([][]float64, len(xs))
	sq := make([]float64, len(xs))
	counts := make([]int, numClasses)
	for i, x := range xs {
		if len(x) != dim {
			return nil, fmt.Errorf("%w: row %d has %d features, expected %d", ErrDimensionMismatch, i, len(x), dim)
		}
		if y[i] < 0 || y[i] >= numClasses {
			return nil, fmt.Errorf("svm: row %d has class %d outside [0, %d)", i, y[i], numClasses)
		}
		r := make([]float64, dim)
		var n float64
		for j, v := range x {
			r[j] = float64(v)
			n += r[j] * r[j]
		}
		rows[i] = r
		sq[i] = n + 1 // constant bias feature
		counts[y[i]]++
	}

	upper := make([]float64, len(xs))
	for i := range xs {
		upper[i] = p.C * classWeight(p.Balanced, len(xs), numClasses, counts[y[i]])
	}

	m := &Model{
		Weights:   make([][]float64, numClasses),
		Bias:      make([]float64, numClasses),
		Dimension: dim,
	}
	if numClasses == 1 {
		m.Weights[0] = make([]float64, dim)
		return m, nil
	}

	rng := rand.New(rand.NewSource(p.Seed))
	signs := make([]float64, len(xs))
	for k := 0; k < numClasses; k++ {
		for i := range y {
			if y[i] == k {
				signs[i] = 1
			} else {
				signs[i] = -1
			}
		}
		m.Weights[k], m.Bias[k] = solveBinary(rows, sq, signs, upper, p, rng)
	}
	return m, nil
}

// classWeight is n / (classes * count) when balanced, else 1.
func classWeight(balanced bool, n, classes, count int) float64 {
	if !balanced || count == 0 {
		return 1
	}
	return float64(n) / float64(classes*count)
}

func solveBinary(xs [][]float64, sq, y, upper []float64, p Params, rng *rand.Rand) ([]float64, float64) {
	w := make([]float64, len(xs[0]))
	var b float64
	alpha := make([]float64, len(xs))
	order := make([]int, len(xs))
	for i := range order {
		order[i] = i
	}

	for iter := 0; iter < p.MaxIter; iter++ {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		maxPG, minPG := math.Inf(-1), math.Inf(1)

		for _, i := range order {
			g := y[i]*(dot(w, xs[i])+b) - 1

			pg := g
			switch {
			case alpha[i] == 0:
				pg = math.Min(g, 0)
			case alpha[i] >= upper[i]:
				pg = math.Max(g, 0)
			}
			maxPG = math.Max(maxPG, pg)
			minPG = math.Min(minPG, pg)
			if math.Abs(pg) < 1e-12 {
				continue
			}

			old := alpha[i]
			alpha[i] = math.Min(math.Max(old-g/sq[i], 0), upper[i])
			d := (alpha[i] - old) * y[i]
			for j, v := range xs[i] {
				w[j] += d * v
			}
			b += d
		}

		if maxPG-minPG <= p.Tol {
			break
		}
	}
	return w, b
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
