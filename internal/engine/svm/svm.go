// Package svm implements a multi-class linear support vector classifier.
//
// Each class gets one binary maximum-margin separator (one-vs-rest). Prediction
// returns the class whose separator scores the input highest, so every input is
// forced into one of the classes seen during training.
package svm

import (
	"errors"
	"fmt"
)

// ErrDimensionMismatch is returned when an input vector's length differs from
// the dimension the model was trained on.
var ErrDimensionMismatch = errors.New("svm: dimension mismatch")

// Model holds the learned separators. Weights is [classes][dim].
type Model struct {
	Weights   [][]float64
	Bias      []float64
	Dimension int
	// Fingerprint is the label codec fingerprint the model was trained against.
	Fingerprint string
}

// Dim returns the input dimensionality.
func (m *Model) Dim() int { return m.Dimension }

// NumClasses returns the number of classes.
func (m *Model) NumClasses() int { return len(m.Weights) }

// Decision returns the per-class decision values w·x + b.
func (m *Model) Decision(x []float32) ([]float64, error) {
	if len(x) != m.Dimension {
		return nil, fmt.Errorf("%w: got %d, model expects %d", ErrDimensionMismatch, len(x), m.Dimension)
	}
	scores := make([]float64, len(m.Weights))
	for k, w := range m.Weights {
		s := m.Bias[k]
		for j, v := range x {
			s += w[j] * float64(v)
		}
		scores[k] = s
	}
	return scores, nil
}

// Predict returns the highest-scoring class index. Ties go to the lower index.
func (m *Model) Predict(x []float32) (int, error) {
	scores, err := m.Decision(x)
	if err != nil {
		return 0, err
	}
	best := 0
	for k := 1; k < len(scores); k++ {
		if scores[k] > scores[best] {
			best = k
		}
	}
	return best, nil
}

// PredictBatch predicts every row of xs.
func (m *Model) PredictBatch(xs [][]float32) ([]int, error) {
	out := make([]int, len(xs))
	for i, x := range xs {
		k, err := m.Predict(x)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = k
	}
	return out, nil
}

func (m *Model) validate() error {
	if m.Dimension <= 0 {
		return fmt.Errorf("svm: invalid dimension %d", m.Dimension)
	}
	if len(m.Weights) == 0 {
		return errors.New("svm: model has no classes")
	}
	if len(m.Bias) != len(m.Weights) {
		return fmt.Errorf("svm: %d bias terms for %d classes", len(m.Bias), len(m.Weights))
	}
	for k, w := range m.Weights {
		if len(w) != m.Dimension {
			return fmt.Errorf("svm: class %d has %d weights, expected %d", k, len(w), m.Dimension)
		}
	}
	return nil
}
