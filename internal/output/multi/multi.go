// Package multi fans one analysis stream out to several sinks.
package multi

import (
	"context"
	"errors"
	"fmt"

	"github.com/crimson-sun/moodlens/internal/model"
	"github.com/crimson-sun/moodlens/internal/output"
)

// Multi writes every analysis to each wrapped output in order. A failing
// output does not stop delivery to the ones after it.
type Multi struct {
	outputs []output.Output
}

// New wraps outputs. Nil entries are skipped.
func New(outputs ...output.Output) *Multi {
	m := &Multi{}
	for _, o := range outputs {
		if o != nil {
			m.outputs = append(m.outputs, o)
		}
	}
	return m
}

// Len reports how many outputs are wrapped.
func (m *Multi) Len() int { return len(m.outputs) }

// Write delivers a to every output and joins their errors.
func (m *Multi) Write(ctx context.Context, a model.Analysis) error {
	return m.each(func(o output.Output) error { return o.Write(ctx, a) })
}

// Close closes every output, even after a failure.
func (m *Multi) Close() error {
	return m.each(output.Output.Close)
}

func (m *Multi) each(fn func(output.Output) error) error {
	var errs []error
	for i, o := range m.outputs {
		if err := fn(o); err != nil {
			errs = append(errs, fmt.Errorf("output %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
