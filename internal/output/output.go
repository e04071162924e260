package output

import (
	"context"

	"github.com/crimson-sun/moodlens/internal/model"
)

// Output defines the interface for analysis record destinations.
type Output interface {
	Write(ctx context.Context, a model.Analysis) error
	Close() error
}
