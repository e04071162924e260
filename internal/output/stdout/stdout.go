package stdout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/crimson-sun/moodlens/internal/model"
	"github.com/crimson-sun/moodlens/internal/output"
)

// Output writes JSON-encoded analyses to stdout or another writer.
type Output struct {
	mu     sync.Mutex
	enc    *json.Encoder
	detail output.Detail
}

// New creates a stdout Output with detail-aware field omission
// and optional pretty-printed JSON.
func New(detail output.Detail, pretty bool) *Output {
	return NewWriter(os.Stdout, detail, pretty)
}

// NewWriter is New with an explicit destination.
func NewWriter(w io.Writer, detail output.Detail, pretty bool) *Output {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return &Output{enc: enc, detail: detail}
}

func (o *Output) Write(_ context.Context, a model.Analysis) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.enc.Encode(output.FormatAnalysis(a, o.detail)); err != nil {
		return fmt.Errorf("stdout output: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	return nil
}
