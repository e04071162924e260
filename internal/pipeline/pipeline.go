// Package pipeline streams utterances through the engine in batches and
// writes every accepted analysis to an output.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/crimson-sun/moodlens/internal/engine"
	"github.com/crimson-sun/moodlens/internal/output"
)

// DefaultBatchSize bounds how many utterances share one embedder call.
const DefaultBatchSize = 64

// Utterance is one input line.
type Utterance struct {
	Line int
	Text string
}

// Analyzer classifies a batch of texts. *engine.Engine implements it.
type Analyzer interface {
	AnalyzeBatch(ctx context.Context, texts []string) ([]engine.Result, error)
}

// Stats counts what a Stream call did.
type Stats struct {
	Read     int
	Written  int
	Rejected int
	Batches  int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithBatchSize sets the maximum batch size. Non-positive values keep the default.
func WithBatchSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithFlushInterval flushes a partial batch once its oldest utterance has
// waited d. Zero disables timed flushes, so batches fill or the input ends.
func WithFlushInterval(d time.Duration) Option {
	return func(p *Pipeline) { p.window = d }
}

// WithRejectHandler is called for every utterance the engine rejects.
func WithRejectHandler(fn func(Utterance, error)) Option {
	return func(p *Pipeline) { p.onReject = fn }
}

// Pipeline connects an utterance source, the engine and an output.
type Pipeline struct {
	analyzer  Analyzer
	output    output.Output
	batchSize int
	window    time.Duration
	onReject  func(Utterance, error)
}

// New creates a Pipeline from the given components.
func New(a Analyzer, out output.Output, opts ...Option) *Pipeline {
	p := &Pipeline{
		analyzer:  a,
		output:    out,
		batchSize: DefaultBatchSize,
		onReject:  func(Utterance, error) {},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Stream processes utterances as they arrive. It returns when in is closed,
// after flushing what is pending, or when ctx is cancelled.
func (p *Pipeline) Stream(ctx context.Context, in <-chan Utterance) (Stats, error) {
	var st Stats
	buf := newBatchBuffer(p.batchSize, p.window)
	defer buf.stop()

	for {
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case u, ok := <-in:
			if !ok {
				return st, p.flush(ctx, buf, &st)
			}
			st.Read++
			if buf.add(u) {
				if err := p.flush(ctx, buf, &st); err != nil {
					return st, err
				}
			}
		case <-buf.flushCh():
			if err := p.flush(ctx, buf, &st); err != nil {
				return st, err
			}
		}
	}
}

func (p *Pipeline) flush(ctx context.Context, buf *batchBuffer, st *Stats) error {
	batch := buf.take()
	if len(batch) == 0 {
		return nil
	}
	texts := make([]string, len(batch))
	for i, u := range batch {
		texts[i] = u.Text
	}

	results, err := p.analyzer.AnalyzeBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("pipeline analyze lines %d-%d: %w", batch[0].Line, batch[len(batch)-1].Line, err)
	}
	st.Batches++
	for i, r := range results {
		if r.Err != nil {
			st.Rejected++
			p.onReject(batch[i], r.Err)
			continue
		}
		if err := p.output.Write(ctx, r.Analysis); err != nil {
			return fmt.Errorf("pipeline output: %w", err)
		}
		st.Written++
	}
	return nil
}

// Close shuts down the output.
func (p *Pipeline) Close() error {
	return p.output.Close()
}
