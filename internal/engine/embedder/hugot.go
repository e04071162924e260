package embedder

import (
	"errors"
	"fmt"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
)

// HugotEmbedder runs a sentence-transformers checkpoint through hugot's pure Go
// feature extraction pipeline. No native libraries are needed.
type HugotEmbedder struct {
	session   *hugot.Session
	pipeline  *pipelines.FeatureExtractionPipeline
	dim       int
	normalize bool
}

// NewHugot loads the model directory at cfg.ModelPath and measures its output
// dimension.
func NewHugot(cfg Config) (*HugotEmbedder, error) {
	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("embedder: hugot session: %w", err)
	}

	pipeline, err := hugot.NewPipeline(session, hugot.FeatureExtractionConfig{
		ModelPath: cfg.ModelPath,
		Name:      "moodlens-embedder",
	})
	if err != nil {
		session.Destroy()
		return nil, fmt.Errorf("embedder: hugot pipeline: %w", err)
	}

	e := &HugotEmbedder{session: session, pipeline: pipeline, normalize: cfg.Normalize}
	sample, err := e.run([]string{"dimension check"})
	if err != nil {
		session.Destroy()
		return nil, err
	}
	e.dim = len(sample[0])
	return e, nil
}

// Dim returns the output dimensionality.
func (e *HugotEmbedder) Dim() int { return e.dim }

// Embed produces a single embedding vector.
func (e *HugotEmbedder) Embed(text string) ([]float32, error) {
	vecs, err := e.run([]string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in one pipeline call.
func (e *HugotEmbedder) EmbedBatch(texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return e.run(texts)
}

func (e *HugotEmbedder) run(texts []string) ([][]float32, error) {
	out, err := e.pipeline.RunPipeline(texts)
	if err != nil {
		return nil, fmt.Errorf("embedder: hugot: %w", err)
	}
	if out == nil || len(out.Embeddings) != len(texts) {
		return nil, errors.New("embedder: hugot returned no embeddings")
	}
	vecs := make([][]float32, len(texts))
	for i, v := range out.Embeddings {
		vec := append([]float32(nil), v...)
		if e.normalize {
			l2Normalize(vec)
		}
		vecs[i] = vec
	}
	return vecs, nil
}

// Close releases the hugot session.
func (e *HugotEmbedder) Close() error {
	if e.session != nil {
		return e.session.Destroy()
	}
	return nil
}
