package moodlens

import (
	"context"
	"errors"
	"fmt"

	"github.com/crimson-sun/moodlens/internal/bootstrap"
	"github.com/crimson-sun/moodlens/internal/config"
	"github.com/crimson-sun/moodlens/internal/engine"
	"github.com/crimson-sun/moodlens/internal/engine/artifact"
	"github.com/crimson-sun/moodlens/internal/engine/embedder"
	"github.com/crimson-sun/moodlens/internal/engine/recommend"
)

// ErrNotMeaningful is returned for utterances too short or without letters.
var ErrNotMeaningful = engine.ErrNotMeaningful

// MoodLens analyzes utterances. Safe for concurrent use.
type MoodLens struct {
	engine   *engine.Engine
	embedder embedder.Embedder
}

// New loads the embedding model, the trained classifiers and the
// recommendation table. This is expensive: create once, reuse.
func New(opts ...Option) (*MoodLens, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	modelPath, vocabPath, projPath := resolvePaths(o)

	cfg := config.Config{
		Server: config.ServerConfig{MinInputLength: o.minLength},
		Engine: config.EngineConfig{
			Backend:        o.backend,
			ModelPath:      modelPath,
			VocabPath:      vocabPath,
			ProjectionPath: projPath,
			LibraryPath:    o.libraryPath,
			MaxSeqLen:      o.maxSeqLen,
			Normalize:      true,
			TablePath:      o.tablePath,
		},
		Artifacts: config.ArtifactsConfig{Dir: o.artifactDir},
	}
	rt, err := bootstrap.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("moodlens: %w", err)
	}
	return &MoodLens{engine: rt.Engine, embedder: rt.Embedder}, nil
}

// newWithEmbedder builds an instance around an already loaded embedder.
func newWithEmbedder(emb embedder.Embedder, artifactDir string, table *recommend.Table, minLength int) (*MoodLens, error) {
	set, err := artifact.Load(artifactDir)
	if err != nil {
		return nil, fmt.Errorf("moodlens: %w", err)
	}
	eng, err := bootstrap.NewEngine(emb, set, table, minLength)
	if err != nil {
		return nil, fmt.Errorf("moodlens: %w", err)
	}
	return &MoodLens{engine: eng, embedder: emb}, nil
}

// Analyze classifies one utterance. Input that is not meaningful returns an
// error wrapping ErrNotMeaningful.
func (m *MoodLens) Analyze(text string) (Result, error) {
	return m.AnalyzeContext(context.Background(), text)
}

// AnalyzeContext is Analyze with cancellation.
func (m *MoodLens) AnalyzeContext(ctx context.Context, text string) (Result, error) {
	a, err := m.engine.Analyze(ctx, text)
	if err != nil {
		return Result{}, err
	}
	return resultFromAnalysis(a), nil
}

// AnalyzeBatch classifies several utterances with one embedding call.
// Results are in input order. Rejected inputs get a zero Result and their
// error in the returned slice; the error return is for whole-batch failures.
func (m *MoodLens) AnalyzeBatch(texts []string) ([]Result, []error, error) {
	rs, err := m.engine.AnalyzeBatch(context.Background(), texts)
	if err != nil {
		return nil, nil, err
	}
	results := make([]Result, len(rs))
	errs := make([]error, len(rs))
	for i, r := range rs {
		if r.Err != nil {
			errs[i] = r.Err
			continue
		}
		results[i] = resultFromAnalysis(r.Analysis)
	}
	return results, errs, nil
}

// Emotions lists the labels the emotion classifier can produce.
func (m *MoodLens) Emotions() []string {
	return m.engine.Emotions()
}

// IsNotMeaningful reports whether err rejects the input itself.
func IsNotMeaningful(err error) bool {
	return errors.Is(err, ErrNotMeaningful)
}

// Close releases model resources. Must be called when the instance is no
// longer needed.
func (m *MoodLens) Close() error {
	return m.embedder.Close()
}
