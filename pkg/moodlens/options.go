package moodlens

import "path/filepath"

type options struct {
	backend        string
	modelDir       string
	modelPath      string
	vocabPath      string
	projectionPath string
	libraryPath    string
	artifactDir    string
	tablePath      string
	minLength      int
	maxSeqLen      int
}

// Option configures a MoodLens instance.
type Option func(*options)

// WithModelDir sets the directory containing model files.
// Expects: model.onnx and vocab.txt.
func WithModelDir(dir string) Option {
	return func(o *options) { o.modelDir = dir }
}

// WithModelPaths sets explicit paths for each model file. projection may be empty.
func WithModelPaths(model, vocab, projection string) Option {
	return func(o *options) {
		o.modelPath = model
		o.vocabPath = vocab
		o.projectionPath = projection
	}
}

// WithHugot switches to the pure-Go backend; dir holds the exported model.
func WithHugot(dir string) Option {
	return func(o *options) {
		o.backend = "hugot"
		o.modelPath = dir
	}
}

// WithRuntimeLibrary points at the onnxruntime shared library.
func WithRuntimeLibrary(path string) Option {
	return func(o *options) { o.libraryPath = path }
}

// WithArtifactDir sets the directory written by `moodlens train`. Default: "artifacts".
func WithArtifactDir(dir string) Option {
	return func(o *options) { o.artifactDir = dir }
}

// WithRecommendations loads the recommendation table from a YAML file
// instead of the built-in one.
func WithRecommendations(path string) Option {
	return func(o *options) { o.tablePath = path }
}

// WithMinInputLength sets how many runes an utterance needs to be analyzed. Default: 3.
func WithMinInputLength(n int) Option {
	return func(o *options) { o.minLength = n }
}

// WithMaxSeqLen caps the tokens fed to the encoder. Default: 384.
func WithMaxSeqLen(n int) Option {
	return func(o *options) { o.maxSeqLen = n }
}

func defaultOptions() options {
	return options{
		backend:     "onnx",
		artifactDir: "artifacts",
		minLength:   3,
		maxSeqLen:   384,
	}
}

// resolvePaths determines the model, vocab, and projection file paths.
// Explicit paths take precedence over modelDir.
func resolvePaths(o options) (model, vocab, projection string) {
	if o.modelPath != "" {
		return o.modelPath, o.vocabPath, o.projectionPath
	}
	dir := o.modelDir
	if dir == "" {
		dir = filepath.Join("models", "all-mpnet-base-v2")
	}
	return filepath.Join(dir, "model.onnx"), filepath.Join(dir, "vocab.txt"), o.projectionPath
}
