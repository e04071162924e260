// Package engine runs the analysis pipeline: validate, embed, classify the
// emotion, categorize it and, for negative emotions, classify severity and
// look up recommendations.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/crimson-sun/moodlens/internal/engine/embedder"
	"github.com/crimson-sun/moodlens/internal/engine/labels"
	"github.com/crimson-sun/moodlens/internal/engine/recommend"
	"github.com/crimson-sun/moodlens/internal/engine/svm"
	"github.com/crimson-sun/moodlens/internal/engine/validate"
	"github.com/crimson-sun/moodlens/internal/model"
)

// ValidationMessage is shown to users whose input was rejected.
const ValidationMessage = "Please enter a meaningful sentence."

// ErrNotMeaningful is wrapped by every *ValidationError.
var ErrNotMeaningful = errors.New("engine: input is not a meaningful utterance")

// ValidationError carries the user-facing rejection message.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }
func (e *ValidationError) Unwrap() error { return ErrNotMeaningful }

// Classifier maps an embedding to a class index.
type Classifier interface {
	Predict(vec []float32) (int, error)
	Dim() int
	NumClasses() int
}

// Head is a classifier together with the codec that names its classes.
type Head struct {
	Classifier Classifier
	Codec      *labels.Codec
}

func (h Head) classify(vec []float32) (string, error) {
	idx, err := h.Classifier.Predict(vec)
	if err != nil {
		return "", err
	}
	return h.Codec.Decode(idx)
}

// Stage names a step of the pipeline.
type Stage string

const (
	StageValidating          Stage = "validating"
	StageRejected            Stage = "rejected"
	StageEmbedding           Stage = "embedding"
	StageClassifyingEmotion  Stage = "classifying_emotion"
	StageCategorizing        Stage = "categorizing"
	StageClassifyingSeverity Stage = "classifying_severity"
	StageRecommending        Stage = "recommending"
	StageDone                Stage = "done"
)

// Option configures an Engine.
type Option func(*Engine)

// WithValidator replaces the default validator.
func WithValidator(v validate.Validator) Option {
	return func(e *Engine) { e.validator = v }
}

// WithObserver registers a callback that receives every stage transition.
func WithObserver(fn func(Stage)) Option {
	return func(e *Engine) { e.observe = fn }
}

// WithClock overrides time.Now for CreatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine is safe for concurrent use once constructed.
type Engine struct {
	embedder  embedder.Embedder
	emotion   Head
	severity  Head
	table     *recommend.Table
	validator validate.Validator
	observe   func(Stage)
	now       func() time.Time
}

// New wires the pipeline and checks that the pieces fit: both classifiers
// must accept the embedder's dimension, each codec must name every class, and
// the recommendation table must only use trained labels.
func New(emb embedder.Embedder, emotion, severity Head, table *recommend.Table, opts ...Option) (*Engine, error) {
	for _, h := range []struct {
		name string
		head Head
	}{{"emotion", emotion}, {"severity", severity}} {
		if h.head.Classifier == nil || h.head.Codec == nil {
			return nil, fmt.Errorf("engine: %s classifier not configured", h.name)
		}
		if d := h.head.Classifier.Dim(); d != emb.Dim() {
			return nil, fmt.Errorf("engine: %s classifier expects dim %d, embedder produces %d: %w",
				h.name, d, emb.Dim(), svm.ErrDimensionMismatch)
		}
		if n, l := h.head.Classifier.NumClasses(), h.head.Codec.Len(); n != l {
			return nil, fmt.Errorf("engine: %s classifier has %d classes, codec has %d labels", h.name, n, l)
		}
	}
	if table == nil {
		table = recommend.Default()
	}
	warnings, err := table.Validate(emotion.Codec.Labels(), severity.Codec.Labels())
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	for _, w := range warnings {
		slog.Warn("recommendation table gap", "detail", w)
	}

	e := &Engine{
		embedder:  emb,
		emotion:   emotion,
		severity:  severity,
		table:     table,
		validator: validate.New(validate.DefaultMinLength),
		observe:   func(Stage) {},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Emotions returns the closed emotion label set.
func (e *Engine) Emotions() []string { return e.emotion.Codec.Labels() }

// Table returns the recommendation table in use.
func (e *Engine) Table() *recommend.Table { return e.table }

// Validate returns a *ValidationError when text would be rejected.
func (e *Engine) Validate(text string) error {
	if !e.validator.Meaningful(text) {
		return &ValidationError{Message: ValidationMessage}
	}
	return nil
}

// Analyze runs the full pipeline on one utterance. Rejected input never
// reaches the embedder.
func (e *Engine) Analyze(ctx context.Context, text string) (model.Analysis, error) {
	e.observe(StageValidating)
	if err := e.Validate(text); err != nil {
		e.observe(StageRejected)
		return model.Analysis{}, err
	}
	if err := ctx.Err(); err != nil {
		return model.Analysis{}, err
	}

	e.observe(StageEmbedding)
	vec, err := e.embedder.Embed(text)
	if err != nil {
		return model.Analysis{}, fmt.Errorf("engine: embed: %w", err)
	}
	return e.analyzeVector(text, vec)
}

// Result is one entry of a batch analysis.
type Result struct {
	Analysis model.Analysis
	Err      error
}

// AnalyzeBatch analyzes texts with a single embedder call for the accepted
// ones. Results are in input order; rejected rows carry a *ValidationError.
func (e *Engine) AnalyzeBatch(ctx context.Context, texts []string) ([]Result, error) {
	results := make([]Result, len(texts))
	var accepted []int
	var batch []string
	for i, t := range texts {
		e.observe(StageValidating)
		if err := e.Validate(t); err != nil {
			e.observe(StageRejected)
			results[i].Err = err
			continue
		}
		accepted = append(accepted, i)
		batch = append(batch, t)
	}
	if len(batch) == 0 {
		return results, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.observe(StageEmbedding)
	vecs, err := e.embedder.EmbedBatch(batch)
	if err != nil {
		return nil, fmt.Errorf("engine: embed batch: %w", err)
	}
	for j, i := range accepted {
		results[i].Analysis, results[i].Err = e.analyzeVector(texts[i], vecs[j])
	}
	return results, nil
}

func (e *Engine) analyzeVector(text string, vec []float32) (model.Analysis, error) {
	e.observe(StageClassifyingEmotion)
	label, err := e.emotion.classify(vec)
	if err != nil {
		return model.Analysis{}, fmt.Errorf("engine: classify emotion: %w", err)
	}

	e.observe(StageCategorizing)
	a := model.Analysis{
		ID:        uuid.NewString(),
		Text:      strings.TrimSpace(text),
		Emotion:   model.NormalizeEmotion(label),
		Category:  model.Categorize(label),
		CreatedAt: e.now().UTC(),
	}

	if a.Category == model.Negative {
		e.observe(StageClassifyingSeverity)
		raw, err := e.severity.classify(vec)
		if err != nil {
			return model.Analysis{}, fmt.Errorf("engine: classify severity: %w", err)
		}
		sev, _, err := model.ParseSeverity(raw)
		if err != nil {
			return model.Analysis{}, fmt.Errorf("engine: severity label %q: %w", raw, err)
		}
		a.Severity = sev

		e.observe(StageRecommending)
		a.Recommendations = e.table.Lookup(a.Emotion, a.Severity)
	}

	e.observe(StageDone)
	return a, nil
}
