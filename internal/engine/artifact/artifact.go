// Package artifact persists and loads the trained classifiers as one matched set.
//
// A set is two (model, codec) pairs plus a manifest. Everything is checked on
// load: each model must have been trained against its codec, shapes must agree
// and the embedding dimension must match the embedder the caller will use.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/crimson-sun/moodlens/internal/engine/labels"
	"github.com/crimson-sun/moodlens/internal/engine/svm"
	"github.com/crimson-sun/moodlens/internal/model"
)

// File names inside an artifact directory.
const (
	EmotionModelFile   = "emotion_svm.gob"
	EmotionLabelsFile  = "emotion_labels.json"
	SeverityModelFile  = "severity_svm.gob"
	SeverityLabelsFile = "severity_labels.json"
	ManifestFile       = "manifest.json"
)

const manifestVersion = 1

// ErrMismatch reports artifacts that do not belong together.
var ErrMismatch = errors.New("artifact: mismatched artifacts")

// ModelInfo describes one trained classifier.
type ModelInfo struct {
	Labels      []string `json:"labels"`
	Fingerprint string   `json:"fingerprint"`
	Accuracy    float64  `json:"accuracy"`
	TrainRows   int      `json:"trainRows"`
	TestRows    int      `json:"testRows"`
	Balanced    bool     `json:"balanced"`
}

// Manifest ties a set together.
type Manifest struct {
	Version      int       `json:"version"`
	Embedder     string    `json:"embedder"`
	EmbeddingDim int       `json:"embeddingDim"`
	CreatedAt    time.Time `json:"createdAt"`
	Emotion      ModelInfo `json:"emotion"`
	Severity     ModelInfo `json:"severity"`
}

// Pair is a classifier and the codec that decodes its output.
type Pair struct {
	Model *svm.Model
	Codec *labels.Codec
}

// Set is a complete, loadable artifact directory.
type Set struct {
	Emotion  Pair
	Severity Pair
	Manifest Manifest
}

// Save writes the set into dir, creating it if needed. The manifest is written
// last so a partially written directory fails to load.
func (s *Set) Save(dir string) error {
	if err := s.check(); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("artifact: %w", err)
	}

	m := s.Manifest
	m.Version = manifestVersion
	m.EmbeddingDim = s.Emotion.Model.Dim()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	m.Emotion.Labels = s.Emotion.Codec.Labels()
	m.Emotion.Fingerprint = s.Emotion.Codec.Fingerprint()
	m.Severity.Labels = s.Severity.Codec.Labels()
	m.Severity.Fingerprint = s.Severity.Codec.Fingerprint()

	steps := []struct {
		name string
		fn   func(string) error
	}{
		{EmotionModelFile, func(p string) error { return svm.Save(p, s.Emotion.Model) }},
		{EmotionLabelsFile, func(p string) error { return labels.Save(p, s.Emotion.Codec) }},
		{SeverityModelFile, func(p string) error { return svm.Save(p, s.Severity.Model) }},
		{SeverityLabelsFile, func(p string) error { return labels.Save(p, s.Severity.Codec) }},
		{ManifestFile, func(p string) error { return writeManifest(p, m) }},
	}
	for _, step := range steps {
		if err := step.fn(filepath.Join(dir, step.name)); err != nil {
			return fmt.Errorf("artifact: write %s: %w", step.name, err)
		}
	}
	s.Manifest = m
	return nil
}

// Load reads and cross-checks a set from dir.
func Load(dir string) (*Set, error) {
	var (
		s   Set
		err error
	)
	if s.Manifest, err = readManifest(filepath.Join(dir, ManifestFile)); err != nil {
		return nil, err
	}
	if s.Emotion.Model, err = svm.Load(filepath.Join(dir, EmotionModelFile)); err != nil {
		return nil, fmt.Errorf("artifact: %w", err)
	}
	if s.Emotion.Codec, err = labels.Load(filepath.Join(dir, EmotionLabelsFile)); err != nil {
		return nil, fmt.Errorf("artifact: %w", err)
	}
	if s.Severity.Model, err = svm.Load(filepath.Join(dir, SeverityModelFile)); err != nil {
		return nil, fmt.Errorf("artifact: %w", err)
	}
	if s.Severity.Codec, err = labels.Load(filepath.Join(dir, SeverityLabelsFile)); err != nil {
		return nil, fmt.Errorf("artifact: %w", err)
	}
	if err := s.check(); err != nil {
		return nil, err
	}
	if err := s.checkManifest(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Verify checks that both classifiers accept vectors of embeddingDim.
func (s *Set) Verify(embeddingDim int) error {
	if d := s.Emotion.Model.Dim(); d != embeddingDim {
		return fmt.Errorf("%w: emotion classifier expects dim %d, embedder produces %d", ErrMismatch, d, embeddingDim)
	}
	if d := s.Severity.Model.Dim(); d != embeddingDim {
		return fmt.Errorf("%w: severity classifier expects dim %d, embedder produces %d", ErrMismatch, d, embeddingDim)
	}
	return nil
}

func (s *Set) check() error {
	for _, p := range []struct {
		name string
		pair Pair
	}{{"emotion", s.Emotion}, {"severity", s.Severity}} {
		if p.pair.Model == nil || p.pair.Codec == nil {
			return fmt.Errorf("%w: %s pair incomplete", ErrMismatch, p.name)
		}
		if got, want := p.pair.Model.NumClasses(), p.pair.Codec.Len(); got != want {
			return fmt.Errorf("%w: %s model has %d classes, codec has %d labels", ErrMismatch, p.name, got, want)
		}
		if fp := p.pair.Codec.Fingerprint(); p.pair.Model.Fingerprint != fp {
			return fmt.Errorf("%w: %s model was trained against codec %.12s, found %.12s", ErrMismatch, p.name, p.pair.Model.Fingerprint, fp)
		}
	}
	if s.Emotion.Model.Dim() != s.Severity.Model.Dim() {
		return fmt.Errorf("%w: emotion dim %d, severity dim %d", ErrMismatch, s.Emotion.Model.Dim(), s.Severity.Model.Dim())
	}
	for _, l := range s.Severity.Codec.Labels() {
		sev, aliased, err := model.ParseSeverity(l)
		if err != nil || aliased || string(sev) != l {
			return fmt.Errorf("%w: severity codec has non-canonical label %q", ErrMismatch, l)
		}
	}
	return nil
}

func (s *Set) checkManifest() error {
	m := s.Manifest
	if m.EmbeddingDim != s.Emotion.Model.Dim() {
		return fmt.Errorf("%w: manifest dim %d, models dim %d", ErrMismatch, m.EmbeddingDim, s.Emotion.Model.Dim())
	}
	if m.Emotion.Fingerprint != s.Emotion.Codec.Fingerprint() {
		return fmt.Errorf("%w: emotion codec does not match manifest", ErrMismatch)
	}
	if m.Severity.Fingerprint != s.Severity.Codec.Fingerprint() {
		return fmt.Errorf("%w: severity codec does not match manifest", ErrMismatch)
	}
	return nil
}

func writeManifest(path string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func readManifest(path string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return m, fmt.Errorf("artifact: %w", err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("artifact: parse %s: %w", path, err)
	}
	if m.Version != manifestVersion {
		return m, fmt.Errorf("artifact: %s has unsupported version %d", path, m.Version)
	}
	return m, nil
}
