// Package train fits the emotion and severity classifiers from a labeled
// dataset and produces an artifact set ready to be saved.
package train

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/crimson-sun/moodlens/internal/engine/artifact"
	"github.com/crimson-sun/moodlens/internal/engine/embedder"
	"github.com/crimson-sun/moodlens/internal/engine/labels"
	"github.com/crimson-sun/moodlens/internal/engine/svm"
)

// Config controls a training run.
type Config struct {
	TestSize     float64 // held-out fraction for evaluation
	EmotionSeed  uint64
	SeveritySeed uint64
	Balanced     bool
	SVM          svm.Params
	BatchSize    int
	EmbedderID   string
}

// DefaultConfig uses a 20% hold-out with the seeds of the reference run.
func DefaultConfig() Config {
	return Config{
		TestSize:     0.2,
		EmotionSeed:  22,
		SeveritySeed: 42,
		SVM:          svm.DefaultParams(),
		BatchSize:    32,
	}
}

// Result is the output of Run.
type Result struct {
	Set      *artifact.Set
	Emotion  Report
	Severity Report
}

// Run embeds every distinct text once, then trains and evaluates both
// classifiers. Models are fit on the training split only.
func Run(ctx context.Context, emb embedder.Embedder, ds Dataset, cfg Config) (*Result, error) {
	if len(ds.Emotion) == 0 {
		return nil, errors.New("train: no emotion rows after cleaning")
	}
	if len(ds.Severity) == 0 {
		return nil, errors.New("train: no severity rows after cleaning")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}

	vecs, err := embedAll(ctx, emb, cfg.BatchSize, ds.Emotion, ds.Severity)
	if err != nil {
		return nil, err
	}

	emotionPair, emotionReport, err := fitHead(ctx, "emotion", ds.Emotion, vecs, cfg, cfg.EmotionSeed)
	if err != nil {
		return nil, err
	}
	severityPair, severityReport, err := fitHead(ctx, "severity", ds.Severity, vecs, cfg, cfg.SeveritySeed)
	if err != nil {
		return nil, err
	}

	set := &artifact.Set{
		Emotion:  emotionPair,
		Severity: severityPair,
		Manifest: artifact.Manifest{
			Embedder:  cfg.EmbedderID,
			CreatedAt: time.Now().UTC(),
			Emotion:   info(emotionReport, cfg.Balanced),
			Severity:  info(severityReport, cfg.Balanced),
		},
	}
	return &Result{Set: set, Emotion: emotionReport, Severity: severityReport}, nil
}

func info(r Report, balanced bool) artifact.ModelInfo {
	return artifact.ModelInfo{
		Accuracy:  r.Accuracy,
		TrainRows: r.TrainRows,
		TestRows:  r.TestRows,
		Balanced:  balanced,
	}
}

func embedAll(ctx context.Context, emb embedder.Embedder, batchSize int, sets ...[]Sample) (map[string][]float32, error) {
	var texts []string
	seen := map[string]bool{}
	for _, set := range sets {
		for _, s := range set {
			if !seen[s.Text] {
				seen[s.Text] = true
				texts = append(texts, s.Text)
			}
		}
	}

	out := make(map[string][]float32, len(texts))
	start := time.Now()
	for i := 0; i < len(texts); i += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(i+batchSize, len(texts))
		vecs, err := emb.EmbedBatch(texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("train: embed rows %d-%d: %w", i, end, err)
		}
		for j, v := range vecs {
			out[texts[i+j]] = v
		}
		slog.Debug("embedded batch", "done", end, "total", len(texts))
	}
	slog.Info("embedded dataset", "texts", len(texts), "duration_ms", time.Since(start).Milliseconds())
	return out, nil
}

func fitHead(ctx context.Context, name string, samples []Sample, vecs map[string][]float32, cfg Config, seed uint64) (artifact.Pair, Report, error) {
	names := make([]string, len(samples))
	for i, s := range samples {
		names[i] = s.Label
	}
	codec := labels.Fit(names)
	ys, err := codec.EncodeAll(names)
	if err != nil {
		return artifact.Pair{}, Report{}, fmt.Errorf("train: %s: %w", name, err)
	}

	trainIdx, testIdx := Split(len(samples), cfg.TestSize, seed)
	gather := func(idx []int) ([][]float32, []int) {
		xs := make([][]float32, len(idx))
		y := make([]int, len(idx))
		for j, i := range idx {
			xs[j] = vecs[samples[i].Text]
			y[j] = ys[i]
		}
		return xs, y
	}
	xTrain, yTrain := gather(trainIdx)
	xTest, yTest := gather(testIdx)

	if err := ctx.Err(); err != nil {
		return artifact.Pair{}, Report{}, err
	}
	params := cfg.SVM
	params.Balanced = cfg.Balanced
	params.Seed = seed
	start := time.Now()
	m, err := svm.Fit(xTrain, yTrain, codec.Len(), params)
	if err != nil {
		return artifact.Pair{}, Report{}, fmt.Errorf("train: fit %s: %w", name, err)
	}
	m.Fingerprint = codec.Fingerprint()

	pred, err := m.PredictBatch(xTest)
	if err != nil {
		return artifact.Pair{}, Report{}, fmt.Errorf("train: evaluate %s: %w", name, err)
	}
	report := evaluate(name, codec.Labels(), yTest, pred)
	report.TrainRows = len(xTrain)

	slog.Info("trained classifier",
		"model", name,
		"classes", codec.Len(),
		"train_rows", report.TrainRows,
		"test_rows", report.TestRows,
		"accuracy", report.Accuracy,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return artifact.Pair{Model: m, Codec: codec}, report, nil
}
