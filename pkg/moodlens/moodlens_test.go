package moodlens

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/crimson-sun/moodlens/internal/engine/embedder/embeddertest"
	"github.com/crimson-sun/moodlens/internal/engine/recommend"
	"github.com/crimson-sun/moodlens/internal/engine/testdata"
	"github.com/crimson-sun/moodlens/internal/train"
)

const testModelDir = "../../models/all-mpnet-base-v2"

func skipWithoutModel(t *testing.T) {
	t.Helper()
	if _, err := os.Stat(filepath.Join(testModelDir, "model.onnx")); os.IsNotExist(err) {
		t.Skip("ONNX model not available, skipping integration test")
	}
}

// newKeywordLens trains on the test corpus and saves the artifacts, so the
// facade loads them exactly as it would from `moodlens train`.
func newKeywordLens(t *testing.T, minLength int) *MoodLens {
	t.Helper()
	emb := embeddertest.New(testdata.Keywords...)
	rows, err := train.LoadCSV(bytes.NewReader(testdata.CorpusCSV), train.EncodingUTF8)
	if err != nil {
		t.Fatal(err)
	}
	ds, _ := train.Clean(rows, 3)
	cfg := train.DefaultConfig()
	cfg.TestSize = 0
	cfg.SVM.C = 10
	res, err := train.Run(context.Background(), emb, ds, cfg)
	if err != nil {
		t.Fatalf("train.Run: %v", err)
	}
	dir := t.TempDir()
	if err := res.Set.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}
	m, err := newWithEmbedder(emb, dir, recommend.Default(), minLength)
	if err != nil {
		t.Fatalf("newWithEmbedder: %v", err)
	}
	return m
}

func TestNewBadPathReturnsError(t *testing.T) {
	if _, err := New(WithModelDir("/nonexistent/path"), WithArtifactDir(t.TempDir())); err == nil {
		t.Fatal("expected error for bad model path, got nil")
	}
}

func TestNewMissingArtifacts(t *testing.T) {
	if _, err := New(WithArtifactDir("/nonexistent/artifacts")); err == nil {
		t.Fatal("expected error for missing artifacts")
	}
}

func TestAnalyze(t *testing.T) {
	m := newKeywordLens(t, 3)
	defer m.Close()

	r, err := m.Analyze("I am extremely scared of the dark")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if r.Emotion != "fear" || r.Category != "Negative" || r.Severity != "High" || !r.Negative() {
		t.Errorf("result = %+v", r)
	}
	if len(r.Recommendations) == 0 {
		t.Error("negative result should carry recommendations")
	}

	r, err = m.Analyze("what a wonderful day")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if r.Category != "Positive" || r.Severity != "" || r.Recommendations != nil {
		t.Errorf("positive result = %+v", r)
	}
}

func TestAnalyzeRejects(t *testing.T) {
	m := newKeywordLens(t, 3)
	for _, in := range []string{"", "   ", "ok", "1234!"} {
		if _, err := m.Analyze(in); !IsNotMeaningful(err) {
			t.Errorf("Analyze(%q) err = %v, want ErrNotMeaningful", in, err)
		}
	}
}

func TestMinInputLength(t *testing.T) {
	m := newKeywordLens(t, 2)
	if _, err := m.Analyze("ok"); err != nil {
		t.Errorf("min length 2 should accept %q: %v", "ok", err)
	}
}

func TestAnalyzeBatchMatchesIndividual(t *testing.T) {
	m := newKeywordLens(t, 3)
	texts := []string{"I feel so lonely and sad", "x", "slightly annoyed today"}

	results, errs, err := m.AnalyzeBatch(texts)
	if err != nil {
		t.Fatalf("AnalyzeBatch: %v", err)
	}
	if !IsNotMeaningful(errs[1]) {
		t.Errorf("errs[1] = %v", errs[1])
	}
	for _, i := range []int{0, 2} {
		if errs[i] != nil {
			t.Fatalf("errs[%d] = %v", i, errs[i])
		}
		single, err := m.Analyze(texts[i])
		if err != nil {
			t.Fatal(err)
		}
		if single.Emotion != results[i].Emotion || single.Severity != results[i].Severity {
			t.Errorf("batch[%d] = %+v, single = %+v", i, results[i], single)
		}
	}
}

func TestConcurrentAnalyze(t *testing.T) {
	m := newKeywordLens(t, 3)
	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Analyze("I am worried and anxious"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestEmotions(t *testing.T) {
	m := newKeywordLens(t, 3)
	want := []string{"anger", "anxiety", "depression", "fear", "happy", "neutral", "sad"}
	if got := m.Emotions(); !reflect.DeepEqual(got, want) {
		t.Errorf("Emotions = %v, want %v", got, want)
	}
}

func TestOptionsDefaults(t *testing.T) {
	o := defaultOptions()
	if o.backend != "onnx" || o.artifactDir != "artifacts" || o.minLength != 3 || o.maxSeqLen != 384 {
		t.Errorf("defaults = %+v", o)
	}
}

func TestResolvePaths(t *testing.T) {
	tests := []struct {
		name                    string
		opts                    []Option
		model, vocab, projected string
	}{
		{"explicit", []Option{WithModelPaths("/a/m.onnx", "/a/v.txt", "/a/p.safetensors")}, "/a/m.onnx", "/a/v.txt", "/a/p.safetensors"},
		{"dir", []Option{WithModelDir("/m")}, "/m/model.onnx", "/m/vocab.txt", ""},
		{"default", nil, filepath.Join("models", "all-mpnet-base-v2", "model.onnx"), filepath.Join("models", "all-mpnet-base-v2", "vocab.txt"), ""},
		{"hugot", []Option{WithHugot("/h")}, "/h", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := defaultOptions()
			for _, opt := range tt.opts {
				opt(&o)
			}
			m, v, p := resolvePaths(o)
			if m != tt.model || v != tt.vocab || p != tt.projected {
				t.Errorf("resolvePaths = (%q, %q, %q), want (%q, %q, %q)", m, v, p, tt.model, tt.vocab, tt.projected)
			}
		})
	}
}

func TestNewWithModel(t *testing.T) {
	skipWithoutModel(t)
	if _, err := os.Stat("../../artifacts/manifest.json"); err != nil {
		t.Skip("no trained artifacts, skipping integration test")
	}
	m, err := New(WithModelDir(testModelDir), WithArtifactDir("../../artifacts"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer m.Close()
	if _, err := m.Analyze("I feel hopeless and empty"); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
}
