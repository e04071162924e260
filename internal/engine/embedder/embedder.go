// Package embedder turns utterances into fixed-size sentence vectors.
//
// Two backends are available. The ONNX backend runs a transformer export through
// ONNX Runtime with our own WordPiece tokenizer, mean pooling, an optional dense
// projection and L2 normalisation. The hugot backend runs a feature extraction
// pipeline in pure Go. Both are loaded once per process and are safe to share
// across goroutines.
package embedder

import (
	"fmt"
	"path/filepath"
)

// Backends.
const (
	BackendONNX  = "onnx"
	BackendHugot = "hugot"
)

// Embedder produces vector embeddings from text. Output length is Dim() and
// identical input always yields identical output.
type Embedder interface {
	Embed(text string) ([]float32, error)
	EmbedBatch(texts []string) ([][]float32, error)
	Dim() int
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Backend        string
	ModelPath      string // .onnx file (onnx) or model directory (hugot)
	VocabPath      string // vocab.txt, onnx only
	ProjectionPath string // optional safetensors dense layer, onnx only
	LibraryPath    string // onnxruntime shared library; defaults to libonnxruntime.so next to the model
	MaxSeqLen      int    // token limit including special tokens
	Normalize      bool   // L2-normalise output vectors
}

// DefaultMaxSeqLen matches all-mpnet-base-v2.
const DefaultMaxSeqLen = 384

// ID names the embedder for artifact manifests.
func (c Config) ID() string {
	return c.Backend + ":" + filepath.Base(c.ModelPath)
}

// Open constructs the configured backend.
func Open(cfg Config) (Embedder, error) {
	if cfg.MaxSeqLen <= 0 {
		cfg.MaxSeqLen = DefaultMaxSeqLen
	}
	switch cfg.Backend {
	case BackendONNX, "":
		return NewONNX(cfg)
	case BackendHugot:
		return NewHugot(cfg)
	default:
		return nil, fmt.Errorf("embedder: unknown backend %q", cfg.Backend)
	}
}

// ONNXEmbedder runs tokenize, inference, mean pool, projection and
// normalisation for each request.
type ONNXEmbedder struct {
	session   *onnxSession
	tok       *tokenizer
	proj      *projection // nil when no projection is configured
	normalize bool
}

// NewONNX loads the model, vocabulary and optional projection weights.
func NewONNX(cfg Config) (*ONNXEmbedder, error) {
	libPath := cfg.LibraryPath
	if libPath == "" {
		libPath = filepath.Join(filepath.Dir(cfg.ModelPath), "libonnxruntime.so")
	}
	sess, err := newONNXSession(cfg.ModelPath, libPath)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}

	maxLen := cfg.MaxSeqLen
	if maxLen <= 0 {
		maxLen = DefaultMaxSeqLen
	}
	tok, err := newTokenizer(cfg.VocabPath, maxLen)
	if err != nil {
		sess.close()
		return nil, fmt.Errorf("embedder: %w", err)
	}

	e := &ONNXEmbedder{session: sess, tok: tok, normalize: cfg.Normalize}
	if cfg.ProjectionPath != "" {
		proj, err := loadProjection(cfg.ProjectionPath)
		if err != nil {
			sess.close()
			return nil, fmt.Errorf("embedder: %w", err)
		}
		if int(sess.hiddenDim) != proj.inDim {
			sess.close()
			return nil, fmt.Errorf("embedder: model hidden dim %d != projection input dim %d",
				sess.hiddenDim, proj.inDim)
		}
		e.proj = proj
	}
	return e, nil
}

// Dim returns the output dimensionality (after projection, if any).
func (e *ONNXEmbedder) Dim() int {
	if e.proj != nil {
		return e.proj.outDim
	}
	return int(e.session.hiddenDim)
}

// Embed produces a single embedding vector.
func (e *ONNXEmbedder) Embed(text string) ([]float32, error) {
	vecs, err := e.EmbedBatch([]string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in one inference call, padded to the longest input.
func (e *ONNXEmbedder) EmbedBatch(texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	batch := e.tok.tokenizeBatch(texts)
	hidden, err := e.session.infer(batch)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}

	dim := e.session.hiddenDim
	pooled := meanPool(hidden, batch.attentionMask, batch.batchSize, batch.seqLen, dim)

	out := make([][]float32, batch.batchSize)
	for i := int64(0); i < batch.batchSize; i++ {
		vec := pooled[i*dim : (i+1)*dim]
		if e.proj != nil {
			vec = e.proj.apply(vec)
		}
		if e.normalize {
			l2Normalize(vec)
		}
		out[i] = vec
	}
	return out, nil
}

// Close releases ONNX Runtime resources.
func (e *ONNXEmbedder) Close() error {
	if e.session != nil {
		return e.session.close()
	}
	return nil
}
