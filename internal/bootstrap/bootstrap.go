// Package bootstrap assembles the runtime from configuration. Commands and
// the public facade share it so every front end is wired the same way.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/crimson-sun/moodlens/internal/assist"
	"github.com/crimson-sun/moodlens/internal/chat"
	"github.com/crimson-sun/moodlens/internal/config"
	"github.com/crimson-sun/moodlens/internal/engine"
	"github.com/crimson-sun/moodlens/internal/engine/artifact"
	"github.com/crimson-sun/moodlens/internal/engine/embedder"
	"github.com/crimson-sun/moodlens/internal/engine/recommend"
	"github.com/crimson-sun/moodlens/internal/engine/validate"
	"github.com/crimson-sun/moodlens/internal/output"
	"github.com/crimson-sun/moodlens/internal/output/async"
	"github.com/crimson-sun/moodlens/internal/output/file"
	"github.com/crimson-sun/moodlens/internal/output/multi"
	"github.com/crimson-sun/moodlens/internal/output/stdout"
	"github.com/crimson-sun/moodlens/internal/session"
)

// EmbedderConfig maps engine settings onto the embedder.
func EmbedderConfig(c config.EngineConfig) embedder.Config {
	return embedder.Config{
		Backend:        c.Backend,
		ModelPath:      c.ModelPath,
		VocabPath:      c.VocabPath,
		ProjectionPath: c.ProjectionPath,
		LibraryPath:    c.LibraryPath,
		MaxSeqLen:      c.MaxSeqLen,
		Normalize:      c.Normalize,
	}
}

// LoadTable returns the table at path, or the built-in one when path is empty.
func LoadTable(path string) (*recommend.Table, error) {
	if path == "" {
		return recommend.Default(), nil
	}
	t, err := recommend.Load(path)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return t, nil
}

// NewEngine verifies set against emb and builds the pipeline.
func NewEngine(emb embedder.Embedder, set *artifact.Set, table *recommend.Table, minLength int, opts ...engine.Option) (*engine.Engine, error) {
	if err := set.Verify(emb.Dim()); err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	opts = append([]engine.Option{engine.WithValidator(validate.New(minLength))}, opts...)
	return engine.New(emb,
		engine.Head{Classifier: set.Emotion.Model, Codec: set.Emotion.Codec},
		engine.Head{Classifier: set.Severity.Model, Codec: set.Severity.Codec},
		table, opts...)
}

// Runtime is a loaded embedder plus the engine built on it.
type Runtime struct {
	Engine    *engine.Engine
	Embedder  embedder.Embedder
	Artifacts *artifact.Set
	Table     *recommend.Table
}

// Open loads the embedder, the artifact set and the recommendation table.
// Any mismatch between them is an error.
func Open(cfg config.Config) (*Runtime, error) {
	table, err := LoadTable(cfg.Engine.TablePath)
	if err != nil {
		return nil, err
	}
	set, err := artifact.Load(cfg.Artifacts.Dir)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	embCfg := EmbedderConfig(cfg.Engine)
	emb, err := embedder.Open(embCfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	if set.Manifest.Embedder != "" && set.Manifest.Embedder != embCfg.ID() {
		slog.Warn("artifacts were trained with a different embedder",
			"trained_with", set.Manifest.Embedder, "using", embCfg.ID())
	}

	eng, err := NewEngine(emb, set, table, cfg.Server.MinInputLength)
	if err != nil {
		emb.Close()
		return nil, err
	}
	slog.Info("engine ready",
		"embedder", embCfg.ID(),
		"dim", emb.Dim(),
		"emotions", set.Emotion.Codec.Len(),
		"severities", set.Severity.Codec.Len(),
	)
	return &Runtime{Engine: eng, Embedder: emb, Artifacts: set, Table: table}, nil
}

// Close releases the embedder.
func (r *Runtime) Close() error {
	return r.Embedder.Close()
}

// OpenSessions opens the configured chat session store.
func OpenSessions(ctx context.Context, c config.SessionConfig) (session.Store, error) {
	return session.Open(ctx, session.Config{
		Kind:        c.Store,
		DatabaseURL: c.DatabaseURL,
		SQLitePath:  c.SQLitePath,
	})
}

// OpenAudit returns the analysis audit sink, or nil when auditing is off.
// Each sink is wrapped so request handlers never wait on its I/O; several
// sinks are combined with multi.
func OpenAudit(c config.OutputConfig) (output.Output, error) {
	names := c.Sinks()
	if len(names) == 0 {
		return nil, nil
	}
	detail, err := output.ParseDetail(c.Detail)
	if err != nil {
		return nil, err
	}

	var sinks []output.Output
	closeAll := func() {
		for _, s := range sinks {
			s.Close()
		}
	}
	for _, name := range names {
		var sink output.Output
		switch name {
		case "stdout":
			sink = stdout.New(detail, c.Pretty)
		case "file":
			f, err := file.New(c.Path, detail, file.WithMaxSize(c.MaxSize))
			if err != nil {
				closeAll()
				return nil, err
			}
			sink = f
		default:
			closeAll()
			return nil, fmt.Errorf("bootstrap: unknown audit sink %q", name)
		}
		sinks = append(sinks, async.New(sink, async.WithDropOnFull()))
	}
	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return multi.New(sinks...), nil
}

// NewChat builds the chat service with whichever assist services are configured.
func NewChat(c config.AssistConfig, eng *engine.Engine, store session.Store) *chat.Service {
	opts := []chat.Option{chat.WithPositiveMessage(eng.Table().Positive())}
	if c.TranslateURL != "" {
		opts = append(opts, chat.WithTranslator(assist.NewTranslator(c.TranslateURL, c.TranslateAPIKey, c.TranslateTimeout)))
	}
	return chat.New(store, eng, assist.NewLLM(c.LLMURL, c.LLMModel, c.LLMTimeout), opts...)
}

// NewSpeech returns the speech client, or nil when no service is configured.
func NewSpeech(c config.AssistConfig) *assist.Speech {
	if c.SpeechURL == "" {
		return nil
	}
	return assist.NewSpeech(c.SpeechURL, c.SpeechLanguage, c.SpeechTimeout)
}
