package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config holds all MoodLens configuration.
type Config struct {
	Server    ServerConfig
	Engine    EngineConfig
	Artifacts ArtifactsConfig
	Assist    AssistConfig
	Session   SessionConfig
	Output    OutputConfig
	Log       LogConfig
}

// ServerConfig holds HTTP front end settings.
type ServerConfig struct {
	Addr            string
	Mode            string // gin mode: "release", "debug", "test"
	CORSOrigins     []string
	MinInputLength  int
	ShutdownTimeout time.Duration
}

// EngineConfig holds embedder settings.
type EngineConfig struct {
	Backend        string // "onnx" or "hugot"
	ModelPath      string
	VocabPath      string
	ProjectionPath string
	LibraryPath    string
	MaxSeqLen      int
	Normalize      bool
	TablePath      string // recommendation table override; empty uses the built-in table
}

// ArtifactsConfig locates the trained classifier set.
type ArtifactsConfig struct {
	Dir string
}

// AssistConfig holds the optional external services. An empty URL disables
// the service.
type AssistConfig struct {
	LLMURL           string
	LLMModel         string
	LLMTimeout       time.Duration
	TranslateURL     string
	TranslateAPIKey  string
	TranslateTimeout time.Duration
	SpeechURL        string
	SpeechLanguage   string
	SpeechTimeout    time.Duration
}

// SessionConfig selects the chat session store.
type SessionConfig struct {
	Store       string // "memory", "postgres", "sqlite"
	DatabaseURL string
	SQLitePath  string
}

// OutputConfig holds the analysis audit sink settings.
type OutputConfig struct {
	Audit   string // comma-separated sinks: "none", "stdout", "file"
	Path    string
	Pretty  bool
	Detail  string // "minimal", "standard", "full"
	MaxSize int64
}

// Sinks lists the configured audit sinks without duplicates. "none" and
// empty entries are dropped.
func (c OutputConfig) Sinks() []string {
	var sinks []string
	seen := map[string]bool{}
	for _, s := range strings.Split(c.Audit, ",") {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || s == "none" || seen[s] {
			continue
		}
		seen[s] = true
		sinks = append(sinks, s)
	}
	return sinks
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first when present; real
// environment variables take precedence over it.
func Load() Config {
	loadDotEnv(".env")
	return Config{
		Server: ServerConfig{
			Addr:            getenv("MOODLENS_ADDR", ":8080"),
			Mode:            getenv("MOODLENS_MODE", "release"),
			CORSOrigins:     getenvList("MOODLENS_CORS_ORIGINS", []string{"*"}),
			MinInputLength:  getenvInt("MOODLENS_MIN_INPUT_LENGTH", 3),
			ShutdownTimeout: getenvDuration("MOODLENS_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Engine: EngineConfig{
			Backend:        getenv("MOODLENS_EMBEDDER", "onnx"),
			ModelPath:      getenv("MOODLENS_MODEL_PATH", "models/all-mpnet-base-v2/model.onnx"),
			VocabPath:      getenv("MOODLENS_VOCAB_PATH", "models/all-mpnet-base-v2/vocab.txt"),
			ProjectionPath: os.Getenv("MOODLENS_PROJECTION_PATH"),
			LibraryPath:    os.Getenv("MOODLENS_ONNX_LIBRARY"),
			MaxSeqLen:      getenvInt("MOODLENS_MAX_SEQ_LEN", 384),
			Normalize:      getenvBool("MOODLENS_NORMALIZE", true),
			TablePath:      os.Getenv("MOODLENS_RECOMMENDATIONS"),
		},
		Artifacts: ArtifactsConfig{
			Dir: getenv("MOODLENS_ARTIFACT_DIR", "artifacts"),
		},
		Assist: AssistConfig{
			LLMURL:           getenv("MOODLENS_LLM_URL", "http://localhost:11434"),
			LLMModel:         getenv("MOODLENS_LLM_MODEL", "vicuna"),
			LLMTimeout:       getenvDuration("MOODLENS_LLM_TIMEOUT", 90*time.Second),
			TranslateURL:     os.Getenv("MOODLENS_TRANSLATE_URL"),
			TranslateAPIKey:  os.Getenv("MOODLENS_TRANSLATE_API_KEY"),
			TranslateTimeout: getenvDuration("MOODLENS_TRANSLATE_TIMEOUT", 15*time.Second),
			SpeechURL:        os.Getenv("MOODLENS_SPEECH_URL"),
			SpeechLanguage:   getenv("MOODLENS_SPEECH_LANGUAGE", "kn-IN"),
			SpeechTimeout:    getenvDuration("MOODLENS_SPEECH_TIMEOUT", 30*time.Second),
		},
		Session: SessionConfig{
			Store:       getenv("MOODLENS_SESSION_STORE", "memory"),
			DatabaseURL: os.Getenv("MOODLENS_DATABASE_URL"),
			SQLitePath:  getenv("MOODLENS_SQLITE_PATH", "moodlens.db"),
		},
		Output: OutputConfig{
			Audit:   getenv("MOODLENS_AUDIT", "none"),
			Path:    getenv("MOODLENS_AUDIT_PATH", "analyses.jsonl"),
			Pretty:  getenvBool("MOODLENS_OUTPUT_PRETTY", false),
			Detail:  getenv("MOODLENS_AUDIT_DETAIL", "standard"),
			MaxSize: int64(getenvInt("MOODLENS_AUDIT_MAX_BYTES", 0)),
		},
		Log: LogConfig{
			Level: getenv("MOODLENS_LOG_LEVEL", "info"),
		},
	}
}

// Validate checks serving configuration and returns every problem found.
func (c Config) Validate() error {
	var errs []error

	if c.Server.MinInputLength < 1 {
		errs = append(errs, fmt.Errorf("min input length must be >= 1, got %d", c.Server.MinInputLength))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("shutdown timeout must be positive, got %s", c.Server.ShutdownTimeout))
	}
	switch c.Server.Mode {
	case "release", "debug", "test":
	default:
		errs = append(errs, fmt.Errorf("server mode must be release, debug or test, got %q", c.Server.Mode))
	}

	if err := c.ValidateEngine(); err != nil {
		errs = append(errs, err)
	}
	if _, err := os.Stat(c.Artifacts.Dir); err != nil {
		errs = append(errs, fmt.Errorf("artifact dir: %w", err))
	}

	switch c.Session.Store {
	case "memory":
	case "postgres":
		if c.Session.DatabaseURL == "" {
			errs = append(errs, errors.New("MOODLENS_DATABASE_URL is required for the postgres session store"))
		}
	case "sqlite":
		if c.Session.SQLitePath == "" {
			errs = append(errs, errors.New("MOODLENS_SQLITE_PATH is required for the sqlite session store"))
		}
	default:
		errs = append(errs, fmt.Errorf("session store must be memory, postgres or sqlite, got %q", c.Session.Store))
	}

	for _, s := range c.Output.Sinks() {
		if s != "stdout" && s != "file" {
			errs = append(errs, fmt.Errorf("audit sink must be none, stdout or file, got %q", s))
		}
	}
	switch c.Output.Detail {
	case "minimal", "standard", "full":
	default:
		errs = append(errs, fmt.Errorf("audit detail must be minimal, standard or full, got %q", c.Output.Detail))
	}
	if c.Output.MaxSize < 0 {
		errs = append(errs, fmt.Errorf("audit max size must be >= 0, got %d", c.Output.MaxSize))
	}

	for name, d := range map[string]time.Duration{
		"llm":       c.Assist.LLMTimeout,
		"translate": c.Assist.TranslateTimeout,
		"speech":    c.Assist.SpeechTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s timeout must be positive, got %s", name, d))
		}
	}

	return errors.Join(errs...)
}

// ValidateEngine checks only the embedder settings. Training and batch
// prediction need no server or session configuration.
func (c Config) ValidateEngine() error {
	var errs []error
	switch c.Engine.Backend {
	case "onnx":
		if _, err := os.Stat(c.Engine.ModelPath); err != nil {
			errs = append(errs, fmt.Errorf("model file: %w", err))
		}
		if _, err := os.Stat(c.Engine.VocabPath); err != nil {
			errs = append(errs, fmt.Errorf("vocab file: %w", err))
		}
		if c.Engine.ProjectionPath != "" {
			if _, err := os.Stat(c.Engine.ProjectionPath); err != nil {
				errs = append(errs, fmt.Errorf("projection file: %w", err))
			}
		}
	case "hugot":
		if _, err := os.Stat(c.Engine.ModelPath); err != nil {
			errs = append(errs, fmt.Errorf("model path: %w", err))
		}
	default:
		errs = append(errs, fmt.Errorf("embedder must be onnx or hugot, got %q", c.Engine.Backend))
	}
	if c.Engine.MaxSeqLen < 2 {
		errs = append(errs, fmt.Errorf("max sequence length must be >= 2, got %d", c.Engine.MaxSeqLen))
	}
	return errors.Join(errs...)
}

func loadDotEnv(path string) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not read env file", "path", path, "error", err)
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

// getenvList splits a comma-separated value, dropping empty items.
func getenvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
