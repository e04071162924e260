// Package server exposes the analysis pipeline and chat sessions over HTTP.
package server

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/crimson-sun/moodlens/internal/chat"
	"github.com/crimson-sun/moodlens/internal/model"
	"github.com/crimson-sun/moodlens/internal/output"
	"github.com/crimson-sun/moodlens/internal/server/middleware"
)

//go:embed templates/*.html
var templateFS embed.FS

// Analyzer runs one utterance through the pipeline.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (model.Analysis, error)
}

// Transcriber converts uploaded audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
}

// Config holds the server's dependencies. Chat, Speech and Audit are optional.
type Config struct {
	Analyzer       Analyzer
	Chat           *chat.Service
	Speech         Transcriber
	Audit          output.Output
	AllowedOrigins []string
	// MaxUploadBytes bounds speech uploads.
	MaxUploadBytes int64
}

const defaultMaxUpload = 10 << 20

// Server wires HTTP handlers to the engine and chat service.
type Server struct {
	analyzer  Analyzer
	chat      *chat.Service
	speech    Transcriber
	audit     output.Output
	origins   []string
	maxUpload int64
}

// New creates a Server.
func New(cfg Config) (*Server, error) {
	if cfg.Analyzer == nil {
		return nil, errors.New("server: analyzer is required")
	}
	s := &Server{
		analyzer:  cfg.Analyzer,
		chat:      cfg.Chat,
		speech:    cfg.Speech,
		audit:     cfg.Audit,
		origins:   cfg.AllowedOrigins,
		maxUpload: cfg.MaxUploadBytes,
	}
	if s.maxUpload <= 0 {
		s.maxUpload = defaultMaxUpload
	}
	return s, nil
}

// Router builds the gin engine with middleware and routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(s.origins),
	)
	r.SetHTMLTemplate(template.Must(template.ParseFS(templateFS, "templates/*.html")))

	r.GET("/", s.handleForm)
	r.POST("/", s.handleForm)

	api := r.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.POST("/analyze", s.handleAnalyze)
	if s.chat != nil {
		api.POST("/sessions", s.handleCreateSession)
		api.GET("/sessions/:id/messages", s.handleListMessages)
		api.POST("/sessions/:id/messages", s.handleSendMessage)
		api.POST("/sessions/:id/speech", s.handleSpeech)
		api.DELETE("/sessions/:id", s.handleDeleteSession)
		api.GET("/ws/chat", s.handleChatSocket)
	}
	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down http server", "timeout", shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// record sends a to the audit sink, if any. Failures are logged only.
func (s *Server) record(ctx context.Context, a model.Analysis) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Write(ctx, a); err != nil {
		slog.Warn("audit write failed", "analysis_id", a.ID, "error", err)
	}
}
