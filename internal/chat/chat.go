// Package chat runs conversational sessions: each user message is analyzed,
// answered with a generated suggestion and recorded in the session log.
// Kannada input is translated to English for analysis and the reply is
// translated back.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/crimson-sun/moodlens/internal/assist"
	"github.com/crimson-sun/moodlens/internal/model"
	"github.com/crimson-sun/moodlens/internal/session"
)

// Greeting opens every session.
const Greeting = "Hey there 👋 I'm here to listen. How are you feeling today?"

// Analyzer classifies one utterance.
type Analyzer interface {
	Validate(text string) error
	Analyze(ctx context.Context, text string) (model.Analysis, error)
}

// Suggester produces the assistant's reply. It never fails; implementations
// return a fallback instead.
type Suggester interface {
	Suggest(ctx context.Context, text string, emotion model.Emotion, severity model.Severity) string
}

// Translator converts text between languages.
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// Reply is the outcome of one user message.
type Reply struct {
	Turn           model.Turn     `json:"turn"`
	Analysis       model.Analysis `json:"analysis"`
	EmotionDisplay string         `json:"emotionDisplay"`
}

// Option configures a Service.
type Option func(*Service)

// WithTranslator enables the Kannada round trip.
func WithTranslator(t Translator) Option {
	return func(s *Service) { s.translator = t }
}

// WithPositiveMessage sets the reply used for positive emotions when
// generation falls back.
func WithPositiveMessage(msg string) Option {
	return func(s *Service) { s.positive = msg }
}

// WithClock overrides time.Now for turn timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service orchestrates chat sessions.
type Service struct {
	store      session.Store
	analyzer   Analyzer
	suggester  Suggester
	translator Translator
	positive   string
	now        func() time.Time
}

// New creates a Service.
func New(store session.Store, analyzer Analyzer, suggester Suggester, opts ...Option) *Service {
	s := &Service{
		store:     store,
		analyzer:  analyzer,
		suggester: suggester,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start creates a session seeded with the greeting.
func (s *Service) Start(ctx context.Context) (string, []model.Turn, error) {
	id := uuid.NewString()
	if err := s.store.Create(ctx, id); err != nil {
		return "", nil, fmt.Errorf("chat: start: %w", err)
	}
	greeting := model.Turn{Role: model.RoleAssistant, Content: Greeting, CreatedAt: s.now().UTC()}
	if err := s.store.Append(ctx, id, greeting); err != nil {
		return "", nil, fmt.Errorf("chat: start: %w", err)
	}
	slog.Debug("session started", "session_id", id)
	return id, []model.Turn{greeting}, nil
}

// Send handles one user message. Messages that fail validation are rejected
// before anything is recorded.
func (s *Service) Send(ctx context.Context, id, text string) (Reply, error) {
	if err := s.analyzer.Validate(text); err != nil {
		return Reply{}, err
	}
	userTurn := model.Turn{Role: model.RoleUser, Content: text, CreatedAt: s.now().UTC()}
	if err := s.store.Append(ctx, id, userTurn); err != nil {
		return Reply{}, fmt.Errorf("chat: send: %w", err)
	}

	kannada := s.translator != nil && assist.ContainsKannada(text)
	input := text
	lang := assist.LangEnglish
	if kannada {
		lang = assist.LangKannada
		input = s.translate(ctx, text, assist.LangKannada, assist.LangEnglish)
	}

	analysis, err := s.analyzer.Analyze(ctx, input)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Reply{}, ctxErr
		}
		slog.Warn("classification failed, continuing as unknown", "session_id", id, "error", err)
		analysis = model.Analysis{
			ID:        uuid.NewString(),
			Text:      input,
			Emotion:   model.Unknown,
			Category:  model.Neutral,
			CreatedAt: s.now().UTC(),
		}
	}

	suggestion := s.suggester.Suggest(ctx, input, analysis.Emotion, analysis.Severity)
	if suggestion == assist.FallbackSuggestion && analysis.Category == model.Positive && s.positive != "" {
		suggestion = s.positive
	}

	display := string(analysis.Emotion)
	if kannada {
		suggestion = s.translate(ctx, suggestion, assist.LangEnglish, assist.LangKannada)
		display = s.translate(ctx, display, assist.LangEnglish, assist.LangKannada)
	}
	analysis.Suggestion = suggestion
	analysis.Language = lang

	reply := model.Turn{
		Role:      model.RoleAssistant,
		Content:   suggestion,
		Emotion:   analysis.Emotion,
		Severity:  analysis.Severity,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Append(ctx, id, reply); err != nil {
		return Reply{}, fmt.Errorf("chat: send: %w", err)
	}
	return Reply{Turn: reply, Analysis: analysis, EmotionDisplay: display}, nil
}

// translate returns text unchanged when translation fails.
func (s *Service) translate(ctx context.Context, text, source, target string) string {
	out, err := s.translator.Translate(ctx, text, source, target)
	if err != nil || out == "" {
		if err != nil {
			slog.Warn("translation failed, using original text", "source", source, "target", target, "error", err)
		}
		return text
	}
	return out
}

// History returns the session's turns in order.
func (s *Service) History(ctx context.Context, id string) ([]model.Turn, error) {
	turns, err := s.store.List(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("chat: history: %w", err)
	}
	return turns, nil
}

// End deletes the session.
func (s *Service) End(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("chat: end: %w", err)
	}
	return nil
}

// IsNotFound reports whether err means the session does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, session.ErrNotFound)
}
