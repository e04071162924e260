// Package assist talks to the optional network services around the
// classifier: text generation, translation and speech-to-text. Each call is a
// single attempt; failures degrade to a fixed fallback instead of an error
// surfaced to the user.
package assist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/crimson-sun/moodlens/internal/assist/httpclient"
	"github.com/crimson-sun/moodlens/internal/model"
)

// FallbackSuggestion replaces any failed or empty generation.
const FallbackSuggestion = "Stay calm and positive 💙. Take a deep breath or a short walk."

// Default generation settings.
const (
	DefaultLLMURL     = "http://localhost:11434"
	DefaultLLMModel   = "vicuna"
	DefaultLLMTimeout = 90 * time.Second
)

// LLM generates suggestions with an Ollama-compatible /api/generate endpoint.
type LLM struct {
	client *httpclient.Client
	model  string
}

// NewLLM creates a generator. Empty arguments take the defaults.
func NewLLM(baseURL, modelName string, timeout time.Duration) *LLM {
	if baseURL == "" {
		baseURL = DefaultLLMURL
	}
	if modelName == "" {
		modelName = DefaultLLMModel
	}
	if timeout <= 0 {
		timeout = DefaultLLMTimeout
	}
	return &LLM{
		client: httpclient.New(baseURL, httpclient.WithTimeout(timeout)),
		model:  modelName,
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// BuildPrompt frames the user's words with the detected emotion and, when
// known, its severity. The Unknown emotion is presented as neutral.
func BuildPrompt(text string, emotion model.Emotion, severity model.Severity) string {
	if emotion == model.Unknown || emotion == "" {
		emotion = "neutral"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You are an empathetic assistant. The user feels **%s**", emotion)
	if severity != model.SeverityNone {
		fmt.Fprintf(&b, " with severity **%s**", severity)
	}
	fmt.Fprintf(&b, ". Provide a short, caring, and motivating response.\n\nUser input: %s", text)
	return b.String()
}

// Generate sends prompt and returns the model's response. An empty response
// is an error.
func (l *LLM) Generate(ctx context.Context, prompt string) (string, error) {
	var resp generateResponse
	err := l.client.PostJSON(ctx, "/api/generate", generateRequest{Model: l.model, Prompt: prompt}, &resp)
	if err != nil {
		return "", fmt.Errorf("assist: generate: %w", err)
	}
	out := strings.TrimSpace(resp.Response)
	if out == "" {
		return "", errors.New("assist: generate: empty response")
	}
	return out, nil
}

// Suggest returns a generated suggestion or FallbackSuggestion on any failure.
func (l *LLM) Suggest(ctx context.Context, text string, emotion model.Emotion, severity model.Severity) string {
	start := time.Now()
	out, err := l.Generate(ctx, BuildPrompt(text, emotion, severity))
	if err != nil {
		slog.Warn("generation failed, using fallback", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return FallbackSuggestion
	}
	return out
}
