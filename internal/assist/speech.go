package assist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/crimson-sun/moodlens/internal/assist/httpclient"
)

// User-facing speech failure messages.
const (
	MsgNotUnderstood = "Sorry, I couldn't understand that."
	MsgUnavailable   = "Speech recognition service unavailable."
)

// DefaultSpeechLanguage is the recognition locale.
const DefaultSpeechLanguage = "kn-IN"

var (
	// ErrNotUnderstood means the service was reached but found no speech.
	ErrNotUnderstood = errors.New("assist: speech not understood")
	// ErrUnavailable means the service could not be reached or failed.
	ErrUnavailable = errors.New("assist: speech service unavailable")
)

// SpeechMessage maps a Transcribe error to the message shown to the user.
func SpeechMessage(err error) string {
	if errors.Is(err, ErrNotUnderstood) {
		return MsgNotUnderstood
	}
	return MsgUnavailable
}

// Speech uploads recorded audio to a /transcribe endpoint.
type Speech struct {
	client   *httpclient.Client
	language string
}

// NewSpeech creates a speech client. An empty language uses kn-IN.
func NewSpeech(baseURL, language string, timeout time.Duration) *Speech {
	if language == "" {
		language = DefaultSpeechLanguage
	}
	opts := []httpclient.Option{}
	if timeout > 0 {
		opts = append(opts, httpclient.WithTimeout(timeout))
	}
	return &Speech{client: httpclient.New(baseURL, opts...), language: language}
}

type transcribeResponse struct {
	Text string `json:"text"`
}

// Transcribe returns the recognised text. Errors wrap ErrNotUnderstood or
// ErrUnavailable.
func (s *Speech) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	if filename == "" {
		filename = "audio.wav"
	}
	var resp transcribeResponse
	err := s.client.PostMultipart(ctx, "/transcribe", map[string]string{"language": s.language}, "audio", filename, audio, &resp)
	if err != nil {
		var apiErr *httpclient.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnprocessableEntity {
			return "", fmt.Errorf("%w: %v", ErrNotUnderstood, err)
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", ErrNotUnderstood
	}
	return text, nil
}
