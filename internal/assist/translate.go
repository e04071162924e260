package assist

import (
	"context"
	"fmt"
	"time"
	"unicode"

	"github.com/crimson-sun/moodlens/internal/assist/httpclient"
)

// Language codes used by the chat front end.
const (
	LangEnglish = "en"
	LangKannada = "kn"
)

// ContainsKannada reports whether text has any rune in the Kannada block.
func ContainsKannada(text string) bool {
	for _, r := range text {
		if unicode.Is(unicode.Kannada, r) {
			return true
		}
	}
	return false
}

// Translator calls a LibreTranslate-compatible /translate endpoint.
type Translator struct {
	client *httpclient.Client
}

// NewTranslator creates a translator for the service at baseURL.
func NewTranslator(baseURL, apiKey string, timeout time.Duration) *Translator {
	opts := []httpclient.Option{}
	if timeout > 0 {
		opts = append(opts, httpclient.WithTimeout(timeout))
	}
	if apiKey != "" {
		opts = append(opts, httpclient.WithToken(apiKey))
	}
	return &Translator{client: httpclient.New(baseURL, opts...)}
}

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
}

// Translate converts text from source to target language. Empty text is
// returned unchanged without a network call.
func (t *Translator) Translate(ctx context.Context, text, source, target string) (string, error) {
	if text == "" {
		return "", nil
	}
	var resp translateResponse
	req := translateRequest{Q: text, Source: source, Target: target, Format: "text"}
	if err := t.client.PostJSON(ctx, "/translate", req, &resp); err != nil {
		return "", fmt.Errorf("assist: translate %s->%s: %w", source, target, err)
	}
	return resp.TranslatedText, nil
}
