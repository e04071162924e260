package moodlens

import (
	"time"

	"github.com/crimson-sun/moodlens/internal/model"
)

// Result is the public analysis of one utterance. It is the stable public
// type; internal representations may change without breaking callers.
type Result struct {
	ID              string    `json:"id"`
	Text            string    `json:"text"`
	Emotion         string    `json:"emotion"`                   // lower-case label, e.g. "fear"
	Category        string    `json:"category"`                  // Positive, Neutral or Negative
	Severity        string    `json:"severity,omitempty"`        // Low, Moderate or High; negative only
	Recommendations []string  `json:"recommendations,omitempty"` // negative only
	CreatedAt       time.Time `json:"createdAt"`
}

// Negative reports whether the result carries a severity.
func (r Result) Negative() bool { return r.Category == string(model.Negative) }

func resultFromAnalysis(a model.Analysis) Result {
	return Result{
		ID:              a.ID,
		Text:            a.Text,
		Emotion:         string(a.Emotion),
		Category:        string(a.Category),
		Severity:        string(a.Severity),
		Recommendations: a.Recommendations,
		CreatedAt:       a.CreatedAt,
	}
}
