package model

import "time"

// Analysis is the result of running one utterance through the prediction
// pipeline. Severity and Recommendations are only set for Negative results.
type Analysis struct {
	ID              string    `json:"id"`
	Text            string    `json:"text,omitempty"`
	Emotion         Emotion   `json:"emotion"`
	Category        Category  `json:"category,omitempty"`
	Severity        Severity  `json:"severity,omitempty"`
	Recommendations []string  `json:"recommendations,omitempty"`
	Suggestion      string    `json:"suggestion,omitempty"`
	Language        string    `json:"language,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}
