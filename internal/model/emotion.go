package model

import (
	"errors"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Emotion is a fine-grained emotion label. The set of valid values is closed
// by the emotion label codec loaded at startup; labels are stored lower-case.
type Emotion string

// Unknown is reported by the chat front end when the emotion classifier fails.
// It is outside every trained label set.
const Unknown Emotion = "Unknown"

// NormalizeEmotion returns the canonical (trimmed, lower-case) form of a label.
func NormalizeEmotion(s string) Emotion {
	return Emotion(strings.ToLower(strings.TrimSpace(s)))
}

func (e Emotion) String() string { return string(e) }

// Category is the coarse sentiment bucket derived from an emotion.
type Category string

const (
	Positive Category = "Positive"
	Neutral  Category = "Neutral"
	Negative Category = "Negative"
)

// Categorize maps an emotion label to its category. Total and case-insensitive:
// "happy" is Positive, "neutral" is Neutral, everything else is Negative.
func Categorize(emotion string) Category {
	switch strings.ToLower(strings.TrimSpace(emotion)) {
	case "happy":
		return Positive
	case "neutral":
		return Neutral
	default:
		return Negative
	}
}

// Severity grades a negative emotion. Empty means "not computed".
type Severity string

const (
	SeverityNone Severity = ""
	Low          Severity = "Low"
	Moderate     Severity = "Moderate"
	High         Severity = "High"
)

// Severities lists the canonical vocabulary in ascending order.
var Severities = []Severity{Low, Moderate, High}

// ErrUnknownSeverity is returned by ParseSeverity for labels outside the vocabulary.
var ErrUnknownSeverity = errors.New("model: unknown severity")

var titleCaser = cases.Title(language.Und)

// ParseSeverity converts a raw label into the canonical vocabulary.
// "Medium" is accepted as an alias of Moderate; aliased reports when that
// rewrite happened so callers can surface it.
func ParseSeverity(s string) (sev Severity, aliased bool, err error) {
	switch Severity(titleCaser.String(strings.ToLower(strings.TrimSpace(s)))) {
	case Low:
		return Low, false, nil
	case Moderate:
		return Moderate, false, nil
	case High:
		return High, false, nil
	case "Medium":
		return Moderate, true, nil
	}
	return SeverityNone, false, ErrUnknownSeverity
}
