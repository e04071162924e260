package validate

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMinLength is the minimum trimmed length (in runes) of a meaningful utterance.
const DefaultMinLength = 3

// Validator decides whether an utterance is worth classifying.
type Validator struct {
	MinLength int
}

// New creates a Validator. A non-positive minLength falls back to DefaultMinLength.
func New(minLength int) Validator {
	if minLength <= 0 {
		minLength = DefaultMinLength
	}
	return Validator{MinLength: minLength}
}

// Meaningful reports whether text, after trimming, is at least MinLength runes
// long and contains at least one letter.
func (v Validator) Meaningful(text string) bool {
	t := strings.TrimSpace(text)
	if utf8.RuneCountInString(t) < v.MinLength {
		return false
	}
	for _, r := range t {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
