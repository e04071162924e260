package output

import (
	"fmt"
	"strings"

	"github.com/crimson-sun/moodlens/internal/model"
)

// Detail controls how much of an analysis is written to a sink.
type Detail int

const (
	// Minimal keeps the labels only.
	Minimal Detail = iota
	// Standard drops the user's text.
	Standard
	// Full keeps every field.
	Full
)

func (d Detail) String() string {
	switch d {
	case Minimal:
		return "minimal"
	case Standard:
		return "standard"
	case Full:
		return "full"
	}
	return fmt.Sprintf("Detail(%d)", int(d))
}

// ParseDetail converts a config string into a Detail.
func ParseDetail(s string) (Detail, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minimal":
		return Minimal, nil
	case "", "standard":
		return Standard, nil
	case "full":
		return Full, nil
	}
	return Standard, fmt.Errorf("output: unknown detail level %q", s)
}

// FormatAnalysis returns a copy of the analysis with fields stripped according to detail.
// At Minimal: Text, Recommendations and Suggestion are cleared.
// At Standard: Text is cleared.
func FormatAnalysis(a model.Analysis, detail Detail) model.Analysis {
	switch detail {
	case Minimal:
		a.Text = ""
		a.Recommendations = nil
		a.Suggestion = ""
	case Standard:
		a.Text = ""
	}
	return a
}
