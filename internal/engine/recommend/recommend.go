// Package recommend maps (emotion, severity) pairs to coping suggestions.
//
// Tables are plain YAML so the advice can be edited without a rebuild. Lookups
// never come back empty: pairs the table does not cover get the fallback list.
package recommend

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/crimson-sun/moodlens/internal/model"
)

//go:embed recommendations.yaml
var defaultYAML []byte

// ErrInvalidTable is returned for tables with keys outside the label sets.
var ErrInvalidTable = errors.New("recommend: invalid table")

var defaultFallback = []string{
	"Take a few slow, deep breaths and be gentle with yourself.",
	"Reach out to someone you trust and share how you are feeling.",
	"If these feelings persist, consider speaking with a mental health professional.",
}

const defaultPositive = "It's great to hear you're feeling good! Keep doing what brings you joy."

type tableYAML struct {
	Fallback []string                       `yaml:"fallback"`
	Positive string                         `yaml:"positive"`
	Emotions map[string]map[string][]string `yaml:"emotions"`
}

// Table is an immutable recommendation table.
type Table struct {
	fallback []string
	positive string
	entries  map[model.Emotion]map[model.Severity][]string
}

// Default returns the built-in table.
func Default() *Table {
	t, err := Parse(defaultYAML)
	if err != nil {
		panic("recommend: built-in table: " + err.Error())
	}
	return t
}

// Load reads a table from a YAML file.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("recommend: %w", err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	return t, nil
}

// Parse decodes a YAML table. Emotion keys are normalised to lower case.
// Severity keys must be canonical; aliases such as "Medium" are rejected here
// so that every table entry is reachable.
func Parse(data []byte) (*Table, error) {
	var raw tableYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("recommend: parse: %w", err)
	}

	t := &Table{
		fallback: raw.Fallback,
		positive: raw.Positive,
		entries:  make(map[model.Emotion]map[model.Severity][]string, len(raw.Emotions)),
	}
	if len(t.fallback) == 0 {
		t.fallback = defaultFallback
	}
	if t.positive == "" {
		t.positive = defaultPositive
	}

	for key, bySeverity := range raw.Emotions {
		emotion := model.NormalizeEmotion(key)
		if emotion == "" {
			return nil, fmt.Errorf("%w: empty emotion key", ErrInvalidTable)
		}
		if model.Categorize(string(emotion)) != model.Negative {
			return nil, fmt.Errorf("%w: %q is not a negative emotion", ErrInvalidTable, key)
		}
		if _, dup := t.entries[emotion]; dup {
			return nil, fmt.Errorf("%w: emotion %q listed twice", ErrInvalidTable, emotion)
		}
		row := make(map[model.Severity][]string, len(bySeverity))
		for sevKey, recs := range bySeverity {
			sev, aliased, err := model.ParseSeverity(sevKey)
			if err != nil || aliased || string(sev) != sevKey {
				return nil, fmt.Errorf("%w: %s has non-canonical severity %q", ErrInvalidTable, emotion, sevKey)
			}
			if len(recs) == 0 {
				return nil, fmt.Errorf("%w: %s/%s is empty", ErrInvalidTable, emotion, sev)
			}
			row[sev] = recs
		}
		t.entries[emotion] = row
	}
	return t, nil
}

// Lookup returns the suggestions for the pair, or the fallback list when the
// table has no entry. The result is a fresh slice.
func (t *Table) Lookup(emotion model.Emotion, severity model.Severity) []string {
	recs, ok := t.entries[model.NormalizeEmotion(string(emotion))][severity]
	if !ok {
		recs = t.fallback
	}
	return append([]string(nil), recs...)
}

// Has reports whether the pair has a dedicated entry.
func (t *Table) Has(emotion model.Emotion, severity model.Severity) bool {
	_, ok := t.entries[model.NormalizeEmotion(string(emotion))][severity]
	return ok
}

// Positive returns the message used for positive emotions.
func (t *Table) Positive() string { return t.positive }

// Fallback returns a copy of the fallback list.
func (t *Table) Fallback() []string { return append([]string(nil), t.fallback...) }

// Validate checks the table against the trained label sets. Keys outside the
// sets are an error. Negative pairs without an entry are returned as warnings
// since they are served by the fallback list.
func (t *Table) Validate(emotions, severities []string) (warnings []string, err error) {
	knownEmotion := make(map[model.Emotion]bool, len(emotions))
	for _, e := range emotions {
		knownEmotion[model.NormalizeEmotion(e)] = true
	}
	knownSeverity := make(map[model.Severity]bool, len(severities))
	for _, s := range severities {
		knownSeverity[model.Severity(s)] = true
	}

	for emotion, row := range t.entries {
		if !knownEmotion[emotion] {
			return nil, fmt.Errorf("%w: emotion %q is not a trained label", ErrInvalidTable, emotion)
		}
		for sev := range row {
			if !knownSeverity[sev] {
				return nil, fmt.Errorf("%w: severity %q is not a trained label", ErrInvalidTable, sev)
			}
		}
	}

	for e := range knownEmotion {
		if model.Categorize(string(e)) != model.Negative {
			continue
		}
		for s := range knownSeverity {
			if !t.Has(e, s) {
				warnings = append(warnings, fmt.Sprintf("no recommendations for %s/%s, fallback will be used", e, s))
			}
		}
	}
	sort.Strings(warnings)
	return warnings, nil
}
