package train

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/crimson-sun/moodlens/internal/model"
)

// Sample is a cleaned (text, label) pair.
type Sample struct {
	Text  string
	Label string
}

// Dataset holds the two training sets derived from the raw rows.
type Dataset struct {
	Emotion  []Sample
	Severity []Sample
}

// Stats summarises what Clean kept and dropped.
type Stats struct {
	Total           int
	ShortText       int
	EmptyEmotion    int
	Kept            int
	SeverityRows    int
	SeverityAliased int
	SeverityInvalid int
	Emotions        map[string]int
	Categories      map[model.Category]int
}

// Clean drops rows whose trimmed text is shorter than minLen runes or whose
// emotion is blank, lower-cases emotion labels and builds the severity set
// from negative rows with a usable severity. "Medium" severities are rewritten
// to Moderate and counted; other unknown severities are dropped and counted.
func Clean(rows []Row, minLen int) (Dataset, Stats) {
	st := Stats{
		Total:      len(rows),
		Emotions:   map[string]int{},
		Categories: map[model.Category]int{},
	}
	var ds Dataset
	for _, r := range rows {
		text := strings.TrimSpace(r.Text)
		if utf8.RuneCountInString(text) < minLen {
			st.ShortText++
			continue
		}
		emotion := string(model.NormalizeEmotion(r.Emotion))
		if emotion == "" {
			st.EmptyEmotion++
			continue
		}
		st.Kept++
		st.Emotions[emotion]++
		cat := model.Categorize(emotion)
		st.Categories[cat]++
		ds.Emotion = append(ds.Emotion, Sample{Text: text, Label: emotion})

		if cat != model.Negative || strings.TrimSpace(r.Severity) == "" {
			continue
		}
		sev, aliased, err := model.ParseSeverity(r.Severity)
		if err != nil {
			st.SeverityInvalid++
			slog.Debug("dropping severity", "line", r.Line, "severity", r.Severity)
			continue
		}
		if aliased {
			st.SeverityAliased++
		}
		st.SeverityRows++
		ds.Severity = append(ds.Severity, Sample{Text: text, Label: string(sev)})
	}

	if st.SeverityAliased > 0 {
		slog.Warn("severity alias rewritten", "from", "Medium", "to", string(model.Moderate), "rows", st.SeverityAliased)
	}
	if st.SeverityInvalid > 0 {
		slog.Warn("rows with unknown severity excluded from severity training", "rows", st.SeverityInvalid)
	}
	return ds, st
}
