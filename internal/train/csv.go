package train

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// Supported dataset encodings.
const (
	EncodingLatin1 = "iso-8859-1"
	EncodingUTF8   = "utf-8"
)

// Row is one record of the labeled dataset.
type Row struct {
	Line     int
	Text     string
	Emotion  string
	Severity string
}

// LoadCSVFile opens path and parses it with LoadCSV.
func LoadCSVFile(path, encoding string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}
	defer f.Close()
	rows, err := LoadCSV(f, encoding)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	return rows, nil
}

// LoadCSV parses a dataset with a header row naming at least Text and Emotion
// columns; Severity is optional. Header names match case-insensitively.
func LoadCSV(r io.Reader, encoding string) ([]Row, error) {
	switch strings.ToLower(strings.ReplaceAll(encoding, "_", "-")) {
	case EncodingLatin1, "latin1", "latin-1", "":
		r = charmap.ISO8859_1.NewDecoder().Reader(r)
	case EncodingUTF8, "utf8":
		br := bufio.NewReader(r)
		if b, err := br.Peek(3); err == nil && string(b) == "\xef\xbb\xbf" {
			br.Discard(3)
		}
		r = br
	default:
		return nil, fmt.Errorf("train: unsupported encoding %q", encoding)
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("train: dataset is empty")
		}
		return nil, fmt.Errorf("train: read header: %w", err)
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	textCol, ok := col["text"]
	if !ok {
		return nil, errors.New("train: header has no Text column")
	}
	emotionCol, ok := col["emotion"]
	if !ok {
		return nil, errors.New("train: header has no Emotion column")
	}
	severityCol, hasSeverity := col["severity"]

	field := func(rec []string, i int) string {
		if i < len(rec) {
			return rec[i]
		}
		return ""
	}

	var rows []Row
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("train: line %d: %w", line, err)
		}
		row := Row{Line: line, Text: field(rec, textCol), Emotion: field(rec, emotionCol)}
		if hasSeverity {
			row.Severity = field(rec, severityCol)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
