// Package testdata holds a small labeled corpus and the keyword groups that
// make it separable under embeddertest.Keyword.
package testdata

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"fmt"
)

//go:embed corpus.csv
var CorpusCSV []byte

// Row is one labeled utterance as written in corpus.csv.
type Row struct {
	Text     string
	Emotion  string
	Severity string
}

// Keywords are the embedder groups: seven emotions, then high and low intensity.
var Keywords = [][]string{
	{"happy", "great", "wonderful", "joy", "glad", "excited"},
	{"okay", "fine", "normal", "ordinary", "usual"},
	{"scared", "afraid", "fear", "frightened"},
	{"sad", "down", "crying", "lonely"},
	{"angry", "furious", "mad", "annoyed"},
	{"hopeless", "empty", "worthless", "depressed"},
	{"anxious", "worried", "nervous", "panic"},
	{"extremely", "unbearable", "constantly", "overwhelming"},
	{"slightly", "little", "bit", "mild"},
}

// Corpus returns every data row of corpus.csv, including the rows a trainer
// is expected to discard.
func Corpus() ([]Row, error) {
	records, err := csv.NewReader(bytes.NewReader(CorpusCSV)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse corpus.csv: %w", err)
	}
	rows := make([]Row, 0, len(records)-1)
	for _, r := range records[1:] {
		rows = append(rows, Row{Text: r[0], Emotion: r[1], Severity: r[2]})
	}
	return rows, nil
}
