package embedder

import (
	"bufio"
	"fmt"
	"os"
)

// vocab is a WordPiece vocabulary; a token's ID is its 0-based line number.
type vocab struct {
	ids    map[string]int64
	tokens []string

	pad, unk, cls, sep int64
	unkToken           string
}

// specialSpellings lists the accepted spellings of each special token, BERT
// first, then RoBERTa/MPNet.
var specialSpellings = struct {
	pad, unk, cls, sep []string
}{
	pad: []string{"[PAD]", "<pad>"},
	unk: []string{"[UNK]", "<unk>"},
	cls: []string{"[CLS]", "<s>"},
	sep: []string{"[SEP]", "</s>"},
}

func loadVocab(path string) (*vocab, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vocab: %w", err)
	}
	defer f.Close()

	v := &vocab{ids: make(map[string]int64, 32000)}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		tok := sc.Text()
		if _, dup := v.ids[tok]; !dup {
			v.ids[tok] = int64(len(v.tokens))
		}
		v.tokens = append(v.tokens, tok)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("vocab: read %s: %w", path, err)
	}
	if len(v.tokens) == 0 {
		return nil, fmt.Errorf("vocab: %s is empty", path)
	}

	for _, s := range []struct {
		spellings []string
		dest      *int64
	}{
		{specialSpellings.pad, &v.pad},
		{specialSpellings.unk, &v.unk},
		{specialSpellings.cls, &v.cls},
		{specialSpellings.sep, &v.sep},
	} {
		tok, id, ok := v.first(s.spellings)
		if !ok {
			return nil, fmt.Errorf("vocab: %s has none of %v", path, s.spellings)
		}
		*s.dest = id
		if s.dest == &v.unk {
			v.unkToken = tok
		}
	}
	return v, nil
}

func (v *vocab) first(spellings []string) (string, int64, bool) {
	for _, s := range spellings {
		if id, ok := v.ids[s]; ok {
			return s, id, true
		}
	}
	return "", 0, false
}

// lookup returns the token's ID, or the unknown-token ID.
func (v *vocab) lookup(token string) int64 {
	if id, ok := v.ids[token]; ok {
		return id
	}
	return v.unk
}

func (v *vocab) contains(token string) bool {
	_, ok := v.ids[token]
	return ok
}

func (v *vocab) size() int { return len(v.tokens) }
