// Package embeddertest provides a deterministic keyword embedder for tests.
package embeddertest

import (
	"errors"
	"strings"
	"sync/atomic"
	"unicode"
)

// ErrInjected is returned by a Keyword embedder whose Fail flag is set.
var ErrInjected = errors.New("embeddertest: injected failure")

// Keyword maps each keyword group to one dimension and counts how many words
// of the input fall in each group. A final constant dimension keeps every
// vector non-zero.
type Keyword struct {
	groups map[string]int
	dim    int
	calls  atomic.Int64
	Fail   bool
}

// New builds an embedder with one dimension per group plus a bias dimension.
func New(groups ...[]string) *Keyword {
	k := &Keyword{groups: make(map[string]int), dim: len(groups) + 1}
	for i, g := range groups {
		for _, w := range g {
			k.groups[strings.ToLower(w)] = i
		}
	}
	return k
}

// Calls reports how many texts have been embedded.
func (k *Keyword) Calls() int { return int(k.calls.Load()) }

func (k *Keyword) Dim() int { return k.dim }

func (k *Keyword) Embed(text string) ([]float32, error) {
	k.calls.Add(1)
	if k.Fail {
		return nil, ErrInjected
	}
	vec := make([]float32, k.dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		if i, ok := k.groups[w]; ok {
			vec[i]++
		}
	}
	vec[k.dim-1] = 0.5
	return vec, nil
}

func (k *Keyword) EmbedBatch(texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := k.Embed(t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (k *Keyword) Close() error { return nil }
