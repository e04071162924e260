package labels

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
)

var (
	// ErrUnknownLabel is returned when encoding a label that was not seen in training.
	ErrUnknownLabel = errors.New("labels: unknown label")
	// ErrIndexOutOfRange is returned when decoding an index outside the codec.
	ErrIndexOutOfRange = errors.New("labels: index out of range")
)

// Codec maps classifier class indices to string labels and back. The index of
// a label is its position in the sorted set of unique training labels.
type Codec struct {
	labels []string
	index  map[string]int
}

// Fit builds a codec from the labels observed in training data. It returns
// nil when values is empty.
func Fit(values []string) *Codec {
	seen := make(map[string]struct{}, len(values))
	uniq := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		uniq = append(uniq, v)
	}
	sort.Strings(uniq)
	c, _ := New(uniq)
	return c
}

// New builds a codec from an already sorted, duplicate-free label list.
func New(labels []string) (*Codec, error) {
	if len(labels) == 0 {
		return nil, errors.New("labels: empty label set")
	}
	if !sort.StringsAreSorted(labels) {
		return nil, errors.New("labels: label set is not sorted")
	}
	index := make(map[string]int, len(labels))
	for i, l := range labels {
		if _, dup := index[l]; dup {
			return nil, fmt.Errorf("labels: duplicate label %q", l)
		}
		index[l] = i
	}
	return &Codec{labels: append([]string(nil), labels...), index: index}, nil
}

// Encode returns the class index of label.
func (c *Codec) Encode(label string) (int, error) {
	i, ok := c.index[label]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownLabel, label)
	}
	return i, nil
}

// EncodeAll encodes every value, failing on the first unknown label.
func (c *Codec) EncodeAll(values []string) ([]int, error) {
	out := make([]int, len(values))
	for i, v := range values {
		idx, err := c.Encode(v)
		if err != nil {
			return nil, err
		}
		out[i] = idx
	}
	return out, nil
}

// Decode returns the label for a class index.
func (c *Codec) Decode(i int) (string, error) {
	if i < 0 || i >= len(c.labels) {
		return "", fmt.Errorf("%w: %d (codec has %d labels)", ErrIndexOutOfRange, i, len(c.labels))
	}
	return c.labels[i], nil
}

// Labels returns a copy of the ordered label set.
func (c *Codec) Labels() []string {
	return append([]string(nil), c.labels...)
}

// Len returns the number of classes.
func (c *Codec) Len() int { return len(c.labels) }

// Fingerprint identifies the exact ordered label set. A classifier records the
// fingerprint of the codec it was trained with so the pair can be checked on load.
func (c *Codec) Fingerprint() string {
	h := sha256.New()
	for _, l := range c.labels {
		h.Write([]byte(l))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

type codecJSON struct {
	Labels []string `json:"labels"`
}

func (c *Codec) MarshalJSON() ([]byte, error) {
	return json.Marshal(codecJSON{Labels: c.labels})
}

func (c *Codec) UnmarshalJSON(data []byte) error {
	var raw codecJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded, err := New(raw.Labels)
	if err != nil {
		return err
	}
	*c = *decoded
	return nil
}

// Save writes the codec as JSON.
func Save(path string, c *Codec) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("labels: marshal: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("labels: %w", err)
	}
	return nil
}

// Load reads a codec written by Save.
func Load(path string) (*Codec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("labels: %w", err)
	}
	var c Codec
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("labels: parse %s: %w", path, err)
	}
	return &c, nil
}
