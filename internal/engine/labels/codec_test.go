package labels

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"
)

func TestFitSortsAndDeduplicates(t *testing.T) {
	c := Fit([]string{"sad", "anger", "happy", "sad", "anger", "fear"})
	want := []string{"anger", "fear", "happy", "sad"}
	if got := c.Labels(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Labels() = %v, want %v", got, want)
	}
	if c.Len() != 4 {
		t.Errorf("Len() = %d, want 4", c.Len())
	}
}

func TestRoundTrip(t *testing.T) {
	training := []string{"happy", "neutral", "anger", "fear", "depression", "anxiety", "sad"}
	c := Fit(training)
	for _, label := range training {
		idx, err := c.Encode(label)
		if err != nil {
			t.Fatalf("Encode(%q): %v", label, err)
		}
		got, err := c.Decode(idx)
		if err != nil {
			t.Fatalf("Decode(%d): %v", idx, err)
		}
		if got != label {
			t.Errorf("Decode(Encode(%q)) = %q", label, got)
		}
	}
}

func TestEncodeUnknown(t *testing.T) {
	c := Fit([]string{"a", "b"})
	if _, err := c.Encode("c"); !errors.Is(err, ErrUnknownLabel) {
		t.Fatalf("expected ErrUnknownLabel, got %v", err)
	}
	if _, err := c.EncodeAll([]string{"a", "z"}); !errors.Is(err, ErrUnknownLabel) {
		t.Fatalf("expected ErrUnknownLabel from EncodeAll, got %v", err)
	}
}

func TestDecodeOutOfRange(t *testing.T) {
	c := Fit([]string{"a", "b"})
	for _, i := range []int{-1, 2, 100} {
		if _, err := c.Decode(i); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("Decode(%d) err = %v, want ErrIndexOutOfRange", i, err)
		}
	}
}

func TestNewRejectsBadSets(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("expected error for empty set")
	}
	if _, err := New([]string{"b", "a"}); err == nil {
		t.Error("expected error for unsorted set")
	}
	if _, err := New([]string{"a", "a"}); err == nil {
		t.Error("expected error for duplicate labels")
	}
}

func TestFingerprint(t *testing.T) {
	a := Fit([]string{"High", "Low", "Moderate"})
	b := Fit([]string{"Moderate", "Low", "High"})
	c := Fit([]string{"High", "Low", "Medium"})
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("same label set should have the same fingerprint")
	}
	if a.Fingerprint() == c.Fingerprint() {
		t.Error("different label sets should have different fingerprints")
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.json")
	c := Fit([]string{"fear", "anger", "sad"})
	if err := Save(path, c); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(loaded.Labels(), c.Labels()) {
		t.Errorf("loaded labels = %v, want %v", loaded.Labels(), c.Labels())
	}
	if loaded.Fingerprint() != c.Fingerprint() {
		t.Error("fingerprint changed across save/load")
	}
}
