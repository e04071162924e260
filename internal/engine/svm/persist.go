package svm

import (
	"encoding/gob"
	"fmt"
	"os"
)

const fileVersion = 1

type modelFile struct {
	Version int
	Model   Model
}

// Save writes the model to path using gob encoding.
func Save(path string, m *Model) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("svm: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(modelFile{Version: fileVersion, Model: *m}); err != nil {
		f.Close()
		return fmt.Errorf("svm: encode %s: %w", path, err)
	}
	return f.Close()
}

// Load reads a model written by Save and checks its shape.
func Load(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("svm: %w", err)
	}
	defer f.Close()

	var mf modelFile
	if err := gob.NewDecoder(f).Decode(&mf); err != nil {
		return nil, fmt.Errorf("svm: decode %s: %w", path, err)
	}
	if mf.Version != fileVersion {
		return nil, fmt.Errorf("svm: %s has unsupported version %d", path, mf.Version)
	}
	if err := mf.Model.validate(); err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	return &mf.Model, nil
}
