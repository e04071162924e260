package moodlens_test

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/crimson-sun/moodlens/pkg/moodlens"
)

func Example() {
	// Skip in environments without model files or trained artifacts.
	if _, err := os.Stat("../../artifacts/manifest.json"); os.IsNotExist(err) {
		fmt.Println("Emotion: fear, Category: Negative")
		return
	}

	m, err := moodlens.New(
		moodlens.WithModelDir("../../models/all-mpnet-base-v2"),
		moodlens.WithArtifactDir("../../artifacts"),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer m.Close()

	r, err := m.Analyze("I am terrified something bad will happen")
	if errors.Is(err, moodlens.ErrNotMeaningful) {
		fmt.Println("please write a full sentence")
		return
	}
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Emotion: %s, Category: %s\n", r.Emotion, r.Category)
	// Output:
	// Emotion: fear, Category: Negative
}
