// Package moodlens classifies free-text utterances into an emotion, a coarse
// category and, for negative emotions, a severity with matching coping
// recommendations.
//
// Quick start:
//
//	m, err := moodlens.New(
//	    moodlens.WithModelDir("models/all-mpnet-base-v2"),
//	    moodlens.WithArtifactDir("artifacts"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer m.Close()
//
//	r, _ := m.Analyze("I can't stop worrying about tomorrow")
//	fmt.Println(r.Emotion, r.Severity) // anxiety Moderate
//
// A MoodLens is safe for concurrent use. Create once, reuse across requests.
package moodlens
