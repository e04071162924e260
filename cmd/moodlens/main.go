// Command moodlens trains, serves and runs the emotion and severity
// classifiers.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "moodlens: %v\n", err)
		os.Exit(1)
	}
}
