package main

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/crimson-sun/moodlens/internal/engine/artifact"
)

func newInspectCmd(a *app) *cobra.Command {
	var weights bool
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Load and verify an artifact directory, then dump it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			set, err := artifact.Load(a.cfg.Artifacts.Dir)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			cfg := spew.ConfigState{Indent: "  ", SortKeys: true, DisablePointerAddresses: true}
			fmt.Fprintf(w, "artifacts in %s are consistent\n\n", a.cfg.Artifacts.Dir)
			cfg.Fdump(w, set.Manifest)
			fmt.Fprintf(w, "emotion labels: %v\n", set.Emotion.Codec.Labels())
			fmt.Fprintf(w, "severity labels: %v\n", set.Severity.Codec.Labels())
			if weights {
				cfg.Fdump(w, set.Emotion.Model, set.Severity.Model)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&weights, "weights", false, "also dump the classifier weights")
	return cmd
}
