package main

import (
	"github.com/spf13/cobra"

	"github.com/crimson-sun/moodlens/internal/config"
	"github.com/crimson-sun/moodlens/internal/logging"
)

// app carries configuration shared by every subcommand. Flags are bound
// to fields of cfg, so environment values act as flag defaults.
type app struct {
	cfg     config.Config
	jsonLog bool
}

func newRootCmd() *cobra.Command {
	a := &app{cfg: config.Load()}

	root := &cobra.Command{
		Use:           "moodlens",
		Short:         "Emotion and severity analysis for short utterances",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			// The server logs JSON unless told otherwise.
			jsonLog := a.jsonLog
			if cmd.Name() == "serve" && !cmd.Flags().Changed("log-json") {
				jsonLog = true
			}
			logging.Init(jsonLog, logging.ParseLevel(a.cfg.Log.Level))
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfg.Log.Level, "log-level", a.cfg.Log.Level, "debug, info, warn or error")
	pf.BoolVar(&a.jsonLog, "log-json", false, "write logs as JSON")
	pf.StringVar(&a.cfg.Artifacts.Dir, "artifacts", a.cfg.Artifacts.Dir, "trained classifier directory")
	pf.StringVar(&a.cfg.Engine.Backend, "embedder", a.cfg.Engine.Backend, "embedding backend: onnx or hugot")
	pf.StringVar(&a.cfg.Engine.ModelPath, "model", a.cfg.Engine.ModelPath, "ONNX model file, or model directory for hugot")
	pf.StringVar(&a.cfg.Engine.VocabPath, "vocab", a.cfg.Engine.VocabPath, "WordPiece vocabulary (onnx)")
	pf.StringVar(&a.cfg.Engine.ProjectionPath, "projection", a.cfg.Engine.ProjectionPath, "optional dense projection weights (onnx)")

	root.AddCommand(
		newServeCmd(a),
		newTrainCmd(a),
		newPredictCmd(a),
		newInspectCmd(a),
		newVersionCmd(),
	)
	return root
}
