package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/moodlens/internal/bootstrap"
	"github.com/crimson-sun/moodlens/internal/engine/embedder"
	"github.com/crimson-sun/moodlens/internal/train"
)

// reportFile is written next to the artifacts after training.
const reportFile = "report.json"

type trainFlags struct {
	data      string
	encoding  string
	out       string
	minLength int
	testSize  float64
	balanced  bool
	quiet     bool
}

func newTrainCmd(a *app) *cobra.Command {
	var tf trainFlags
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the emotion and severity classifiers from a labeled CSV",
		Long: `Train reads a CSV with Text, Emotion and Severity columns, embeds every
utterance once and fits one linear SVM for emotions and one for the
severity of negative utterances. The artifacts and an evaluation report
are written to --out.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if tf.out == "" {
				tf.out = a.cfg.Artifacts.Dir
			}
			return a.train(cmd, tf)
		},
	}
	f := cmd.Flags()
	f.StringVar(&tf.data, "data", "", "labeled dataset (CSV)")
	f.StringVar(&tf.encoding, "encoding", train.EncodingLatin1, "dataset encoding: iso-8859-1 or utf-8")
	f.StringVar(&tf.out, "out", "", "output directory (default: --artifacts)")
	f.IntVar(&tf.minLength, "min-length", 3, "drop rows whose text is shorter than this")
	f.Float64Var(&tf.testSize, "test-size", 0.2, "held-out fraction used for evaluation, 0 to train on everything")
	f.BoolVar(&tf.balanced, "balanced", false, "weight classes inversely to their frequency")
	f.BoolVarP(&tf.quiet, "quiet", "q", false, "do not print label distributions and reports")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func (a *app) train(cmd *cobra.Command, tf trainFlags) error {
	if tf.testSize < 0 || tf.testSize >= 1 {
		return fmt.Errorf("test size must be in [0, 1), got %g", tf.testSize)
	}
	if err := a.cfg.ValidateEngine(); err != nil {
		return fmt.Errorf("invalid embedder configuration:\n%w", err)
	}

	rows, err := train.LoadCSVFile(tf.data, tf.encoding)
	if err != nil {
		return err
	}
	ds, stats := train.Clean(rows, tf.minLength)
	slog.Info("cleaned dataset",
		"rows", stats.Total,
		"kept", stats.Kept,
		"short_text", stats.ShortText,
		"empty_emotion", stats.EmptyEmotion,
		"severity_rows", stats.SeverityRows,
		"severity_invalid", stats.SeverityInvalid,
	)

	w := cmd.OutOrStdout()
	if tf.quiet {
		w = io.Discard
	}
	if err := printDistributions(w, stats); err != nil {
		return err
	}

	embCfg := bootstrap.EmbedderConfig(a.cfg.Engine)
	emb, err := embedder.Open(embCfg)
	if err != nil {
		return err
	}
	defer emb.Close()

	cfg := train.DefaultConfig()
	cfg.TestSize = tf.testSize
	cfg.Balanced = tf.balanced
	cfg.EmbedderID = embCfg.ID()

	res, err := train.Run(cmd.Context(), emb, ds, cfg)
	if err != nil {
		return err
	}
	if tf.testSize > 0 {
		for _, r := range []train.Report{res.Emotion, res.Severity} {
			if err := r.Write(w); err != nil {
				return err
			}
			fmt.Fprintln(w)
		}
	}

	if err := res.Set.Save(tf.out); err != nil {
		return err
	}
	if err := writeReports(filepath.Join(tf.out, reportFile), res); err != nil {
		return err
	}
	slog.Info("artifacts written", "dir", tf.out, "embedder", cfg.EmbedderID)
	return nil
}

func printDistributions(w io.Writer, st train.Stats) error {
	categories := make(map[string]int, len(st.Categories))
	for c, n := range st.Categories {
		categories[string(c)] = n
	}
	return errors.Join(
		train.WriteDistribution(w, "Emotion distribution", st.Emotions),
		train.WriteDistribution(w, "Category distribution", categories),
	)
}

func writeReports(path string, res *train.Result) error {
	data, err := json.MarshalIndent(map[string]train.Report{
		"emotion":  res.Emotion,
		"severity": res.Severity,
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
