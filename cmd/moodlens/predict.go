package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/moodlens/internal/bootstrap"
	"github.com/crimson-sun/moodlens/internal/output"
	"github.com/crimson-sun/moodlens/internal/output/stdout"
	"github.com/crimson-sun/moodlens/internal/pipeline"
)

type predictFlags struct {
	detail    string
	pretty    bool
	batchSize int
	interval  time.Duration
}

func newPredictCmd(a *app) *cobra.Command {
	var pf predictFlags
	cmd := &cobra.Command{
		Use:   "predict [file]",
		Short: "Analyze one utterance per line and print NDJSON",
		Long: `Predict reads utterances, one per line, from file or from stdin and writes
one JSON analysis per accepted line to stdout. Blank lines are skipped and
rejected lines are logged.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := output.ParseDetail(pf.detail)
			if err != nil {
				return err
			}
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			return a.predict(cmd, in, stdout.NewWriter(cmd.OutOrStdout(), d, pf.pretty), pf)
		},
	}
	f := cmd.Flags()
	f.StringVar(&pf.detail, "detail", "full", "minimal, standard or full")
	f.BoolVar(&pf.pretty, "pretty", false, "indent JSON output")
	f.IntVar(&pf.batchSize, "batch-size", pipeline.DefaultBatchSize, "utterances per embedder call")
	f.DurationVar(&pf.interval, "flush-interval", 500*time.Millisecond, "flush a partial batch after this long; 0 waits for a full batch")
	f.IntVar(&a.cfg.Server.MinInputLength, "min-length", a.cfg.Server.MinInputLength, "minimum utterance length in characters")
	return cmd
}

func (a *app) predict(cmd *cobra.Command, in io.Reader, out output.Output, pf predictFlags) error {
	if err := a.cfg.ValidateEngine(); err != nil {
		return fmt.Errorf("invalid embedder configuration:\n%w", err)
	}
	rt, err := bootstrap.Open(a.cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	p := pipeline.New(rt.Engine, out,
		pipeline.WithBatchSize(pf.batchSize),
		pipeline.WithFlushInterval(pf.interval),
		pipeline.WithRejectHandler(func(u pipeline.Utterance, err error) {
			slog.Warn("rejected line", "line", u.Line, "error", err)
		}),
	)
	defer p.Close()

	ctx := cmd.Context()
	lines, readErr := pipeline.Lines(ctx, in)
	st, err := p.Stream(ctx, lines)
	if err != nil {
		return err
	}
	if err := readErr(); err != nil {
		return err
	}
	slog.Info("prediction finished", "read", st.Read, "written", st.Written, "rejected", st.Rejected)
	return nil
}
