package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/crimson-sun/moodlens/internal/bootstrap"
	"github.com/crimson-sun/moodlens/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web form, the JSON API and the chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
	f := cmd.Flags()
	f.StringVar(&a.cfg.Server.Addr, "addr", a.cfg.Server.Addr, "listen address")
	f.IntVar(&a.cfg.Server.MinInputLength, "min-length", a.cfg.Server.MinInputLength, "minimum utterance length in characters")
	f.StringVar(&a.cfg.Session.Store, "sessions", a.cfg.Session.Store, "chat session store: memory, postgres or sqlite")
	f.StringVar(&a.cfg.Output.Audit, "audit", a.cfg.Output.Audit, "comma-separated audit sinks: none, stdout, file")
	f.StringVar(&a.cfg.Output.Path, "audit-path", a.cfg.Output.Path, "audit file path")
	return cmd
}

func (a *app) serve(parent context.Context) error {
	cfg := a.cfg
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}
	gin.SetMode(cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.Open(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	store, err := bootstrap.OpenSessions(ctx, cfg.Session)
	if err != nil {
		return err
	}
	defer store.Close()

	audit, err := bootstrap.OpenAudit(cfg.Output)
	if err != nil {
		return err
	}
	if audit != nil {
		defer audit.Close()
	}

	srvCfg := server.Config{
		Analyzer:       rt.Engine,
		Chat:           bootstrap.NewChat(cfg.Assist, rt.Engine, store),
		Audit:          audit,
		AllowedOrigins: cfg.Server.CORSOrigins,
	}
	if sp := bootstrap.NewSpeech(cfg.Assist); sp != nil {
		srvCfg.Speech = sp
	}
	srv, err := server.New(srvCfg)
	if err != nil {
		return err
	}

	slog.Info("moodlens starting",
		"version", versionString(),
		"addr", cfg.Server.Addr,
		"sessions", cfg.Session.Store,
		"audit", cfg.Output.Audit,
		"speech", srvCfg.Speech != nil,
	)
	return srv.Run(ctx, cfg.Server.Addr, cfg.Server.ShutdownTimeout)
}
