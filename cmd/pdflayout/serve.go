package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/pdflayout/internal/analyzer"
	"github.com/dgallion1/pdflayout/internal/api"
	"github.com/dgallion1/pdflayout/internal/pipeline"
	"github.com/dgallion1/pdflayout/internal/shaper"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the batch HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if err := cfg.ValidateServe(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			log := cfg.Log.NewLogger(os.Stdout)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			client := newFetchClient(cfg, log)
			defer client.Close()
			stats := shaper.NewStats(statsWindow)

			svc := pipeline.NewService(pipeline.ServiceConfig{
				QueueSize: cfg.Server.QueueSize,
				JobTTL:    cfg.Server.JobTTL,
				OutputDir: cfg.Server.ResultsDir,
			}, client, shaper.New(analyzer.Auto{}, stats), log)
			svc.Start(ctx)

			srv := api.NewServer(svc, stats, log, cfg.Server.APIKey)
			httpServer := &http.Server{
				Addr:         ":" + cfg.Server.Port,
				Handler:      srv,
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 120 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			log.Info("starting pdflayout", "port", cfg.Server.Port, "results_dir", cfg.Server.ResultsDir)
			return serveUntilDone(ctx, httpServer, svc, log)
		},
	}
}

type stopper interface {
	Stop()
}

// serveUntilDone runs srv until ctx is done or the listener fails, then
// shuts srv down and stops svc. It returns only after svc.Stop has
// returned, so a batch in flight gets to save its results.
func serveUntilDone(ctx context.Context, srv *http.Server, svc stopper, log *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)

		svc.Stop()
	}()

	err := srv.ListenAndServe()
	cancel()
	<-stopped
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
