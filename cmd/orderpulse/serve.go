package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aevon-lab/orderpulse/internal/pipeline"
	"github.com/aevon-lab/orderpulse/internal/projection"
	"github.com/aevon-lab/orderpulse/internal/server"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the pipeline on its interval and serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, tenants, err := bootstrap(nil)
	if err != nil {
		return err
	}
	orch := newOrchestrator(cfg, tenants)
	defer func() {
		if err := orch.Close(); err != nil {
			slog.Error("Failed to close tenant stores", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	scheduler := pipeline.NewScheduler(orch, cfg.Pipeline.Interval)
	g.Go(func() error {
		return scheduler.Start(gctx)
	})

	if cfg.Server.Enabled {
		checks := make(map[string]server.HealthChecker, len(tenants))
		for _, tc := range orch.Tenants() {
			if tc.Available() {
				checks[tc.ID] = tc.Store
			} else {
				checks[tc.ID] = nil
			}
		}

		srv := server.New(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port), cfg.Server.Mode, checks)
		projection.NewService(orch, projection.ReadersFor(orch.Tenants())).RegisterRoutes(srv.Engine)
		g.Go(func() error {
			return srv.Run(gctx)
		})
	} else {
		slog.Info("HTTP server disabled by config")
	}

	err = g.Wait()
	slog.Info("Shutdown complete")
	return err
}
