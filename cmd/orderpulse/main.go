package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	coreagg "github.com/aevon-lab/orderpulse/internal/core/aggregation"
	corecfg "github.com/aevon-lab/orderpulse/internal/core/config"
	"github.com/aevon-lab/orderpulse/internal/pipeline"
)

var Version = "dev"

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "orderpulse",
		Short:         "Per-tenant order ETL and sales summaries",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		// Without a subcommand the service runs.
		RunE: runServe,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "orderpulse.yaml", "Path to configuration file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads config, installs the logger and opens every tenant.
// adjust, when set, may override loaded settings before tenants open.
func bootstrap(adjust func(*corecfg.Config)) (*corecfg.Config, []*pipeline.TenantContext, error) {
	cfg, err := corecfg.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if adjust != nil {
		adjust(cfg)
	}
	slog.SetDefault(newLogger(cfg.Log))
	slog.Info("Loaded config",
		"tenants", cfg.TenantIDs(),
		"interval", cfg.Pipeline.Interval,
		"timezone", cfg.Pipeline.Timezone,
	)

	catalog, err := coreagg.LoadChannels(cfg.Pipeline.ChannelsFile)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("Channel catalogue loaded",
		"channels", len(catalog.Channels),
		"fingerprint", catalog.Fingerprint,
	)

	return cfg, pipeline.OpenTenants(cfg, catalog), nil
}

func newLogger(c corecfg.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func newOrchestrator(cfg *corecfg.Config, tenants []*pipeline.TenantContext) *pipeline.Orchestrator {
	return pipeline.New(tenants, pipeline.Options{
		Workers:    cfg.Pipeline.EffectiveWorkerCount(len(tenants)),
		RunTimeout: cfg.Pipeline.RunTimeout,
	})
}
