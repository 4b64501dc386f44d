package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run every tenant once and print the run report as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, tenants, err := bootstrap(nil)
			if err != nil {
				return err
			}
			orch := newOrchestrator(cfg, tenants)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			report, err := orch.RunAll(ctx)
			closeErr := orch.Close()
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
			if closeErr != nil {
				return closeErr
			}
			if report.Failed > 0 {
				return fmt.Errorf("%d of %d tenants failed", report.Failed, len(report.Tenants))
			}
			return nil
		},
	}
}
