package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	corecfg "github.com/aevon-lab/orderpulse/internal/core/config"
	"github.com/aevon-lab/orderpulse/internal/pipeline"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Bring every tenant database to the latest schema and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, tenants, err := bootstrap(func(c *corecfg.Config) {
				c.Pipeline.AutoMigrate = true
			})
			if err != nil {
				return err
			}
			orch := newOrchestrator(cfg, tenants)
			defer orch.Close() //nolint:errcheck

			return migrationErrors(orch.Tenants())
		},
	}
}

// migrationErrors joins the open or migrate error of every tenant left
// without a store.
func migrationErrors(tenants []*pipeline.TenantContext) error {
	var errs []error
	for _, tc := range tenants {
		if tc.Available() {
			slog.Info("Tenant schema up to date", "tenant", tc.ID)
			continue
		}
		cause := tc.OpenErr
		if cause == nil {
			cause = errors.New("no database")
		}
		slog.Error("Tenant migration failed", "tenant", tc.ID, "error", cause)
		errs = append(errs, fmt.Errorf("tenant %s: %w", tc.ID, cause))
	}
	return errors.Join(errs...)
}
