package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/fotara-api/internal/infrastructure/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Aplica el esquema de base de datos",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return err
		}
		defer pool.Close()

		applied, err := postgres.Migrate(ctx, pool)
		if err != nil {
			return err
		}
		for _, name := range applied {
			fmt.Fprintln(cmd.OutOrStdout(), "aplicada:", name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
