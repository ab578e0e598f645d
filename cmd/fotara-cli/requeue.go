package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jhoicas/fotara-api/pkg/config"
)

var requeueCmd = &cobra.Command{
	Use:   "requeue-stale",
	Short: "Reencola las facturas atascadas en Queued",
	Long: `Vuelve a encolar las facturas que siguen en Queued desde antes de --older-than.
Reutiliza los identificadores guardados; nunca asigna nuevos y no envía notificaciones.`,
	Example: `  fotara-cli requeue-stale --older-than 15m`,
	Args:    cobra.NoArgs,
	RunE:    runRequeue,
}

func init() {
	rootCmd.AddCommand(requeueCmd)
	requeueCmd.Flags().Duration("older-than", 0, "Antigüedad mínima en cola (por defecto FOTARA_STALE_AFTER_MINUTES)")
}

func runRequeue(cmd *cobra.Command, _ []string) error {
	olderThan, _ := cmd.Flags().GetDuration("older-than")
	if olderThan <= 0 {
		olderThan = cfg.Fotara.StaleAfter
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	svc, err := services(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	// Con la cola en memoria los envíos se procesan aquí; Close espera a que terminen.
	if cfg.Fotara.Queue == config.QueueMemory {
		svc.Consumer.Start(ctx, svc.Orchestrator.Process)
	}
	n, err := svc.Orchestrator.RequeueStale(ctx, time.Now().Add(-olderThan))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "reencoladas: %d\n", n)
	return nil
}
