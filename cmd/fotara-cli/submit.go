package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/fotara-api/pkg/config"
)

var submitCmd = &cobra.Command{
	Use:   "submit [invoice-id]",
	Short: "Envía una factura a JoFotara",
	Long: `Ejecuta la fase síncrona (validación y asignación de identificadores) y encola el envío.

Con FOTARA_QUEUE=memory el envío se procesa en este mismo proceso y el comando
espera el estado final. Con FOTARA_QUEUE=redis lo procesan los workers de la API.`,
	Example: `  fotara-cli submit 7b1c... --company 42f0...
  fotara-cli submit 7b1c... --company 42f0... --actor 9a3e...`,
	Args: cobra.ExactArgs(1),
	RunE: runSubmit,
}

func init() {
	rootCmd.AddCommand(submitCmd)
	submitCmd.Flags().String("company", "", "ID de la empresa emisora [REQUIRED]")
	submitCmd.Flags().String("actor", "", "Usuario que recibe la notificación (vacío = sin notificación)")
	_ = submitCmd.MarkFlagRequired("company")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	companyID, _ := cmd.Flags().GetString("company")
	actorID, _ := cmd.Flags().GetString("actor")
	invoiceID := args[0]

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	svc, err := services(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	local := cfg.Fotara.Queue == config.QueueMemory
	if local {
		svc.Consumer.Start(ctx, svc.Orchestrator.Process)
	}

	ack, err := svc.Orchestrator.Submit(ctx, companyID, invoiceID, actorID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "document_id:   %s\ndocument_uuid: %s\naudit_counter: %d\nstatus:        %s\n",
		ack.Identifiers.DocumentID, ack.Identifiers.DocumentUUID, ack.Identifiers.AuditCounter, ack.Status)
	if !local {
		return nil
	}

	svc.Drain()
	inv, err := svc.Orchestrator.Status(ctx, companyID, invoiceID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "final:         %s\n", inv.EffectiveStatus())
	if inv.QRCode != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "qr:            %s\n", inv.QRCode)
	}
	return nil
}
