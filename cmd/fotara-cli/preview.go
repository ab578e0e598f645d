package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	infrafotara "github.com/jhoicas/fotara-api/internal/infrastructure/fotara"
)

var previewCmd = &cobra.Command{
	Use:   "preview [invoice-id]",
	Short: "Muestra el documento UBL de una factura sin enviarlo",
	Long: `Construye el documento de una factura que ya tiene identificadores JoFotara.
No hace llamadas de red. Imprime el texto canónico (o indentado con --pretty)
y al final el digest SHA-256 de su forma c14n.`,
	Args: cobra.ExactArgs(1),
	RunE: runPreview,
}

func init() {
	rootCmd.AddCommand(previewCmd)
	previewCmd.Flags().Bool("pretty", false, "Imprimir el XML indentado")
}

func runPreview(cmd *cobra.Command, args []string) error {
	pretty, _ := cmd.Flags().GetBool("pretty")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	svc, err := services(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	doc, err := svc.Orchestrator.Preview(ctx, args[0])
	if err != nil {
		return err
	}
	text := doc.Text
	if pretty {
		if text, err = infrafotara.Pretty(doc.Text); err != nil {
			return err
		}
	}
	digest, err := infrafotara.Digest(doc.Text)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, text)
	fmt.Fprintf(out, "\ntype: %s/%s  issue_date: %s  export: %t\n", doc.TypeCode, doc.SubtypeCode, doc.IssueDate, doc.Export)
	fmt.Fprintf(out, "digest: %s\n", digest)
	return nil
}
