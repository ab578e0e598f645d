package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jhoicas/fotara-api/pkg/secret"
)

var sealCmd = &cobra.Command{
	Use:   "seal-secret [value]",
	Short: "Sella un secret key de JoFotara con SECRET_MASTER_KEY",
	Long: `Imprime el valor sellado (enc:v1:...) para guardar en companies.fotara_secret_key.
Sin argumento lee el valor de la entrada estándar. Con --generate-key imprime
una llave maestra nueva y termina.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSeal,
}

func init() {
	rootCmd.AddCommand(sealCmd)
	sealCmd.Flags().Bool("generate-key", false, "Generar una llave maestra nueva")
}

func runSeal(cmd *cobra.Command, args []string) error {
	if gen, _ := cmd.Flags().GetBool("generate-key"); gen {
		key, err := secret.GenerateKey()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), key)
		return nil
	}

	box, err := secret.NewBox(cfg.App.SecretMasterKey)
	if err != nil {
		return err
	}
	value := ""
	if len(args) == 1 {
		value = args[0]
	} else {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("leer valor: %w", err)
		}
		value = strings.TrimSpace(line)
	}
	if value == "" {
		return fmt.Errorf("valor vacío")
	}

	sealed, err := box.Seal(value)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), sealed)
	return nil
}
