package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jhoicas/fotara-api/internal/bootstrap"
	"github.com/jhoicas/fotara-api/pkg/config"
	"github.com/jhoicas/fotara-api/pkg/logger"
)

var (
	cfg *config.Config
	log *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "fotara-cli",
	Short: "Operación de la integración JoFotara",
	Long: `fotara-cli ejecuta tareas de operación sobre la integración JoFotara (Jordania):
envío manual de facturas, vista previa del documento, recuperación de envíos
atascados en cola y sellado de secretos de empresa.

Lee la misma configuración que la API (.env, config.* y variables de entorno).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return fmt.Errorf("cargar configuración: %w", err)
		}
		level, _ := cmd.Flags().GetString("log-level")
		if level == "" {
			level = cfg.App.LogLevel
		}
		log = logger.New(logger.Config{Env: "development", Level: level, Out: os.Stderr})
		return nil
	},
}

// Execute corre el comando raíz y termina con código 1 si falla.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "Nivel de log (trace|debug|info|warn|error)")
}

// services arma las dependencias; el llamador debe invocar Close.
func services(ctx context.Context) (*bootstrap.Services, error) {
	return bootstrap.Build(ctx, cfg, log.Component("cli"))
}
