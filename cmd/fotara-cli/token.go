package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/fotara-api/pkg/jwt"
)

var tokenCmd = &cobra.Command{
	Use:   "issue-token",
	Short: "Emite un token de servicio para los ganchos del ERP",
	Long: `Firma un JWT con JWT_SECRET para una integración. Por defecto el rol es "sistema",
que solo puede llamar a /api/fotara/hooks/*.`,
	Example: `  fotara-cli issue-token --company 42f0... --user erp-sync --expires 1440`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		companyID, _ := cmd.Flags().GetString("company")
		userID, _ := cmd.Flags().GetString("user")
		role, _ := cmd.Flags().GetString("role")
		minutes, _ := cmd.Flags().GetInt("expires")
		if minutes <= 0 {
			minutes = cfg.JWT.Expiration
		}
		tok, err := jwt.Generate(cfg.JWT.Secret, userID, companyID, role, cfg.JWT.Issuer, minutes)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().String("company", "", "ID de la empresa [REQUIRED]")
	tokenCmd.Flags().String("user", "sistema", "user_id del token (canal de notificaciones)")
	tokenCmd.Flags().String("role", "sistema", "Rol: admin|vendedor|sistema")
	tokenCmd.Flags().Int("expires", 0, "Minutos de validez (por defecto JWT_EXPIRATION_MINUTES)")
	_ = tokenCmd.MarkFlagRequired("company")
}
