package main

import (
	"os"

	"teamwear/internal/database"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed roles, permissions, urgent reasons and the admin account",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, log, db, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer closeDB(db)

		email, _ := cmd.Flags().GetString("admin-email")
		password, _ := cmd.Flags().GetString("admin-password")
		if password == "" {
			password = os.Getenv("APP_ADMIN_PASSWORD")
		}

		if err := database.Seed(cmd.Context(), db, database.SeedOptions{
			AdminEmail:    email,
			AdminPassword: password,
		}); err != nil {
			return err
		}
		log.Info("seed completed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().String("admin-email", "", "Email of the bootstrap admin account (skipped when empty)")
	seedCmd.Flags().String("admin-password", "", "Password of the bootstrap admin account (default: $APP_ADMIN_PASSWORD)")
}
