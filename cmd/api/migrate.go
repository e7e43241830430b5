package main

import (
	"teamwear/internal/database"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, log, db, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer closeDB(db)

		log.Info("running database migrations")
		if err := database.Migrate(db); err != nil {
			return err
		}
		log.Info("database migrations completed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
