package main

import (
	"fmt"
	"os"

	"teamwear/internal/config"
	"teamwear/internal/database"
	"teamwear/internal/logger"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:   "teamwear",
	Short: "Teamwear approvals API",
	Long: `Teamwear serves the approval workflow behind the admin app: urgent,
delete, modification and priority change requests, the design task board,
returned tasks and in-app notifications.`,
	SilenceUsage: true,
}

// Execute runs the root command. It is called once by main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file path (default: ./config.yaml or ./configs/config.yaml)")
}

// bootstrap loads config, installs the process logger and opens the database.
func bootstrap(cmd *cobra.Command) (*config.Config, *logrus.Logger, *gorm.DB, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(logger.Options{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Service: "teamwear",
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to init logger: %w", err)
	}
	logger.Set(log)

	log.WithFields(logrus.Fields{
		"host": cfg.Database.Host,
		"port": cfg.Database.Port,
		"db":   cfg.Database.DBName,
	}).Info("connecting to database")
	db, err := database.NewConnection(cfg.Database, log)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, log, db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
