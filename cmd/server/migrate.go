package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"nutribyte/fitness-app/internal/config"
	"nutribyte/fitness-app/internal/logger"
	"nutribyte/fitness-app/internal/repository/mongo"
	"nutribyte/fitness-app/internal/repository/sqlstore"
)

func migrateCmd(configPath *string) *cobra.Command {
	var down, status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply SQL migrations or create MongoDB indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*configPath)
			if err != nil {
				return fmt.Errorf("could not load config: %w", err)
			}
			logger.Init(cfg.App.IsDevelopment(), cfg.App.SentryDSN)
			return runMigrate(cmd.Context(), cfg.Database, down, status)
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "roll back the most recent SQL migration")
	cmd.Flags().BoolVar(&status, "status", false, "print SQL migration status")
	return cmd
}

func runMigrate(ctx context.Context, cfg config.DatabaseConfig, down, status bool) error {
	switch cfg.Driver {
	case config.DriverMongo:
		client, err := mongo.ConnectDB(cfg.URI)
		if err != nil {
			return fmt.Errorf("could not connect to MongoDB: %w", err)
		}
		defer disconnectMongo(client)

		indexCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		mongo.EnsureIndexes(indexCtx, client.Database(cfg.Name))
		return nil

	case config.DriverPostgres, config.DriverSQLite:
		driver := sqlDriver(cfg.Driver)
		db, err := sqlstore.Open(driver, cfg.URI)
		if err != nil {
			return err
		}
		defer closeSQL(db)

		switch {
		case status:
			return sqlstore.MigrationStatus(db.DB, driver)
		case down:
			return sqlstore.MigrateDown(db.DB, driver)
		default:
			return sqlstore.RunMigrations(db.DB, driver)
		}
	}
	return fmt.Errorf("nothing to migrate for database driver %q", cfg.Driver)
}
