package cli

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"iot-ingest-backend/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if !cfg.DatabaseEnabled() {
			return errors.New("database.url is required to migrate")
		}
		// Init applies pending migrations before returning.
		d, err := db.Init(cmd.Context(), db.Config{
			ConnString:     cfg.Database.URL,
			MigrationsPath: cfg.Database.MigrationsPath,
			MaxConns:       1,
		})
		if err != nil {
			return err
		}
		d.Close()
		slog.InfoContext(cmd.Context(), "Migrations applied", "path", cfg.Database.MigrationsPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
