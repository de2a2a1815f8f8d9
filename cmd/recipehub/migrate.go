package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pageza/recipehub/config"
	"github.com/pageza/recipehub/internal/database"
	"github.com/pageza/recipehub/internal/session"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the session tables of the sqlite or postgres backend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			if cfg.SessionBackend != config.SessionSQLite && cfg.SessionBackend != config.SessionPostgres {
				fmt.Fprintf(cmd.OutOrStdout(), "Session backend %q needs no migrations\n", cfg.SessionBackend)
				return nil
			}

			db, err := database.Open(cfg, log)
			if err != nil {
				return err
			}
			defer database.Close(db)

			if err := database.RunMigrations(db, log, session.Migration); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
			return nil
		},
	}
}
