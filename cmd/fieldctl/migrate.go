package main

import (
	"context"

	"github.com/spf13/cobra"

	"fieldops/pkg/db"
	"fieldops/pkg/logx"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logx.Component("migrate")

		path := cfg.MigrationsPath
		if path == "" {
			path = "file://migrations"
		}

		// Uses DIRECT_URL if set (recommended for hosted Postgres migrations).
		if err := db.Migrate(path, cfg); err != nil {
			return err
		}

		// Sanity check: the runtime connection must open too.
		pool, err := db.Open(context.Background(), cfg)
		if err != nil {
			return err
		}
		pool.Close()

		log.Info().Str("path", path).Msg("migrations applied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
