package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"budgetrollup/internal/sources"
	"budgetrollup/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply SQLite schema migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		newLogger(cfg)

		if err := storage.RunMigrations(cfg.SQLiteDBPath); err != nil {
			return err
		}
		version, dirty, err := storage.SchemaVersion(cfg.SQLiteDBPath)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s at schema version %d (dirty=%t)\n", cfg.SQLiteDBPath, version, dirty)
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed <file.yaml>",
	Short: "Load a YAML fixture into the SQLite store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		newLogger(cfg)

		fixture, err := sources.LoadFixture(args[0])
		if err != nil {
			return err
		}
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return err
		}
		defer func() { _ = repo.Close() }()

		n, err := repo.Seed(cmd.Context(), fixture)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d rows into %s\n", n, cfg.SQLiteDBPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd, seedCmd)
}
