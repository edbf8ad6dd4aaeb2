package main

import (
	"os"

	"github.com/spf13/cobra"

	"budgetrollup/internal/cli"
	"budgetrollup/internal/config"
	"budgetrollup/internal/log"
)

var (
	flagBackend  string
	flagDBPath   string
	flagSeedFile string
	flagKeyRules string
	flagVerbose  bool
)

var rootCmd = &cobra.Command{
	Use:          "budgetctl",
	Short:        "Budget rollup command line",
	Long:         "Compute budget rollups and manage the SQLite source store.",
	SilenceUsage: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagBackend, "backend", "", "Source backend: memory or sqlite (default DATA_BACKEND)")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "SQLite database path (default SQLITE_DB_PATH)")
	rootCmd.PersistentFlags().StringVar(&flagSeedFile, "seed", "", "YAML fixture to load (default SEED_FILE)")
	rootCmd.PersistentFlags().StringVar(&flagKeyRules, "key-rules", "", "Key rules: default, legacy or a YAML file (default KEY_RULES)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log at debug level")
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig() *config.Config {
	cfg := cli.LoadConfig()
	if flagBackend != "" {
		cfg.DataBackend = flagBackend
	}
	if flagDBPath != "" {
		cfg.SQLiteDBPath = flagDBPath
	}
	if flagSeedFile != "" {
		cfg.SeedFile = flagSeedFile
	}
	if flagKeyRules != "" {
		cfg.KeyRules = flagKeyRules
	}
	if flagVerbose {
		cfg.LogLevel = "debug"
	}
	return cfg
}

// newLogger logs to stderr so stdout carries only command output.
func newLogger(cfg *config.Config) *log.Logger {
	level := log.ParseLevel(cfg.LogLevel)
	if !flagVerbose && cfg.LogLevel == "info" {
		level = log.ParseLevel("warn")
	}
	logger := log.New(log.Config{
		Level:     level,
		Component: log.ComponentCLI,
		Format:    cfg.LogFormat,
		Output:    os.Stderr,
	})
	log.SetDefault(logger)
	return logger
}
