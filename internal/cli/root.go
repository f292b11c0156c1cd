// Package cli wires the taskboard commands.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/eleven-am/taskboard/internal/logger"
	"github.com/eleven-am/taskboard/pkg/taskboard"
)

// Global configuration variables
var (
	configFile  string
	config      *Config
	databaseURL string
	debug       bool
)

func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "taskboard",
		Short: "Taskboard - task management API",
		Long: `Taskboard serves a JSON API for tasks, subtasks, categories and tags
backed by PostgreSQL.

Commands:
- serve: run the HTTP API
- migrate: bring the database schema up to date
- init: write a default configuration file`,
		Version:       taskboard.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(configFile)
			if err != nil {
				return err
			}
			applyFlags(cfg)
			config = cfg

			return logger.Setup(logger.Options{
				Level:  cfg.Log.Level,
				Format: cfg.Log.Format,
				File:   cfg.Log.File,
			})
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: taskboard.yaml)")
	rootCmd.PersistentFlags().StringVar(&databaseURL, "url", "", "database connection URL")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newMigrateCommand())
	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(versionCmd)

	return rootCmd
}

// applyFlags lets command-line flags win over file and environment values.
func applyFlags(cfg *Config) {
	if databaseURL != "" {
		cfg.Database.URL = databaseURL
	}
	if debug {
		cfg.Log.Level = "debug"
	}
}
