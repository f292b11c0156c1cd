package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newInitCommand() *cobra.Command {
	var (
		driver string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default taskboard configuration file",
		Long: `Creates taskboard.yaml (or the --config path) with default settings
that you can adjust for your environment.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configFile
			if path == "" {
				path = DefaultConfigFile
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists. Use --force to overwrite", path)
			}

			cfg := DefaultConfig()
			cfg.Database.Driver = driver
			if databaseURL != "" {
				cfg.Database.URL = databaseURL
			}

			if err := SaveConfig(cfg, path); err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created %s\n", path)
			fmt.Fprintf(out, "\nNext steps:\n")
			fmt.Fprintf(out, "1. Update the database URL in %s\n", path)
			fmt.Fprintf(out, "2. Run 'taskboard migrate' to create the schema\n")
			fmt.Fprintf(out, "3. Run 'taskboard serve' to start the API\n")
			return nil
		},
	}

	cmd.Flags().StringVar(&driver, "driver", "postgres", "Database driver (postgres, pgx)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration file")
	return cmd
}
