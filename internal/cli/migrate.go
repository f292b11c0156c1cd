package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/eleven-am/taskboard/internal/logger"
	"github.com/eleven-am/taskboard/internal/migrator"
	"github.com/eleven-am/taskboard/internal/store"
)

type migrateOptions struct {
	dryRun              bool
	createDBIfNotExists bool
	allowDestructive    bool
}

func newMigrateCommand() *cobra.Command {
	var opts migrateOptions

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Bring the database schema up to date",
		Long: `Compares the live database with the taskboard schema and applies the
difference. Statements that drop tables, columns, indexes or foreign keys
are refused unless --allow-destructive is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()
			return runMigrate(ctx, cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Print the migration without applying it")
	cmd.Flags().BoolVar(&opts.createDBIfNotExists, "create-if-not-exists", false, "Create the database if it does not exist")
	cmd.Flags().BoolVar(&opts.allowDestructive, "allow-destructive", false, "Allow potentially destructive operations")
	return cmd
}

func runMigrate(ctx context.Context, cmd *cobra.Command, opts migrateOptions) error {
	dbConfig := databaseConfig(config)
	if dbConfig.URL == "" {
		return fmt.Errorf("database connection required: use --url, TASKBOARD_DATABASE_URL, or database.url in taskboard.yaml")
	}
	log := logger.Migration()

	if opts.createDBIfNotExists {
		if err := migrator.EnsureDatabaseExists(ctx, dbConfig.URL); err != nil {
			return err
		}
	}

	db, err := dbConfig.Open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	m := migrator.New(dbConfig)
	plan, err := m.Plan(ctx, db.DB, store.Schema)
	if err != nil {
		return fmt.Errorf("failed to plan migration: %w", err)
	}

	out := cmd.OutOrStdout()
	if plan.Empty() {
		fmt.Fprintln(out, "Schema is up to date")
		return nil
	}

	for _, stmt := range plan.Statements {
		fmt.Fprintf(out, "%s;\n", stmt)
	}

	if destructive := plan.Destructive(); len(destructive) > 0 && !opts.allowDestructive {
		return fmt.Errorf("migration contains %d destructive change(s): %s; rerun with --allow-destructive",
			len(destructive), strings.Join(destructive, ", "))
	}

	if opts.dryRun {
		fmt.Fprintln(out, "Dry run: no changes applied")
		return nil
	}

	if err := m.Apply(ctx, db.DB, plan); err != nil {
		return fmt.Errorf("failed to apply migration: %w", err)
	}
	log.WithField("statements", len(plan.Statements)).Info("schema migrated")
	fmt.Fprintln(out, "Migration applied successfully")
	return nil
}

// databaseConfig maps the database section onto connection settings.
func databaseConfig(cfg *Config) *migrator.DBConfig {
	dbConfig := migrator.NewDBConfig(cfg.Database.URL)
	dbConfig.Driver = cfg.Database.Driver
	if cfg.Database.MaxOpenConns > 0 {
		dbConfig.MaxOpenConns = cfg.Database.MaxOpenConns
	}
	if cfg.Database.MaxIdleConns > 0 {
		dbConfig.MaxIdleConns = cfg.Database.MaxIdleConns
	}
	if cfg.Database.ConnMaxLifetime > 0 {
		dbConfig.ConnMaxLifetime = cfg.Database.ConnMaxLifetime
	}
	return dbConfig
}
