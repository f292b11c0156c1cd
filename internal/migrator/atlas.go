package migrator

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ariga.io/atlas/sql/migrate"
	"ariga.io/atlas/sql/postgres"
	"ariga.io/atlas/sql/schema"

	"github.com/eleven-am/taskboard/internal/logger"
)

// Plan is the set of changes that brings a live schema to the target.
type Plan struct {
	Changes    []schema.Change
	Statements []string
}

// Empty reports whether the live schema already matches.
func (p Plan) Empty() bool {
	return len(p.Statements) == 0
}

// Destructive describes the changes that drop tables, columns, indexes or
// foreign keys.
func (p Plan) Destructive() []string {
	_, descriptions := CountDestructiveChanges(p.Changes)
	return descriptions
}

// GenerateAtlasSQL renders changes as SQL statements.
func GenerateAtlasSQL(ctx context.Context, driver migrate.Driver, changes []schema.Change) ([]string, error) {
	plan, err := driver.PlanChanges(ctx, "", changes)
	if err != nil {
		return nil, fmt.Errorf("failed to generate plan: %w", err)
	}

	statements := make([]string, len(plan.Changes))
	for i, change := range plan.Changes {
		statements[i] = change.Cmd
		if change.Comment != "" {
			statements[i] = fmt.Sprintf("-- %s\n%s", change.Comment, change.Cmd)
		}
	}
	return statements, nil
}

// Migrator diffs a live database against a DDL script. The script is loaded
// into a temporary database so Atlas can inspect both sides the same way.
type Migrator struct {
	config        *DBConfig
	tempDBManager *TempDBManager
	log           logger.Logger
}

func New(config *DBConfig) *Migrator {
	return &Migrator{
		config:        config,
		tempDBManager: NewTempDBManager(config),
		log:           logger.Atlas(),
	}
}

// Plan computes the changes that turn the current schema of source into the
// schema created by targetDDL.
func (m *Migrator) Plan(ctx context.Context, source *sql.DB, targetDDL string) (Plan, error) {
	sourceDriver, err := postgres.Open(source)
	if err != nil {
		return Plan{}, fmt.Errorf("failed to create source driver: %w", err)
	}
	current, err := sourceDriver.InspectSchema(ctx, "", nil)
	if err != nil {
		return Plan{}, fmt.Errorf("failed to inspect current schema: %w", err)
	}

	tempDBName := fmt.Sprintf("taskboard_plan_%d", time.Now().UnixNano())
	tempDB, cleanup, err := m.tempDBManager.CreateTempDB(ctx, tempDBName)
	if err != nil {
		return Plan{}, fmt.Errorf("failed to create temp database: %w", err)
	}
	defer cleanup()

	if _, err := tempDB.ExecContext(ctx, targetDDL); err != nil {
		return Plan{}, fmt.Errorf("failed to execute DDL in temp database: %w", err)
	}

	targetDriver, err := postgres.Open(tempDB)
	if err != nil {
		return Plan{}, fmt.Errorf("failed to create target driver: %w", err)
	}
	target, err := targetDriver.InspectSchema(ctx, "", nil)
	if err != nil {
		return Plan{}, fmt.Errorf("failed to inspect target schema: %w", err)
	}

	changes, err := sourceDriver.SchemaDiff(current, target)
	if err != nil {
		return Plan{}, fmt.Errorf("failed to calculate diff: %w", err)
	}
	if len(changes) == 0 {
		return Plan{}, nil
	}

	statements, err := GenerateAtlasSQL(ctx, sourceDriver, changes)
	if err != nil {
		return Plan{}, fmt.Errorf("failed to generate SQL: %w", err)
	}

	m.log.WithField("changes", len(changes)).Debug("migration planned")
	return Plan{Changes: changes, Statements: statements}, nil
}

// Apply runs the plan's statements in one transaction.
func (m *Migrator) Apply(ctx context.Context, db *sql.DB, plan Plan) error {
	if plan.Empty() {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	for i, stmt := range plan.Statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("statement %d failed: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}

	m.log.WithField("statements", len(plan.Statements)).Info("migration applied")
	return nil
}

func IsDestructiveChange(change schema.Change) bool {
	switch c := change.(type) {
	case *schema.DropTable, *schema.DropColumn, *schema.DropIndex, *schema.DropForeignKey:
		return true
	case *schema.ModifyTable:
		for _, sub := range c.Changes {
			if IsDestructiveChange(sub) {
				return true
			}
		}
	}
	return false
}

func DescribeChange(change schema.Change) string {
	switch c := change.(type) {
	case *schema.AddTable:
		return fmt.Sprintf("Create table %s", c.T.Name)
	case *schema.DropTable:
		return fmt.Sprintf("Drop table %s", c.T.Name)
	case *schema.ModifyTable:
		return fmt.Sprintf("Modify table %s (%d changes)", c.T.Name, len(c.Changes))
	case *schema.AddColumn:
		return fmt.Sprintf("Add column %s", c.C.Name)
	case *schema.DropColumn:
		return fmt.Sprintf("Drop column %s", c.C.Name)
	case *schema.ModifyColumn:
		return fmt.Sprintf("Modify column %s", c.To.Name)
	case *schema.AddIndex:
		return fmt.Sprintf("Add index %s", c.I.Name)
	case *schema.DropIndex:
		return fmt.Sprintf("Drop index %s", c.I.Name)
	case *schema.AddForeignKey:
		return fmt.Sprintf("Add foreign key %s", c.F.Symbol)
	case *schema.DropForeignKey:
		return fmt.Sprintf("Drop foreign key %s", c.F.Symbol)
	default:
		return fmt.Sprintf("Change type %T", change)
	}
}

func CountDestructiveChanges(changes []schema.Change) (count int, descriptions []string) {
	for _, change := range changes {
		if IsDestructiveChange(change) {
			count++
			descriptions = append(descriptions, DescribeChange(change))
		}
	}
	return count, descriptions
}
