package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/eleven-am/taskboard/internal/logger"
	"github.com/eleven-am/taskboard/internal/orm"
	"github.com/eleven-am/taskboard/internal/task"
)

// Schema is the desired database schema, applied by the migrate command.
//
//go:embed schema.sql
var Schema string

// Store is the PostgreSQL persistence layer for tasks, categories and tags.
type Store struct {
	db    *sqlx.DB
	tx    *orm.TransactionManager
	chain *orm.Chain
	log   logger.Logger
}

// New wraps db. Every statement the store issues, typed query or raw, runs
// through the query middleware chain.
func New(db *sqlx.DB, middleware ...orm.QueryMiddleware) *Store {
	log := logger.DB()
	chain := orm.NewChain(orm.LoggingMiddleware(log))
	for _, m := range middleware {
		chain.Use(m)
	}

	return &Store{
		db:    db,
		tx:    orm.NewTransactionManager(db),
		chain: chain,
		log:   log,
	}
}

// DB returns the underlying connection pool.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Chain returns the query middleware chain.
func (s *Store) Chain() *orm.Chain {
	return s.chain
}

// Transactions returns the store's transaction manager.
func (s *Store) Transactions() *orm.TransactionManager {
	return s.tx
}

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

// TaskQuery starts a typed query over tasks on exec.
func (s *Store) TaskQuery(exec orm.DBExecutor) *orm.Query[task.Task] {
	return orm.NewQuery[task.Task](exec, TasksTable, TaskColumns...).Use(s.chain)
}

// queryRow runs a single-row statement on exec and scans it into dest.
func (s *Store) queryRow(ctx context.Context, exec orm.DBExecutor, op orm.OperationType, table, query string, args []interface{}, dest ...interface{}) error {
	err := s.chain.Run(ctx, op, table, query, args, func(mc *orm.MiddlewareContext) error {
		return exec.QueryRowxContext(mc.Context, mc.Query, mc.Args...).Scan(dest...)
	})
	return orm.ParsePostgreSQLError(err, string(op), table)
}

// get runs query on exec and scans the single result into dest.
func (s *Store) get(ctx context.Context, exec orm.DBExecutor, op orm.OperationType, table string, dest interface{}, query string, args ...interface{}) error {
	err := s.chain.Run(ctx, op, table, query, args, func(mc *orm.MiddlewareContext) error {
		return exec.GetContext(mc.Context, dest, mc.Query, mc.Args...)
	})
	return orm.ParsePostgreSQLError(err, string(op), table)
}

// exec runs a statement that returns no rows on exec.
func (s *Store) exec(ctx context.Context, exec orm.DBExecutor, op orm.OperationType, table, query string, args ...interface{}) error {
	err := s.chain.Run(ctx, op, table, query, args, func(mc *orm.MiddlewareContext) error {
		res, err := exec.ExecContext(mc.Context, mc.Query, mc.Args...)
		if err != nil {
			return err
		}
		mc.RowsAffected, err = res.RowsAffected()
		return err
	})
	return orm.ParsePostgreSQLError(err, string(op), table)
}

// translate maps orm errors to domain errors for a record of kind with id.
func translate(err error, kind string, id int64) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, orm.ErrNotFound) {
		return task.NotFound(kind, id)
	}
	return err
}

// uniqueName converts a unique violation on name into a validation error.
func uniqueName(err error) error {
	if errors.Is(err, orm.ErrDuplicateKey) {
		return task.ValidationErrors{"name": {task.MsgTaken}}
	}
	return err
}
