// Package stats computes aggregate counts and rates over a set of tasks.
package stats

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/eleven-am/taskboard/internal/logger"
	"github.com/eleven-am/taskboard/internal/orm"
	"github.com/eleven-am/taskboard/internal/store"
	"github.com/eleven-am/taskboard/internal/task"
)

// Snapshot is the set of metrics computed for one scope at one instant.
type Snapshot struct {
	Total          int64                   `json:"total"`
	ByStatus       map[task.Status]int64   `json:"by_status"`
	ByPriority     map[task.Priority]int64 `json:"by_priority"`
	ByCategory     map[int64]int64         `json:"by_category"`
	CompletionRate float64                 `json:"completion_rate"`
	Overdue        int64                   `json:"overdue"`
}

type bucket[K any] struct {
	Key   K     `db:"key"`
	Count int64 `db:"count"`
}

// Aggregator computes snapshots against the task table.
type Aggregator struct {
	tx    *orm.TransactionManager
	chain *orm.Chain
	now   func() time.Time
	log   logger.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock sets the source of the evaluation instant used for overdue.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

// New creates an aggregator reading through s.
func New(s *store.Store, opts ...Option) *Aggregator {
	a := &Aggregator{tx: s.Transactions(), chain: s.Chain(), now: time.Now, log: logger.Stats()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// snapshotOptions gives every statement of one calculation the same view
// of the table without taking locks.
var snapshotOptions = &orm.TransactionOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}

// Calculate computes a snapshot over the tasks matching scope. A zero scope
// covers every task, subtasks included. All counts are read from one
// consistent snapshot.
func (a *Aggregator) Calculate(ctx context.Context, scope orm.Condition) (Snapshot, error) {
	var snap Snapshot
	err := a.tx.WithTransactionOptions(ctx, snapshotOptions, func(tx *sqlx.Tx) error {
		var err error
		snap, err = a.calculate(ctx, tx, scope)
		return err
	})
	if err != nil {
		return Snapshot{}, err
	}

	a.log.WithField("total", snap.Total).Debug("stats calculated")
	return snap, nil
}

func (a *Aggregator) calculate(ctx context.Context, exec orm.DBExecutor, scope orm.Condition) (Snapshot, error) {
	snap := Snapshot{
		ByStatus:   make(map[task.Status]int64, len(task.Statuses)),
		ByPriority: make(map[task.Priority]int64, len(task.Priorities)),
		ByCategory: make(map[int64]int64),
	}
	for _, s := range task.Statuses {
		snap.ByStatus[s] = 0
	}
	for _, p := range task.Priorities {
		snap.ByPriority[p] = 0
	}

	var statuses []bucket[string]
	if err := a.group(ctx, exec, &statuses, store.Tasks.Status.String(), scope); err != nil {
		return Snapshot{}, fmt.Errorf("count by status: %w", err)
	}
	for _, b := range statuses {
		snap.Total += b.Count
		if s := task.Status(b.Key); s.Valid() {
			snap.ByStatus[s] = b.Count
		}
	}

	var priorities []bucket[string]
	if err := a.group(ctx, exec, &priorities, store.Tasks.Priority.String(), scope); err != nil {
		return Snapshot{}, fmt.Errorf("count by priority: %w", err)
	}
	for _, b := range priorities {
		if p := task.Priority(b.Key); p.Valid() {
			snap.ByPriority[p] = b.Count
		}
	}

	var categories []bucket[int64]
	categorized := orm.And(scope, store.Tasks.CategoryID.IsNotNull())
	if err := a.group(ctx, exec, &categories, store.Tasks.CategoryID.String(), categorized); err != nil {
		return Snapshot{}, fmt.Errorf("count by category: %w", err)
	}
	for _, b := range categories {
		snap.ByCategory[b.Key] = b.Count
	}

	overdue, err := a.overdue(ctx, exec, scope, a.now())
	if err != nil {
		return Snapshot{}, fmt.Errorf("count overdue: %w", err)
	}
	snap.Overdue = overdue

	snap.CompletionRate = CompletionRate(snap.ByStatus[task.StatusCompleted], snap.Total)
	return snap, nil
}

func (a *Aggregator) group(ctx context.Context, exec orm.DBExecutor, dest interface{}, column string, scope orm.Condition) error {
	builder := squirrel.Select(column+" AS key", "COUNT(*) AS count").
		From(store.TasksTable.Name).
		GroupBy(column).
		PlaceholderFormat(squirrel.Dollar)
	if !scope.IsZero() {
		builder = builder.Where(scope.ToSqlizer())
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return err
	}
	err = a.chain.Run(ctx, orm.OpQuery, store.TasksTable.Name, query, args, func(mc *orm.MiddlewareContext) error {
		return exec.SelectContext(mc.Context, dest, mc.Query, mc.Args...)
	})
	return orm.ParsePostgreSQLError(err, "group", store.TasksTable.Name)
}

// overdue counts tasks in scope that are past due at now and not resolved.
func (a *Aggregator) overdue(ctx context.Context, exec orm.DBExecutor, scope orm.Condition, now time.Time) (int64, error) {
	builder := squirrel.Select("COUNT(*)").
		From(store.TasksTable.Name).
		PlaceholderFormat(squirrel.Dollar)
	if !scope.IsZero() {
		builder = builder.Where(scope.ToSqlizer())
	}
	builder = builder.
		Where(store.Tasks.DueDate.IsNotNull().ToSqlizer()).
		Where(store.Tasks.DueDate.Before(now).ToSqlizer()).
		Where(store.Tasks.Status.NotIn(task.ResolvedStatuses()...).ToSqlizer())

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, err
	}

	var count int64
	err = a.chain.Run(ctx, orm.OpCount, store.TasksTable.Name, query, args, func(mc *orm.MiddlewareContext) error {
		return exec.GetContext(mc.Context, &count, mc.Query, mc.Args...)
	})
	if err != nil {
		return 0, orm.ParsePostgreSQLError(err, "count", store.TasksTable.Name)
	}
	return count, nil
}

// CompletionRate returns completed as a percentage of total, rounded to two
// decimal places. It is 0 when total is 0.
func CompletionRate(completed, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(completed)/float64(total)*10000) / 100
}
