package orm

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"
)

// Query provides a fluent interface for building and running SELECT,
// UPDATE and DELETE statements against one table.
type Query[T any] struct {
	db      DBExecutor
	table   Table
	columns []string
	chain   *Chain

	joins       []join
	whereClause squirrel.And
	orderBy     []string
	limit       *uint64
	offset      *uint64
	suffix      string
}

// NewQuery creates a query over table selecting columns into T.
func NewQuery[T any](db DBExecutor, table Table, columns ...string) *Query[T] {
	return &Query[T]{
		db:          db,
		table:       table,
		columns:     columns,
		whereClause: squirrel.And{},
	}
}

// Use attaches a middleware chain to the query
func (q *Query[T]) Use(chain *Chain) *Query[T] {
	q.chain = chain
	return q
}

// Where adds a type-safe condition. Zero conditions are ignored.
func (q *Query[T]) Where(condition Condition) *Query[T] {
	if condition.IsZero() {
		return q
	}
	q.whereClause = append(q.whereClause, condition.ToSqlizer())
	return q
}

// OrderBy adds ORDER BY expressions
func (q *Query[T]) OrderBy(expressions ...string) *Query[T] {
	q.orderBy = append(q.orderBy, expressions...)
	return q
}

// Limit sets the LIMIT clause
func (q *Query[T]) Limit(limit uint64) *Query[T] {
	q.limit = &limit
	return q
}

// Offset sets the OFFSET clause
func (q *Query[T]) Offset(offset uint64) *Query[T] {
	q.offset = &offset
	return q
}

// ForUpdate locks the selected rows until the surrounding transaction ends
func (q *Query[T]) ForUpdate() *Query[T] {
	q.suffix = "FOR UPDATE"
	return q
}

// ToSql builds the SELECT statement
func (q *Query[T]) ToSql() (string, []interface{}, error) {
	builder := squirrel.Select(q.columns...).
		From(q.table.FullName()).
		PlaceholderFormat(squirrel.Dollar)

	for _, j := range q.joins {
		builder = builder.JoinClause(j.clause(), j.Args...)
	}
	if len(q.whereClause) > 0 {
		builder = builder.Where(q.whereClause)
	}
	for _, orderBy := range q.orderBy {
		builder = builder.OrderBy(orderBy)
	}
	if q.limit != nil {
		builder = builder.Limit(*q.limit)
	}
	if q.offset != nil {
		builder = builder.Offset(*q.offset)
	}
	if q.suffix != "" {
		builder = builder.Suffix(q.suffix)
	}

	return builder.ToSql()
}

// Find executes the query and returns all matching records
func (q *Query[T]) Find(ctx context.Context) ([]T, error) {
	sqlQuery, args, err := q.ToSql()
	if err != nil {
		return nil, &Error{Op: "find", Table: q.table.Name, Err: fmt.Errorf("failed to build query: %w", err)}
	}

	records := make([]T, 0)
	err = q.run(ctx, OpFind, sqlQuery, args, func(mc *MiddlewareContext) error {
		return q.db.SelectContext(mc.Context, &records, mc.Query, mc.Args...)
	})
	if err != nil {
		return nil, ParsePostgreSQLError(err, "find", q.table.Name)
	}

	return records, nil
}

// First executes the query and returns the first matching record
func (q *Query[T]) First(ctx context.Context) (*T, error) {
	q.Limit(1)
	records, err := q.Find(ctx)
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, &Error{Op: "first", Table: q.table.Name, Err: ErrNotFound}
	}

	return &records[0], nil
}

// Count returns the number of records matching the query, ignoring
// ordering and pagination.
func (q *Query[T]) Count(ctx context.Context) (int64, error) {
	builder := squirrel.Select("COUNT(*)").
		From(q.table.FullName()).
		PlaceholderFormat(squirrel.Dollar)

	for _, j := range q.joins {
		builder = builder.JoinClause(j.clause(), j.Args...)
	}
	if len(q.whereClause) > 0 {
		builder = builder.Where(q.whereClause)
	}

	sqlQuery, args, err := builder.ToSql()
	if err != nil {
		return 0, &Error{Op: "count", Table: q.table.Name, Err: fmt.Errorf("failed to build count query: %w", err)}
	}

	var count int64
	err = q.run(ctx, OpCount, sqlQuery, args, func(mc *MiddlewareContext) error {
		return q.db.GetContext(mc.Context, &count, mc.Query, mc.Args...)
	})
	if err != nil {
		return 0, ParsePostgreSQLError(err, "count", q.table.Name)
	}

	return count, nil
}

// Update sets columns on every record matching the query and reports how
// many rows changed.
func (q *Query[T]) Update(ctx context.Context, set map[string]interface{}) (int64, error) {
	if len(set) == 0 {
		return 0, &Error{Op: "update", Table: q.table.Name, Err: fmt.Errorf("no columns to update")}
	}

	builder := squirrel.Update(q.table.FullName()).
		SetMap(set).
		PlaceholderFormat(squirrel.Dollar)

	if len(q.whereClause) > 0 {
		builder = builder.Where(q.whereClause)
	}

	sqlQuery, args, err := builder.ToSql()
	if err != nil {
		return 0, &Error{Op: "update", Table: q.table.Name, Err: fmt.Errorf("failed to build update query: %w", err)}
	}

	return q.exec(ctx, OpUpdate, sqlQuery, args)
}

// Delete deletes all records matching the query
func (q *Query[T]) Delete(ctx context.Context) (int64, error) {
	builder := squirrel.Delete(q.table.FullName()).
		PlaceholderFormat(squirrel.Dollar)

	if len(q.whereClause) > 0 {
		builder = builder.Where(q.whereClause)
	}

	sqlQuery, args, err := builder.ToSql()
	if err != nil {
		return 0, &Error{Op: "delete", Table: q.table.Name, Err: fmt.Errorf("failed to build delete query: %w", err)}
	}

	return q.exec(ctx, OpDelete, sqlQuery, args)
}

func (q *Query[T]) exec(ctx context.Context, op OperationType, sqlQuery string, args []interface{}) (int64, error) {
	var result sql.Result
	err := q.run(ctx, op, sqlQuery, args, func(mc *MiddlewareContext) error {
		var execErr error
		result, execErr = q.db.ExecContext(mc.Context, mc.Query, mc.Args...)
		if execErr != nil {
			return execErr
		}
		mc.RowsAffected, execErr = result.RowsAffected()
		return execErr
	})
	if err != nil {
		return 0, ParsePostgreSQLError(err, string(op), q.table.Name)
	}

	rows, _ := result.RowsAffected()
	return rows, nil
}

func (q *Query[T]) run(ctx context.Context, op OperationType, sqlQuery string, args []interface{}, final QueryMiddlewareFunc) error {
	return q.chain.Run(ctx, op, q.table.Name, sqlQuery, args, final)
}
