package orm

import (
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"
)

// PostgreSQL-specific conditions

// AnyOf matches rows whose column equals any element of values, sent as a
// single array parameter. An empty slice matches nothing.
func AnyOf[T any](column string, values []T) Condition {
	return Condition{squirrel.Expr(fmt.Sprintf("%s = ANY(?)", column), pq.Array(values))}
}

// AnyOf matches rows whose column equals any of values.
func (c Column[T]) AnyOf(values []T) Condition {
	return AnyOf(c.String(), values)
}

// InSubquery matches rows whose column appears in the result of sub.
func InSubquery(column string, sub squirrel.SelectBuilder) Condition {
	sql, args, err := sub.PlaceholderFormat(squirrel.Question).ToSql()
	if err != nil {
		return Condition{errSqlizer{err}}
	}
	return Condition{squirrel.Expr(fmt.Sprintf("%s IN (%s)", column, sql), args...)}
}

// InSubquery matches rows whose column appears in the result of sub.
func (c Column[T]) InSubquery(sub squirrel.SelectBuilder) Condition {
	return InSubquery(c.String(), sub)
}

// errSqlizer defers a build error until the statement is rendered.
type errSqlizer struct{ err error }

func (e errSqlizer) ToSql() (string, []interface{}, error) {
	return "", nil, e.err
}
