package orm

import (
	"fmt"
)

// JoinType represents different types of SQL joins
type JoinType string

const (
	InnerJoin JoinType = "INNER JOIN"
	LeftJoin  JoinType = "LEFT JOIN"
)

// join is one JOIN clause of a query
type join struct {
	Type      JoinType
	Table     Table
	Condition string
	Args      []interface{}
}

func (j join) clause() string {
	return fmt.Sprintf("%s %s ON %s", j.Type, j.Table.FullName(), j.Condition)
}

// Join adds a join against table. on is raw SQL with ? placeholders and must
// not contain caller-supplied text.
func (q *Query[T]) Join(kind JoinType, table Table, on string, args ...interface{}) *Query[T] {
	q.joins = append(q.joins, join{Type: kind, Table: table, Condition: on, Args: args})
	return q
}

// InnerJoin adds an INNER JOIN
func (q *Query[T]) InnerJoin(table Table, on string, args ...interface{}) *Query[T] {
	return q.Join(InnerJoin, table, on, args...)
}

// LeftJoin adds a LEFT JOIN
func (q *Query[T]) LeftJoin(table Table, on string, args ...interface{}) *Query[T] {
	return q.Join(LeftJoin, table, on, args...)
}
