package orm

import (
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
)

// Column represents a type-safe database column reference
type Column[T any] struct {
	Name  string
	Table string
}

func (c Column[T]) String() string {
	if c.Table != "" {
		return fmt.Sprintf("%s.%s", c.Table, c.Name)
	}
	return c.Name
}

func (c Column[T]) Eq(value T) Condition {
	return Condition{squirrel.Eq{c.String(): value}}
}

func (c Column[T]) NotEq(value T) Condition {
	return Condition{squirrel.NotEq{c.String(): value}}
}

func (c Column[T]) In(values ...T) Condition {
	interfaces := make([]interface{}, len(values))
	for i, v := range values {
		interfaces[i] = v
	}
	return Condition{squirrel.Eq{c.String(): interfaces}}
}

func (c Column[T]) NotIn(values ...T) Condition {
	interfaces := make([]interface{}, len(values))
	for i, v := range values {
		interfaces[i] = v
	}
	return Condition{squirrel.NotEq{c.String(): interfaces}}
}

func (c Column[T]) IsNull() Condition {
	return Condition{squirrel.Eq{c.String(): nil}}
}

func (c Column[T]) IsNotNull() Condition {
	return Condition{squirrel.NotEq{c.String(): nil}}
}

func (c Column[T]) Asc() string {
	return c.String() + " ASC"
}

func (c Column[T]) Desc() string {
	return c.String() + " DESC"
}

// ComparableColumn provides comparison operations for comparable types
type ComparableColumn[T Comparable] struct {
	Column[T]
}

// Comparable types that support comparison operators
type Comparable interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~float32 | ~float64 |
		~string |
		time.Time
}

func (c ComparableColumn[T]) Gte(value T) Condition {
	return Condition{squirrel.GtOrEq{c.String(): value}}
}

func (c ComparableColumn[T]) Lt(value T) Condition {
	return Condition{squirrel.Lt{c.String(): value}}
}

func (c ComparableColumn[T]) Lte(value T) Condition {
	return Condition{squirrel.LtOrEq{c.String(): value}}
}

// StringColumn provides string-specific operations
type StringColumn struct {
	Column[string]
}

func (c StringColumn) ILike(pattern string) Condition {
	return Condition{squirrel.ILike{c.String(): pattern}}
}

// ContainsFold matches substring anywhere in the column, ignoring case. LIKE
// metacharacters in substring match literally.
func (c StringColumn) ContainsFold(substring string) Condition {
	return c.ILike("%" + EscapeLike(substring) + "%")
}

// EscapeLike escapes the LIKE wildcards and the escape character itself.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// NumericColumn provides numeric-specific operations
type NumericColumn[T Numeric] struct {
	ComparableColumn[T]
}

// Numeric types for mathematical operations
type Numeric interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~float32 | ~float64
}

// TimeColumn provides time-specific operations
type TimeColumn struct {
	ComparableColumn[time.Time]
}

func (c TimeColumn) Before(t time.Time) Condition {
	return c.Lt(t)
}

func (c TimeColumn) Since(t time.Time) Condition {
	return c.Gte(t)
}

func (c TimeColumn) Until(t time.Time) Condition {
	return c.Lte(t)
}

// AscNullsLast orders ascending with NULLs after every value.
func (c TimeColumn) AscNullsLast() string {
	return c.String() + " ASC NULLS LAST"
}

// DescNullsLast orders descending with NULLs after every value.
func (c TimeColumn) DescNullsLast() string {
	return c.String() + " DESC NULLS LAST"
}

// Condition wraps squirrel conditions for type safety
type Condition struct {
	condition squirrel.Sqlizer
}

// Expr builds a condition from a raw SQL fragment with ? placeholders. The
// fragment must never contain caller-supplied text.
func Expr(sql string, args ...interface{}) Condition {
	return Condition{squirrel.Expr(sql, args...)}
}

func (c Condition) And(other Condition) Condition {
	return Condition{squirrel.And{c.condition, other.condition}}
}

func (c Condition) Or(other Condition) Condition {
	return Condition{squirrel.Or{c.condition, other.condition}}
}

// IsZero reports whether the condition wraps nothing.
func (c Condition) IsZero() bool {
	return c.condition == nil
}

func (c Condition) ToSqlizer() squirrel.Sqlizer {
	return c.condition
}

// And combines multiple conditions with AND. Zero conditions are skipped.
func And(conditions ...Condition) Condition {
	sqlizers := make(squirrel.And, 0, len(conditions))
	for _, c := range conditions {
		if !c.IsZero() {
			sqlizers = append(sqlizers, c.condition)
		}
	}
	return Condition{sqlizers}
}

// Or combines multiple conditions with OR. Zero conditions are skipped.
func Or(conditions ...Condition) Condition {
	sqlizers := make(squirrel.Or, 0, len(conditions))
	for _, c := range conditions {
		if !c.IsZero() {
			sqlizers = append(sqlizers, c.condition)
		}
	}
	return Condition{sqlizers}
}
