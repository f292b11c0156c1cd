package store

import (
	"time"

	"github.com/eleven-am/taskboard/internal/orm"
	"github.com/eleven-am/taskboard/internal/task"
)

var (
	TasksTable      = orm.Table{Name: "tasks", PrimaryKeys: []string{"id"}}
	CategoriesTable = orm.Table{Name: "categories", PrimaryKeys: []string{"id"}}
	TagsTable       = orm.Table{Name: "tags", PrimaryKeys: []string{"id"}}
	TaskTagsTable   = orm.Table{Name: "task_tags", PrimaryKeys: []string{"task_id", "tag_id"}}
)

// Tasks holds the typed columns of the tasks table.
var Tasks = struct {
	ID               orm.NumericColumn[int64]
	Title            orm.StringColumn
	Description      orm.StringColumn
	Priority         orm.Column[task.Priority]
	Status           orm.Column[task.Status]
	DueDate          orm.TimeColumn
	Position         orm.NumericColumn[int]
	EstimatedMinutes orm.NumericColumn[int]
	CategoryID       orm.NumericColumn[int64]
	ParentID         orm.NumericColumn[int64]
	CreatedAt        orm.TimeColumn
	UpdatedAt        orm.TimeColumn
}{
	ID:               numeric[int64]("tasks", "id"),
	Title:            str("tasks", "title"),
	Description:      str("tasks", "description"),
	Priority:         orm.Column[task.Priority]{Table: "tasks", Name: "priority"},
	Status:           orm.Column[task.Status]{Table: "tasks", Name: "status"},
	DueDate:          timestamp("tasks", "due_date"),
	Position:         numeric[int]("tasks", "position"),
	EstimatedMinutes: numeric[int]("tasks", "estimated_minutes"),
	CategoryID:       numeric[int64]("tasks", "category_id"),
	ParentID:         numeric[int64]("tasks", "parent_id"),
	CreatedAt:        timestamp("tasks", "created_at"),
	UpdatedAt:        timestamp("tasks", "updated_at"),
}

// TaskTags holds the typed columns of the task_tags join table.
var TaskTags = struct {
	TaskID orm.NumericColumn[int64]
	TagID  orm.NumericColumn[int64]
}{
	TaskID: numeric[int64]("task_tags", "task_id"),
	TagID:  numeric[int64]("task_tags", "tag_id"),
}

// TaskColumns are selected, table-qualified, whenever a task row is loaded.
var TaskColumns = TasksTable.Qualify(
	"id", "title", "description", "priority", "status", "due_date", "position",
	"estimated_minutes", "category_id", "parent_id", "created_at", "updated_at",
)

var (
	categoryColumns = []string{"id", "name", "color", "icon", "created_at", "updated_at"}
	tagColumns      = []string{"id", "name", "color", "created_at"}
)

func numeric[T orm.Numeric](table, name string) orm.NumericColumn[T] {
	return orm.NumericColumn[T]{ComparableColumn: orm.ComparableColumn[T]{Column: orm.Column[T]{Table: table, Name: name}}}
}

func str(table, name string) orm.StringColumn {
	return orm.StringColumn{Column: orm.Column[string]{Table: table, Name: name}}
}

func timestamp(table, name string) orm.TimeColumn {
	return orm.TimeColumn{ComparableColumn: orm.ComparableColumn[time.Time]{Column: orm.Column[time.Time]{Table: table, Name: name}}}
}
