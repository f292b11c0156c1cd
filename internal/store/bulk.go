package store

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/eleven-am/taskboard/internal/orm"
	"github.com/eleven-am/taskboard/internal/task"
)

// BulkChanges is the attribute delta applied by BulkUpdate.
type BulkChanges struct {
	Status     *task.Status
	Priority   *task.Priority
	CategoryID task.Optional[int64]
	DueDate    task.Optional[time.Time]
}

// IsEmpty reports whether no attribute is provided.
func (c BulkChanges) IsEmpty() bool {
	return c.Status == nil && c.Priority == nil && !c.CategoryID.Set && !c.DueDate.Set
}

func (c BulkChanges) values() (map[string]interface{}, error) {
	set := map[string]interface{}{"updated_at": squirrel.Expr("now()")}
	if c.Status != nil {
		if !c.Status.Valid() {
			return nil, task.BadRequest("status is not included in the list")
		}
		set["status"] = string(*c.Status)
	}
	if c.Priority != nil {
		if !c.Priority.Valid() {
			return nil, task.BadRequest("priority is not included in the list")
		}
		set["priority"] = string(*c.Priority)
	}
	if c.CategoryID.Set {
		set["category_id"] = c.CategoryID.Value
	}
	if c.DueDate.Set {
		set["due_date"] = c.DueDate.Value
	}
	return set, nil
}

// Position is a requested manual-order slot for one task.
type Position struct {
	ID       int64 `json:"id"`
	Position int   `json:"position"`
}

// BulkUpdate applies changes to every listed task in one statement and
// returns how many rows were modified.
func (s *Store) BulkUpdate(ctx context.Context, ids []int64, changes BulkChanges) (int64, error) {
	if len(ids) == 0 {
		return 0, task.BadRequest("task_ids is required")
	}
	if changes.IsEmpty() {
		return 0, task.BadRequest("updates is required")
	}
	set, err := changes.values()
	if err != nil {
		return 0, err
	}

	n, err := s.TaskQuery(s.db).Where(Tasks.ID.AnyOf(ids)).Update(ctx, set)
	if err != nil {
		return 0, fieldError(err)
	}
	return n, nil
}

// BulkDelete removes the listed tasks and returns how many existed.
func (s *Store) BulkDelete(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, task.BadRequest("task_ids is required")
	}
	return s.TaskQuery(s.db).Where(Tasks.ID.AnyOf(ids)).Delete(ctx)
}

// Reorder sets the position of every listed task inside one transaction and
// returns how many tasks were updated. Unknown ids are skipped.
func (s *Store) Reorder(ctx context.Context, positions []Position) (int64, error) {
	if len(positions) == 0 {
		return 0, task.BadRequest("positions is required")
	}

	var total int64
	err := s.tx.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		total = 0
		for _, p := range positions {
			n, err := s.TaskQuery(tx).
				Where(Tasks.ID.Eq(p.ID)).
				Update(ctx, map[string]interface{}{
					"position":   p.Position,
					"updated_at": squirrel.Expr("now()"),
				})
			if err != nil {
				return err
			}
			total += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// fieldError turns a foreign key violation on category_id into a validation
// error for the field.
func fieldError(err error) error {
	if orm.GetConstraintName(err) == "tasks_category_id_fkey" {
		return task.ValidationErrors{"category_id": {task.MsgMustExist}}
	}
	return err
}
