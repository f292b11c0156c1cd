// Package writer creates and updates tasks together with their tag
// associations as one atomic unit.
package writer

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/eleven-am/taskboard/internal/logger"
	"github.com/eleven-am/taskboard/internal/orm"
	"github.com/eleven-am/taskboard/internal/store"
	"github.com/eleven-am/taskboard/internal/task"
)

// Result is the outcome of a write. Errors is set exactly when Success is
// false; unexpected failures are reported under the "base" key.
type Result struct {
	Success bool
	Task    *task.Task
	Errors  task.ValidationErrors
}

func failed(errs task.ValidationErrors) Result {
	return Result{Errors: errs}
}

func failedBase(msg string) Result {
	return Result{Errors: task.ValidationErrors{"base": {msg}}}
}

// Writer persists tasks.
type Writer struct {
	store *store.Store
	log   logger.Logger
}

// New creates a writer over s.
func New(s *store.Store) *Writer {
	return &Writer{store: s, log: logger.Writer()}
}

// Write creates a task when current is nil and otherwise updates current
// with the provided attributes. When tagIDs is non-nil the task's tags are
// replaced with exactly the existing tags it names; an empty slice clears
// them. The scalar write and the tag replacement commit or roll back
// together. Write never returns an error or panics; every failure is in the
// Result.
func (w *Writer) Write(ctx context.Context, current *task.Task, attrs task.Attributes, tagIDs []int64) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			w.log.WithField("panic", p).Error("task write panicked")
			res = failedBase(fmt.Sprint(p))
		}
	}()

	candidate := task.New()
	if current != nil {
		candidate = *current
	}
	attrs.ApplyTo(&candidate)
	if errs := candidate.Validate(); errs.Any() {
		return failed(errs)
	}

	var written task.Task
	err := w.store.Transactions().WithTransaction(ctx, func(tx *sqlx.Tx) error {
		t := candidate
		if current != nil {
			locked, err := w.store.LockTask(ctx, tx, current.ID)
			if err != nil {
				return err
			}
			t = *locked
			attrs.ApplyTo(&t)
			if errs := t.Validate(); errs.Any() {
				return errs
			}
		}

		if errs, err := w.checkReferences(ctx, tx, &t, current != nil); err != nil {
			return err
		} else if errs.Any() {
			return errs
		}

		if err := w.persist(ctx, tx, &t, current != nil); err != nil {
			return err
		}

		if tagIDs != nil {
			if err := w.store.ReplaceTags(ctx, tx, t.ID, tagIDs); err != nil {
				return fmt.Errorf("replace tags: %w", err)
			}
		}

		loaded := []task.Task{t}
		if err := w.store.LoadRelations(ctx, tx, loaded); err != nil {
			return fmt.Errorf("load relations: %w", err)
		}
		written = loaded[0]
		return nil
	})

	if err != nil {
		var errs task.ValidationErrors
		if errors.As(err, &errs) {
			return failed(errs)
		}
		w.log.WithError(err).Error("task write failed")
		return failedBase(err.Error())
	}

	w.log.WithField("task_id", written.ID).Debug("task written")
	return Result{Success: true, Task: &written}
}

// checkReferences verifies that the category and parent exist and that the
// parent does not descend from the task itself.
func (w *Writer) checkReferences(ctx context.Context, tx orm.DBExecutor, t *task.Task, update bool) (task.ValidationErrors, error) {
	errs := task.ValidationErrors{}

	if t.CategoryID != nil {
		ok, err := w.store.Exists(ctx, tx, store.CategoriesTable, *t.CategoryID)
		if err != nil {
			return nil, err
		}
		if !ok {
			errs.Add("category_id", task.MsgMustExist)
		}
	}

	if t.ParentID != nil {
		ok, err := w.store.Exists(ctx, tx, store.TasksTable, *t.ParentID)
		if err != nil {
			return nil, err
		}
		switch {
		case !ok:
			errs.Add("parent_id", task.MsgMustExist)
		case update:
			cycle, err := w.store.CreatesCycle(ctx, tx, t.ID, *t.ParentID)
			if err != nil {
				return nil, err
			}
			if cycle {
				errs.Add("parent_id", task.MsgParentCycle)
			}
		}
	}

	return errs, nil
}

func (w *Writer) persist(ctx context.Context, tx orm.DBExecutor, t *task.Task, update bool) error {
	var err error
	if update {
		err = w.store.UpdateTask(ctx, tx, t)
	} else {
		err = w.store.InsertTask(ctx, tx, t)
	}
	if err == nil {
		return nil
	}

	// a reference removed after checkReferences ran
	if errors.Is(err, orm.ErrForeignKey) {
		switch orm.GetConstraintName(err) {
		case "tasks_category_id_fkey":
			return task.ValidationErrors{"category_id": {task.MsgMustExist}}
		case "tasks_parent_id_fkey":
			return task.ValidationErrors{"parent_id": {task.MsgMustExist}}
		}
	}
	return err
}
