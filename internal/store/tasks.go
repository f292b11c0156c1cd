package store

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/eleven-am/taskboard/internal/orm"
	"github.com/eleven-am/taskboard/internal/task"
)

// GetTask loads one task with its direct subtasks. The task and every
// subtask carry their category and tags.
func (s *Store) GetTask(ctx context.Context, id int64) (*task.Task, error) {
	t, err := s.TaskQuery(s.db).Where(Tasks.ID.Eq(id)).First(ctx)
	if err != nil {
		return nil, translate(err, "task", id)
	}

	subtasks, err := s.TaskQuery(s.db).
		Where(Tasks.ParentID.Eq(id)).
		OrderBy(Tasks.Position.Asc(), Tasks.ID.Asc()).
		Find(ctx)
	if err != nil {
		return nil, err
	}

	loaded := append([]task.Task{*t}, subtasks...)
	if err := s.LoadRelations(ctx, s.db, loaded); err != nil {
		return nil, err
	}
	t = &loaded[0]
	t.Subtasks = loaded[1:]

	return t, nil
}

// LockTask loads a task and holds a row lock on it until exec's transaction
// ends.
func (s *Store) LockTask(ctx context.Context, exec orm.DBExecutor, id int64) (*task.Task, error) {
	t, err := s.TaskQuery(exec).Where(Tasks.ID.Eq(id)).ForUpdate().First(ctx)
	return t, translate(err, "task", id)
}

// DeleteTask removes a task; its subtasks and tag associations cascade.
func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	n, err := s.TaskQuery(s.db).Where(Tasks.ID.Eq(id)).Delete(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		return task.NotFound("task", id)
	}
	return nil
}

// InsertTask inserts t and fills its id and timestamps.
func (s *Store) InsertTask(ctx context.Context, exec orm.DBExecutor, t *task.Task) error {
	query, args, err := squirrel.Insert(TasksTable.Name).
		SetMap(taskValues(t)).
		Suffix("RETURNING id, created_at, updated_at").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	return s.queryRow(ctx, exec, orm.OpCreate, TasksTable.Name, query, args, &t.ID, &t.CreatedAt, &t.UpdatedAt)
}

// UpdateTask saves every scalar field of t and refreshes updated_at.
func (s *Store) UpdateTask(ctx context.Context, exec orm.DBExecutor, t *task.Task) error {
	values := taskValues(t)
	values["updated_at"] = squirrel.Expr("now()")

	query, args, err := squirrel.Update(TasksTable.Name).
		SetMap(values).
		Where(squirrel.Eq{"id": t.ID}).
		Suffix("RETURNING updated_at").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	err = s.queryRow(ctx, exec, orm.OpUpdate, TasksTable.Name, query, args, &t.UpdatedAt)
	return translate(err, "task", t.ID)
}

func taskValues(t *task.Task) map[string]interface{} {
	return map[string]interface{}{
		"title":             t.Title,
		"description":       t.Description,
		"priority":          string(t.Priority),
		"status":            string(t.Status),
		"due_date":          t.DueDate,
		"position":          t.Position,
		"estimated_minutes": t.EstimatedMinutes,
		"category_id":       t.CategoryID,
		"parent_id":         t.ParentID,
	}
}

// ReplaceTags makes the task's associations exactly the existing tags among
// tagIDs. Unknown ids are skipped and duplicates collapse.
func (s *Store) ReplaceTags(ctx context.Context, exec orm.DBExecutor, taskID int64, tagIDs []int64) error {
	if err := s.exec(ctx, exec, orm.OpDelete, TaskTagsTable.Name, "DELETE FROM task_tags WHERE task_id = $1", taskID); err != nil {
		return err
	}
	if len(tagIDs) == 0 {
		return nil
	}

	query, args, err := squirrel.Insert(TaskTagsTable.Name).
		Columns("task_id", "tag_id").
		Select(squirrel.Select().
			Column("?::bigint", taskID).
			Column("id").
			From(TagsTable.Name).
			Where(orm.AnyOf("id", tagIDs).ToSqlizer())).
		Suffix("ON CONFLICT DO NOTHING").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	return s.exec(ctx, exec, orm.OpCreate, TaskTagsTable.Name, query, args...)
}

// Exists reports whether table has a row with the given id.
func (s *Store) Exists(ctx context.Context, exec orm.DBExecutor, table orm.Table, id int64) (bool, error) {
	var exists bool
	query := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)", table.FullName())
	if err := s.get(ctx, exec, orm.OpQuery, table.Name, &exists, query, id); err != nil {
		return false, err
	}
	return exists, nil
}

const ancestorsQuery = `WITH RECURSIVE ancestors (id, parent_id) AS (
	SELECT id, parent_id FROM tasks WHERE id = $1
	UNION
	SELECT t.id, t.parent_id FROM tasks t JOIN ancestors a ON t.id = a.parent_id
)
SELECT EXISTS (SELECT 1 FROM ancestors WHERE id = $2)`

// CreatesCycle reports whether making parentID the parent of taskID would
// put taskID among its own ancestors.
func (s *Store) CreatesCycle(ctx context.Context, exec orm.DBExecutor, taskID, parentID int64) (bool, error) {
	if taskID == parentID {
		return true, nil
	}
	var cycle bool
	if err := s.get(ctx, exec, orm.OpQuery, TasksTable.Name, &cycle, ancestorsQuery, parentID, taskID); err != nil {
		return false, err
	}
	return cycle, nil
}
