package store

import (
	"context"

	"github.com/eleven-am/taskboard/internal/orm"
	"github.com/eleven-am/taskboard/internal/task"
)

type taggedRow struct {
	TaskID int64 `db:"task_id"`
	task.Tag
}

// LoadRelations batch-loads the category and tags of every task in tasks,
// two queries regardless of how many tasks there are.
func (s *Store) LoadRelations(ctx context.Context, exec orm.DBExecutor, tasks []task.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	if err := s.loadCategories(ctx, exec, tasks); err != nil {
		return err
	}
	return s.loadTags(ctx, exec, tasks)
}

func (s *Store) loadCategories(ctx context.Context, exec orm.DBExecutor, tasks []task.Task) error {
	seen := make(map[int64]bool)
	var ids []int64
	for _, t := range tasks {
		if t.CategoryID != nil && !seen[*t.CategoryID] {
			seen[*t.CategoryID] = true
			ids = append(ids, *t.CategoryID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	categories, err := orm.NewQuery[task.Category](exec, CategoriesTable, categoryColumns...).
		Use(s.chain).
		Where(orm.AnyOf("id", ids)).
		Find(ctx)
	if err != nil {
		return err
	}

	byID := make(map[int64]*task.Category, len(categories))
	for i := range categories {
		byID[categories[i].ID] = &categories[i]
	}
	for i := range tasks {
		if tasks[i].CategoryID != nil {
			tasks[i].Category = byID[*tasks[i].CategoryID]
		}
	}
	return nil
}

func (s *Store) loadTags(ctx context.Context, exec orm.DBExecutor, tasks []task.Task) error {
	ids := make([]int64, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}

	columns := append([]string{"task_tags.task_id"}, TagsTable.Qualify(tagColumns...)...)
	rows, err := orm.NewQuery[taggedRow](exec, TagsTable, columns...).
		Use(s.chain).
		InnerJoin(TaskTagsTable, "task_tags.tag_id = tags.id").
		Where(TaskTags.TaskID.AnyOf(ids)).
		OrderBy("tags.name ASC", "tags.id ASC").
		Find(ctx)
	if err != nil {
		return err
	}

	byTask := make(map[int64][]task.Tag, len(tasks))
	for _, row := range rows {
		byTask[row.TaskID] = append(byTask[row.TaskID], row.Tag)
	}
	for i := range tasks {
		tasks[i].Tags = byTask[tasks[i].ID]
		if tasks[i].Tags == nil {
			tasks[i].Tags = []task.Tag{}
		}
	}
	return nil
}
