package store

import (
	"context"

	"github.com/Masterminds/squirrel"

	"github.com/eleven-am/taskboard/internal/orm"
	"github.com/eleven-am/taskboard/internal/task"
)

var tagID = orm.Column[int64]{Name: "id"}

// ListTags returns every tag ordered by name.
func (s *Store) ListTags(ctx context.Context) ([]task.Tag, error) {
	return orm.NewQuery[task.Tag](s.db, TagsTable, tagColumns...).
		Use(s.chain).
		OrderBy("name ASC", "id ASC").
		Find(ctx)
}

// GetTag loads one tag.
func (s *Store) GetTag(ctx context.Context, id int64) (*task.Tag, error) {
	t, err := orm.NewQuery[task.Tag](s.db, TagsTable, tagColumns...).
		Use(s.chain).
		Where(tagID.Eq(id)).
		First(ctx)
	return t, translate(err, "tag", id)
}

// CreateTag validates and inserts t, filling its id and creation time.
func (s *Store) CreateTag(ctx context.Context, t *task.Tag) error {
	if errs := t.Validate(); errs.Any() {
		return errs
	}

	query, args, err := squirrel.Insert(TagsTable.Name).
		Columns("name", "color").
		Values(t.Name, t.Color).
		Suffix("RETURNING id, created_at").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	err = s.queryRow(ctx, s.db, orm.OpCreate, TagsTable.Name, query, args, &t.ID, &t.CreatedAt)
	return uniqueName(err)
}

// UpdateTag validates and saves the name and color of t.
func (s *Store) UpdateTag(ctx context.Context, t *task.Tag) error {
	if errs := t.Validate(); errs.Any() {
		return errs
	}

	n, err := orm.NewQuery[task.Tag](s.db, TagsTable).
		Use(s.chain).
		Where(tagID.Eq(t.ID)).
		Update(ctx, map[string]interface{}{"name": t.Name, "color": t.Color})
	if err != nil {
		return uniqueName(err)
	}
	if n == 0 {
		return task.NotFound("tag", t.ID)
	}
	return nil
}

// DeleteTag removes a tag and its task associations.
func (s *Store) DeleteTag(ctx context.Context, id int64) error {
	n, err := orm.NewQuery[task.Tag](s.db, TagsTable).
		Use(s.chain).
		Where(tagID.Eq(id)).
		Delete(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		return task.NotFound("tag", id)
	}
	return nil
}
