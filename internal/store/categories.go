package store

import (
	"context"

	"github.com/Masterminds/squirrel"

	"github.com/eleven-am/taskboard/internal/orm"
	"github.com/eleven-am/taskboard/internal/task"
)

var categoryID = orm.Column[int64]{Name: "id"}

// ListCategories returns every category ordered by name.
func (s *Store) ListCategories(ctx context.Context) ([]task.Category, error) {
	return orm.NewQuery[task.Category](s.db, CategoriesTable, categoryColumns...).
		Use(s.chain).
		OrderBy("name ASC", "id ASC").
		Find(ctx)
}

// GetCategory loads one category.
func (s *Store) GetCategory(ctx context.Context, id int64) (*task.Category, error) {
	c, err := orm.NewQuery[task.Category](s.db, CategoriesTable, categoryColumns...).
		Use(s.chain).
		Where(categoryID.Eq(id)).
		First(ctx)
	return c, translate(err, "category", id)
}

// CreateCategory validates and inserts c, filling its id and timestamps.
func (s *Store) CreateCategory(ctx context.Context, c *task.Category) error {
	if errs := c.Validate(); errs.Any() {
		return errs
	}

	query, args, err := squirrel.Insert(CategoriesTable.Name).
		Columns("name", "color", "icon").
		Values(c.Name, c.Color, c.Icon).
		Suffix("RETURNING id, created_at, updated_at").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	err = s.queryRow(ctx, s.db, orm.OpCreate, CategoriesTable.Name, query, args, &c.ID, &c.CreatedAt, &c.UpdatedAt)
	return uniqueName(err)
}

// UpdateCategory validates and saves every field of c.
func (s *Store) UpdateCategory(ctx context.Context, c *task.Category) error {
	if errs := c.Validate(); errs.Any() {
		return errs
	}

	query, args, err := squirrel.Update(CategoriesTable.Name).
		Set("name", c.Name).
		Set("color", c.Color).
		Set("icon", c.Icon).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": c.ID}).
		Suffix("RETURNING updated_at").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	err = s.queryRow(ctx, s.db, orm.OpUpdate, CategoriesTable.Name, query, args, &c.UpdatedAt)
	return translate(uniqueName(err), "category", c.ID)
}

// DeleteCategory removes a category; its tasks keep existing uncategorized.
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	n, err := orm.NewQuery[task.Category](s.db, CategoriesTable).
		Use(s.chain).
		Where(categoryID.Eq(id)).
		Delete(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		return task.NotFound("category", id)
	}
	return nil
}
