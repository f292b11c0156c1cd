package query

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eleven-am/taskboard/internal/orm"
	"github.com/eleven-am/taskboard/internal/store"
	"github.com/eleven-am/taskboard/internal/task"
)

var taskRowColumns = []string{
	"id", "title", "description", "priority", "status", "due_date", "position",
	"estimated_minutes", "category_id", "parent_id", "created_at", "updated_at",
}

const selectTasks = "SELECT tasks.id, tasks.title, tasks.description, tasks.priority, tasks.status, tasks.due_date, tasks.position, tasks.estimated_minutes, tasks.category_id, tasks.parent_id, tasks.created_at, tasks.updated_at FROM tasks"

const selectTags = "SELECT task_tags.task_id, tags.id, tags.name, tags.color, tags.created_at FROM tags"

func newEngine(t *testing.T) (*Engine, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(store.New(sqlx.NewDb(db, "postgres"))), mock
}

func rows(ids ...int64) *sqlmock.Rows {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	r := sqlmock.NewRows(taskRowColumns)
	for _, id := range ids {
		r.AddRow(id, "Task", nil, "medium", "pending", nil, 0, nil, nil, nil, now, now)
	}
	return r
}

func render(t *testing.T, c orm.Condition) (string, []interface{}) {
	t.Helper()
	sql, args, err := c.ToSqlizer().ToSql()
	require.NoError(t, err)
	return sql, args
}

func TestNormalizeSort(t *testing.T) {
	tests := []struct {
		name      string
		in        Sort
		wantField string
		wantDir   string
	}{
		{"defaults", Sort{}, "created_at", "DESC"},
		{"allowed ascending", Sort{Field: "due_date", Order: "asc"}, "due_date", "ASC"},
		{"case-insensitive asc", Sort{Field: "title", Order: "ASC"}, "title", "ASC"},
		{"garbage direction", Sort{Field: "priority", Order: "sideways"}, "priority", "DESC"},
		{"unknown field", Sort{Field: "updated_at", Order: "asc"}, "created_at", "ASC"},
		{"injection in field", Sort{Field: "title; DROP TABLE tasks; --"}, "created_at", "DESC"},
		{"injection in direction", Sort{Field: "position", Order: "asc, (SELECT 1)"}, "position", "DESC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			field, dir := NormalizeSort(tt.in)
			assert.Equal(t, tt.wantField, field)
			assert.Equal(t, tt.wantDir, dir)
		})
	}
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		name        string
		page        string
		perPage     string
		wantPage    int
		wantPerPage int
	}{
		{"defaults", "", "", 1, 20},
		{"explicit", "3", "10", 3, 10},
		{"non-numeric page", "abc", "", 1, 20},
		{"zero page", "0", "", 1, 20},
		{"negative page", "-4", "", 1, 20},
		{"huge per page", "", "1000", 1, 100},
		{"zero per page", "", "0", 1, 1},
		{"negative per page", "", "-10", 1, 1},
		{"non-numeric per page", "", "lots", 1, 1},
		{"leading digits", "2nd", "15items", 2, 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, perPage := NormalizePage(tt.page, tt.perPage)
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantPerPage, perPage)
			assert.GreaterOrEqual(t, perPage, 1)
			assert.LessOrEqual(t, perPage, MaxPerPage)
		})
	}
}

func TestPaginateMeta(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	q := store.New(sqlx.NewDb(db, "postgres")).TaskQuery(sqlx.NewDb(db, "postgres"))

	meta := Paginate(q, "3", "20", 45)
	assert.Equal(t, PageMeta{CurrentPage: 3, PerPage: 20, TotalCount: 45, TotalPages: 3}, meta)

	sql, _, err := q.ToSql()
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(sql, "LIMIT 20 OFFSET 40"), sql)

	assert.Equal(t, 0, Paginate(q, "", "", 0).TotalPages)
	assert.Equal(t, 1, Paginate(q, "", "", 20).TotalPages)
	assert.Equal(t, 2, Paginate(q, "", "", 21).TotalPages)
}

func TestFilterCondition(t *testing.T) {
	t.Run("no filters", func(t *testing.T) {
		assert.True(t, FilterCondition(Filters{Search: "   "}, nil).IsZero())
	})

	t.Run("exact matches and date bounds", func(t *testing.T) {
		sql, args := render(t, FilterCondition(Filters{
			Status:     "in_progress",
			Priority:   "urgent",
			CategoryID: "9",
			DueAfter:   "2026-03-01",
			DueBefore:  "2026-03-31T23:59:59Z",
		}, time.UTC))

		assert.Equal(t, "(tasks.status = ? AND tasks.priority = ? AND tasks.category_id = ? AND tasks.due_date <= ? AND tasks.due_date >= ?)", sql)
		require.Len(t, args, 5)
		assert.Equal(t, task.StatusInProgress, args[0])
		assert.Equal(t, task.PriorityUrgent, args[1])
		assert.Equal(t, int64(9), args[2])
		assert.Equal(t, time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC), args[3])
		assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), args[4])
	})

	t.Run("unknown enum values match nothing", func(t *testing.T) {
		sql, _ := render(t, FilterCondition(Filters{Status: "done", Priority: "critical", CategoryID: "abc"}, nil))
		assert.Equal(t, "(1 = 0 AND 1 = 0 AND 1 = 0)", sql)
	})

	t.Run("unparseable dates are ignored", func(t *testing.T) {
		assert.True(t, FilterCondition(Filters{DueBefore: "soon", DueAfter: "yesterday-ish"}, nil).IsZero())
	})

	t.Run("search matches title or description with escaped wildcards", func(t *testing.T) {
		sql, args := render(t, FilterCondition(Filters{Search: "100%"}, nil))
		assert.Equal(t, "((tasks.title ILIKE ? OR tasks.description ILIKE ?))", sql)
		assert.Equal(t, []interface{}{`%100\%%`, `%100\%%`}, args)
	})

	t.Run("tags match any and deduplicate through a distinct semi-join", func(t *testing.T) {
		sql, args := render(t, FilterCondition(Filters{TagIDs: []string{"1", "2", "2"}}, nil))
		assert.Equal(t, "(tasks.id IN (SELECT DISTINCT task_id FROM task_tags WHERE tag_id = ANY(?)))", sql)
		assert.Len(t, args, 1)
	})
}

func TestQueryDefaultsToTopLevelTasks(t *testing.T) {
	e, mock := newEngine(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM tasks WHERE (tasks.parent_id IS NULL)`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta(selectTasks + ` WHERE (tasks.parent_id IS NULL) ORDER BY tasks.created_at DESC, tasks.id DESC LIMIT 20 OFFSET 0`)).
		WillReturnRows(rows(2, 1))
	mock.ExpectQuery(regexp.QuoteMeta(selectTags)).
		WillReturnRows(sqlmock.NewRows([]string{"task_id", "id", "name", "color", "created_at"}))

	page, err := e.Query(context.Background(), Params{})
	require.NoError(t, err)

	require.Len(t, page.Rows, 2)
	for _, row := range page.Rows {
		assert.True(t, row.IsTopLevel())
		assert.NotNil(t, row.Tags)
	}
	assert.Equal(t, PageMeta{CurrentPage: 1, PerPage: 20, TotalCount: 2, TotalPages: 1}, page.Meta)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryWithMaliciousSortFallsBack(t *testing.T) {
	e, mock := newEngine(t)

	mock.ExpectQuery(`SELECT COUNT`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY tasks.created_at DESC, tasks.id DESC LIMIT 100 OFFSET 0`)).
		WillReturnRows(rows(1))
	mock.ExpectQuery(regexp.QuoteMeta(selectTags)).
		WillReturnRows(sqlmock.NewRows([]string{"task_id", "id", "name", "color", "created_at"}))

	page, err := e.Query(context.Background(), Params{
		Sort:    Sort{Field: "created_at; DELETE FROM tasks", Order: "DESC; --"},
		PerPage: "100000",
	})
	require.NoError(t, err)
	assert.Equal(t, 100, page.Meta.PerPage)
	assert.LessOrEqual(t, len(page.Rows), 100)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuerySortsByPriorityRank(t *testing.T) {
	e, mock := newEngine(t)

	mock.ExpectQuery(`SELECT COUNT`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY CASE tasks.priority WHEN 'low' THEN 0 WHEN 'medium' THEN 1 WHEN 'high' THEN 2 WHEN 'urgent' THEN 3 END ASC, tasks.id ASC LIMIT 20 OFFSET 20`)).
		WillReturnRows(rows())

	page, err := e.Query(context.Background(), Params{Sort: Sort{Field: "priority", Order: "asc"}, Page: "2"})
	require.NoError(t, err)
	assert.Empty(t, page.Rows)
	assert.Equal(t, 2, page.Meta.CurrentPage)
	assert.Equal(t, 0, page.Meta.TotalPages)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryTagFilterReturnsEachTaskOnce(t *testing.T) {
	e, mock := newEngine(t)
	now := time.Now()

	where := `WHERE (tasks.parent_id IS NULL AND (tasks.id IN (SELECT DISTINCT task_id FROM task_tags WHERE tag_id = ANY($1))))`

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM tasks ` + where)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta(selectTasks + ` ` + where + ` ORDER BY tasks.due_date DESC NULLS LAST, tasks.id DESC`)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(rows(1, 2))
	mock.ExpectQuery(regexp.QuoteMeta(selectTags)).
		WillReturnRows(sqlmock.NewRows([]string{"task_id", "id", "name", "color", "created_at"}).
			AddRow(1, 10, "A", nil, now).
			AddRow(2, 11, "B", nil, now))

	page, err := e.Query(context.Background(), Params{
		Filters: Filters{TagIDs: []string{"10", "11"}},
		Sort:    Sort{Field: "due_date"},
	})
	require.NoError(t, err)

	require.Len(t, page.Rows, 2)
	assert.Equal(t, int64(1), page.Rows[0].ID)
	assert.Equal(t, []int64{10}, page.Rows[0].TagIDs())
	assert.Equal(t, int64(2), page.Rows[1].ID)
	assert.Equal(t, []int64{11}, page.Rows[1].TagIDs())
	require.NoError(t, mock.ExpectationsWereMet())
}
