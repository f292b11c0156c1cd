// Package query lists top-level tasks through an explicit pipeline: scope,
// filter, sort, paginate. Malformed input never fails a listing; it falls
// back to a safe default.
package query

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/eleven-am/taskboard/internal/logger"
	"github.com/eleven-am/taskboard/internal/orm"
	"github.com/eleven-am/taskboard/internal/store"
	"github.com/eleven-am/taskboard/internal/task"
)

const (
	DefaultPage    = 1
	DefaultPerPage = 20
	MaxPerPage     = 100
	DefaultSort    = "created_at"

	maxPage = math.MaxInt32
)

// PageMeta describes where a page sits in the full result.
type PageMeta struct {
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	TotalCount  int64 `json:"total_count"`
	TotalPages  int   `json:"total_pages"`
}

// Page is one page of tasks with their category and tags loaded.
type Page struct {
	Rows []task.Task
	Meta PageMeta
}

// Engine builds and runs task listings.
type Engine struct {
	store *store.Store
	loc   *time.Location
	log   logger.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLocation sets the zone bare dates in due_before/due_after are read in.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// New creates an engine over s.
func New(s *store.Store, opts ...Option) *Engine {
	e := &Engine{store: s, loc: time.UTC, log: logger.Query()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Query returns the requested page of top-level tasks matching p.
func (e *Engine) Query(ctx context.Context, p Params) (Page, error) {
	q := e.store.TaskQuery(e.store.DB())

	TopLevel(q)
	q.Where(FilterCondition(p.Filters, e.loc))

	total, err := q.Count(ctx)
	if err != nil {
		return Page{}, fmt.Errorf("count tasks: %w", err)
	}

	ApplySort(q, p.Sort)
	meta := Paginate(q, p.Page, p.PerPage, total)

	rows, err := q.Find(ctx)
	if err != nil {
		return Page{}, fmt.Errorf("list tasks: %w", err)
	}
	if err := e.store.LoadRelations(ctx, e.store.DB(), rows); err != nil {
		return Page{}, fmt.Errorf("load task relations: %w", err)
	}

	e.log.WithField("total", total).WithField("page", meta.CurrentPage).Debug("tasks listed")
	return Page{Rows: rows, Meta: meta}, nil
}

// TopLevel restricts q to tasks without a parent.
func TopLevel(q *orm.Query[task.Task]) *orm.Query[task.Task] {
	return q.Where(store.Tasks.ParentID.IsNull())
}

// matchNothing is used when a filter value cannot match any row.
var matchNothing = orm.Expr("1 = 0")

// FilterCondition ANDs every non-blank filter in f into one condition.
func FilterCondition(f Filters, loc *time.Location) orm.Condition {
	if loc == nil {
		loc = time.UTC
	}
	var conds []orm.Condition

	if s := strings.TrimSpace(f.Status); s != "" {
		status := task.Status(s)
		if !status.Valid() {
			conds = append(conds, matchNothing)
		} else {
			conds = append(conds, store.Tasks.Status.Eq(status))
		}
	}

	if p := strings.TrimSpace(f.Priority); p != "" {
		priority := task.Priority(p)
		if !priority.Valid() {
			conds = append(conds, matchNothing)
		} else {
			conds = append(conds, store.Tasks.Priority.Eq(priority))
		}
	}

	if c := strings.TrimSpace(f.CategoryID); c != "" {
		if id, ok := parseID(c); ok {
			conds = append(conds, store.Tasks.CategoryID.Eq(id))
		} else {
			conds = append(conds, matchNothing)
		}
	}

	if raw := strings.TrimSpace(f.DueBefore); raw != "" {
		if t, ok := task.ParseTime(raw, loc); ok {
			conds = append(conds, store.Tasks.DueDate.Until(t))
		}
	}

	if raw := strings.TrimSpace(f.DueAfter); raw != "" {
		if t, ok := task.ParseTime(raw, loc); ok {
			conds = append(conds, store.Tasks.DueDate.Since(t))
		}
	}

	if term := strings.TrimSpace(f.Search); term != "" {
		conds = append(conds, orm.Or(
			store.Tasks.Title.ContainsFold(term),
			store.Tasks.Description.ContainsFold(term),
		))
	}

	if ids := tagIDs(f.TagIDs); len(ids) > 0 {
		tagged := squirrel.Select("DISTINCT task_id").
			From(store.TaskTagsTable.Name).
			Where(orm.AnyOf("tag_id", ids).ToSqlizer())
		conds = append(conds, store.Tasks.ID.InSubquery(tagged))
	}

	if len(conds) == 0 {
		return orm.Condition{}
	}
	return orm.And(conds...)
}

func tagIDs(raw []string) []int64 {
	seen := make(map[int64]bool, len(raw))
	var ids []int64
	for _, r := range raw {
		if id, ok := parseID(r); ok && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// sortExpressions maps each allowed sort field to its ORDER BY fragments.
// Caller input only ever selects a key; it is never written into SQL.
var sortExpressions = map[string]func(dir string) []string{
	"created_at": func(dir string) []string {
		return []string{store.Tasks.CreatedAt.String() + " " + dir}
	},
	"due_date": func(dir string) []string {
		if dir == "ASC" {
			return []string{store.Tasks.DueDate.AscNullsLast()}
		}
		return []string{store.Tasks.DueDate.DescNullsLast()}
	},
	"priority": func(dir string) []string {
		return []string{priorityRank + " " + dir}
	},
	"position": func(dir string) []string {
		return []string{store.Tasks.Position.String() + " " + dir}
	},
	"title": func(dir string) []string {
		return []string{store.Tasks.Title.String() + " " + dir}
	},
}

var priorityRank = func() string {
	var b strings.Builder
	b.WriteString("CASE " + store.Tasks.Priority.String())
	for _, p := range task.Priorities {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", p, p.Rank())
	}
	b.WriteString(" END")
	return b.String()
}()

// NormalizeSort returns the allowed field and direction for s.
func NormalizeSort(s Sort) (field, dir string) {
	field = strings.TrimSpace(s.Field)
	if _, ok := sortExpressions[field]; !ok {
		field = DefaultSort
	}
	dir = "DESC"
	if strings.EqualFold(strings.TrimSpace(s.Order), "asc") {
		dir = "ASC"
	}
	return field, dir
}

// ApplySort orders q by the normalized sort, with id as the tiebreaker.
func ApplySort(q *orm.Query[task.Task], s Sort) *orm.Query[task.Task] {
	field, dir := NormalizeSort(s)
	q.OrderBy(sortExpressions[field](dir)...)
	return q.OrderBy(store.Tasks.ID.String() + " " + dir)
}

// NormalizePage coerces page and per_page to integers and clamps them.
func NormalizePage(page, perPage string) (int, int) {
	p := DefaultPage
	if strings.TrimSpace(page) != "" {
		p = coerceInt(page)
	}
	if p < 1 {
		p = 1
	}
	if p > maxPage {
		p = maxPage
	}

	pp := DefaultPerPage
	if strings.TrimSpace(perPage) != "" {
		pp = coerceInt(perPage)
	}
	if pp < 1 {
		pp = 1
	}
	if pp > MaxPerPage {
		pp = MaxPerPage
	}

	return p, pp
}

// Paginate limits q to the requested page and describes it against total.
func Paginate(q *orm.Query[task.Task], page, perPage string, total int64) PageMeta {
	p, pp := NormalizePage(page, perPage)

	q.Limit(uint64(pp)).Offset(uint64(p-1) * uint64(pp))

	return PageMeta{
		CurrentPage: p,
		PerPage:     pp,
		TotalCount:  total,
		TotalPages:  int((total + int64(pp) - 1) / int64(pp)),
	}
}
