package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/eleven-am/taskboard/internal/orm"
	"github.com/eleven-am/taskboard/internal/query"
	"github.com/eleven-am/taskboard/internal/stats"
	"github.com/eleven-am/taskboard/internal/store"
	"github.com/eleven-am/taskboard/internal/task"
	"github.com/eleven-am/taskboard/internal/writer"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeQuery struct {
	params query.Params
	page   query.Page
	err    error
}

func (f *fakeQuery) Query(_ context.Context, p query.Params) (query.Page, error) {
	f.params = p
	return f.page, f.err
}

type fakeStats struct {
	scope orm.Condition
	snap  stats.Snapshot
}

func (f *fakeStats) Calculate(_ context.Context, scope orm.Condition) (stats.Snapshot, error) {
	f.scope = scope
	return f.snap, nil
}

type fakeWriter struct {
	current *task.Task
	attrs   task.Attributes
	tagIDs  []int64
	calls   int
	result  writer.Result
}

func (f *fakeWriter) Write(_ context.Context, current *task.Task, attrs task.Attributes, tagIDs []int64) writer.Result {
	f.calls++
	f.current, f.attrs, f.tagIDs = current, attrs, tagIDs
	return f.result
}

type fakeStore struct {
	Store
	pingErr    error
	tasks      map[int64]task.Task
	deleted    []int64
	bulkIDs    []int64
	changes    store.BulkChanges
	positions  []store.Position
	categories map[int64]task.Category
	created    *task.Category
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) GetTask(_ context.Context, id int64) (*task.Task, error) {
	t, ok := f.tasks[id]
	if !ok {
		return nil, task.NotFound("task", id)
	}
	return &t, nil
}

func (f *fakeStore) DeleteTask(_ context.Context, id int64) error {
	if _, ok := f.tasks[id]; !ok {
		return task.NotFound("task", id)
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeStore) BulkUpdate(_ context.Context, ids []int64, changes store.BulkChanges) (int64, error) {
	f.bulkIDs, f.changes = ids, changes
	return int64(len(ids)), nil
}

func (f *fakeStore) BulkDelete(_ context.Context, ids []int64) (int64, error) {
	f.bulkIDs = ids
	return int64(len(ids)), nil
}

func (f *fakeStore) Reorder(_ context.Context, positions []store.Position) (int64, error) {
	f.positions = positions
	return int64(len(positions)), nil
}

func (f *fakeStore) GetCategory(_ context.Context, id int64) (*task.Category, error) {
	c, ok := f.categories[id]
	if !ok {
		return nil, task.NotFound("category", id)
	}
	return &c, nil
}

func (f *fakeStore) CreateCategory(_ context.Context, c *task.Category) error {
	if errs := c.Validate(); errs.Any() {
		return errs
	}
	c.ID = 9
	f.created = c
	return nil
}

func (f *fakeStore) ListTags(context.Context) ([]task.Tag, error) {
	return nil, errors.New("connection reset")
}

type harness struct {
	server *Server
	query  *fakeQuery
	stats  *fakeStats
	writer *fakeWriter
	store  *fakeStore
}

func newHarness() *harness {
	h := &harness{
		query:  &fakeQuery{},
		stats:  &fakeStats{},
		writer: &fakeWriter{},
		store:  &fakeStore{tasks: map[int64]task.Task{}, categories: map[int64]task.Category{}},
	}
	h.server = NewServer(Services{
		Query:  h.query,
		Stats:  h.stats,
		Writer: h.writer,
		Store:  h.store,
	}, Options{
		CORSOrigin: "http://localhost:3000",
		Now:        func() time.Time { return fixedNow },
	})
	return h
}

func (h *harness) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.server.ServeHTTP(rec, req)
	return rec
}

func sampleTask(id int64) task.Task {
	t := task.New()
	t.ID = id
	t.Title = "Write report"
	due := fixedNow.Add(-48 * time.Hour)
	t.DueDate = &due
	color := "#ff0000"
	t.Category = &task.Category{ID: 2, Name: "Work", Color: &color}
	t.Tags = []task.Tag{{ID: 5, Name: "urgent"}}
	return t
}

func TestListTasks(t *testing.T) {
	h := newHarness()
	h.query.page = query.Page{
		Rows: []task.Task{sampleTask(1)},
		Meta: query.PageMeta{CurrentPage: 2, PerPage: 1, TotalCount: 3, TotalPages: 3},
	}

	rec := h.do(http.MethodGet, "/tasks?status=pending&tag_ids[]=5&tag_ids[]=6&sort_by=priority&page=2&per_page=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "pending", h.query.params.Status)
	assert.Equal(t, []string{"5", "6"}, h.query.params.TagIDs)
	assert.Equal(t, "priority", h.query.params.Field)
	assert.Equal(t, "2", h.query.params.Page)

	body := rec.Body.String()
	assert.Equal(t, int64(1), gjson.Get(body, "data.#").Int())
	assert.Equal(t, "Write report", gjson.Get(body, "data.0.title").String())
	assert.True(t, gjson.Get(body, "data.0.overdue").Bool())
	assert.Equal(t, int64(-2), gjson.Get(body, "data.0.days_until_due").Int())
	assert.Equal(t, "Work", gjson.Get(body, "data.0.category.name").String())
	assert.Equal(t, "urgent", gjson.Get(body, "data.0.tags.0.name").String())
	assert.False(t, gjson.Get(body, "data.0.subtasks").Exists())
	assert.Equal(t, int64(3), gjson.Get(body, "meta.total_count").Int())
	assert.Equal(t, int64(3), gjson.Get(body, "meta.total_pages").Int())
	assert.Equal(t, int64(2), gjson.Get(body, "meta.current_page").Int())
}

func TestListTasksEmptyPage(t *testing.T) {
	h := newHarness()
	h.query.page = query.Page{Rows: []task.Task{}, Meta: query.PageMeta{CurrentPage: 9, PerPage: 20}}

	rec := h.do(http.MethodGet, "/tasks?page=9", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, gjson.Get(rec.Body.String(), "data").IsArray())
	assert.Equal(t, int64(0), gjson.Get(rec.Body.String(), "data.#").Int())
}

func TestTaskStatsScopedByFilters(t *testing.T) {
	h := newHarness()
	h.stats.snap = stats.Snapshot{
		Total:          4,
		ByStatus:       map[task.Status]int64{task.StatusCompleted: 1, task.StatusPending: 3},
		ByPriority:     map[task.Priority]int64{task.PriorityHigh: 4},
		ByCategory:     map[int64]int64{2: 4},
		CompletionRate: 25,
		Overdue:        1,
	}

	rec := h.do(http.MethodGet, "/tasks/stats?priority=high", "")
	require.Equal(t, http.StatusOK, rec.Code)

	sql, args, err := h.stats.scope.ToSqlizer().ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "tasks.priority")
	assert.Equal(t, []interface{}{task.Priority("high")}, args)

	body := rec.Body.String()
	assert.Equal(t, int64(4), gjson.Get(body, "total").Int())
	assert.Equal(t, 25.0, gjson.Get(body, "completion_rate").Float())
	assert.Equal(t, int64(3), gjson.Get(body, "by_status.pending").Int())
	assert.Equal(t, int64(4), gjson.Get(body, "by_category.2").Int())
	assert.Equal(t, int64(1), gjson.Get(body, "overdue").Int())
}

func TestGetTask(t *testing.T) {
	h := newHarness()
	parent := sampleTask(1)
	sub := task.New()
	sub.ID = 2
	sub.Title = "Draft"
	sub.ParentID = &parent.ID
	parent.Subtasks = []task.Task{sub}
	h.store.tasks[1] = parent

	rec := h.do(http.MethodGet, "/tasks/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Equal(t, "Draft", gjson.Get(body, "subtasks.0.title").String())
	assert.True(t, gjson.Get(body, "subtasks.0.tags").IsArray())
	assert.Equal(t, gjson.Null, gjson.Get(body, "subtasks.0.days_until_due").Type)

	rec = h.do(http.MethodGet, "/tasks/99", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, gjson.Get(rec.Body.String(), "error").String(), "not found")
}

func TestCreateTaskWrappedBody(t *testing.T) {
	h := newHarness()
	created := sampleTask(10)
	h.writer.result = writer.Result{Success: true, Task: &created}

	rec := h.do(http.MethodPost, "/tasks", `{"task": {"title": "Write report", "priority": "high", "due_date": "2026-03-20", "category_id": 2, "tag_ids": [5, "6", ""]}}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	assert.Nil(t, h.writer.current)
	require.NotNil(t, h.writer.attrs.Title)
	assert.Equal(t, "Write report", *h.writer.attrs.Title)
	assert.Equal(t, task.PriorityHigh, *h.writer.attrs.Priority)
	require.NotNil(t, h.writer.attrs.DueDate.Value)
	assert.Equal(t, time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC), *h.writer.attrs.DueDate.Value)
	assert.Equal(t, int64(2), *h.writer.attrs.CategoryID.Value)
	assert.Equal(t, []int64{5, 6}, h.writer.tagIDs)
	assert.Equal(t, int64(10), gjson.Get(rec.Body.String(), "id").Int())
}

func TestCreateTaskBareBodyWithoutTags(t *testing.T) {
	h := newHarness()
	created := sampleTask(11)
	h.writer.result = writer.Result{Success: true, Task: &created}

	rec := h.do(http.MethodPost, "/tasks", `{"title": "Bare"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Bare", *h.writer.attrs.Title)
	assert.Nil(t, h.writer.tagIDs)
}

func TestCreateTaskValidationFailure(t *testing.T) {
	h := newHarness()
	h.writer.result = writer.Result{Errors: task.ValidationErrors{"title": {task.MsgBlank}}}

	rec := h.do(http.MethodPost, "/tasks", `{"task": {"title": ""}}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, task.MsgBlank, gjson.Get(rec.Body.String(), "errors.title.0").String())
}

func TestCreateTaskInvalidDueDate(t *testing.T) {
	h := newHarness()

	rec := h.do(http.MethodPost, "/tasks", `{"title": "x", "due_date": "someday"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, task.MsgInvalidDate, gjson.Get(rec.Body.String(), "errors.due_date.0").String())
	assert.Equal(t, 0, h.writer.calls)
}

func TestCreateTaskMalformedJSON(t *testing.T) {
	h := newHarness()

	rec := h.do(http.MethodPost, "/tasks", `{"title": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, h.writer.calls)
}

func TestUpdateTask(t *testing.T) {
	h := newHarness()
	h.store.tasks[3] = sampleTask(3)
	updated := sampleTask(3)
	updated.Status = task.StatusCompleted
	h.writer.result = writer.Result{Success: true, Task: &updated}

	rec := h.do(http.MethodPatch, "/tasks/3", `{"task": {"status": "completed", "due_date": null, "tag_ids": []}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, h.writer.current)
	assert.Equal(t, int64(3), h.writer.current.ID)
	assert.Equal(t, task.StatusCompleted, *h.writer.attrs.Status)
	assert.True(t, h.writer.attrs.DueDate.Set)
	assert.Nil(t, h.writer.attrs.DueDate.Value)
	assert.NotNil(t, h.writer.tagIDs)
	assert.Empty(t, h.writer.tagIDs)
	assert.Nil(t, h.writer.attrs.Title)
	assert.False(t, gjson.Get(rec.Body.String(), "overdue").Bool())

	rec = h.do(http.MethodPatch, "/tasks/404", `{"title": "x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteTask(t *testing.T) {
	h := newHarness()
	h.store.tasks[4] = sampleTask(4)

	rec := h.do(http.MethodDelete, "/tasks/4", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, []int64{4}, h.store.deleted)

	rec = h.do(http.MethodDelete, "/tasks/4000", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBulkUpdate(t *testing.T) {
	h := newHarness()

	rec := h.do(http.MethodPost, "/tasks/bulk_update", `{"task_ids": [1, 2], "updates": {"status": "completed", "category_id": null}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(2), gjson.Get(rec.Body.String(), "updated_count").Int())
	assert.Equal(t, []int64{1, 2}, h.store.bulkIDs)
	assert.Equal(t, task.StatusCompleted, *h.store.changes.Status)
	assert.True(t, h.store.changes.CategoryID.Set)
	assert.Nil(t, h.store.changes.CategoryID.Value)

	rec = h.do(http.MethodPost, "/tasks/bulk_update", `{"updates": {"status": "completed"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/tasks/bulk_update", `{"task_ids": [1]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, gjson.Get(rec.Body.String(), "error").String(), "updates")
}

func TestBulkDelete(t *testing.T) {
	h := newHarness()

	rec := h.do(http.MethodDelete, "/tasks/bulk_delete", `{"task_ids": [7, 8]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(2), gjson.Get(rec.Body.String(), "deleted_count").Int())

	rec = h.do(http.MethodDelete, "/tasks/bulk_delete?task_ids[]=3&task_ids[]=4", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{3, 4}, h.store.bulkIDs)

	rec = h.do(http.MethodDelete, "/tasks/bulk_delete", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReorder(t *testing.T) {
	h := newHarness()

	rec := h.do(http.MethodPost, "/tasks/reorder", `{"positions": [{"id": 1, "position": 2}, {"id": 2, "position": 1}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []store.Position{{ID: 1, Position: 2}, {ID: 2, Position: 1}}, h.store.positions)

	rec = h.do(http.MethodPost, "/tasks/reorder", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCategories(t *testing.T) {
	h := newHarness()

	rec := h.do(http.MethodPost, "/categories", `{"category": {"name": "Home", "color": "#00ff00"}}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, int64(9), gjson.Get(rec.Body.String(), "id").Int())
	assert.Equal(t, "#00ff00", gjson.Get(rec.Body.String(), "color").String())

	rec = h.do(http.MethodPost, "/categories", `{"name": "Bad", "color": "green"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, task.MsgInvalidColor, gjson.Get(rec.Body.String(), "errors.color.0").String())

	rec = h.do(http.MethodGet, "/categories/55", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInternalErrorIsOpaque(t *testing.T) {
	h := newHarness()

	rec := h.do(http.MethodGet, "/tags", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", gjson.Get(rec.Body.String(), "error").String())
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

func TestHealth(t *testing.T) {
	h := newHarness()
	rec := h.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", gjson.Get(rec.Body.String(), "status").String())

	h.store.pingErr = errors.New("down")
	rec = h.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMiddleware(t *testing.T) {
	h := newHarness()

	rec := h.do(http.MethodOptions, "/tasks", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = h.do(http.MethodGet, "/health", "")
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.server.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))

	rec = h.do(http.MethodGet, "/nowhere", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not found", gjson.Get(rec.Body.String(), "error").String())
}

func TestRecovererCatchesPanics(t *testing.T) {
	h := newHarness()
	h.query.page = query.Page{}
	h.server.svc.Query = nil

	rec := h.do(http.MethodGet, "/tasks", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", gjson.Get(rec.Body.String(), "error").String())
}
