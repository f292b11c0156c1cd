// Package api exposes tasks, categories and tags over HTTP/JSON.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/eleven-am/taskboard/internal/logger"
	"github.com/eleven-am/taskboard/internal/orm"
	"github.com/eleven-am/taskboard/internal/query"
	"github.com/eleven-am/taskboard/internal/stats"
	"github.com/eleven-am/taskboard/internal/store"
	"github.com/eleven-am/taskboard/internal/task"
	"github.com/eleven-am/taskboard/internal/writer"
)

// TaskQuerier lists tasks.
type TaskQuerier interface {
	Query(ctx context.Context, p query.Params) (query.Page, error)
}

// StatsCalculator aggregates tasks.
type StatsCalculator interface {
	Calculate(ctx context.Context, scope orm.Condition) (stats.Snapshot, error)
}

// TaskWriter creates and updates tasks.
type TaskWriter interface {
	Write(ctx context.Context, current *task.Task, attrs task.Attributes, tagIDs []int64) writer.Result
}

// Store is the persistence the handlers use directly.
type Store interface {
	Ping(ctx context.Context) error

	GetTask(ctx context.Context, id int64) (*task.Task, error)
	DeleteTask(ctx context.Context, id int64) error
	BulkUpdate(ctx context.Context, ids []int64, changes store.BulkChanges) (int64, error)
	BulkDelete(ctx context.Context, ids []int64) (int64, error)
	Reorder(ctx context.Context, positions []store.Position) (int64, error)

	ListCategories(ctx context.Context) ([]task.Category, error)
	GetCategory(ctx context.Context, id int64) (*task.Category, error)
	CreateCategory(ctx context.Context, c *task.Category) error
	UpdateCategory(ctx context.Context, c *task.Category) error
	DeleteCategory(ctx context.Context, id int64) error

	ListTags(ctx context.Context) ([]task.Tag, error)
	GetTag(ctx context.Context, id int64) (*task.Tag, error)
	CreateTag(ctx context.Context, t *task.Tag) error
	UpdateTag(ctx context.Context, t *task.Tag) error
	DeleteTag(ctx context.Context, id int64) error
}

var _ Store = (*store.Store)(nil)

// Services are the collaborators behind the routes.
type Services struct {
	Query  TaskQuerier
	Stats  StatsCalculator
	Writer TaskWriter
	Store  Store
}

// Options tune the server.
type Options struct {
	CORSOrigin string
	Timeout    time.Duration
	Location   *time.Location
	Now        func() time.Time
}

// Server routes requests to handlers.
type Server struct {
	svc     Services
	opts    Options
	router  *mux.Router
	handler http.Handler
	log     logger.Logger
}

// NewServer builds the router and middleware stack.
func NewServer(svc Services, opts Options) *Server {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Server{
		svc:    svc,
		opts:   opts,
		router: mux.NewRouter(),
		log:    logger.HTTP(),
	}
	s.routes()

	s.handler = chain(s.router,
		cors(opts.CORSOrigin),
		recoverer(s.log),
		requestID,
		requestLogger(s.log),
		timeout(opts.Timeout),
	)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := s.router
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
	})

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)

	tasks := r.PathPrefix("/tasks").Subrouter()
	tasks.HandleFunc("", s.listTasks).Methods(http.MethodGet)
	tasks.HandleFunc("", s.createTask).Methods(http.MethodPost)
	tasks.HandleFunc("/stats", s.taskStats).Methods(http.MethodGet)
	tasks.HandleFunc("/bulk_update", s.bulkUpdate).Methods(http.MethodPost, http.MethodPatch)
	tasks.HandleFunc("/bulk_delete", s.bulkDelete).Methods(http.MethodDelete, http.MethodPost)
	tasks.HandleFunc("/reorder", s.reorder).Methods(http.MethodPost, http.MethodPatch)
	tasks.HandleFunc("/{id:[0-9]+}", s.getTask).Methods(http.MethodGet)
	tasks.HandleFunc("/{id:[0-9]+}", s.updateTask).Methods(http.MethodPatch, http.MethodPut)
	tasks.HandleFunc("/{id:[0-9]+}", s.deleteTask).Methods(http.MethodDelete)

	categories := r.PathPrefix("/categories").Subrouter()
	categories.HandleFunc("", s.listCategories).Methods(http.MethodGet)
	categories.HandleFunc("", s.createCategory).Methods(http.MethodPost)
	categories.HandleFunc("/{id:[0-9]+}", s.getCategory).Methods(http.MethodGet)
	categories.HandleFunc("/{id:[0-9]+}", s.updateCategory).Methods(http.MethodPatch, http.MethodPut)
	categories.HandleFunc("/{id:[0-9]+}", s.deleteCategory).Methods(http.MethodDelete)

	tags := r.PathPrefix("/tags").Subrouter()
	tags.HandleFunc("", s.listTags).Methods(http.MethodGet)
	tags.HandleFunc("", s.createTag).Methods(http.MethodPost)
	tags.HandleFunc("/{id:[0-9]+}", s.getTag).Methods(http.MethodGet)
	tags.HandleFunc("/{id:[0-9]+}", s.updateTag).Methods(http.MethodPatch, http.MethodPut)
	tags.HandleFunc("/{id:[0-9]+}", s.deleteTag).Methods(http.MethodDelete)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Store.Ping(r.Context()); err != nil {
		s.log.WithError(err).Warn("health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
