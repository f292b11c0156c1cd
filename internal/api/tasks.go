package api

import (
	"net/http"

	"github.com/eleven-am/taskboard/internal/query"
	"github.com/eleven-am/taskboard/internal/task"
	"github.com/eleven-am/taskboard/internal/writer"
)

func (s *Server) presenter() presenter {
	return presenter{now: s.opts.Now, loc: s.opts.Location}
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	page, err := s.svc.Query.Query(r.Context(), query.ParseParams(r.URL.Query()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.presenter().page(page))
}

func (s *Server) taskStats(w http.ResponseWriter, r *http.Request) {
	scope := query.FilterCondition(query.ParseFilters(r.URL.Query()), s.opts.Location)
	snap, err := s.svc.Stats.Calculate(r.Context(), scope)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := s.svc.Store.GetTask(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.presenter().task(*t, true))
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	s.writeTask(w, r, nil, http.StatusCreated)
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	current, err := s.svc.Store.GetTask(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeTask(w, r, current, http.StatusOK)
}

// writeTask decodes the body and hands it to the writer. current is nil on
// create.
func (s *Server) writeTask(w http.ResponseWriter, r *http.Request, current *task.Task, status int) {
	body, err := readBody(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	payload, err := decodeTask(body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	attrs, tagIDs, errs := payload.attributes(s.opts.Location)
	if errs.Any() {
		s.writeError(w, r, errs)
		return
	}

	res := s.svc.Writer.Write(r.Context(), current, attrs, tagIDs)
	if !res.Success {
		s.writeResultError(w, r, res)
		return
	}
	writeJSON(w, status, s.presenter().task(*res.Task, false))
}

// writeResultError reports a failed write as 422. Failures carried only
// under "base" are unexpected and get logged.
func (s *Server) writeResultError(w http.ResponseWriter, r *http.Request, res writer.Result) {
	if _, ok := res.Errors["base"]; ok && len(res.Errors) == 1 {
		s.log.WithField("request_id", RequestIDFrom(r.Context())).
			WithField("errors", res.Errors).
			Warn("task write failed")
	}
	writeJSON(w, http.StatusUnprocessableEntity, validationBody{Errors: res.Errors})
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.svc.Store.DeleteTask(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) bulkUpdate(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var payload bulkUpdatePayload
	if err := decodeJSON(body, &payload); err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(payload.TaskIDs) == 0 {
		s.writeError(w, r, task.BadRequest("task_ids is required"))
		return
	}
	changes, err := payload.changes(s.opts.Location)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	n, err := s.svc.Store.BulkUpdate(r.Context(), payload.TaskIDs, changes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated_count": n})
}

// bulkDelete accepts task_ids in the JSON body or the query string.
func (s *Server) bulkDelete(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var payload idsPayload
	if err := decodeJSON(body, &payload); err != nil {
		s.writeError(w, r, err)
		return
	}
	ids := []int64(payload.TaskIDs)
	if len(ids) == 0 {
		ids = queryIDs(r, "task_ids")
	}
	if len(ids) == 0 {
		s.writeError(w, r, task.BadRequest("task_ids is required"))
		return
	}

	n, err := s.svc.Store.BulkDelete(r.Context(), ids)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted_count": n})
}

func (s *Server) reorder(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var payload reorderPayload
	if err := decodeJSON(body, &payload); err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(payload.Positions) == 0 {
		s.writeError(w, r, task.BadRequest("positions is required"))
		return
	}

	n, err := s.svc.Store.Reorder(r.Context(), payload.Positions)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated_count": n})
}
