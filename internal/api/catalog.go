package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/eleven-am/taskboard/internal/task"
)

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.svc.Store.ListCategories(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": categories})
}

func (s *Server) getCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := s.svc.Store.GetCategory(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeNamed(r, "category")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var c task.Category
	payload.applyCategory(&c)
	if err := s.svc.Store.CreateCategory(r.Context(), &c); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	payload, err := decodeNamed(r, "category")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := s.svc.Store.GetCategory(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	payload.applyCategory(c)
	if err := s.svc.Store.UpdateCategory(r.Context(), c); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.svc.Store.DeleteCategory(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.svc.Store.ListTags(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": tags})
}

func (s *Server) getTag(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := s.svc.Store.GetTag(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) createTag(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeNamed(r, "tag")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var t task.Tag
	payload.applyTag(&t)
	if err := s.svc.Store.CreateTag(r.Context(), &t); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) updateTag(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	payload, err := decodeNamed(r, "tag")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := s.svc.Store.GetTag(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	payload.applyTag(t)
	if err := s.svc.Store.UpdateTag(r.Context(), t); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) deleteTag(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.svc.Store.DeleteTag(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeNamed(r *http.Request, key string) (namedPayload, error) {
	var p namedPayload
	body, err := readBody(r)
	if err != nil {
		return p, err
	}
	err = decodeJSON(unwrap(body, key), &p)
	return p, err
}

// queryIDs reads ids from key[], repeated key, or a comma list.
func queryIDs(r *http.Request, key string) []int64 {
	values := r.URL.Query()
	var ids []int64
	for _, k := range []string{key + "[]", key} {
		ids = append(ids, parseIDs(values, k)...)
	}
	return ids
}

func parseIDs(values url.Values, key string) []int64 {
	var ids []int64
	for _, raw := range values[key] {
		for _, part := range strings.Split(raw, ",") {
			if id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64); err == nil {
				ids = append(ids, id)
			}
		}
	}
	return ids
}
