package api

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/eleven-am/taskboard/internal/store"
	"github.com/eleven-am/taskboard/internal/task"
)

// idList decodes a list of ids given as numbers or numeric strings. Blank
// and non-numeric entries are dropped.
type idList []int64

func (l *idList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(idList, 0, len(raw))
	for _, item := range raw {
		var n int64
		if err := json.Unmarshal(item, &n); err == nil {
			out = append(out, n)
			continue
		}
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			continue
		}
		if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			out = append(out, n)
		}
	}
	*l = out
	return nil
}

type taskPayload struct {
	Title            *string               `json:"title"`
	Description      task.Optional[string] `json:"description"`
	Priority         *task.Priority        `json:"priority"`
	Status           *task.Status          `json:"status"`
	DueDate          task.Optional[string] `json:"due_date"`
	Position         *int                  `json:"position"`
	EstimatedMinutes task.Optional[int]    `json:"estimated_minutes"`
	CategoryID       task.Optional[int64]  `json:"category_id"`
	ParentID         task.Optional[int64]  `json:"parent_id"`
	TagIDs           *idList               `json:"tag_ids"`
}

// decodeTask reads a task body, either wrapped as {"task": {...}} or bare.
func decodeTask(body []byte) (taskPayload, error) {
	var p taskPayload
	err := decodeJSON(unwrap(body, "task"), &p)
	return p, err
}

// attributes converts the payload, reporting an unparseable due date as a
// validation error. A nil tag list means tags were not provided.
func (p taskPayload) attributes(loc *time.Location) (task.Attributes, []int64, task.ValidationErrors) {
	attrs := task.Attributes{
		Title:            p.Title,
		Description:      p.Description,
		Priority:         p.Priority,
		Status:           p.Status,
		Position:         p.Position,
		EstimatedMinutes: p.EstimatedMinutes,
		CategoryID:       p.CategoryID,
		ParentID:         p.ParentID,
	}

	errs := task.ValidationErrors{}
	due, ok := optionalTime(p.DueDate, loc)
	if !ok {
		errs.Add("due_date", task.MsgInvalidDate)
	}
	attrs.DueDate = due

	var tagIDs []int64
	if p.TagIDs != nil {
		tagIDs = append([]int64{}, *p.TagIDs...)
	}
	return attrs, tagIDs, errs
}

// optionalTime parses a provided date string. Blank strings clear the value.
func optionalTime(raw task.Optional[string], loc *time.Location) (task.Optional[time.Time], bool) {
	if !raw.Set {
		return task.Optional[time.Time]{}, true
	}
	if raw.Value == nil || strings.TrimSpace(*raw.Value) == "" {
		return task.Null[time.Time](), true
	}
	t, ok := task.ParseTime(strings.TrimSpace(*raw.Value), loc)
	if !ok {
		return task.Optional[time.Time]{}, false
	}
	return task.Some(t), true
}

type bulkUpdatePayload struct {
	TaskIDs idList `json:"task_ids"`
	Updates *struct {
		Status     *task.Status          `json:"status"`
		Priority   *task.Priority        `json:"priority"`
		CategoryID task.Optional[int64]  `json:"category_id"`
		DueDate    task.Optional[string] `json:"due_date"`
	} `json:"updates"`
}

func (p bulkUpdatePayload) changes(loc *time.Location) (store.BulkChanges, error) {
	if p.Updates == nil {
		return store.BulkChanges{}, task.BadRequest("updates is required")
	}
	due, ok := optionalTime(p.Updates.DueDate, loc)
	if !ok {
		return store.BulkChanges{}, task.BadRequest("due_date is not a valid date")
	}
	return store.BulkChanges{
		Status:     p.Updates.Status,
		Priority:   p.Updates.Priority,
		CategoryID: p.Updates.CategoryID,
		DueDate:    due,
	}, nil
}

type idsPayload struct {
	TaskIDs idList `json:"task_ids"`
}

type reorderPayload struct {
	Positions []store.Position `json:"positions"`
}

type namedPayload struct {
	Name  *string               `json:"name"`
	Color task.Optional[string] `json:"color"`
	Icon  task.Optional[string] `json:"icon"`
}

func (p namedPayload) applyCategory(c *task.Category) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Color.Set {
		c.Color = p.Color.Value
	}
	if p.Icon.Set {
		c.Icon = p.Icon.Value
	}
}

func (p namedPayload) applyTag(t *task.Tag) {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Color.Set {
		t.Color = p.Color.Value
	}
}
