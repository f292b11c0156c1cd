package api

import (
	"time"

	"github.com/eleven-am/taskboard/internal/query"
	"github.com/eleven-am/taskboard/internal/task"
)

type taskView struct {
	task.Task
	Overdue      bool           `json:"overdue"`
	DaysUntilDue *int           `json:"days_until_due"`
	Category     *task.Category `json:"category"`
	Tags         []task.Tag     `json:"tags"`
	Subtasks     *[]taskView    `json:"subtasks,omitempty"`
}

type listView struct {
	Data []taskView     `json:"data"`
	Meta query.PageMeta `json:"meta"`
}

type presenter struct {
	now func() time.Time
	loc *time.Location
}

func (p presenter) task(t task.Task, withSubtasks bool) taskView {
	now := p.now()
	v := taskView{
		Task:         t,
		Overdue:      t.Overdue(now),
		DaysUntilDue: t.DaysUntilDue(now, p.loc),
		Category:     t.Category,
		Tags:         t.Tags,
	}
	if v.Tags == nil {
		v.Tags = []task.Tag{}
	}
	if withSubtasks {
		subs := make([]taskView, 0, len(t.Subtasks))
		for _, s := range t.Subtasks {
			subs = append(subs, p.task(s, false))
		}
		v.Subtasks = &subs
	}
	return v
}

func (p presenter) page(page query.Page) listView {
	out := listView{Data: make([]taskView, 0, len(page.Rows)), Meta: page.Meta}
	for _, t := range page.Rows {
		out.Data = append(out.Data, p.task(t, false))
	}
	return out
}
