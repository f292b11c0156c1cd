// Package task holds the task entity, its associations and the rules every
// write must satisfy.
package task

import (
	"math"
	"time"
)

// Priority is the ordered urgency of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Priorities lists every priority from lowest to highest rank.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	return p.Rank() >= 0
}

// Rank returns the position of p in the low..urgent ordering, or -1.
func (p Priority) Rank() int {
	for i, known := range Priorities {
		if p == known {
			return i
		}
	}
	return -1
}

// Status is the lifecycle state of a task. Statuses are not ordered.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusArchived   Status = "archived"
)

// Statuses lists every status.
var Statuses = []Status{StatusPending, StatusInProgress, StatusCompleted, StatusArchived}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsResolved reports whether s takes a task out of overdue accounting.
func (s Status) IsResolved() bool {
	return IsResolvedStatus(s)
}

// IsResolvedStatus reports whether status is completed or archived.
func IsResolvedStatus(status Status) bool {
	return status == StatusCompleted || status == StatusArchived
}

// ResolvedStatuses returns the statuses for which IsResolvedStatus is true.
func ResolvedStatuses() []Status {
	var out []Status
	for _, s := range Statuses {
		if IsResolvedStatus(s) {
			out = append(out, s)
		}
	}
	return out
}

// Task represents a unit of work. A task with a ParentID is a subtask.
type Task struct {
	ID               int64      `db:"id" json:"id"`
	Title            string     `db:"title" json:"title"`
	Description      *string    `db:"description" json:"description"`
	Priority         Priority   `db:"priority" json:"priority"`
	Status           Status     `db:"status" json:"status"`
	DueDate          *time.Time `db:"due_date" json:"due_date"`
	Position         int        `db:"position" json:"position"`
	EstimatedMinutes *int       `db:"estimated_minutes" json:"estimated_minutes"`
	CategoryID       *int64     `db:"category_id" json:"category_id"`
	ParentID         *int64     `db:"parent_id" json:"parent_id"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`

	// Relationships
	Category *Category `db:"-" json:"-"`
	Tags     []Tag     `db:"-" json:"-"`
	Subtasks []Task    `db:"-" json:"-"`
}

// New returns an unsaved task carrying the column defaults.
func New() Task {
	return Task{
		Priority: PriorityMedium,
		Status:   StatusPending,
	}
}

// IsTopLevel reports whether the task has no parent.
func (t Task) IsTopLevel() bool {
	return t.ParentID == nil
}

// Overdue reports whether the due date has passed while the task is unresolved.
func (t Task) Overdue(now time.Time) bool {
	if t.DueDate == nil {
		return false
	}
	return t.DueDate.Before(now) && !IsResolvedStatus(t.Status)
}

// DaysUntilDue returns the number of calendar days from now's date to the due
// date, both taken in loc. It returns nil when no due date is set.
func (t Task) DaysUntilDue(now time.Time, loc *time.Location) *int {
	if t.DueDate == nil {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}
	due := startOfDay(t.DueDate.In(loc))
	today := startOfDay(now.In(loc))
	days := int(math.Round(due.Sub(today).Hours() / 24))
	return &days
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// TagIDs returns the ids of the loaded tags.
func (t Task) TagIDs() []int64 {
	ids := make([]int64, 0, len(t.Tags))
	for _, tag := range t.Tags {
		ids = append(ids, tag.ID)
	}
	return ids
}

// Category groups tasks. Tasks reference a category, they never own it.
type Category struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Color     *string   `db:"color" json:"color"`
	Icon      *string   `db:"icon" json:"icon"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Tag labels tasks through the task_tags join table.
type Tag struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Color     *string   `db:"color" json:"color"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
