package task

import (
	"bytes"
	"encoding/json"
	"time"
)

// Optional distinguishes a field that was not provided from one explicitly
// set to null. Set is true in both of the latter cases; Value is nil for null.
type Optional[T any] struct {
	Set   bool
	Value *T
}

// Some returns a provided, non-null Optional.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

// Null returns a provided Optional holding null.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// Attributes is a partial set of task fields. Nil pointers and unset
// Optionals leave the target field untouched.
type Attributes struct {
	Title            *string
	Description      Optional[string]
	Priority         *Priority
	Status           *Status
	DueDate          Optional[time.Time]
	Position         *int
	EstimatedMinutes Optional[int]
	CategoryID       Optional[int64]
	ParentID         Optional[int64]
}

// IsEmpty reports whether no field is provided.
func (a Attributes) IsEmpty() bool {
	return a.Title == nil && !a.Description.Set && a.Priority == nil && a.Status == nil &&
		!a.DueDate.Set && a.Position == nil && !a.EstimatedMinutes.Set &&
		!a.CategoryID.Set && !a.ParentID.Set
}

// ApplyTo overlays the provided fields onto t.
func (a Attributes) ApplyTo(t *Task) {
	if a.Title != nil {
		t.Title = *a.Title
	}
	if a.Description.Set {
		t.Description = a.Description.Value
	}
	if a.Priority != nil {
		t.Priority = *a.Priority
	}
	if a.Status != nil {
		t.Status = *a.Status
	}
	if a.DueDate.Set {
		t.DueDate = a.DueDate.Value
	}
	if a.Position != nil {
		t.Position = *a.Position
	}
	if a.EstimatedMinutes.Set {
		t.EstimatedMinutes = a.EstimatedMinutes.Value
	}
	if a.CategoryID.Set {
		t.CategoryID = a.CategoryID.Value
	}
	if a.ParentID.Set {
		t.ParentID = a.ParentID.Value
	}
}

// ParseTime accepts RFC 3339 timestamps and bare YYYY-MM-DD dates, the latter
// taken as midnight in loc.
func ParseTime(raw string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation("2006-01-02", raw, loc); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", raw, loc); err == nil {
		return t, true
	}
	return time.Time{}, false
}
