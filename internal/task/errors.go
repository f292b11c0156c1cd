package task

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Common errors
var (
	ErrNotFound   = errors.New("record not found")
	ErrBadRequest = errors.New("bad request")
)

// Validation messages
const (
	MsgBlank        = "can't be blank"
	MsgNotIncluded  = "is not included in the list"
	MsgNegative     = "must be greater than or equal to 0"
	MsgInvalidColor = "must be a valid hex color code"
	MsgTaken        = "has already been taken"
	MsgMustExist    = "must exist"
	MsgInvalidDate  = "is not a valid date"
	MsgSelfParent   = "can't be the task itself"
	MsgParentCycle  = "would create a cycle"
)

// ValidationErrors maps a field name to its violation messages.
type ValidationErrors map[string][]string

// Add records msg against field.
func (e ValidationErrors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Any reports whether at least one violation was recorded.
func (e ValidationErrors) Any() bool {
	return len(e) > 0
}

func (e ValidationErrors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var parts []string
	for _, field := range fields {
		for _, msg := range e[field] {
			parts = append(parts, fmt.Sprintf("%s %s", field, msg))
		}
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(parts, "; "))
}

// NotFound wraps ErrNotFound with the kind and id that were looked up.
func NotFound(kind string, id int64) error {
	return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
}

// BadRequest wraps ErrBadRequest with a caller-facing reason.
func BadRequest(reason string) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, reason)
}
