package task

import (
	"regexp"
	"strings"
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// ValidColor reports whether color is a #RRGGBB token.
func ValidColor(color string) bool {
	return colorPattern.MatchString(color)
}

// Validate checks the task's own invariants. Checks that need the database
// (category existence, parent cycles) belong to the writer.
func (t *Task) Validate() ValidationErrors {
	errs := ValidationErrors{}

	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		errs.Add("title", MsgBlank)
	}
	if !t.Priority.Valid() {
		errs.Add("priority", MsgNotIncluded)
	}
	if !t.Status.Valid() {
		errs.Add("status", MsgNotIncluded)
	}
	if t.EstimatedMinutes != nil && *t.EstimatedMinutes < 0 {
		errs.Add("estimated_minutes", MsgNegative)
	}
	if t.ParentID != nil && t.ID != 0 && *t.ParentID == t.ID {
		errs.Add("parent_id", MsgSelfParent)
	}

	return errs
}

// Validate checks the category's name and color.
func (c *Category) Validate() ValidationErrors {
	errs := ValidationErrors{}

	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		errs.Add("name", MsgBlank)
	}
	c.Color = blankToNil(c.Color)
	if c.Color != nil && !ValidColor(*c.Color) {
		errs.Add("color", MsgInvalidColor)
	}

	return errs
}

// Validate checks the tag's name and color.
func (t *Tag) Validate() ValidationErrors {
	errs := ValidationErrors{}

	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		errs.Add("name", MsgBlank)
	}
	t.Color = blankToNil(t.Color)
	if t.Color != nil && !ValidColor(*t.Color) {
		errs.Add("color", MsgInvalidColor)
	}

	return errs
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}
