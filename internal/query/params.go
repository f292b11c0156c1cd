package query

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

// Filters are the raw, untrusted filter values of a listing request. Blank
// values are not applied.
type Filters struct {
	Status     string
	Priority   string
	CategoryID string
	DueBefore  string
	DueAfter   string
	Search     string
	TagIDs     []string
}

// Sort is the raw, untrusted ordering request.
type Sort struct {
	Field string
	Order string
}

// Params is everything a listing request may carry.
type Params struct {
	Filters
	Sort
	Page    string
	PerPage string
}

// ParseFilters reads filters from query-string values. Tag ids may arrive as
// tag_ids[], repeated tag_ids, or a comma-separated tag_ids.
func ParseFilters(values url.Values) Filters {
	f := Filters{
		Status:     values.Get("status"),
		Priority:   values.Get("priority"),
		CategoryID: values.Get("category_id"),
		DueBefore:  values.Get("due_before"),
		DueAfter:   values.Get("due_after"),
		Search:     values.Get("search"),
	}

	for _, key := range []string{"tag_ids[]", "tag_ids"} {
		for _, raw := range values[key] {
			for _, part := range strings.Split(raw, ",") {
				if part = strings.TrimSpace(part); part != "" {
					f.TagIDs = append(f.TagIDs, part)
				}
			}
		}
	}

	return f
}

// ParseParams reads a full listing request from query-string values.
func ParseParams(values url.Values) Params {
	return Params{
		Filters: ParseFilters(values),
		Sort: Sort{
			Field: values.Get("sort_by"),
			Order: values.Get("sort_order"),
		},
		Page:    values.Get("page"),
		PerPage: values.Get("per_page"),
	}
}

// coerceInt reads an optional sign and the leading run of digits of s,
// ignoring leading whitespace. Anything without leading digits is 0, so
// "12abc" is 12 and "abc" is 0.
func coerceInt(s string) int {
	s = strings.TrimLeft(s, " \t\n\r")
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digitsStart := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digitsStart {
		return 0
	}

	n, err := strconv.Atoi(s[:end])
	if err != nil {
		// out of range
		if s[0] == '-' {
			return math.MinInt
		}
		return math.MaxInt
	}
	return n
}

// parseID reads a strictly numeric positive id.
func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
