package core

import (
	"fmt"
	"strings"
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// ParseOrdering parses a comma separated list of fields, eg: "-created_at,id".
// A leading "-" means descending. Fields not in `allowed` are rejected.
func ParseOrdering(s string, allowed ...string) ([]DBOrdering, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var orderings []DBOrdering
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if !contains(allowed, field) {
			return nil, NewValidationError(nil, FieldError{Field: "ordering", Error: fmt.Sprintf("unknown field %q", field)})
		}
		orderings = append(orderings, DBOrdering{Field: field, Ascending: !descending})
	}
	return orderings, nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
