package persistence

import (
	"strings"

	"gorm.io/gorm/clause"
)

// SortSpec whitelists the columns a list query may be ordered by. Anything
// else, including injected SQL, falls back to Default.
type SortSpec struct {
	Default string
	Columns []string
}

var (
	entrySort = SortSpec{
		Default: "issue_date",
		Columns: []string{
			"id", "created_at", "updated_at", "issue_date", "accrual_date",
			"due_date", "amount_total", "status", "kind", "description",
		},
	}
	definitionSort = SortSpec{
		Default: "next_occurrence_date",
		Columns: []string{
			"id", "created_at", "updated_at", "next_occurrence_date",
			"start_date", "amount", "description", "frequency",
		},
	}
)

// Column returns the requested column when whitelisted
func (s SortSpec) Column(requested string) string {
	requested = strings.TrimSpace(requested)
	for _, c := range s.Columns {
		if c == requested {
			return c
		}
	}
	return s.Default
}

// OrderBy builds the ORDER BY term for a requested column and direction.
// Only "asc" (any case) sorts ascending.
func (s SortSpec) OrderBy(column, direction string) clause.OrderByColumn {
	return clause.OrderByColumn{
		Column: clause.Column{Name: s.Column(column)},
		Desc:   !strings.EqualFold(strings.TrimSpace(direction), "asc"),
	}
}
