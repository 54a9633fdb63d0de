// Package collection holds the pure list operations behind the task views:
// filtering, searching, sorting and lookup. None of them reorder or modify
// their input.
package collection

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"example.com/studytracker/internal/domain"
)

// All disables status filtering.
const All domain.Status = "all"

type SortKey string

const (
	SortByDueDate  SortKey = "dueDate"
	SortByPriority SortKey = "priority"
	SortBySubject  SortKey = "subject"
)

func ParseSortKey(s string) (SortKey, bool) {
	switch k := SortKey(s); k {
	case SortByDueDate, SortByPriority, SortBySubject:
		return k, true
	}
	return "", false
}

// Query is one list view: status tab, search box and sort selector.
type Query struct {
	Status domain.Status
	Search string
	Sort   SortKey
}

// Apply filters by status, then by search term, then sorts.
func Apply(tasks []domain.Task, q Query) []domain.Task {
	status := q.Status
	if status == "" {
		status = All
	}
	out := FilterBySearch(FilterByStatus(tasks, status), q.Search)
	if q.Sort == "" {
		return out
	}
	return SortTasks(out, q.Sort)
}

func FilterByStatus(tasks []domain.Task, status domain.Status) []domain.Task {
	out := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if status == All || t.Status == status {
			out = append(out, t)
		}
	}
	return out
}

// FilterBySearch keeps tasks whose title, description or subject contains term,
// compared under Unicode case folding. An empty term keeps everything.
func FilterBySearch(tasks []domain.Task, term string) []domain.Task {
	out := make([]domain.Task, 0, len(tasks))
	if term == "" {
		return append(out, tasks...)
	}
	fold := cases.Fold()
	needle := fold.String(term)
	for _, t := range tasks {
		if strings.Contains(fold.String(t.Title), needle) ||
			strings.Contains(fold.String(t.Description), needle) ||
			strings.Contains(fold.String(t.Subject), needle) {
			out = append(out, t)
		}
	}
	return out
}

// SortTasks returns a stably sorted copy. Tasks without a due date sort last
// under SortByDueDate; an unknown key returns the copy in input order.
func SortTasks(tasks []domain.Task, key SortKey) []domain.Task {
	out := slices.Clone(tasks)
	if out == nil {
		out = []domain.Task{}
	}
	switch key {
	case SortByDueDate:
		slices.SortStableFunc(out, compareDue)
	case SortByPriority:
		slices.SortStableFunc(out, func(a, b domain.Task) int {
			return b.Priority.Weight() - a.Priority.Weight()
		})
	case SortBySubject:
		col := collate.New(language.Und)
		slices.SortStableFunc(out, func(a, b domain.Task) int {
			return col.CompareString(a.Subject, b.Subject)
		})
	}
	return out
}

func compareDue(a, b domain.Task) int {
	switch {
	case a.DueDate == nil && b.DueDate == nil:
		return 0
	case a.DueDate == nil:
		return 1
	case b.DueDate == nil:
		return -1
	}
	return a.DueDate.Compare(*b.DueDate)
}

// GetByID returns the task with id, if present.
func GetByID(tasks []domain.Task, id string) (domain.Task, bool) {
	for _, t := range tasks {
		if t.ID == id {
			return t, true
		}
	}
	return domain.Task{}, false
}

func CountByStatus(tasks []domain.Task, status domain.Status) int {
	n := 0
	for _, t := range tasks {
		if t.Status == status {
			n++
		}
	}
	return n
}
