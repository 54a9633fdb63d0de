package domain

import "time"

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// IsOverdue reports whether an unfinished task was due before the start of now's day.
func IsOverdue(t Task, now time.Time) bool {
	if t.DueDate == nil || t.Status == StatusCompleted {
		return false
	}
	return t.DueDate.Before(startOfDay(now))
}

// SuggestPriority picks a priority from how close the due date is.
func SuggestPriority(due, now time.Time) Priority {
	switch {
	case due.Before(now.AddDate(0, 0, 1)):
		return PriorityHigh
	case due.Before(now.AddDate(0, 0, 7)):
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// FormatDue renders a due date relative to now, in now's location.
func FormatDue(due, now time.Time) string {
	due = due.In(now.Location())
	today := startOfDay(now)
	day := startOfDay(due)
	switch {
	case day.Equal(today):
		return "Today"
	case day.Equal(today.AddDate(0, 0, 1)):
		return "Tomorrow"
	}
	return due.Format("Jan 2, 2006")
}
