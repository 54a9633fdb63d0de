package dashboard

import (
	"time"

	"example.com/studytracker/internal/domain"
)

// Summary is the dashboard view of a task collection at one instant.
type Summary struct {
	TotalCount            int          `json:"total_count"`
	CompletedCount        int          `json:"completed_count"`
	InProgressCount       int          `json:"in_progress_count"`
	NotStartedCount       int          `json:"not_started_count"`
	CompletionRate        int          `json:"completion_rate"`
	TotalEstimatedMinutes int          `json:"total_estimated_minutes"`
	TotalCompletedMinutes int          `json:"total_completed_minutes"`
	TimeProgress          int          `json:"time_progress"`
	NextUpcomingTask      *domain.Task `json:"next_upcoming_task"`
}

// Compute derives the summary from tasks as of now. It never fails; an empty
// collection yields zero rates and no upcoming task.
func Compute(tasks []domain.Task, now time.Time) Summary {
	s := Summary{TotalCount: len(tasks)}
	var next *domain.Task
	for i := range tasks {
		t := tasks[i]
		switch t.Status {
		case domain.StatusCompleted:
			s.CompletedCount++
		case domain.StatusInProgress:
			s.InProgressCount++
		case domain.StatusNotStarted:
			s.NotStartedCount++
		}
		s.TotalEstimatedMinutes += t.EstimatedMinutes
		s.TotalCompletedMinutes += t.CompletedMinutes

		if t.Status == domain.StatusCompleted || t.DueDate == nil || t.DueDate.Before(now) {
			continue
		}
		if next == nil || t.DueDate.Before(*next.DueDate) {
			next = &t
		}
	}
	s.CompletionRate = domain.RoundPercent(s.CompletedCount, s.TotalCount)
	s.TimeProgress = domain.RoundPercent(s.TotalCompletedMinutes, s.TotalEstimatedMinutes)
	s.NextUpcomingTask = next
	return s
}
