package dashboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/studytracker/internal/domain"
)

var now = time.Date(2026, 9, 14, 12, 0, 0, 0, time.UTC)

func due(d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}

func TestCompute_Empty(t *testing.T) {
	s := Compute(nil, now)
	assert.Equal(t, 0, s.TotalCount)
	assert.Equal(t, 0, s.CompletionRate)
	assert.Equal(t, 0, s.TimeProgress)
	assert.Nil(t, s.NextUpcomingTask)
}

func TestCompute_Totals(t *testing.T) {
	tasks := []domain.Task{
		{ID: "1", Status: domain.StatusCompleted, EstimatedMinutes: 45, CompletedMinutes: 45},
		{ID: "2", Status: domain.StatusInProgress, EstimatedMinutes: 90, CompletedMinutes: 30},
		{ID: "3", Status: domain.StatusNotStarted, EstimatedMinutes: 60},
	}
	s := Compute(tasks, now)
	assert.Equal(t, 3, s.TotalCount)
	assert.Equal(t, 1, s.CompletedCount)
	assert.Equal(t, 1, s.InProgressCount)
	assert.Equal(t, 1, s.NotStartedCount)
	assert.Equal(t, 33, s.CompletionRate)
	assert.Equal(t, 195, s.TotalEstimatedMinutes)
	assert.Equal(t, 75, s.TotalCompletedMinutes)
	assert.Equal(t, 38, s.TimeProgress)
}

func TestCompute_ZeroEstimate(t *testing.T) {
	s := Compute([]domain.Task{{ID: "1", Status: domain.StatusNotStarted}}, now)
	assert.Equal(t, 0, s.TimeProgress)
	assert.Equal(t, 0, s.CompletionRate)
}

func TestCompute_NextUpcoming(t *testing.T) {
	tasks := []domain.Task{
		{ID: "overdue", Status: domain.StatusNotStarted, DueDate: due(-24 * time.Hour)},
		{ID: "tomorrow", Status: domain.StatusInProgress, DueDate: due(24 * time.Hour)},
		{ID: "done-soon", Status: domain.StatusCompleted, DueDate: due(time.Hour)},
		{ID: "undated", Status: domain.StatusNotStarted},
	}
	s := Compute(tasks, now)
	require.NotNil(t, s.NextUpcomingTask)
	assert.Equal(t, "tomorrow", s.NextUpcomingTask.ID)
}

func TestCompute_NextUpcomingTies(t *testing.T) {
	tasks := []domain.Task{
		{ID: "later", Status: domain.StatusNotStarted, DueDate: due(48 * time.Hour)},
		{ID: "first", Status: domain.StatusNotStarted, DueDate: due(2 * time.Hour)},
		{ID: "second", Status: domain.StatusNotStarted, DueDate: due(2 * time.Hour)},
		{ID: "now", Status: domain.StatusNotStarted, DueDate: due(0)},
	}
	s := Compute(tasks[:3], now)
	require.NotNil(t, s.NextUpcomingTask)
	assert.Equal(t, "first", s.NextUpcomingTask.ID)

	s = Compute(tasks, now)
	assert.Equal(t, "now", s.NextUpcomingTask.ID, "due exactly now counts as upcoming")
}

func TestCompute_DoesNotAliasInput(t *testing.T) {
	tasks := []domain.Task{{ID: "1", Title: "a", Status: domain.StatusNotStarted, DueDate: due(time.Hour)}}
	s := Compute(tasks, now)
	s.NextUpcomingTask.Title = "changed"
	assert.Equal(t, "a", tasks[0].Title)
}
