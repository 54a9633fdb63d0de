package seed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/studytracker/internal/domain"
	"example.com/studytracker/internal/storage/memory"
	"example.com/studytracker/internal/usecase"
)

var now = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func TestDefaults(t *testing.T) {
	tasks, err := Defaults(now)
	require.NoError(t, err)
	require.Len(t, tasks, 5)

	assert.Equal(t, "Biology", tasks[0].Subject)
	require.NotNil(t, tasks[0].DueDate)
	assert.Equal(t, now.AddDate(0, 0, 1), *tasks[0].DueDate)
	assert.Equal(t, domain.StatusCompleted, tasks[3].Status)
	assert.Equal(t, now, *tasks[3].DueDate)
}

func TestParse_Rejects(t *testing.T) {
	_, err := Parse([]byte("- title: x\n  subject: y\n  status: blocked\n"), now)
	assert.Error(t, err)
	_, err = Parse([]byte("- title: x\n  priority: urgent\n"), now)
	assert.Error(t, err)
	_, err = Parse([]byte("not: [a list"), now)
	assert.Error(t, err)
}

func TestParse_NoDueDate(t *testing.T) {
	tasks, err := Parse([]byte("- title: Read\n  subject: Art\n  estimated_minutes: 30\n"), now)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Nil(t, tasks[0].DueDate)
}

func TestLoad_ThroughSession(t *testing.T) {
	repo := memory.New()
	u, err := repo.CreateUser(context.Background(), domain.User{DisplayName: "Ana"})
	require.NoError(t, err)
	s := usecase.NewSession(u.ID, repo, usecase.WithClock(func() time.Time { return now }))

	created, err := Load(context.Background(), s)
	require.NoError(t, err)
	assert.Len(t, created, 5)

	sum := s.Summary()
	assert.Equal(t, 5, sum.TotalCount)
	assert.Equal(t, 1, sum.CompletedCount)
	assert.Equal(t, 1, sum.InProgressCount)
	assert.Equal(t, 495, sum.TotalEstimatedMinutes)
	assert.Equal(t, 75, sum.TotalCompletedMinutes)
}
