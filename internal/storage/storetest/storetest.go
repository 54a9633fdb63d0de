// Package storetest is a behavioural suite shared by every store implementation.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/studytracker/internal/domain"
	"example.com/studytracker/internal/repository"
	"example.com/studytracker/internal/storage"
)

type Store interface {
	repository.TaskRepository
	repository.UserRepository
}

// Clock hands out strictly increasing whole-second instants.
type Clock struct {
	t time.Time
}

func NewClock() *Clock {
	return &Clock{t: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

// Run exercises newStore against the store contract. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("CreateAndList", func(t *testing.T) { testCreateAndList(t, newStore(t)) })
	t.Run("Update", func(t *testing.T) { testUpdate(t, newStore(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newStore(t)) })
	t.Run("OwnerScope", func(t *testing.T) { testOwnerScope(t, newStore(t)) })
}

func mustUser(t *testing.T, s Store, ext string) domain.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), domain.User{ExternalID: ext, DisplayName: ext})
	require.NoError(t, err)
	return u
}

func sampleTask() domain.Task {
	due := time.Date(2026, 1, 20, 17, 0, 0, 0, time.UTC)
	return domain.Task{
		Title:            "Complete Math Problem Set",
		Description:      "Problems 1-20 on page 145",
		Subject:          "Mathematics",
		DueDate:          &due,
		Priority:         domain.PriorityMedium,
		Status:           domain.StatusInProgress,
		EstimatedMinutes: 90,
		CompletedMinutes: 30,
	}
}

func testUsers(t *testing.T, s Store) {
	ctx := context.Background()
	u := mustUser(t, s, "telegram:42")
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "UTC", u.Timezone)
	assert.False(t, u.CreatedAt.IsZero())

	got, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "telegram:42", got.ExternalID)

	got, err = s.GetUserByExternalID(ctx, "telegram:42")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.CreateUser(ctx, domain.User{ExternalID: "telegram:42"})
	assert.ErrorIs(t, err, storage.ErrConflict)

	_, err = s.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.GetUserByExternalID(ctx, "telegram:0")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	a := mustUser(t, s, "")
	b := mustUser(t, s, "")
	assert.NotEqual(t, a.ID, b.ID, "users without external ids do not conflict")
}

func testCreateAndList(t *testing.T, s Store) {
	ctx := context.Background()
	u := mustUser(t, s, "owner")

	in := sampleTask()
	created, err := s.Create(ctx, u.ID, in)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, u.ID, created.OwnerID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.False(t, created.UpdatedAt.IsZero())
	require.NotNil(t, created.DueDate)
	assert.True(t, created.DueDate.Equal(*in.DueDate))

	undated := sampleTask()
	undated.Title = "Research"
	undated.DueDate = nil
	second, err := s.Create(ctx, u.ID, undated)
	require.NoError(t, err)
	assert.NotEqual(t, created.ID, second.ID)

	items, err := s.List(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, created.ID, items[0].ID)
	assert.Equal(t, "Complete Math Problem Set", items[0].Title)
	assert.Equal(t, "Problems 1-20 on page 145", items[0].Description)
	assert.Equal(t, "Mathematics", items[0].Subject)
	assert.Equal(t, domain.PriorityMedium, items[0].Priority)
	assert.Equal(t, domain.StatusInProgress, items[0].Status)
	assert.Equal(t, 90, items[0].EstimatedMinutes)
	assert.Equal(t, 30, items[0].CompletedMinutes)
	require.NotNil(t, items[0].DueDate)
	assert.Equal(t, time.UTC, items[0].DueDate.Location())
	assert.Nil(t, items[1].DueDate)

	_, err = s.Create(ctx, "unknown-owner", sampleTask())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testUpdate(t *testing.T, s Store) {
	ctx := context.Background()
	u := mustUser(t, s, "owner")
	created, err := s.Create(ctx, u.ID, sampleTask())
	require.NoError(t, err)

	title := "Problem set (odd only)"
	done := 90
	status := domain.StatusCompleted
	updated, err := s.Update(ctx, u.ID, created.ID, domain.TaskPatch{
		Title:            &title,
		CompletedMinutes: &done,
		Status:           &status,
		ClearDueDate:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, "Mathematics", updated.Subject, "untouched field kept")
	assert.Equal(t, domain.StatusCompleted, updated.Status)
	assert.Equal(t, 90, updated.CompletedMinutes)
	assert.Nil(t, updated.DueDate)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))

	items, err := s.List(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, title, items[0].Title)
	assert.Nil(t, items[0].DueDate)

	_, err = s.Update(ctx, u.ID, "missing", domain.TaskPatch{Title: &title})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testDelete(t *testing.T, s Store) {
	ctx := context.Background()
	u := mustUser(t, s, "owner")
	created, err := s.Create(ctx, u.ID, sampleTask())
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, u.ID, created.ID))
	items, err := s.List(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, items)

	assert.ErrorIs(t, s.Delete(ctx, u.ID, created.ID), storage.ErrNotFound)
}

func testOwnerScope(t *testing.T, s Store) {
	ctx := context.Background()
	alice := mustUser(t, s, "alice")
	bob := mustUser(t, s, "bob")
	task, err := s.Create(ctx, alice.ID, sampleTask())
	require.NoError(t, err)

	items, err := s.List(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, items)

	title := "hijack"
	_, err = s.Update(ctx, bob.ID, task.ID, domain.TaskPatch{Title: &title})
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, bob.ID, task.ID), storage.ErrNotFound)

	items, err = s.List(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Complete Math Problem Set", items[0].Title)
}
