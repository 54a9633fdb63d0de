package dsstore

import (
	"context"
	"errors"
	"os"
	"slices"
	"testing"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/studytracker/internal/domain"
	"example.com/studytracker/internal/storage"
	"example.com/studytracker/internal/storage/storetest"
)

func TestStore_Emulator(t *testing.T) {
	if os.Getenv("DATASTORE_EMULATOR_HOST") == "" {
		t.Skip("DATASTORE_EMULATOR_HOST not set")
	}
	storetest.Run(t, func(t *testing.T) storetest.Store {
		s, err := Open(context.Background(), "studytracker-test", WithClock(storetest.NewClock().Now))
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestTaskKey_HasOwnerParent(t *testing.T) {
	key := taskKey("owner-1", "task-1")
	require.NotNil(t, key.Parent)
	assert.Equal(t, KindTask, key.Kind)
	assert.Equal(t, "task-1", key.Name)
	assert.Equal(t, KindOwner, key.Parent.Kind)
	assert.Equal(t, "owner-1", key.Parent.Name)
}

func TestClassify(t *testing.T) {
	assert.ErrorIs(t, classify("get", datastore.ErrNoSuchEntity), storage.ErrNotFound)
	assert.ErrorIs(t, classify("get", storage.ErrConflict), storage.ErrConflict)
	assert.ErrorIs(t, classify("get", errors.New("deadline exceeded")), storage.ErrUnavailable)
}

func TestCompareCreated_OldestFirst(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tasks := []domain.Task{
		{ID: "c", CreatedAt: base.Add(time.Minute)},
		{ID: "b", CreatedAt: base},
		{ID: "d", CreatedAt: base.Add(-time.Hour)},
		{ID: "a", CreatedAt: base},
	}
	slices.SortStableFunc(tasks, compareCreated)

	ids := make([]string, len(tasks))
	for i, task := range tasks {
		ids[i] = task.ID
	}
	assert.Equal(t, []string{"d", "a", "b", "c"}, ids)
}
