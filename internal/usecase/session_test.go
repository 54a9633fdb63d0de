package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/studytracker/internal/collection"
	"example.com/studytracker/internal/domain"
	"example.com/studytracker/internal/storage"
	"example.com/studytracker/internal/storage/memory"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newSession(t *testing.T) (*Session, *memory.Store) {
	t.Helper()
	repo := memory.New()
	u, err := repo.CreateUser(context.Background(), domain.User{DisplayName: "Ana"})
	require.NoError(t, err)
	s := NewSession(u.ID, repo, WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, s.Load(context.Background()))
	return s, repo
}

func addTask(t *testing.T, s *Session, title string, estimate int) domain.Task {
	t.Helper()
	created, err := s.Add(context.Background(), domain.Task{
		Title:            title,
		Subject:          "Math",
		Priority:         domain.PriorityMedium,
		EstimatedMinutes: estimate,
	})
	require.NoError(t, err)
	return created
}

// flakyRepo fails every call after the embedded store was primed.
type flakyRepo struct {
	*memory.Store
	fail bool
}

func (r *flakyRepo) err() error {
	return storage.Unavailable("test", errors.New("network down"))
}

func (r *flakyRepo) Create(ctx context.Context, owner string, t domain.Task) (domain.Task, error) {
	if r.fail {
		return domain.Task{}, r.err()
	}
	return r.Store.Create(ctx, owner, t)
}

func (r *flakyRepo) Update(ctx context.Context, owner, id string, p domain.TaskPatch) (domain.Task, error) {
	if r.fail {
		return domain.Task{}, r.err()
	}
	return r.Store.Update(ctx, owner, id, p)
}

func (r *flakyRepo) Delete(ctx context.Context, owner, id string) error {
	if r.fail {
		return r.err()
	}
	return r.Store.Delete(ctx, owner, id)
}

// countingRepo records whether the store was reached at all.
type countingRepo struct {
	calls int
}

func (r *countingRepo) List(context.Context, string) ([]domain.Task, error) {
	r.calls++
	return nil, nil
}

func (r *countingRepo) Create(context.Context, string, domain.Task) (domain.Task, error) {
	r.calls++
	return domain.Task{}, nil
}

func (r *countingRepo) Update(context.Context, string, string, domain.TaskPatch) (domain.Task, error) {
	r.calls++
	return domain.Task{}, nil
}

func (r *countingRepo) Delete(context.Context, string, string) error {
	r.calls++
	return nil
}

func TestSession_AddNormalizesAndStores(t *testing.T) {
	s, repo := newSession(t)

	created, err := s.Add(context.Background(), domain.Task{
		Title:            "  Chapter 3  ",
		Subject:          " Physics ",
		Priority:         domain.PriorityHigh,
		EstimatedMinutes: 60,
		CompletedMinutes: 45,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Chapter 3", created.Title)
	assert.Equal(t, "Physics", created.Subject)
	assert.Zero(t, created.CompletedMinutes, "new tasks start with no logged time")
	assert.Equal(t, domain.StatusNotStarted, created.Status)

	stored, err := repo.List(context.Background(), s.Owner())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, created.ID, stored[0].ID)
	assert.Zero(t, stored[0].CompletedMinutes)
	assert.Len(t, s.Tasks(), 1)
}

func TestSession_AddCompletedStatusFillsEstimate(t *testing.T) {
	s, _ := newSession(t)

	created, err := s.Add(context.Background(), domain.Task{
		Title:            "Lab report",
		Subject:          "Chemistry",
		Status:           domain.StatusCompleted,
		EstimatedMinutes: 40,
		CompletedMinutes: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, created.Status)
	assert.Equal(t, 40, created.CompletedMinutes)
}

func TestSession_ImportKeepsLoggedTime(t *testing.T) {
	s, repo := newSession(t)

	imported, err := s.Import(context.Background(), domain.Task{
		Title:            "Chapter 3",
		Subject:          "Physics",
		EstimatedMinutes: 60,
		CompletedMinutes: 45,
	})
	require.NoError(t, err)
	assert.Equal(t, 45, imported.CompletedMinutes)
	assert.Equal(t, domain.StatusInProgress, imported.Status)

	over, err := s.Import(context.Background(), domain.Task{
		Title:            "Chapter 4",
		Subject:          "Physics",
		EstimatedMinutes: 60,
		CompletedMinutes: 90,
	})
	require.NoError(t, err)
	assert.Equal(t, 60, over.CompletedMinutes)
	assert.Equal(t, domain.StatusCompleted, over.Status)

	stored, err := repo.List(context.Background(), s.Owner())
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, 45, stored[0].CompletedMinutes)

	_, err = NewSession("", repo).Import(context.Background(), domain.Task{Title: "x", Subject: "y"})
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestSession_AddDefaults(t *testing.T) {
	s, _ := newSession(t)
	due := fixedNow.Add(3 * time.Hour)

	created, err := s.Add(context.Background(), domain.Task{Title: "Essay", Subject: "History", DueDate: &due})
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityHigh, created.Priority)
	assert.Equal(t, domain.DefaultEstimate, created.EstimatedMinutes)
	assert.Equal(t, domain.StatusNotStarted, created.Status)
}

func TestSession_AddValidates(t *testing.T) {
	s, _ := newSession(t)

	_, err := s.Add(context.Background(), domain.Task{Title: "  ", Subject: "Math"})
	assert.ErrorIs(t, err, ErrEmptyTitle)
	_, err = s.Add(context.Background(), domain.Task{Title: "Read", Subject: ""})
	assert.ErrorIs(t, err, ErrEmptySubject)
	assert.Empty(t, s.Tasks())
}

func TestSession_Unauthenticated(t *testing.T) {
	repo := &countingRepo{}
	s := NewSession("", repo)
	ctx := context.Background()

	assert.ErrorIs(t, s.Load(ctx), ErrUnauthenticated)
	_, err := s.Add(ctx, domain.Task{Title: "x", Subject: "y"})
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = s.SetStatus(ctx, "id", domain.StatusCompleted)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = s.LogProgress(ctx, "id", 10)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.ErrorIs(t, s.Delete(ctx, "id"), ErrUnauthenticated)

	assert.Zero(t, repo.calls)
	assert.Empty(t, s.Tasks())
	assert.Zero(t, s.Summary().TotalCount)
}

func TestSession_UnknownIDNeverReachesStore(t *testing.T) {
	repo := &countingRepo{}
	s := NewSession("owner", repo)
	require.NoError(t, s.Load(context.Background()))
	repo.calls = 0

	_, err := s.LogProgress(context.Background(), "missing", 10)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, s.Delete(context.Background(), "missing"), storage.ErrNotFound)
	assert.Zero(t, repo.calls)
}

func TestSession_LogProgress(t *testing.T) {
	s, _ := newSession(t)
	task := addTask(t, s, "Flashcards", 60)

	got, err := s.LogProgress(context.Background(), task.ID, 30)
	require.NoError(t, err)
	assert.Equal(t, 30, got.CompletedMinutes)
	assert.Equal(t, domain.StatusInProgress, got.Status)

	got, err = s.LogProgress(context.Background(), task.ID, 60)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)

	cached, ok := s.Get(task.ID)
	require.True(t, ok)
	assert.Equal(t, got, cached)
}

func TestSession_SetStatusAndCompleted(t *testing.T) {
	s, _ := newSession(t)
	task := addTask(t, s, "Lab report", 60)
	_, err := s.LogProgress(context.Background(), task.ID, 40)
	require.NoError(t, err)

	got, err := s.SetStatus(context.Background(), task.ID, domain.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, 60, got.CompletedMinutes)

	got, err = s.SetCompleted(context.Background(), task.ID, false)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, got.Status)

	_, err = s.SetStatus(context.Background(), task.ID, domain.Status("blocked"))
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestSession_EditStatusRule(t *testing.T) {
	s, _ := newSession(t)
	task := addTask(t, s, "Problem set", 60)
	ctx := context.Background()

	inProgress := domain.StatusInProgress
	got, err := s.Edit(ctx, task.ID, domain.TaskPatch{Status: &inProgress})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, got.Status)
	assert.Zero(t, got.CompletedMinutes)

	title := "Problem set 2"
	got, err = s.Edit(ctx, task.ID, domain.TaskPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Problem set 2", got.Title)
	assert.Equal(t, domain.StatusInProgress, got.Status, "status kept when minutes are untouched")

	done := 60
	got, err = s.Edit(ctx, task.ID, domain.TaskPatch{CompletedMinutes: &done})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status, "status derived from new minutes")

	empty := " "
	_, err = s.Edit(ctx, task.ID, domain.TaskPatch{Subject: &empty})
	assert.ErrorIs(t, err, ErrEmptySubject)
}

func TestSession_EditClearsDueDate(t *testing.T) {
	s, _ := newSession(t)
	due := fixedNow.Add(48 * time.Hour)
	created, err := s.Add(context.Background(), domain.Task{Title: "Quiz", Subject: "Bio", DueDate: &due})
	require.NoError(t, err)
	require.NotNil(t, created.DueDate)

	got, err := s.Edit(context.Background(), created.ID, domain.TaskPatch{ClearDueDate: true})
	require.NoError(t, err)
	assert.Nil(t, got.DueDate)
}

func TestSession_Delete(t *testing.T) {
	s, repo := newSession(t)
	a := addTask(t, s, "A", 30)
	b := addTask(t, s, "B", 30)

	require.NoError(t, s.Delete(context.Background(), a.ID))
	tasks := s.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, b.ID, tasks[0].ID)

	stored, err := repo.List(context.Background(), s.Owner())
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestSession_StoreFailureLeavesCollection(t *testing.T) {
	base := memory.New()
	u, err := base.CreateUser(context.Background(), domain.User{DisplayName: "Ana"})
	require.NoError(t, err)
	repo := &flakyRepo{Store: base}
	s := NewSession(u.ID, repo)
	require.NoError(t, s.Load(context.Background()))
	task := addTask(t, s, "Notes", 60)
	before := s.Tasks()

	repo.fail = true
	_, err = s.LogProgress(context.Background(), task.ID, 30)
	assert.ErrorIs(t, err, storage.ErrUnavailable)
	_, err = s.Add(context.Background(), domain.Task{Title: "More", Subject: "Math"})
	assert.ErrorIs(t, err, storage.ErrUnavailable)
	assert.ErrorIs(t, s.Delete(context.Background(), task.ID), storage.ErrUnavailable)

	assert.Equal(t, before, s.Tasks())
}

func TestSession_SnapshotsAreIndependent(t *testing.T) {
	s, _ := newSession(t)
	task := addTask(t, s, "Read", 60)
	snap := s.Tasks()

	_, err := s.LogProgress(context.Background(), task.ID, 20)
	require.NoError(t, err)
	assert.Zero(t, snap[0].CompletedMinutes)
}

func TestSession_ViewAndSummary(t *testing.T) {
	s, _ := newSession(t)
	addTask(t, s, "Algebra", 60)
	b := addTask(t, s, "Geometry", 60)
	_, err := s.LogProgress(context.Background(), b.ID, 60)
	require.NoError(t, err)

	done := s.View(collection.Query{Status: domain.StatusCompleted})
	require.Len(t, done, 1)
	assert.Equal(t, b.ID, done[0].ID)

	sum := s.Summary()
	assert.Equal(t, 2, sum.TotalCount)
	assert.Equal(t, 50, sum.CompletionRate)
	assert.Equal(t, 50, sum.TimeProgress)
}

// slowRepo delays updates that log an odd number of minutes, so unserialized
// writers would finish out of order, and records the most updates seen in flight.
type slowRepo struct {
	*memory.Store
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (r *slowRepo) Update(ctx context.Context, owner, id string, p domain.TaskPatch) (domain.Task, error) {
	n := r.inFlight.Add(1)
	defer r.inFlight.Add(-1)
	for {
		peak := r.peak.Load()
		if n <= peak || r.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	if p.CompletedMinutes != nil && *p.CompletedMinutes%2 == 1 {
		time.Sleep(5 * time.Millisecond)
	}
	return r.Store.Update(ctx, owner, id, p)
}

func TestSession_ConcurrentProgressSameID(t *testing.T) {
	repo := &slowRepo{Store: memory.New()}
	u, err := repo.CreateUser(context.Background(), domain.User{DisplayName: "Ana"})
	require.NoError(t, err)
	s := NewSession(u.ID, repo, WithClock(func() time.Time { return fixedNow }))
	task := addTask(t, s, "Drills", 100)

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(m int) {
			defer wg.Done()
			_, err := s.LogProgress(context.Background(), task.ID, m)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), repo.peak.Load(), "updates for one id overlapped")

	stored, err := repo.List(context.Background(), u.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	cached, ok := s.Get(task.ID)
	require.True(t, ok)
	assert.Len(t, s.Tasks(), 1)
	assert.Equal(t, stored[0], cached, "cache diverged from the store")
	assert.GreaterOrEqual(t, cached.CompletedMinutes, 1)
	assert.LessOrEqual(t, cached.CompletedMinutes, 20)
}

func TestKeyedMutex_ReleasesEntries(t *testing.T) {
	var k keyedMutex
	unlock := k.Lock("a")
	unlock()
	assert.Empty(t, k.locks)
}
