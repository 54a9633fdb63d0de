package usecase

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"example.com/studytracker/internal/collection"
	"example.com/studytracker/internal/dashboard"
	"example.com/studytracker/internal/domain"
	"example.com/studytracker/internal/repository"
	"example.com/studytracker/internal/storage"
)

var (
	ErrUnauthenticated = errors.New("no current owner")
	ErrEmptyTitle      = errors.New("task title is empty")
	ErrEmptySubject    = errors.New("task subject is empty")
	ErrInvalidStatus   = errors.New("invalid status")
)

// Session holds one owner's task collection in memory and routes every mutation
// through the repository. The in-memory slice is replaced only after the store
// confirms the change, so a failed call leaves it untouched.
type Session struct {
	owner string
	repo  repository.TaskRepository
	log   zerolog.Logger
	now   func() time.Time

	mu    sync.RWMutex
	tasks []domain.Task
	locks keyedMutex
}

type SessionOption func(*Session)

func WithLogger(log zerolog.Logger) SessionOption {
	return func(s *Session) {
		s.log = log
	}
}

func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		s.now = now
	}
}

func NewSession(owner string, repo repository.TaskRepository, opts ...SessionOption) *Session {
	s := &Session{
		owner: owner,
		repo:  repo,
		log:   zerolog.Nop(),
		now:   time.Now,
		tasks: []domain.Task{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("owner_id", owner).Logger()
	return s
}

func (s *Session) Owner() string {
	return s.owner
}

func (s *Session) requireOwner() error {
	if s.owner == "" {
		return ErrUnauthenticated
	}
	return nil
}

// Load replaces the collection with the store's current state.
// Without an owner the collection stays empty.
func (s *Session) Load(ctx context.Context) error {
	if err := s.requireOwner(); err != nil {
		return err
	}
	items, err := s.repo.List(ctx, s.owner)
	if err != nil {
		s.log.Warn().Err(err).Msg("load tasks")
		return err
	}
	for i := range items {
		items[i] = domain.Normalize(items[i])
	}
	s.mu.Lock()
	s.tasks = items
	s.mu.Unlock()
	return nil
}

// Tasks returns a snapshot in store order.
func (s *Session) Tasks() []domain.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.tasks)
}

func (s *Session) Get(id string) (domain.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return collection.GetByID(s.tasks, id)
}

func (s *Session) View(q collection.Query) []domain.Task {
	return collection.Apply(s.Tasks(), q)
}

func (s *Session) Summary() dashboard.Summary {
	return dashboard.Compute(s.Tasks(), s.now())
}

func (s *Session) Now() time.Time {
	return s.now()
}

func validate(t domain.Task) error {
	if t.Title == "" {
		return ErrEmptyTitle
	}
	if t.Subject == "" {
		return ErrEmptySubject
	}
	return nil
}

func trimTask(t domain.Task) domain.Task {
	t.Title = strings.TrimSpace(t.Title)
	t.Subject = strings.TrimSpace(t.Subject)
	t.Description = strings.TrimSpace(t.Description)
	return t
}

// Add normalizes and stores a new task. New tasks start with no logged time,
// and a task with a deadline but no priority gets one suggested from how soon
// it is due.
func (s *Session) Add(ctx context.Context, t domain.Task) (domain.Task, error) {
	t.CompletedMinutes = 0
	return s.create(ctx, t)
}

// Import stores a task that already carries logged time, such as starter data.
func (s *Session) Import(ctx context.Context, t domain.Task) (domain.Task, error) {
	return s.create(ctx, t)
}

func (s *Session) create(ctx context.Context, t domain.Task) (domain.Task, error) {
	if err := s.requireOwner(); err != nil {
		return domain.Task{}, err
	}
	t = trimTask(t)
	if err := validate(t); err != nil {
		return domain.Task{}, err
	}
	if t.Priority == "" && t.DueDate != nil {
		t.Priority = domain.SuggestPriority(*t.DueDate, s.now())
	}
	if t.EstimatedMinutes == 0 {
		t.EstimatedMinutes = domain.DefaultEstimate
	}
	t = domain.Normalize(t)
	t.OwnerID = s.owner

	created, err := s.repo.Create(ctx, s.owner, t)
	if err != nil {
		s.log.Warn().Err(err).Msg("create task")
		return domain.Task{}, err
	}
	created = domain.Normalize(created)
	s.mu.Lock()
	s.tasks = append(slices.Clone(s.tasks), created)
	s.mu.Unlock()
	return created, nil
}

// Edit merges a partial update. When the patch changes the minutes without
// naming a status the status is derived again; otherwise the current one stays.
func (s *Session) Edit(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error) {
	return s.mutate(ctx, id, func(cur domain.Task) (domain.Task, error) {
		if patch.Status != nil && !patch.Status.Valid() {
			return domain.Task{}, ErrInvalidStatus
		}
		next := trimTask(patch.Apply(cur))
		if err := validate(next); err != nil {
			return domain.Task{}, err
		}
		if patch.Status == nil && patch.TouchesMinutes() {
			next.Status = ""
		}
		return domain.Normalize(next), nil
	})
}

func (s *Session) SetStatus(ctx context.Context, id string, status domain.Status) (domain.Task, error) {
	if !status.Valid() {
		return domain.Task{}, ErrInvalidStatus
	}
	return s.mutate(ctx, id, func(cur domain.Task) (domain.Task, error) {
		return domain.ApplyStatusChange(cur, status), nil
	})
}

func (s *Session) LogProgress(ctx context.Context, id string, minutes int) (domain.Task, error) {
	return s.mutate(ctx, id, func(cur domain.Task) (domain.Task, error) {
		return domain.ApplyProgressChange(cur, minutes), nil
	})
}

func (s *Session) SetCompleted(ctx context.Context, id string, completed bool) (domain.Task, error) {
	return s.mutate(ctx, id, func(cur domain.Task) (domain.Task, error) {
		return domain.ToggleCompleted(cur, completed), nil
	})
}

func (s *Session) Delete(ctx context.Context, id string) error {
	if err := s.requireOwner(); err != nil {
		return err
	}
	unlock := s.locks.Lock(id)
	defer unlock()

	if _, ok := s.Get(id); !ok {
		return storage.ErrNotFound
	}
	if err := s.repo.Delete(ctx, s.owner, id); err != nil {
		s.log.Warn().Err(err).Str("task_id", id).Msg("delete task")
		return err
	}
	s.mu.Lock()
	s.tasks = slices.DeleteFunc(slices.Clone(s.tasks), func(t domain.Task) bool {
		return t.ID == id
	})
	s.mu.Unlock()
	return nil
}

// mutate runs one read-modify-write on a task while holding that id's lock for
// the whole store round trip, so responses for the same id apply in order.
func (s *Session) mutate(ctx context.Context, id string, change func(domain.Task) (domain.Task, error)) (domain.Task, error) {
	if err := s.requireOwner(); err != nil {
		return domain.Task{}, err
	}
	unlock := s.locks.Lock(id)
	defer unlock()

	cur, ok := s.Get(id)
	if !ok {
		return domain.Task{}, storage.ErrNotFound
	}
	next, err := change(cur)
	if err != nil {
		return domain.Task{}, err
	}
	updated, err := s.repo.Update(ctx, s.owner, id, domain.FullPatch(next))
	if err != nil {
		s.log.Warn().Err(err).Str("task_id", id).Msg("update task")
		return domain.Task{}, err
	}
	updated = domain.Normalize(updated)
	s.replace(updated)
	return updated, nil
}

func (s *Session) replace(t domain.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := slices.Clone(s.tasks)
	if i := slices.IndexFunc(next, func(x domain.Task) bool { return x.ID == t.ID }); i >= 0 {
		next[i] = t
	}
	s.tasks = next
}

type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

// Lock blocks until id is free and returns the release func.
func (k *keyedMutex) Lock(id string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refLock)
	}
	l, ok := k.locks[id]
	if !ok {
		l = &refLock{}
		k.locks[id] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}
