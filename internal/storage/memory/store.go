package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"example.com/studytracker/internal/domain"
	"example.com/studytracker/internal/storage"
)

// Store keeps users and tasks in process memory. Tasks are listed in insertion order.
type Store struct {
	mu         sync.RWMutex
	users      map[string]domain.User
	byExternal map[string]string
	tasks      map[string]storage.Record
	order      []string
	now        func() time.Time
}

type Option func(*Store)

// WithClock overrides the clock used for created/updated timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		users:      make(map[string]domain.User),
		byExternal: make(map[string]string),
		tasks:      make(map[string]storage.Record),
		order:      make([]string, 0, 16),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) GetUser(_ context.Context, id string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByExternalID(_ context.Context, externalID string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byExternal[externalID]
	if !ok {
		return domain.User{}, storage.ErrNotFound
	}
	return s.users[id], nil
}

func (s *Store) CreateUser(_ context.Context, u domain.User) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ExternalID != "" {
		if _, ok := s.byExternal[u.ExternalID]; ok {
			return domain.User{}, storage.ErrConflict
		}
	}
	if u.Timezone == "" {
		u.Timezone = "UTC"
	}
	u.ID = uuid.NewString()
	u.CreatedAt = s.now().UTC()
	s.users[u.ID] = u
	if u.ExternalID != "" {
		s.byExternal[u.ExternalID] = u.ID
	}
	return u, nil
}

func (s *Store) List(_ context.Context, ownerID string) ([]domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Task, 0, len(s.order))
	for _, id := range s.order {
		r := s.tasks[id]
		if r.OwnerID == ownerID {
			out = append(out, storage.FromRecord(r))
		}
	}
	return out, nil
}

func (s *Store) Create(_ context.Context, ownerID string, t domain.Task) (domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[ownerID]; !ok {
		return domain.Task{}, storage.ErrNotFound
	}
	now := s.now().UTC()
	t.ID = uuid.NewString()
	t.OwnerID = ownerID
	t.CreatedAt = now
	t.UpdatedAt = now
	r := storage.ToRecord(t).UTC()
	s.tasks[r.ID] = r
	s.order = append(s.order, r.ID)
	return storage.FromRecord(r), nil
}

func (s *Store) Update(_ context.Context, ownerID, id string, patch domain.TaskPatch) (domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.tasks[id]
	if !ok || r.OwnerID != ownerID {
		return domain.Task{}, storage.ErrNotFound
	}
	t := patch.Apply(storage.FromRecord(r))
	t.UpdatedAt = s.now().UTC()
	r = storage.ToRecord(t).UTC()
	s.tasks[id] = r
	return storage.FromRecord(r), nil
}

func (s *Store) Delete(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.tasks[id]
	if !ok || r.OwnerID != ownerID {
		return storage.ErrNotFound
	}
	delete(s.tasks, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}
