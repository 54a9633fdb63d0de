package usecase

import (
	"context"
	"sync"

	"example.com/studytracker/internal/repository"
)

// Sessions caches one loaded Session per owner for the transports.
type Sessions struct {
	repo repository.TaskRepository
	opts []SessionOption

	mu      sync.RWMutex
	byOwner map[string]*Session
	loading keyedMutex
}

func NewSessions(repo repository.TaskRepository, opts ...SessionOption) *Sessions {
	return &Sessions{
		repo:    repo,
		opts:    opts,
		byOwner: make(map[string]*Session),
	}
}

// For returns the owner's session, loading it from the store on first use.
// A failed load is not cached.
func (r *Sessions) For(ctx context.Context, owner string) (*Session, error) {
	if owner == "" {
		return nil, ErrUnauthenticated
	}
	if s, ok := r.cached(owner); ok {
		return s, nil
	}
	unlock := r.loading.Lock(owner)
	defer unlock()
	if s, ok := r.cached(owner); ok {
		return s, nil
	}

	s := NewSession(owner, r.repo, r.opts...)
	if err := s.Load(ctx); err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.byOwner[owner] = s
	r.mu.Unlock()
	return s, nil
}

func (r *Sessions) cached(owner string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byOwner[owner]
	return s, ok
}

// Forget drops a cached session so the next For reloads it.
func (r *Sessions) Forget(owner string) {
	r.mu.Lock()
	delete(r.byOwner, owner)
	r.mu.Unlock()
}
