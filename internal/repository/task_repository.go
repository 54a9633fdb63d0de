package repository

import (
	"context"

	"example.com/studytracker/internal/domain"
)

// TaskRepository persists tasks scoped by owner. Implementations store times in UTC,
// assign ID/CreatedAt/UpdatedAt themselves, and report storage.ErrNotFound for ids
// the owner does not have and storage.ErrUnavailable for transport failures.
// Each call is an independent unit of work.
type TaskRepository interface {
	List(ctx context.Context, ownerID string) ([]domain.Task, error)
	Create(ctx context.Context, ownerID string, task domain.Task) (domain.Task, error)
	Update(ctx context.Context, ownerID, id string, patch domain.TaskPatch) (domain.Task, error)
	Delete(ctx context.Context, ownerID, id string) error
}
