package repository

import (
	"context"

	"example.com/studytracker/internal/domain"
)

type UserRepository interface {
	GetUser(ctx context.Context, id string) (domain.User, error)
	GetUserByExternalID(ctx context.Context, externalID string) (domain.User, error)
	CreateUser(ctx context.Context, user domain.User) (domain.User, error)
}
