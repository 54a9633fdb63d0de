package app

import (
	"context"
	"fmt"
	"io"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"example.com/studytracker/internal/config"
	httphandlers "example.com/studytracker/internal/handler/http"
	"example.com/studytracker/internal/repository"
	dsstore "example.com/studytracker/internal/storage/datastore"
	"example.com/studytracker/internal/storage/memory"
	sqlstore "example.com/studytracker/internal/storage/sql"
	"example.com/studytracker/internal/telegram"
	"example.com/studytracker/internal/usecase"
)

type Store interface {
	repository.TaskRepository
	repository.UserRepository
}

type App struct {
	Config   config.Config
	Log      zerolog.Logger
	Store    Store
	Identity *usecase.Identity
	Sessions *usecase.Sessions
	Router   *echo.Echo
}

// OpenStore connects the backend named by cfg.Storage.
func OpenStore(ctx context.Context, cfg config.Config) (Store, error) {
	switch cfg.Storage {
	case config.StorageSQL:
		return sqlstore.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	case config.StorageDatastore:
		return dsstore.Open(ctx, cfg.DatastoreProject)
	case config.StorageMemory, "":
		return memory.New(), nil
	}
	return nil, fmt.Errorf("unknown storage %q", cfg.Storage)
}

func New(ctx context.Context, cfg config.Config, log zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	// outside dev the schema is applied with the migrate command
	if m, ok := store.(interface{ Migrate(context.Context) error }); ok && cfg.Dev() {
		if err := m.Migrate(ctx); err != nil {
			closeStore(store)
			return nil, err
		}
	}
	return wire(cfg, log, store), nil
}

func wire(cfg config.Config, log zerolog.Logger, store Store) *App {
	identity := usecase.NewIdentity(store)
	sessions := usecase.NewSessions(store, usecase.WithLogger(log))
	return &App{
		Config:   cfg,
		Log:      log,
		Store:    store,
		Identity: identity,
		Sessions: sessions,
		Router:   httphandlers.New(identity, sessions, log),
	}
}

// Bot returns the telegram bot, or nil when no token is configured.
func (a *App) Bot() (*telegram.Bot, error) {
	if a.Config.TelegramToken == "" {
		return nil, nil
	}
	api, err := telegram.Dial(a.Config.TelegramToken)
	if err != nil {
		return nil, err
	}
	return telegram.NewBot(api, a.Identity, a.Sessions, a.Config.TelegramPollTimeout, a.Log), nil
}

func (a *App) Close() error {
	if c, ok := a.Store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func closeStore(s Store) {
	if c, ok := s.(io.Closer); ok {
		_ = c.Close()
	}
}
