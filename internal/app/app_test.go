package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/studytracker/internal/config"
	"example.com/studytracker/internal/storage/memory"
	sqlstore "example.com/studytracker/internal/storage/sql"
)

func baseConfig() config.Config {
	return config.Config{Env: "dev", Storage: config.StorageMemory, ShutdownTimeout: time.Second}
}

func TestNew_Memory(t *testing.T) {
	a, err := New(context.Background(), baseConfig(), zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &memory.Store{}, a.Store)
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	bot, err := a.Bot()
	assert.NoError(t, err)
	assert.Nil(t, bot)
}

func TestNew_SQLiteMigratesInDev(t *testing.T) {
	cfg := baseConfig()
	cfg.Storage = config.StorageSQL
	cfg.DBDriver = sqlstore.DriverSQLite
	cfg.DBDSN = ":memory:"

	a, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Store.List(context.Background(), "nobody")
	assert.NoError(t, err)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := baseConfig()
	cfg.Storage = "redis"
	_, err := New(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}
