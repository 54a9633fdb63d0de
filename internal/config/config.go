package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageMemory    = "memory"
	StorageSQL       = "sql"
	StorageDatastore = "datastore"
)

type Config struct {
	Env                 string
	HTTPAddr            string
	Storage             string
	DBDriver            string
	DBDSN               string
	DatastoreProject    string
	TelegramToken       string
	TelegramPollTimeout time.Duration
	LogLevel            string
	ShutdownTimeout     time.Duration
}

func (c Config) Dev() bool {
	return c.Env == "dev"
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getdur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err == nil {
		return d
	}
	// bare numbers are seconds
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}

// Load reads the environment, after merging the given dotenv files into it.
// Variables already set win over the files, and missing files are skipped.
func Load(envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	cfg := Config{
		Env:                 getenv("APP_ENV", "dev"),
		HTTPAddr:            getenv("HTTP_ADDR", ":8080"),
		Storage:             getenv("STORAGE", StorageMemory),
		DBDriver:            getenv("DB_DRIVER", "pgx"),
		DBDSN:               getenv("DB_DSN", ""),
		DatastoreProject:    getenv("DATASTORE_PROJECT", ""),
		TelegramToken:       getenv("TELEGRAM_TOKEN", ""),
		TelegramPollTimeout: getdur("TELEGRAM_POLL_TIMEOUT", 30*time.Second),
		LogLevel:            getenv("LOG_LEVEL", "info"),
		ShutdownTimeout:     getdur("SHUTDOWN_TIMEOUT", 5*time.Second),
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Storage {
	case StorageMemory:
	case StorageSQL:
		if c.DBDriver != "pgx" && c.DBDriver != "sqlite" {
			return fmt.Errorf("DB_DRIVER %q: want pgx or sqlite", c.DBDriver)
		}
		if c.DBDSN == "" {
			return errors.New("DB_DSN is required for sql storage")
		}
	case StorageDatastore:
		if c.DatastoreProject == "" {
			return errors.New("DATASTORE_PROJECT is required for datastore storage")
		}
	default:
		return fmt.Errorf("STORAGE %q: want memory, sql or datastore", c.Storage)
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}
