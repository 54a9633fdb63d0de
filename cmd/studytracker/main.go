package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"example.com/studytracker/internal/config"
	"example.com/studytracker/internal/logger"
)

var Version = "dev"

type rootFlags struct {
	envFile  string
	logLevel string
	storage  string
	dbDriver string
	dbDSN    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f rootFlags
	root := &cobra.Command{
		Use:           "studytracker",
		Short:         "Study task tracker API and Telegram bot",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&f.envFile, "env-file", ".env", "dotenv file merged into the environment")
	pf.StringVar(&f.logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	pf.StringVar(&f.storage, "storage", "", "memory, sql or datastore (overrides STORAGE)")
	pf.StringVar(&f.dbDriver, "db-driver", "", "pgx or sqlite (overrides DB_DRIVER)")
	pf.StringVar(&f.dbDSN, "db-dsn", "", "database DSN (overrides DB_DSN)")

	serve := serveCmd(&f)
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())
	root.AddCommand(serve, migrateCmd(&f), seedCmd(&f), statsCmd(&f))
	return root
}

// load reads the config and applies the flags that were set explicitly.
func (f *rootFlags) load(cmd *cobra.Command) (config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(f.envFile)
	if err != nil {
		return config.Config{}, zerolog.Nop(), err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if flags.Changed("storage") {
		cfg.Storage = f.storage
	}
	if flags.Changed("db-driver") {
		cfg.DBDriver = f.dbDriver
	}
	if flags.Changed("db-dsn") {
		cfg.DBDSN = f.dbDSN
	}
	if flags.Changed("http") {
		cfg.HTTPAddr, _ = flags.GetString("http")
	}
	log := logger.New(cfg.LogLevel, cfg.Dev(), os.Stderr)
	return cfg, log, nil
}
