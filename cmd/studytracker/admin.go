package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"example.com/studytracker/internal/app"
	"example.com/studytracker/internal/seed"
	"example.com/studytracker/internal/usecase"
)

type migrator interface {
	Migrate(ctx context.Context) error
}

func migrateCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the SQL schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := f.load(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			store, err := app.OpenStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeQuietly(store)
			m, ok := store.(migrator)
			if !ok {
				log.Info().Str("storage", cfg.Storage).Msg("nothing to migrate")
				return nil
			}
			if err := m.Migrate(cmd.Context()); err != nil {
				return err
			}
			log.Info().Str("driver", cfg.DBDriver).Msg("schema up to date")
			return nil
		},
	}
}

// ownerSession opens the configured store and loads the owner's tasks.
func ownerSession(cmd *cobra.Command, f *rootFlags, owner string) (*usecase.Session, *app.App, error) {
	if owner == "" {
		return nil, nil, errors.New("--owner is required")
	}
	cfg, log, err := f.load(cmd)
	if err != nil {
		return nil, nil, err
	}
	a, err := app.New(cmd.Context(), cfg, log)
	if err != nil {
		return nil, nil, err
	}
	user, err := a.Identity.Resolve(cmd.Context(), owner)
	if err != nil {
		_ = a.Close()
		return nil, nil, err
	}
	s, err := a.Sessions.For(cmd.Context(), user.ID)
	if err != nil {
		_ = a.Close()
		return nil, nil, err
	}
	return s, a, nil
}

func seedCmd(f *rootFlags) *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Add the starter tasks to an owner's list",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, a, err := ownerSession(cmd, f, owner)
			if err != nil {
				return err
			}
			defer a.Close()
			created, err := seed.Load(cmd.Context(), s)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %d tasks for %s\n", len(created), owner)
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner id")
	return cmd
}

func statsCmd(f *rootFlags) *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print an owner's dashboard as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, a, err := ownerSession(cmd, f, owner)
			if err != nil {
				return err
			}
			defer a.Close()
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(s.Summary())
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner id")
	return cmd
}

func closeQuietly(v any) {
	if c, ok := v.(io.Closer); ok {
		_ = c.Close()
	}
}
