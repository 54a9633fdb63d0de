package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"example.com/studytracker/internal/app"
	"example.com/studytracker/internal/server"
)

func serveCmd(f *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and, with TELEGRAM_TOKEN set, the bot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := f.load(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			a, err := app.New(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			bot, err := a.Bot()
			if err != nil {
				return err
			}
			botDone := make(chan struct{})
			if bot != nil {
				go func() {
					defer close(botDone)
					if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
						log.Error().Err(err).Msg("telegram bot stopped")
					}
				}()
			} else {
				close(botDone)
			}

			srv := server.New(cfg.HTTPAddr, a.Router, log)
			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()
			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(stop)
			select {
			case sig := <-stop:
				log.Info().Str("signal", sig.String()).Msg("shutting down")
			case err := <-errCh:
				cancel()
				<-botDone
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			}
			cancel()
			shutdownCtx, stopTimeout := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer stopTimeout()
			if err := srv.Stop(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("shutdown")
			}
			if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("server")
			}
			<-botDone
			return nil
		},
	}
	cmd.Flags().String("http", ":8080", "listen address (overrides HTTP_ADDR)")
	return cmd
}
