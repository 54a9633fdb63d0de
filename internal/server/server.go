package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

type Server struct {
	http *http.Server
	log  zerolog.Logger
}

func New(addr string, h http.Handler, log zerolog.Logger) *Server {
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           h,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log.With().Str("component", "http").Logger(),
	}
}

// Start blocks serving until Stop; it then returns http.ErrServerClosed.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("listening")
	return s.http.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.log.Info().Msg("shutting down")
	return s.http.Shutdown(ctx)
}
