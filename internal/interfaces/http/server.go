package http

import (
	"context"
	stderrors "errors"
	"fmt"
	nethttp "net/http"
	"time"

	"github.com/clauselens/clauselens/internal/config"
	"github.com/clauselens/clauselens/internal/infrastructure/monitoring/logging"
)

// Server wraps net/http.Server with graceful shutdown.
type Server struct {
	srv             *nethttp.Server
	log             logging.Logger
	shutdownTimeout time.Duration
}

// NewServer builds the HTTP server from config around handler.
func NewServer(cfg config.ServerConfig, handler nethttp.Handler, log logging.Logger) *Server {
	if log == nil {
		log = logging.NewNopLogger()
	}
	shutdownTimeout := cfg.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 15 * time.Second
	}

	return &Server{
		srv: &nethttp.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		log:             log,
		shutdownTimeout: shutdownTimeout,
	}
}

// Start serves until the listener closes.  It returns nil on a clean
// shutdown triggered by Stop.
func (s *Server) Start() error {
	s.log.Info("http server starting", logging.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !stderrors.Is(err, nethttp.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop drains in-flight requests within the configured shutdown timeout.
func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()

	s.log.Info("http server stopping")
	return s.srv.Shutdown(ctx)
}

// Addr returns the listen address.
func (s *Server) Addr() string { return s.srv.Addr }
