package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// ShutdownHook is a cleanup function called during graceful shutdown,
// after the HTTP server has stopped accepting connections
type ShutdownHook func(ctx context.Context) error

// Run starts the server and blocks until SIGINT or SIGTERM, then shuts
// it down gracefully and runs the hooks in order
func (s *Server) Run(timeout time.Duration, hooks ...ShutdownHook) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		s.log.Info("signal received", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		s.log.Error("shutdown failed", zap.Error(err))
		return err
	}

	for _, hook := range hooks {
		if err := hook(ctx); err != nil {
			s.log.Error("shutdown hook failed", zap.Error(err))
		}
	}

	s.log.Info("server stopped")
	return nil
}
