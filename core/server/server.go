// Package server bootstraps the HTTP listener: binding the configured
// address, wiring keep-alive, and shutting down cleanly on SIGINT/SIGTERM.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/logger"
)

// Config is the subset of core/config.Config the HTTP listener needs.
type Config struct {
	ListenAddresses string
	KeepAlive       int
}

// ListenAndServe starts h on cfg.ListenAddresses and blocks until the
// process receives SIGINT/SIGTERM, then drains in-flight requests
// before returning.
func ListenAndServe(cfg Config, h http.Handler) error {
	srv := &http.Server{
		Addr:        cfg.ListenAddresses,
		Handler:     h,
		IdleTimeout: time.Duration(cfg.KeepAlive) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("server: listening on %s", cfg.ListenAddresses)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Infof("server: received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	return <-errCh
}
