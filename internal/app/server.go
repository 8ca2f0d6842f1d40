package app

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

// Run serves HTTP until SIGINT, SIGTERM or SIGHUP arrives or the listener
// fails, then shuts everything down within app.server.shutdown_timeout_seconds.
func (a *App) Run() error {
	l, err := net.Listen("tcp", a.httpServer.Addr)
	if err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(a.ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	slog.Info("http server listening", "address", l.Addr().String())
	errChan := a.Serve(l)

	select {
	case err = <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	case <-sigCtx.Done():
		slog.Info("shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.config.GetSecond("app.server.shutdown_timeout_seconds"))
	defer cancel()
	a.Stop(ctx)

	slog.Info("application gracefully shutdown")

	return err
}

// Serve runs the HTTP server on l. The returned channel yields the serve
// error once and is then closed.
func (a *App) Serve(l net.Listener) <-chan error {
	errChan := make(chan error, 1)

	go func() {
		errChan <- a.httpServer.Serve(l)
		close(errChan)
	}()

	return errChan
}

// Stop cancels background work, drains in-flight requests and goroutines, then
// runs the closers in registration order.
func (a *App) Stop(ctx context.Context) {
	a.cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to shutdown http server", "error", err)
	}

	if err := a.goroutine.Wait(); err != nil {
		slog.ErrorContext(ctx, "background goroutine failed", "error", err)
	}

	for _, closer := range a.closers {
		if err := closer.fn(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to close resources", "name", closer.name, "error", err)
		}
	}
}
