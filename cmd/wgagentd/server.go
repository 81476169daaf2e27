package main

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// MARK: startManagementServer
// Starts the /healthz and /readyz HTTP endpoints; the control protocol
// itself runs on its own Unix socket, not this server.
func (app *Application) startManagementServer(ctx context.Context) error {
	if app.cfg.Server.HTTPAddr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", app.health.LivenessHandler)
	mux.HandleFunc("/readyz", app.health.ReadinessHandler)

	app.httpServer = &http.Server{
		Addr:         app.cfg.Server.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	app.waitGroup.Add(1)
	go func() {
		defer app.waitGroup.Done()
		app.logger.Info("starting management server", "addr", app.cfg.Server.HTTPAddr)

		if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error("management server failed", "error", err)
		}
	}()

	app.waitGroup.Add(1)
	go func() {
		defer app.waitGroup.Done()
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()

		if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
			app.logger.Error("management server shutdown failed", "error", err)
		}
	}()

	return nil
}
