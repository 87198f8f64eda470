package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/vk/batchgrid/internal/ctxlog"
	"github.com/vk/batchgrid/internal/dispatcher"
)

// healthHandler reports the dispatch progress as JSON.
func (a *App) healthHandler(ctx context.Context, progress func() dispatcher.Progress) http.HandlerFunc {
	logger := ctxlog.FromContext(ctx)
	return func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(progress()); err != nil {
			logger.Warn("Failed to write health response.", "error", err)
		}
	}
}

// startHealthcheckServer serves /health for d when a port is configured. The
// returned function shuts the server down.
func (a *App) startHealthcheckServer(ctx context.Context, d *dispatcher.Dispatcher) func() {
	logger := ctxlog.FromContext(ctx)
	if a.config.HealthcheckPort <= 0 {
		logger.Debug("Health check server not started: disabled")
		return func() {}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", a.healthHandler(ctx, d.Progress))

	addr := fmt.Sprintf(":%d", a.config.HealthcheckPort)
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		logger.Info("🩺 Health check server starting", "address", fmt.Sprintf("http://localhost%s/health", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Health check server failed unexpectedly", "error", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Health check server shutdown failed", "error", err)
			return
		}
		logger.Debug("Health check server shut down gracefully.")
	}
}
