package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/vk/matrixci/internal/ctxlog"
)

// startHealthcheckServer runs a minimal HTTP health endpoint so a hosting
// scheduler can probe a long matrix run. It blocks; callers start it in a
// goroutine. The server lives for the duration of the process.
func (a *App) startHealthcheckServer(ctx context.Context, port int) {
	logger := ctxlog.FromContext(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr)
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "OK")
	})

	addr := fmt.Sprintf(":%d", port)
	logger.Info("🩺 Health check server starting", "address", fmt.Sprintf("http://localhost%s/health", addr))
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Health check server failed unexpectedly", "error", err)
	}
}
