package handlers

import (
	"net/http"

	"github.com/m1z23r/drift/pkg/drift"
)

type HealthHandler struct {
	sessions SessionServiceInterface
}

func NewHealthHandler(sessions SessionServiceInterface) *HealthHandler {
	return &HealthHandler{sessions: sessions}
}

func (h *HealthHandler) Health(c *drift.Context) {
	snap := h.sessions.Snapshot()
	_ = c.JSON(200, map[string]any{
		"status":        "ok",
		"sessionLoaded": !snap.IsLoading,
	})
}

// Metrics serves a plain http.Handler, the Prometheus exporter, from a drift route.
func Metrics(handler http.Handler) drift.HandlerFunc {
	return func(c *drift.Context) {
		handler.ServeHTTP(c.Response, c.Request)
	}
}
