package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ashureev/shiftbot/internal/store"
	"github.com/go-chi/chi/v5"
)

// exchangePingTimeout bounds the upstream reachability check so a hung
// exchange cannot stall the health endpoint.
const exchangePingTimeout = 3 * time.Second

// ExchangePinger reports whether the exchange API answers at all.
type ExchangePinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports service liveness, database reachability, and
// exchange reachability.
type HealthHandler struct {
	repo    store.Repository
	ex      ExchangePinger
	started time.Time
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(repo store.Repository, ex ExchangePinger) *HealthHandler {
	return &HealthHandler{repo: repo, ex: ex, started: time.Now()}
}

// RegisterHealth registers the health route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/api/health", h.Health)
}

// Health returns 200 when both the database and the exchange are reachable,
// 503 with per-dependency detail otherwise.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":         "ok",
		"database":       "ok",
		"exchange":       "ok",
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
	}
	degraded := false

	if err := h.repo.Ping(r.Context()); err != nil {
		resp["database"] = "unreachable"
		degraded = true
	}

	pingCtx, cancel := context.WithTimeout(r.Context(), exchangePingTimeout)
	defer cancel()
	if err := h.ex.Ping(pingCtx); err != nil {
		resp["exchange"] = "unreachable"
		degraded = true
	}

	if degraded {
		resp["status"] = "degraded"
		JSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	JSON(w, http.StatusOK, resp)
}
