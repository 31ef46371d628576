package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/shiftbot/internal/domain"
	"github.com/ashureev/shiftbot/internal/exchange"
	"github.com/ashureev/shiftbot/internal/identity"
	"github.com/go-chi/chi/v5"
)

const defaultHistoryWindow = 24 * time.Hour

// ListCoins returns the coin symbols available for swapping.
func (h *Handler) ListCoins(w http.ResponseWriter, r *http.Request) {
	symbols, err := h.catalog.Symbols(r.Context(), 0)
	if err != nil {
		slog.Error("failed to list coins", "error", err)
		Error(w, http.StatusBadGateway, "coin listing unavailable")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"coins": symbols})
}

// ListNetworks returns the networks one coin is available on.
func (h *Handler) ListNetworks(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	networks, err := h.catalog.NetworksFor(r.Context(), symbol)
	if err != nil {
		slog.Error("failed to look up coin", "symbol", symbol, "error", err)
		Error(w, http.StatusBadGateway, "coin listing unavailable")
		return
	}
	if len(networks) == 0 {
		Error(w, http.StatusNotFound, "unknown coin")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"networks": networks})
}

// GetRate returns the live market rate for a pair.
func (h *Handler) GetRate(w http.ResponseWriter, r *http.Request) {
	pair, err := domain.ParsePair(r.URL.Query().Get("pair"))
	if err != nil {
		Error(w, http.StatusBadRequest, "pair must look like BTC-bitcoin/ETH-ethereum")
		return
	}

	pr, err := h.ex.GetPairRate(r.Context(), pair.From(), pair.To())
	if err != nil {
		if ae, ok := exchange.AsAPIError(err); ok {
			Error(w, http.StatusBadGateway, ae.Message)
			return
		}
		slog.Warn("rate fetch failed", "pair", pair.String(), "error", err)
		Error(w, http.StatusBadGateway, "rate unavailable")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"pair": pair.String(),
		"rate": pr.Rate,
		"min":  pr.Min,
		"max":  pr.Max,
	})
}

// GetRateHistory returns the recorded samples for a tracked pair.
func (h *Handler) GetRateHistory(w http.ResponseWriter, r *http.Request) {
	pair, err := domain.ParsePair(r.URL.Query().Get("pair"))
	if err != nil {
		Error(w, http.StatusBadRequest, "pair must look like BTC-bitcoin/ETH-ethereum")
		return
	}

	window := defaultHistoryWindow
	if raw := r.URL.Query().Get("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			Error(w, http.StatusBadRequest, "window must be a positive duration")
			return
		}
		window = d
	}

	samples, err := h.repo.ListRateHistory(r.Context(), pair, time.Now().Add(-window))
	if err != nil {
		slog.Error("failed to load rate history",
			"pair", pair.String(), "user_id", identity.UserIDFromContext(r.Context()), "error", err)
		Error(w, http.StatusInternalServerError, "failed to load rate history")
		return
	}
	if samples == nil {
		samples = []*domain.RateSample{}
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"pair":    pair.String(),
		"samples": samples,
	})
}
