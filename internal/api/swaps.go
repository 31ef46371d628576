package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ashureev/shiftbot/internal/domain"
	"github.com/ashureev/shiftbot/internal/identity"
	"github.com/go-chi/chi/v5"
)

const defaultHistoryLimit = 10

// GetMe returns the current user's information.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.repo.GetUser(r.Context(), userID)
	if err != nil || user == nil {
		Error(w, http.StatusUnauthorized, "user not found")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"user_id":   user.UserID,
		"username":  user.Username,
		"last_seen": user.LastSeenAt,
	})
}

// ListSwaps returns the user's swap history, newest first.
func (h *Handler) ListSwaps(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 100 {
			Error(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	swaps, err := h.repo.ListUserSwaps(r.Context(), userID, limit)
	if err != nil {
		slog.Error("failed to list swaps", "user_id", userID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to list swaps")
		return
	}
	if swaps == nil {
		swaps = []*domain.SwapRecord{}
	}
	JSON(w, http.StatusOK, map[string]interface{}{"swaps": swaps})
}

// GetSwap returns one swap, refreshed with the exchange's live status when
// the record is still active. A live fetch failure falls back to the stored
// record.
func (h *Handler) GetSwap(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	orderID := chi.URLParam(r, "orderID")

	sw, err := h.repo.GetSwap(r.Context(), orderID)
	if err != nil {
		slog.Error("failed to load swap", "order_id", orderID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load swap")
		return
	}
	// An unknown order and another user's order look the same.
	if sw == nil || sw.UserID != userID {
		Error(w, http.StatusNotFound, "swap not found")
		return
	}

	resp := map[string]interface{}{"swap": sw}
	if !sw.Status.IsTerminal() {
		order, err := h.ex.GetOrderStatus(r.Context(), orderID)
		if err != nil {
			slog.Warn("live status fetch failed", "order_id", orderID, "error", err)
			resp["live"] = false
		} else {
			resp["live"] = true
			resp["live_status"] = order.Status
		}
	}
	JSON(w, http.StatusOK, resp)
}

// GetStats returns aggregate statistics over the user's swap history.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	stats, err := h.repo.GetUserStats(r.Context(), userID)
	if err != nil {
		slog.Error("failed to load stats", "user_id", userID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	JSON(w, http.StatusOK, stats)
}
