package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/shiftbot/internal/domain"
	"github.com/ashureev/shiftbot/internal/identity"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const maxActiveAlertsPerUser = 20

type createAlertRequest struct {
	Pair       string `json:"pair"`
	TargetRate string `json:"target_rate"`
	Direction  string `json:"direction"`
}

// CreateAlert registers a one-shot price alert for the current user.
func (h *Handler) CreateAlert(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	var req createAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pair, err := domain.ParsePair(req.Pair)
	if err != nil {
		Error(w, http.StatusBadRequest, "pair must look like BTC-bitcoin/ETH-ethereum")
		return
	}
	target, err := decimal.NewFromString(req.TargetRate)
	if err != nil || !target.IsPositive() {
		Error(w, http.StatusBadRequest, "target_rate must be a positive number")
		return
	}
	direction := domain.AlertDirection(req.Direction)
	if !direction.Valid() {
		Error(w, http.StatusBadRequest, "direction must be above or below")
		return
	}

	existing, err := h.repo.ListUserAlerts(r.Context(), userID)
	if err != nil {
		slog.Error("failed to list alerts", "user_id", userID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to create alert")
		return
	}
	if len(existing) >= maxActiveAlertsPerUser {
		Error(w, http.StatusConflict, "too many active alerts")
		return
	}

	alert := &domain.PriceAlert{
		ID:         uuid.NewString(),
		UserID:     userID,
		Pair:       pair,
		TargetRate: target,
		Direction:  direction,
		Active:     true,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.repo.CreateAlert(r.Context(), alert); err != nil {
		slog.Error("failed to create alert", "user_id", userID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to create alert")
		return
	}

	slog.Info("alert created", "alert_id", alert.ID, "user_id", userID, "pair", pair.String())
	JSON(w, http.StatusCreated, alert)
}

// ListAlerts returns the user's active alerts.
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	alerts, err := h.repo.ListUserAlerts(r.Context(), userID)
	if err != nil {
		slog.Error("failed to list alerts", "user_id", userID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to list alerts")
		return
	}
	if alerts == nil {
		alerts = []*domain.PriceAlert{}
	}
	JSON(w, http.StatusOK, map[string]interface{}{"alerts": alerts})
}

// DeleteAlert deactivates one of the user's alerts.
func (h *Handler) DeleteAlert(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	alertID := chi.URLParam(r, "alertID")

	// Ownership is checked before deactivation so users cannot cancel each
	// other's alerts by guessing IDs.
	alerts, err := h.repo.ListUserAlerts(r.Context(), userID)
	if err != nil {
		slog.Error("failed to list alerts", "user_id", userID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to delete alert")
		return
	}
	owned := false
	for _, a := range alerts {
		if a.ID == alertID {
			owned = true
			break
		}
	}
	if !owned {
		Error(w, http.StatusNotFound, "alert not found")
		return
	}

	rows, err := h.repo.DeactivateAlert(r.Context(), alertID)
	if err != nil {
		slog.Error("failed to deactivate alert", "alert_id", alertID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to delete alert")
		return
	}
	if rows == 0 {
		Error(w, http.StatusNotFound, "alert not found")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
