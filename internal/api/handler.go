// Package api provides the REST surface of the swap bot.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ashureev/shiftbot/internal/exchange"
	"github.com/ashureev/shiftbot/internal/store"
	"github.com/go-chi/chi/v5"
)

// ExchangeAPI is the subset of the exchange client the REST handlers need.
type ExchangeAPI interface {
	GetOrderStatus(ctx context.Context, orderID string) (*exchange.Order, error)
	GetPairRate(ctx context.Context, from, to string) (*exchange.PairRate, error)
}

// CoinCatalog lists the available coins and their networks.
type CoinCatalog interface {
	Symbols(ctx context.Context, limit int) ([]string, error)
	NetworksFor(ctx context.Context, symbol string) ([]string, error)
}

// Handler provides common handler dependencies.
type Handler struct {
	repo    store.Repository
	ex      ExchangeAPI
	catalog CoinCatalog
	conv    Conversation
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, ex ExchangeAPI, catalog CoinCatalog, conv Conversation) *Handler {
	return &Handler{
		repo:    repo,
		ex:      ex,
		catalog: catalog,
		conv:    conv,
	}
}

// RegisterRoutes registers the REST routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/events", h.HandleEvent)
		r.Get("/me", h.GetMe)
		r.Get("/coins", h.ListCoins)
		r.Get("/coins/{symbol}/networks", h.ListNetworks)
		r.Get("/swaps", h.ListSwaps)
		r.Get("/swaps/{orderID}", h.GetSwap)
		r.Get("/stats", h.GetStats)
		r.Get("/rates", h.GetRate)
		r.Get("/rates/history", h.GetRateHistory)
		r.Post("/alerts", h.CreateAlert)
		r.Get("/alerts", h.ListAlerts)
		r.Delete("/alerts/{alertID}", h.DeleteAlert)
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
