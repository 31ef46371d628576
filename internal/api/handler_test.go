//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/shiftbot/internal/domain"
	"github.com/ashureev/shiftbot/internal/engine"
	"github.com/ashureev/shiftbot/internal/exchange"
	"github.com/ashureev/shiftbot/internal/identity"
	"github.com/ashureev/shiftbot/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type fakeExchangeAPI struct {
	order    *exchange.Order
	orderErr error
	rate     *exchange.PairRate
	rateErr  error
}

func (f *fakeExchangeAPI) GetOrderStatus(ctx context.Context, orderID string) (*exchange.Order, error) {
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	return f.order, nil
}

func (f *fakeExchangeAPI) GetPairRate(ctx context.Context, from, to string) (*exchange.PairRate, error) {
	if f.rateErr != nil {
		return nil, f.rateErr
	}
	return f.rate, nil
}

type fakeConversation struct {
	prompt *engine.Prompt
	err    error
}

func (f *fakeConversation) HandleEvent(ctx context.Context, userID string, ev engine.Event) (*engine.Prompt, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.prompt, nil
}

type fakeCatalog struct{}

func (fakeCatalog) Symbols(ctx context.Context, limit int) ([]string, error) {
	return []string{"BTC", "ETH"}, nil
}

func (fakeCatalog) NetworksFor(ctx context.Context, symbol string) ([]string, error) {
	if strings.EqualFold(symbol, "BTC") {
		return []string{"bitcoin", "lightning"}, nil
	}
	return nil, nil
}

func newTestAPI(t *testing.T, ex ExchangeAPI) (http.Handler, store.Repository) {
	t.Helper()
	return newTestAPIWithConv(t, ex, &fakeConversation{prompt: &engine.Prompt{Text: "ok"}})
}

func newTestAPIWithConv(t *testing.T, ex ExchangeAPI, conv Conversation) (http.Handler, store.Repository) {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("Failed to close store: %v", err)
		}
	})

	r := chi.NewRouter()
	NewHandler(repo, ex, fakeCatalog{}, conv).RegisterRoutes(r)
	return r, repo
}

func doRequest(t *testing.T, h http.Handler, userID, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req = req.WithContext(identity.WithIdentity(req.Context(), userID, "default"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

func TestHandleEvent(t *testing.T) {
	h, _ := newTestAPIWithConv(t, &fakeExchangeAPI{}, &fakeConversation{
		prompt: &engine.Prompt{Text: "Which coin do you want to send?", Options: []string{"BTC", "ETH"}},
	})

	w := doRequest(t, h, "user1", http.MethodPost, "/api/events", `{"type":"start","value":"fixed"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var prompt engine.Prompt
	if err := json.NewDecoder(w.Body).Decode(&prompt); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if prompt.Text == "" || len(prompt.Options) != 2 {
		t.Errorf("Unexpected prompt: %+v", prompt)
	}
}

func TestHandleEventErrors(t *testing.T) {
	tests := []struct {
		name     string
		conv     Conversation
		body     string
		wantCode int
	}{
		{
			"unknown event type",
			&fakeConversation{},
			`{"type":"teleport","value":"moon"}`,
			http.StatusBadRequest,
		},
		{
			"not json",
			&fakeConversation{},
			`not json`,
			http.StatusBadRequest,
		},
		{
			"flow error",
			&fakeConversation{err: &engine.FlowError{Code: engine.CodeUnknownCoin, Message: "Unknown coin"}},
			`{"type":"coin","value":"XYZ"}`,
			http.StatusUnprocessableEntity,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestAPIWithConv(t, &fakeExchangeAPI{}, tt.conv)
			w := doRequest(t, h, "user1", http.MethodPost, "/api/events", tt.body)
			if w.Code != tt.wantCode {
				t.Errorf("Expected %d, got %d: %s", tt.wantCode, w.Code, w.Body.String())
			}
		})
	}
}

func seedSwap(t *testing.T, repo store.Repository, orderID, userID string, status domain.SwapStatus) {
	t.Helper()
	now := time.Now()
	err := repo.SaveSwap(context.Background(), &domain.SwapRecord{
		OrderID: orderID, UserID: userID, Kind: domain.KindFixed,
		DepositCoin: "BTC", DepositNetwork: "bitcoin",
		SettleCoin: "ETH", SettleNetwork: "ethereum",
		Status: status, CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("Failed to seed swap: %v", err)
	}
}

func TestListSwaps(t *testing.T) {
	h, repo := newTestAPI(t, &fakeExchangeAPI{})
	seedSwap(t, repo, "order1", "user1", domain.StatusWaiting)
	seedSwap(t, repo, "order2", "other", domain.StatusWaiting)

	w := doRequest(t, h, "user1", http.MethodGet, "/api/swaps", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Swaps []*domain.SwapRecord `json:"swaps"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Swaps) != 1 || resp.Swaps[0].OrderID != "order1" {
		t.Errorf("Expected only user1's swap, got %+v", resp.Swaps)
	}
}

func TestGetSwapLiveStatus(t *testing.T) {
	h, repo := newTestAPI(t, &fakeExchangeAPI{
		order: &exchange.Order{ID: "order1", Status: "pending"},
	})
	seedSwap(t, repo, "order1", "user1", domain.StatusWaiting)

	w := doRequest(t, h, "user1", http.MethodGet, "/api/swaps/order1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp["live"] != true || resp["live_status"] != "pending" {
		t.Errorf("Expected live status pending, got %v", resp)
	}
}

func TestGetSwapFallsBackWhenExchangeDown(t *testing.T) {
	h, repo := newTestAPI(t, &fakeExchangeAPI{
		orderErr: &exchange.TransportError{Op: "GET /shifts/order1"},
	})
	seedSwap(t, repo, "order1", "user1", domain.StatusWaiting)

	w := doRequest(t, h, "user1", http.MethodGet, "/api/swaps/order1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected stored record despite exchange failure, got %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp["live"] != false {
		t.Errorf("Expected live=false, got %v", resp["live"])
	}
}

func TestGetSwapForeignUserHidden(t *testing.T) {
	h, repo := newTestAPI(t, &fakeExchangeAPI{})
	seedSwap(t, repo, "order1", "other", domain.StatusWaiting)

	w := doRequest(t, h, "user1", http.MethodGet, "/api/swaps/order1", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for another user's swap, got %d", w.Code)
	}
}

func TestAlertLifecycle(t *testing.T) {
	h, _ := newTestAPI(t, &fakeExchangeAPI{})

	body := `{"pair":"BTC-bitcoin/ETH-ethereum","target_rate":"15.5","direction":"above"}`
	w := doRequest(t, h, "user1", http.MethodPost, "/api/alerts", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var created domain.PriceAlert
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if created.ID == "" || !created.Active {
		t.Errorf("Unexpected created alert: %+v", created)
	}
	if !created.TargetRate.Equal(decimal.RequireFromString("15.5")) {
		t.Errorf("Expected target rate 15.5, got %s", created.TargetRate)
	}

	w = doRequest(t, h, "user1", http.MethodGet, "/api/alerts", "")
	var listResp struct {
		Alerts []*domain.PriceAlert `json:"alerts"`
	}
	if err := json.NewDecoder(w.Body).Decode(&listResp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(listResp.Alerts) != 1 {
		t.Fatalf("Expected 1 alert, got %d", len(listResp.Alerts))
	}

	// Another user cannot delete it.
	w = doRequest(t, h, "intruder", http.MethodDelete, "/api/alerts/"+created.ID, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for foreign delete, got %d", w.Code)
	}

	w = doRequest(t, h, "user1", http.MethodDelete, "/api/alerts/"+created.ID, "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 for owner delete, got %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(t, h, "user1", http.MethodGet, "/api/alerts", "")
	listResp.Alerts = nil
	if err := json.NewDecoder(w.Body).Decode(&listResp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(listResp.Alerts) != 0 {
		t.Errorf("Expected no alerts after delete, got %d", len(listResp.Alerts))
	}
}

func TestCreateAlertValidation(t *testing.T) {
	h, _ := newTestAPI(t, &fakeExchangeAPI{})

	tests := []struct {
		name string
		body string
	}{
		{"bad pair", `{"pair":"BTC","target_rate":"15","direction":"above"}`},
		{"bad rate", `{"pair":"BTC-bitcoin/ETH-ethereum","target_rate":"-1","direction":"above"}`},
		{"bad direction", `{"pair":"BTC-bitcoin/ETH-ethereum","target_rate":"15","direction":"sideways"}`},
		{"not json", `not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, h, "user1", http.MethodPost, "/api/alerts", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestGetRate(t *testing.T) {
	h, _ := newTestAPI(t, &fakeExchangeAPI{
		rate: &exchange.PairRate{Rate: "15.5", Min: "0.001", Max: "2"},
	})

	w := doRequest(t, h, "user1", http.MethodGet, "/api/rates?pair=BTC-bitcoin/ETH-ethereum", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp["rate"] != "15.5" {
		t.Errorf("Expected rate 15.5, got %v", resp)
	}
}

func TestGetRateUpstreamError(t *testing.T) {
	h, _ := newTestAPI(t, &fakeExchangeAPI{
		rateErr: &exchange.APIError{StatusCode: 400, Message: "Pair not supported"},
	})

	w := doRequest(t, h, "user1", http.MethodGet, "/api/rates?pair=BTC-bitcoin/XYZ-strangenet", "")
	if w.Code != http.StatusBadGateway {
		t.Fatalf("Expected 502, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Pair not supported") {
		t.Errorf("Expected upstream message passed through, got %s", w.Body.String())
	}
}

func TestListCoinsAndNetworks(t *testing.T) {
	h, _ := newTestAPI(t, &fakeExchangeAPI{})

	w := doRequest(t, h, "user1", http.MethodGet, "/api/coins", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	w = doRequest(t, h, "user1", http.MethodGet, "/api/coins/BTC/networks", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	w = doRequest(t, h, "user1", http.MethodGet, "/api/coins/DOGE/networks", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown coin, got %d", w.Code)
	}
}

func TestGetStats(t *testing.T) {
	h, repo := newTestAPI(t, &fakeExchangeAPI{})
	seedSwap(t, repo, "order1", "user1", domain.StatusSettled)
	seedSwap(t, repo, "order2", "user1", domain.StatusWaiting)

	w := doRequest(t, h, "user1", http.MethodGet, "/api/stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var stats domain.UserStats
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if stats.TotalSwaps != 2 || stats.CompletedSwaps != 1 || stats.ActiveSwaps != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}
