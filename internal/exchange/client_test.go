package exchange

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	client := NewClient(Options{
		BaseURL:        srv.URL,
		Secret:         "test-secret",
		AffiliateID:    "aff-1",
		CommissionRate: "0.5",
	})
	return client, srv
}

func TestGetPairRate(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pair/BTC-bitcoin/ETH-ethereum" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("x-sideshift-secret"); got != "test-secret" {
			t.Errorf("Expected secret header, got %q", got)
		}
		if got := r.URL.Query().Get("affiliateId"); got != "aff-1" {
			t.Errorf("Expected affiliateId param, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(PairRate{Rate: "15.5", Min: "0.001", Max: "2"}); err != nil {
			t.Fatalf("Failed to encode response: %v", err)
		}
	})
	defer srv.Close()

	pr, err := client.GetPairRate(context.Background(), "BTC-bitcoin", "ETH-ethereum")
	if err != nil {
		t.Fatalf("GetPairRate failed: %v", err)
	}
	if pr.Rate != "15.5" {
		t.Errorf("Expected rate 15.5, got %s", pr.Rate)
	}
}

func TestPing(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/permissions" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(`{"createShift":true}`)); err != nil {
			t.Fatalf("Failed to write response: %v", err)
		}
	})
	defer srv.Close()

	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}

func TestPingUnreachable(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	err := client.Ping(context.Background())
	if !IsTransport(err) {
		t.Fatalf("Expected transport error against a dead server, got %v", err)
	}
}

func TestRequestQuoteAPIError(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		if _, err := w.Write([]byte(`{"error":{"message":"Amount too low"}}`)); err != nil {
			t.Fatalf("Failed to write response: %v", err)
		}
	})
	defer srv.Close()

	_, err := client.RequestQuote(context.Background(), "BTC", "bitcoin", "ETH", "ethereum", "0.0000001")
	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	ae, ok := AsAPIError(err)
	if !ok {
		t.Fatalf("Expected APIError, got %T: %v", err, err)
	}
	if ae.Message != "Amount too low" {
		t.Errorf("Expected verbatim upstream message, got %q", ae.Message)
	}
	if ae.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", ae.StatusCode)
	}
	if IsTransport(err) {
		t.Error("APIError must not classify as transport")
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	client := NewClient(Options{BaseURL: srv.URL})
	_, err := client.ListCoins(context.Background())
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !IsTransport(err) {
		t.Errorf("Expected transport error, got %T: %v", err, err)
	}
	if _, ok := AsAPIError(err); ok {
		t.Error("Transport error must not classify as APIError")
	}
}

func TestCreateFixedOrderOmitsEmptyRefund(t *testing.T) {
	var body map[string]any
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/shifts/fixed" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("Failed to decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(Order{ID: "order1", Status: "waiting"}); err != nil {
			t.Fatalf("Failed to encode response: %v", err)
		}
	})
	defer srv.Close()

	order, err := client.CreateFixedOrder(context.Background(), "quote1", "0xabc", "")
	if err != nil {
		t.Fatalf("CreateFixedOrder failed: %v", err)
	}
	if order.ID != "order1" {
		t.Errorf("Expected order1, got %s", order.ID)
	}
	if _, present := body["refundAddress"]; present {
		t.Error("Empty refund address must be omitted from request body")
	}
	if body["quoteId"] != "quote1" {
		t.Errorf("Expected quoteId in body, got %v", body["quoteId"])
	}
}

func TestGetOrderStatusMalformedResponse(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("not json")); err != nil {
			t.Fatalf("Failed to write response: %v", err)
		}
	})
	defer srv.Close()

	_, err := client.GetOrderStatus(context.Background(), "order1")
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !IsTransport(err) {
		t.Errorf("Malformed body should classify as transport error, got %T: %v", err, err)
	}
}
