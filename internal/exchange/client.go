// Package exchange is a stateless request/response façade over the remote
// exchange's REST API. All calls may fail transiently; transport failures and
// application rejections are reported as distinct error types.
package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultTimeout = 30 * time.Second

	// The public API allows a few requests per second per client; the
	// limiter keeps bursts from background loops inside that budget.
	requestsPerSecond = 5
	requestBurst      = 5
)

// Client talks to the exchange API. It holds no mutable state beyond the
// HTTP connection pool and may be shared across components.
type Client struct {
	baseURL        string
	secret         string
	affiliateID    string
	commissionRate string
	httpClient     *http.Client
	limiter        *rate.Limiter
}

// Options configures a Client.
type Options struct {
	BaseURL        string
	Secret         string
	AffiliateID    string
	CommissionRate string
	Timeout        time.Duration
}

// NewClient creates an exchange API client.
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:        opts.BaseURL,
		secret:         opts.Secret,
		affiliateID:    opts.AffiliateID,
		commissionRate: opts.CommissionRate,
		httpClient:     &http.Client{Timeout: timeout},
		limiter:        rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
	}
}

type apiErrorEnvelope struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// do performs one API request. Network failures come back as *TransportError,
// non-2xx responses as *APIError.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &TransportError{Op: method + " " + path, Err: err}
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.secret != "" {
		req.Header.Set("x-sideshift-secret", c.secret)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var envelope apiErrorEnvelope
		msg := "unknown error"
		if decErr := json.NewDecoder(resp.Body).Decode(&envelope); decErr == nil && envelope.Error.Message != "" {
			msg = envelope.Error.Message
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &TransportError{Op: method + " " + path, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}

// Ping performs a lightweight reachability check against the exchange.
// The permissions endpoint returns a tiny body and needs no credentials.
func (c *Client) Ping(ctx context.Context) error {
	var perms struct {
		CreateShift bool `json:"createShift"`
	}
	return c.do(ctx, http.MethodGet, "/permissions", nil, nil, &perms)
}

// ListCoins fetches the coins and networks available for swapping.
func (c *Client) ListCoins(ctx context.Context) ([]Coin, error) {
	var coins []Coin
	if err := c.do(ctx, http.MethodGet, "/coins", nil, nil, &coins); err != nil {
		return nil, err
	}
	return coins, nil
}

// GetPairRate fetches the current rate and deposit bounds for a pair.
// from and to use the exchange's coin-network notation, e.g. "BTC-bitcoin".
func (c *Client) GetPairRate(ctx context.Context, from, to string) (*PairRate, error) {
	params := url.Values{}
	if c.affiliateID != "" {
		params.Set("affiliateId", c.affiliateID)
	}
	var pr PairRate
	if err := c.do(ctx, http.MethodGet, "/pair/"+from+"/"+to, params, nil, &pr); err != nil {
		return nil, err
	}
	return &pr, nil
}

// RequestQuote asks for a fixed-rate quote for the given deposit amount.
func (c *Client) RequestQuote(ctx context.Context, depositCoin, depositNetwork, settleCoin, settleNetwork, depositAmount string) (*Quote, error) {
	body := map[string]any{
		"depositCoin":    depositCoin,
		"depositNetwork": depositNetwork,
		"settleCoin":     settleCoin,
		"settleNetwork":  settleNetwork,
		"depositAmount":  depositAmount,
		"affiliateId":    c.affiliateID,
		"commissionRate": c.commissionRate,
	}
	var q Quote
	if err := c.do(ctx, http.MethodPost, "/quotes", nil, body, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// CreateFixedOrder creates a fixed-rate order against an existing quote.
// refundAddress may be empty.
func (c *Client) CreateFixedOrder(ctx context.Context, quoteID, settleAddress, refundAddress string) (*Order, error) {
	body := map[string]any{
		"quoteId":        quoteID,
		"settleAddress":  settleAddress,
		"affiliateId":    c.affiliateID,
		"commissionRate": c.commissionRate,
	}
	if refundAddress != "" {
		body["refundAddress"] = refundAddress
	}
	var o Order
	if err := c.do(ctx, http.MethodPost, "/shifts/fixed", nil, body, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateVariableOrder creates a variable-rate order. The settlement amount is
// computed from the market rate when the deposit arrives.
func (c *Client) CreateVariableOrder(ctx context.Context, depositCoin, depositNetwork, settleCoin, settleNetwork, settleAddress, refundAddress string) (*Order, error) {
	body := map[string]any{
		"depositCoin":    depositCoin,
		"depositNetwork": depositNetwork,
		"settleCoin":     settleCoin,
		"settleNetwork":  settleNetwork,
		"settleAddress":  settleAddress,
		"affiliateId":    c.affiliateID,
		"commissionRate": c.commissionRate,
	}
	if refundAddress != "" {
		body["refundAddress"] = refundAddress
	}
	var o Order
	if err := c.do(ctx, http.MethodPost, "/shifts/variable", nil, body, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// GetOrderStatus fetches the current state of an order.
func (c *Client) GetOrderStatus(ctx context.Context, orderID string) (*Order, error) {
	var o Order
	if err := c.do(ctx, http.MethodGet, "/shifts/"+orderID, nil, nil, &o); err != nil {
		return nil, err
	}
	return &o, nil
}
