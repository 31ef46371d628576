// Package monitor contains the background reconciliation loops: the swap
// lifecycle monitor, the price alert evaluator and the passive price
// tracker. Each loop runs one sleep-then-scan cycle at a time; cycles never
// overlap with themselves, and the stop signal is honored between cycles.
package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashureev/shiftbot/internal/domain"
	"github.com/ashureev/shiftbot/internal/exchange"
	"github.com/ashureev/shiftbot/internal/notify"
)

// SwapStore is the persistence surface the swap monitor needs.
type SwapStore interface {
	ListActiveSwaps(ctx context.Context) ([]*domain.SwapRecord, error)
	UpdateSwapStatus(ctx context.Context, orderID string, status domain.SwapStatus, depositHash, settleHash, lastError string) (int64, error)
}

// StatusFetcher polls the exchange for an order's current state.
type StatusFetcher interface {
	GetOrderStatus(ctx context.Context, orderID string) (*exchange.Order, error)
}

// SwapMonitor polls the exchange for every in-flight swap and emits exactly
// one notification per observed status transition. The persisted status is
// the comparison baseline, so the monitor is safe to restart: a transition
// already recorded is never re-notified.
type SwapMonitor struct {
	store    SwapStore
	ex       StatusFetcher
	sink     notify.Sink
	interval time.Duration
	timeout  time.Duration
}

// NewSwapMonitor creates a swap lifecycle monitor.
func NewSwapMonitor(store SwapStore, ex StatusFetcher, sink notify.Sink, interval, timeout time.Duration) *SwapMonitor {
	return &SwapMonitor{
		store:    store,
		ex:       ex,
		sink:     sink,
		interval: interval,
		timeout:  timeout,
	}
}

// Run executes cycles on the configured interval until ctx is cancelled.
// The stop signal is checked between cycles; an in-flight exchange call is
// bounded by its own timeout rather than interrupted.
func (m *SwapMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	slog.Info("swap monitor started", "interval", m.interval)

	for {
		select {
		case <-ticker.C:
			m.RunCycle(ctx)
		case <-ctx.Done():
			slog.Info("swap monitor shutting down", "reason", ctx.Err())
			return
		}
	}
}

// RunCycle performs one scan over all non-terminal swaps. A failure on one
// record never aborts the cycle for the others.
func (m *SwapMonitor) RunCycle(ctx context.Context) {
	swaps, err := m.store.ListActiveSwaps(ctx)
	if err != nil {
		slog.Error("swap monitor failed to list active swaps", "error", err)
		return
	}
	if len(swaps) == 0 {
		return
	}

	slog.Debug("swap monitor checking active swaps", "count", len(swaps))
	for _, sw := range swaps {
		m.checkSwap(ctx, sw)
	}
}

func (m *SwapMonitor) checkSwap(ctx context.Context, sw *domain.SwapRecord) {
	callCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	order, err := m.ex.GetOrderStatus(callCtx, sw.OrderID)
	if err != nil {
		// Transient failure: skip this record this cycle. A transport error
		// must never be mistaken for an exchange-side transition.
		slog.Warn("swap monitor failed to fetch order status, skipping",
			"order_id", sw.OrderID, "error", err)
		return
	}

	newStatus := domain.SwapStatus(order.Status)
	if newStatus == sw.Status {
		return
	}
	if sw.Status.IsTerminal() {
		slog.Warn("swap monitor ignoring status change on terminal record",
			"order_id", sw.OrderID, "status", sw.Status, "remote_status", newStatus)
		return
	}

	rows, err := m.store.UpdateSwapStatus(ctx, sw.OrderID, newStatus,
		order.DepositHash, order.SettleHash, order.ErrorMessage)
	if err != nil {
		slog.Error("swap monitor failed to persist status transition",
			"order_id", sw.OrderID, "status", newStatus, "error", err)
		return
	}
	if rows == 0 {
		// Another writer recorded a terminal status first; the transition
		// (and its notification) belongs to that writer.
		return
	}

	slog.Info("swap status transition",
		"order_id", sw.OrderID, "from", sw.Status, "to", newStatus)

	// Persist happens-before notify: after a crash the recorded status is
	// the sole source of truth for what was already notified.
	if err := m.sink.Send(ctx, sw.UserID, statusMessage(sw, newStatus, order)); err != nil {
		slog.Warn("swap monitor failed to notify user",
			"user_id", sw.UserID, "order_id", sw.OrderID, "error", err)
	}
}
