package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashureev/shiftbot/internal/domain"
	"github.com/ashureev/shiftbot/internal/exchange"
	"github.com/ashureev/shiftbot/internal/notify"
	"github.com/shopspring/decimal"
)

// AlertStore is the subset of the repository the evaluator needs.
type AlertStore interface {
	ListActiveAlerts(ctx context.Context) ([]*domain.PriceAlert, error)
	DeactivateAlert(ctx context.Context, alertID string) (int64, error)
}

// RateFetcher retrieves the current market rate for a pair.
type RateFetcher interface {
	GetPairRate(ctx context.Context, from, to string) (*exchange.PairRate, error)
}

// AlertEvaluator periodically checks active price alerts against market
// rates and fires each alert at most once. An alert is deactivated before
// its notification is sent, so a crash between the two steps loses the
// message rather than duplicating it.
type AlertEvaluator struct {
	store    AlertStore
	rates    RateFetcher
	sink     notify.Sink
	interval time.Duration
	timeout  time.Duration
}

func NewAlertEvaluator(store AlertStore, rates RateFetcher, sink notify.Sink, interval time.Duration) *AlertEvaluator {
	return &AlertEvaluator{
		store:    store,
		rates:    rates,
		sink:     sink,
		interval: interval,
		timeout:  15 * time.Second,
	}
}

// Run executes evaluation cycles until ctx is cancelled.
func (e *AlertEvaluator) Run(ctx context.Context) {
	slog.Info("alert evaluator started", "interval", e.interval)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("alert evaluator stopped")
			return
		case <-ticker.C:
			e.RunCycle(ctx)
		}
	}
}

// RunCycle evaluates every active alert once. Rates are fetched once per
// distinct pair within a cycle.
func (e *AlertEvaluator) RunCycle(ctx context.Context) {
	alerts, err := e.store.ListActiveAlerts(ctx)
	if err != nil {
		slog.Error("failed to list active alerts", "error", err)
		return
	}
	if len(alerts) == 0 {
		return
	}

	rates := make(map[string]decimal.Decimal)
	for _, alert := range alerts {
		rate, ok := rates[alert.Pair.String()]
		if !ok {
			fetched, err := e.fetchRate(ctx, alert.Pair)
			if err != nil {
				slog.Warn("rate fetch failed, skipping pair",
					"pair", alert.Pair.String(), "error", err)
				continue
			}
			rate = fetched
			rates[alert.Pair.String()] = rate
		}

		if !alert.Triggered(rate) {
			continue
		}
		e.fire(ctx, alert, rate)
	}
}

func (e *AlertEvaluator) fetchRate(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	pr, err := e.rates.GetPairRate(ctx, pair.From(), pair.To())
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(pr.Rate)
}

// fire deactivates the alert and, only when this process won the
// deactivation, sends the notification.
func (e *AlertEvaluator) fire(ctx context.Context, alert *domain.PriceAlert, rate decimal.Decimal) {
	rows, err := e.store.DeactivateAlert(ctx, alert.ID)
	if err != nil {
		slog.Error("failed to deactivate alert", "alert_id", alert.ID, "error", err)
		return
	}
	if rows == 0 {
		return
	}

	slog.Info("price alert triggered",
		"alert_id", alert.ID, "user_id", alert.UserID,
		"pair", alert.Pair.String(), "rate", rate.String())

	if err := e.sink.Send(ctx, alert.UserID, alertMessage(alert, rate)); err != nil {
		slog.Warn("alert notification failed", "alert_id", alert.ID, "error", err)
	}
}
