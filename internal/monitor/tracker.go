package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashureev/shiftbot/internal/domain"
	"github.com/shopspring/decimal"
)

// RateSampleStore persists rate observations.
type RateSampleStore interface {
	SaveRateSample(ctx context.Context, sample *domain.RateSample) error
}

// RateTracker records market rates for a configured set of pairs so the
// history endpoint has data to serve.
type RateTracker struct {
	store    RateSampleStore
	rates    RateFetcher
	pairs    []domain.Pair
	interval time.Duration
	timeout  time.Duration
}

func NewRateTracker(store RateSampleStore, rates RateFetcher, pairs []domain.Pair, interval time.Duration) *RateTracker {
	return &RateTracker{
		store:    store,
		rates:    rates,
		pairs:    pairs,
		interval: interval,
		timeout:  15 * time.Second,
	}
}

// Run samples each tracked pair on a fixed interval until ctx is cancelled.
func (t *RateTracker) Run(ctx context.Context) {
	if len(t.pairs) == 0 {
		slog.Info("rate tracker disabled, no pairs configured")
		return
	}
	slog.Info("rate tracker started", "pairs", len(t.pairs), "interval", t.interval)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("rate tracker stopped")
			return
		case <-ticker.C:
			t.RunCycle(ctx)
		}
	}
}

// RunCycle samples every tracked pair once. A failed pair is logged and
// skipped; the rest of the cycle continues.
func (t *RateTracker) RunCycle(ctx context.Context) {
	for _, pair := range t.pairs {
		rate, err := t.fetchRate(ctx, pair)
		if err != nil {
			slog.Warn("rate sample failed", "pair", pair.String(), "error", err)
			continue
		}
		sample := &domain.RateSample{
			Pair:       pair,
			Rate:       rate,
			ObservedAt: time.Now().UTC(),
		}
		if err := t.store.SaveRateSample(ctx, sample); err != nil {
			slog.Error("failed to save rate sample", "pair", pair.String(), "error", err)
		}
	}
}

func (t *RateTracker) fetchRate(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	pr, err := t.rates.GetPairRate(ctx, pair.From(), pair.To())
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(pr.Rate)
}
