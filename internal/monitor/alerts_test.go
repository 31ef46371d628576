package monitor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/shiftbot/internal/domain"
	"github.com/ashureev/shiftbot/internal/exchange"
	"github.com/shopspring/decimal"
)

type fakeAlertStore struct {
	mu     sync.Mutex
	alerts map[string]*domain.PriceAlert
}

func newFakeAlertStore(alerts ...*domain.PriceAlert) *fakeAlertStore {
	s := &fakeAlertStore{alerts: map[string]*domain.PriceAlert{}}
	for _, a := range alerts {
		s.alerts[a.ID] = a
	}
	return s
}

func (s *fakeAlertStore) ListActiveAlerts(ctx context.Context) ([]*domain.PriceAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.PriceAlert
	for _, a := range s.alerts {
		if a.Active {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeAlertStore) DeactivateAlert(ctx context.Context, alertID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[alertID]
	if !ok || !a.Active {
		return 0, nil
	}
	a.Active = false
	now := time.Now()
	a.TriggeredAt = &now
	return 1, nil
}

type fakeRateFetcher struct {
	rate string
	err  error
}

func (f *fakeRateFetcher) GetPairRate(ctx context.Context, from, to string) (*exchange.PairRate, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &exchange.PairRate{Rate: f.rate}, nil
}

func btcEthPair() domain.Pair {
	return domain.Pair{
		FromCoin: "BTC", FromNetwork: "bitcoin",
		ToCoin: "ETH", ToNetwork: "ethereum",
	}
}

func testAlert(id string, target string, direction domain.AlertDirection) *domain.PriceAlert {
	return &domain.PriceAlert{
		ID:         id,
		UserID:     "user1",
		Pair:       btcEthPair(),
		TargetRate: decimal.RequireFromString(target),
		Direction:  direction,
		Active:     true,
		CreatedAt:  time.Now(),
	}
}

func TestAlertFiresAtMostOnce(t *testing.T) {
	store := newFakeAlertStore(testAlert("alert1", "15", domain.AlertAbove))
	fetcher := &fakeRateFetcher{rate: "16"}
	sink := &recordingSink{}
	e := NewAlertEvaluator(store, fetcher, sink, time.Minute)

	// The rate stays above the target across cycles; the alert is one-shot.
	for i := 0; i < 3; i++ {
		e.RunCycle(context.Background())
	}

	if sink.count() != 1 {
		t.Fatalf("Expected exactly 1 alert notification, got %d", sink.count())
	}
	if !strings.Contains(sink.messages[0].text, "16") {
		t.Errorf("Expected current rate in message, got %q", sink.messages[0].text)
	}
	if store.alerts["alert1"].Active {
		t.Error("Expected alert deactivated after firing")
	}
	if store.alerts["alert1"].TriggeredAt == nil {
		t.Error("Expected trigger time stamped")
	}
}

func TestAlertDirections(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		direction domain.AlertDirection
		rate      string
		fires     bool
	}{
		{"above crossed", "15", domain.AlertAbove, "16", true},
		{"above exact", "15", domain.AlertAbove, "15", true},
		{"above not reached", "15", domain.AlertAbove, "14", false},
		{"below crossed", "15", domain.AlertBelow, "14", true},
		{"below not reached", "15", domain.AlertBelow, "16", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeAlertStore(testAlert("alert1", tt.target, tt.direction))
			sink := &recordingSink{}
			e := NewAlertEvaluator(store, &fakeRateFetcher{rate: tt.rate}, sink, time.Minute)

			e.RunCycle(context.Background())

			fired := sink.count() == 1
			if fired != tt.fires {
				t.Errorf("Expected fires=%v, got %v", tt.fires, fired)
			}
		})
	}
}

func TestAlertRateFetchFailureKeepsAlert(t *testing.T) {
	store := newFakeAlertStore(testAlert("alert1", "15", domain.AlertAbove))
	fetcher := &fakeRateFetcher{err: &exchange.TransportError{Op: "GET /pair", Err: errors.New("timeout")}}
	sink := &recordingSink{}
	e := NewAlertEvaluator(store, fetcher, sink, time.Minute)

	e.RunCycle(context.Background())

	if sink.count() != 0 {
		t.Errorf("Expected no notification on fetch failure, got %d", sink.count())
	}
	if !store.alerts["alert1"].Active {
		t.Error("Expected alert still active after fetch failure")
	}

	// The next cycle with a working rate still fires it.
	fetcher.err = nil
	fetcher.rate = "16"
	e.RunCycle(context.Background())
	if sink.count() != 1 {
		t.Errorf("Expected alert fired on recovery, got %d notifications", sink.count())
	}
}

func TestAlertLostDeactivationStaysSilent(t *testing.T) {
	alert := testAlert("alert1", "15", domain.AlertAbove)
	store := newFakeAlertStore(alert)
	sink := &recordingSink{}
	e := NewAlertEvaluator(store, &fakeRateFetcher{rate: "16"}, sink, time.Minute)

	// Another process deactivates the alert between listing and firing.
	listed, err := store.ListActiveAlerts(context.Background())
	if err != nil || len(listed) != 1 {
		t.Fatalf("Setup failed: %v", err)
	}
	if _, err := store.DeactivateAlert(context.Background(), "alert1"); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	e.fire(context.Background(), listed[0], decimal.RequireFromString("16"))

	if sink.count() != 0 {
		t.Errorf("Expected no notification for a lost deactivation, got %d", sink.count())
	}
}

func TestTrackerRecordsSamples(t *testing.T) {
	store := &fakeSampleStore{}
	tracker := NewRateTracker(store, &fakeRateFetcher{rate: "15.5"}, []domain.Pair{btcEthPair()}, time.Minute)

	tracker.RunCycle(context.Background())

	if len(store.samples) != 1 {
		t.Fatalf("Expected 1 sample, got %d", len(store.samples))
	}
	if store.samples[0].Rate.String() != "15.5" {
		t.Errorf("Expected rate 15.5, got %s", store.samples[0].Rate)
	}
}

func TestTrackerSkipsFailedPair(t *testing.T) {
	store := &fakeSampleStore{}
	fetcher := &fakeRateFetcher{err: errors.New("down")}
	tracker := NewRateTracker(store, fetcher, []domain.Pair{btcEthPair()}, time.Minute)

	tracker.RunCycle(context.Background())

	if len(store.samples) != 0 {
		t.Errorf("Expected no samples on fetch failure, got %d", len(store.samples))
	}
}

type fakeSampleStore struct {
	mu      sync.Mutex
	samples []*domain.RateSample
}

func (s *fakeSampleStore) SaveRateSample(ctx context.Context, sample *domain.RateSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, sample)
	return nil
}
