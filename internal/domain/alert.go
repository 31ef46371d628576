package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertDirection says on which side of the target rate an alert fires.
type AlertDirection string

const (
	AlertAbove AlertDirection = "above"
	AlertBelow AlertDirection = "below"
)

// Valid reports whether d is a known direction.
func (d AlertDirection) Valid() bool {
	return d == AlertAbove || d == AlertBelow
}

// PriceAlert is a one-shot threshold watch on a coin pair. Once triggered
// the alert is permanently deactivated.
type PriceAlert struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Pair        Pair            `json:"pair"`
	TargetRate  decimal.Decimal `json:"target_rate"`
	Direction   AlertDirection  `json:"direction"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
	TriggeredAt *time.Time      `json:"triggered_at,omitempty"`
}

// Triggered reports whether the observed rate crosses the alert threshold.
func (a *PriceAlert) Triggered(rate decimal.Decimal) bool {
	switch a.Direction {
	case AlertAbove:
		return rate.GreaterThanOrEqual(a.TargetRate)
	case AlertBelow:
		return rate.LessThanOrEqual(a.TargetRate)
	}
	return false
}
