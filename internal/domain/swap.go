package domain

import (
	"time"
)

// SwapStatus is the exchange-reported status of an order. The values are
// defined by the remote exchange; the set below is closed so illegal states
// are unrepresentable locally.
type SwapStatus string

const (
	StatusWaiting    SwapStatus = "waiting"
	StatusPending    SwapStatus = "pending"
	StatusProcessing SwapStatus = "processing"
	StatusReview     SwapStatus = "review"
	StatusSettling   SwapStatus = "settling"
	StatusSettled    SwapStatus = "settled"
	StatusRefund     SwapStatus = "refund"
	StatusRefunding  SwapStatus = "refunding"
	StatusRefunded   SwapStatus = "refunded"
	StatusExpired    SwapStatus = "expired"
	StatusMultiple   SwapStatus = "multiple"
)

// IsTerminal reports whether no further transition is expected from s.
func (s SwapStatus) IsTerminal() bool {
	switch s {
	case StatusSettled, StatusRefunded, StatusExpired:
		return true
	}
	return false
}

// SwapRecord is the persisted view of one exchange order. Records are
// append-only history: they are created once by the conversation flow and
// mutated only by the lifecycle monitor, never deleted.
type SwapRecord struct {
	OrderID        string     `json:"order_id"`
	UserID         string     `json:"user_id"`
	Kind           SwapKind   `json:"kind"`
	DepositCoin    string     `json:"deposit_coin"`
	DepositNetwork string     `json:"deposit_network"`
	SettleCoin     string     `json:"settle_coin"`
	SettleNetwork  string     `json:"settle_network"`
	DepositAmount  string     `json:"deposit_amount,omitempty"`
	SettleAmount   string     `json:"settle_amount,omitempty"`
	Rate           string     `json:"rate,omitempty"`
	Status         SwapStatus `json:"status"`
	DepositAddress string     `json:"deposit_address,omitempty"`
	DepositMemo    string     `json:"deposit_memo,omitempty"`
	SettleAddress  string     `json:"settle_address,omitempty"`
	RefundAddress  string     `json:"refund_address,omitempty"`
	RefundMemo     string     `json:"refund_memo,omitempty"`
	DepositHash    string     `json:"deposit_hash,omitempty"`
	SettleHash     string     `json:"settle_hash,omitempty"`
	Commission     string     `json:"commission,omitempty"`
	LastError      string     `json:"last_error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

// UserStats summarizes a user's swap history.
type UserStats struct {
	TotalSwaps     int    `json:"total_swaps"`
	CompletedSwaps int    `json:"completed_swaps"`
	ActiveSwaps    int    `json:"active_swaps"`
	RefundedSwaps  int    `json:"refunded_swaps"`
	TotalVolume    string `json:"total_volume"`
}
