package domain

import (
	"time"
)

// ConversationState names the step of the swap conversation a user is in.
// The state uniquely determines which session fields are expected to be
// populated and which inbound event type is accepted next.
type ConversationState string

const (
	StateIdle                  ConversationState = "idle"
	StateAwaitingDepositCoin   ConversationState = "awaiting_deposit_coin"
	StateAwaitingDepositNet    ConversationState = "awaiting_deposit_network"
	StateAwaitingSettleCoin    ConversationState = "awaiting_settle_coin"
	StateAwaitingSettleNet     ConversationState = "awaiting_settle_network"
	StateAwaitingAmount        ConversationState = "awaiting_amount"
	StateAwaitingSettleAddress ConversationState = "awaiting_settle_address"
	StateAwaitingRefundAddress ConversationState = "awaiting_refund_address"
)

// SwapKind distinguishes fixed-rate orders (rate locked at quote time) from
// variable-rate orders (rate computed when the deposit arrives).
type SwapKind string

const (
	KindFixed    SwapKind = "fixed"
	KindVariable SwapKind = "variable"
)

// Valid reports whether k is a known swap kind.
func (k SwapKind) Valid() bool {
	return k == KindFixed || k == KindVariable
}

// UserSession holds the conversation state for one user. At most one swap
// flow is active per user at a time.
type UserSession struct {
	UserID         string            `json:"user_id"`
	State          ConversationState `json:"state"`
	Kind           SwapKind          `json:"kind,omitempty"`
	DepositCoin    string            `json:"deposit_coin,omitempty"`
	DepositNetwork string            `json:"deposit_network,omitempty"`
	SettleCoin     string            `json:"settle_coin,omitempty"`
	SettleNetwork  string            `json:"settle_network,omitempty"`
	DepositAmount  string            `json:"deposit_amount,omitempty"`
	SettleAddress  string            `json:"settle_address,omitempty"`
	RefundAddress  string            `json:"refund_address,omitempty"`
	QuoteID        string            `json:"quote_id,omitempty"`
	SwapID         string            `json:"swap_id,omitempty"`
	Extra          map[string]string `json:"extra,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// NewSession returns an idle session for the given user.
func NewSession(userID string) *UserSession {
	now := time.Now()
	return &UserSession{
		UserID:    userID,
		State:     StateIdle,
		Extra:     map[string]string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ResetFlow returns the session to idle and clears every field collected
// during the flow. SwapID is kept: a non-empty SwapID after a reset records
// the order the completed flow produced.
func (s *UserSession) ResetFlow() {
	s.State = StateIdle
	s.Kind = ""
	s.DepositCoin = ""
	s.DepositNetwork = ""
	s.SettleCoin = ""
	s.SettleNetwork = ""
	s.DepositAmount = ""
	s.SettleAddress = ""
	s.RefundAddress = ""
	s.QuoteID = ""
}
