// Package engine implements the per-user swap conversation state machine.
// One inbound event produces at most one outbound prompt and a possibly
// updated persisted session; the session is always persisted before the
// prompt is returned, so a crash between the two is recoverable.
package engine

import (
	"fmt"

	"github.com/ashureev/shiftbot/internal/domain"
)

// Event is one typed inbound user action.
type Event interface {
	isEvent()
}

// SelectKind starts a swap flow with the chosen rate kind.
type SelectKind struct {
	Kind domain.SwapKind
}

// EnterCoin is a free-text coin symbol.
type EnterCoin struct {
	Symbol string
}

// SelectNetwork picks one of the offered networks.
type SelectNetwork struct {
	Name string
}

// EnterAmount is a free-text deposit amount (fixed-rate flow only).
type EnterAmount struct {
	Text string
}

// EnterAddress is a free-text settle or refund address. The literal skip
// token is accepted for the refund address.
type EnterAddress struct {
	Address string
}

// Cancel aborts the current flow from any state.
type Cancel struct{}

func (SelectKind) isEvent()    {}
func (EnterCoin) isEvent()     {}
func (SelectNetwork) isEvent() {}
func (EnterAmount) isEvent()   {}
func (EnterAddress) isEvent()  {}
func (Cancel) isEvent()        {}

// ParseEvent builds an Event from a wire-level type/value pair. Transports
// share this mapping; the engine decides whether the event fits the state.
func ParseEvent(kind, value string) (Event, error) {
	switch kind {
	case "start":
		return SelectKind{Kind: domain.SwapKind(value)}, nil
	case "coin":
		return EnterCoin{Symbol: value}, nil
	case "network":
		return SelectNetwork{Name: value}, nil
	case "amount":
		return EnterAmount{Text: value}, nil
	case "address":
		return EnterAddress{Address: value}, nil
	case "cancel":
		return Cancel{}, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", kind)
	}
}

// Prompt is the outbound message produced by a transition. Options, when
// present, are button choices the transport should offer.
type Prompt struct {
	Text    string   `json:"text"`
	Options []string `json:"options,omitempty"`
}
