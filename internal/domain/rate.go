package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Pair identifies a directed coin pair, each side qualified by its network.
type Pair struct {
	FromCoin    string `json:"from_coin"`
	FromNetwork string `json:"from_network"`
	ToCoin      string `json:"to_coin"`
	ToNetwork   string `json:"to_network"`
}

// From returns the exchange's coin-network notation for the deposit side,
// e.g. "BTC-bitcoin".
func (p Pair) From() string {
	return p.FromCoin + "-" + p.FromNetwork
}

// To returns the coin-network notation for the settle side.
func (p Pair) To() string {
	return p.ToCoin + "-" + p.ToNetwork
}

func (p Pair) String() string {
	return p.From() + "/" + p.To()
}

// ParsePair parses "BTC-bitcoin/ETH-ethereum" into a Pair.
func ParsePair(s string) (Pair, error) {
	sides := strings.SplitN(s, "/", 2)
	if len(sides) != 2 {
		return Pair{}, fmt.Errorf("pair %q: want FROM/TO", s)
	}
	from := strings.SplitN(sides[0], "-", 2)
	to := strings.SplitN(sides[1], "-", 2)
	if len(from) != 2 || len(to) != 2 {
		return Pair{}, fmt.Errorf("pair %q: each side must be COIN-network", s)
	}
	return Pair{
		FromCoin:    strings.ToUpper(from[0]),
		FromNetwork: from[1],
		ToCoin:      strings.ToUpper(to[0]),
		ToNetwork:   to[1],
	}, nil
}

// RateSample is one observation of a pair's market rate.
type RateSample struct {
	Pair       Pair            `json:"pair"`
	Rate       decimal.Decimal `json:"rate"`
	ObservedAt time.Time       `json:"observed_at"`
}
