package exchange

// Coin is one entry of the exchange's coin listing.
type Coin struct {
	Symbol   string    `json:"coin"`
	Name     string    `json:"name,omitempty"`
	Networks []Network `json:"networks"`
}

// Network is one chain a coin is available on.
type Network struct {
	Name string `json:"name"`
}

// PairRate is the current market rate and deposit bounds for a pair.
type PairRate struct {
	Rate string `json:"rate"`
	Min  string `json:"min"`
	Max  string `json:"max"`
}

// Quote is a short-lived fixed-rate commitment.
type Quote struct {
	ID            string `json:"id"`
	DepositCoin   string `json:"depositCoin"`
	SettleCoin    string `json:"settleCoin"`
	DepositAmount string `json:"depositAmount"`
	SettleAmount  string `json:"settleAmount"`
	Rate          string `json:"rate"`
	ExpiresAt     string `json:"expiresAt"`
}

// Order is the exchange's view of one shift, returned both on creation and
// from status polling.
type Order struct {
	ID             string `json:"id"`
	Kind           string `json:"type"`
	Status         string `json:"status"`
	DepositCoin    string `json:"depositCoin"`
	DepositNetwork string `json:"depositNetwork"`
	SettleCoin     string `json:"settleCoin"`
	SettleNetwork  string `json:"settleNetwork"`
	DepositAmount  string `json:"depositAmount"`
	SettleAmount   string `json:"settleAmount"`
	DepositMin     string `json:"depositMin"`
	DepositMax     string `json:"depositMax"`
	Rate           string `json:"rate"`
	DepositAddress string `json:"depositAddress"`
	DepositMemo    string `json:"depositMemo"`
	SettleAddress  string `json:"settleAddress"`
	RefundAddress  string `json:"refundAddress"`
	RefundMemo     string `json:"refundMemo"`
	DepositHash    string `json:"depositHash"`
	SettleHash     string `json:"settleHash"`
	ErrorMessage   string `json:"errorMessage"`
	ExpiresAt      string `json:"expiresAt"`
}
