package monitor

import (
	"fmt"
	"strings"

	"github.com/ashureev/shiftbot/internal/domain"
	"github.com/ashureev/shiftbot/internal/exchange"
	"github.com/shopspring/decimal"
)

var statusLabels = map[domain.SwapStatus]string{
	domain.StatusWaiting:    "Waiting for deposit",
	domain.StatusPending:    "Deposit detected",
	domain.StatusProcessing: "Processing",
	domain.StatusReview:     "Under review",
	domain.StatusSettling:   "Settling",
	domain.StatusSettled:    "Completed",
	domain.StatusRefund:     "Queued for refund",
	domain.StatusRefunding:  "Refunding",
	domain.StatusRefunded:   "Refunded",
	domain.StatusExpired:    "Expired",
	domain.StatusMultiple:   "Multiple deposits",
}

// statusMessage renders the notification for a status transition, keyed by
// the new status. Terminal statuses get dedicated wording.
func statusMessage(sw *domain.SwapRecord, status domain.SwapStatus, order *exchange.Order) string {
	label, ok := statusLabels[status]
	if !ok {
		label = string(status)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Swap status update\nOrder: %s\nPair: %s -> %s\nStatus: %s",
		sw.OrderID, sw.DepositCoin, sw.SettleCoin, label)

	switch status {
	case domain.StatusSettled:
		b.WriteString("\nSwap completed successfully.")
		if order.SettleHash != "" {
			fmt.Fprintf(&b, "\nSettlement TX: %s", shortHash(order.SettleHash))
		}
	case domain.StatusRefunded:
		b.WriteString("\nRefund processed.")
		if order.DepositHash != "" {
			fmt.Fprintf(&b, "\nRefund TX: %s", shortHash(order.DepositHash))
		}
	case domain.StatusExpired:
		b.WriteString("\nThe swap expired before a deposit arrived.")
	}

	return b.String()
}

func shortHash(hash string) string {
	if len(hash) > 16 {
		return hash[:16] + "..."
	}
	return hash
}

func alertMessage(alert *domain.PriceAlert, rate decimal.Decimal) string {
	return fmt.Sprintf(
		"Price alert triggered\nPair: %s -> %s\nCurrent rate: %s\nTarget rate: %s (%s)",
		alert.Pair.FromCoin, alert.Pair.ToCoin,
		rate.String(), alert.TargetRate.String(), alert.Direction)
}
