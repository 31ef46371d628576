package engine

import (
	"fmt"
	"strings"

	"github.com/ashureev/shiftbot/internal/domain"
	"github.com/ashureev/shiftbot/internal/exchange"
)

func promptChooseDepositCoin(kind domain.SwapKind, symbols []string) *Prompt {
	return &Prompt{
		Text: fmt.Sprintf(
			"Swap type: %s.\nEnter the coin symbol you want to swap FROM (for example BTC).\nAvailable coins: %s",
			kind, strings.Join(symbols, ", ")),
	}
}

func promptChooseSettleCoin(sess *domain.UserSession, symbols []string) *Prompt {
	return &Prompt{
		Text: fmt.Sprintf(
			"Deposit: %s on %s.\nNow enter the coin symbol you want to receive.\nAvailable coins: %s",
			sess.DepositCoin, sess.DepositNetwork, strings.Join(symbols, ", ")),
	}
}

func promptSelectNetwork(coin string, networks []string) *Prompt {
	return &Prompt{
		Text:    fmt.Sprintf("Select a network for %s:", coin),
		Options: networks,
	}
}

func promptEnterAmount(sess *domain.UserSession) *Prompt {
	return &Prompt{
		Text: fmt.Sprintf(
			"From: %s (%s)\nTo: %s (%s)\nEnter the amount of %s to swap:",
			sess.DepositCoin, sess.DepositNetwork,
			sess.SettleCoin, sess.SettleNetwork, sess.DepositCoin),
	}
}

func promptQuote(sess *domain.UserSession, q *exchange.Quote) *Prompt {
	return &Prompt{
		Text: fmt.Sprintf(
			"Quote received: %s %s -> %s %s at rate %s, valid until %s.\nEnter your %s destination address:",
			q.DepositAmount, sess.DepositCoin, q.SettleAmount, sess.SettleCoin,
			q.Rate, q.ExpiresAt, sess.SettleCoin),
	}
}

func promptVariableRate(sess *domain.UserSession, pr *exchange.PairRate) *Prompt {
	return &Prompt{
		Text: fmt.Sprintf(
			"From: %s (%s)\nTo: %s (%s)\nCurrent rate: %s (min %s, max %s %s).\nEnter your %s destination address:",
			sess.DepositCoin, sess.DepositNetwork,
			sess.SettleCoin, sess.SettleNetwork,
			pr.Rate, pr.Min, pr.Max, sess.DepositCoin, sess.SettleCoin),
	}
}

func promptEnterRefundAddress(sess *domain.UserSession) *Prompt {
	return &Prompt{
		Text: fmt.Sprintf(
			"Enter your %s refund address, or type %q to continue without one:",
			sess.DepositCoin, skipToken),
	}
}

func promptOrderCreated(sess *domain.UserSession, order *exchange.Order) *Prompt {
	var b strings.Builder
	fmt.Fprintf(&b, "Swap created. Order ID: %s (%s rate).\n", order.ID, sess.Kind)
	if sess.Kind == domain.KindFixed {
		fmt.Fprintf(&b, "Send exactly %s %s. You will receive %s %s.\n",
			order.DepositAmount, sess.DepositCoin, order.SettleAmount, sess.SettleCoin)
		if order.ExpiresAt != "" {
			fmt.Fprintf(&b, "Valid until %s.\n", order.ExpiresAt)
		}
	} else {
		fmt.Fprintf(&b, "Min deposit %s, max deposit %s %s.\n",
			order.DepositMin, order.DepositMax, sess.DepositCoin)
	}
	fmt.Fprintf(&b, "Send %s to: %s", sess.DepositCoin, order.DepositAddress)
	if order.DepositMemo != "" {
		fmt.Fprintf(&b, "\nMEMO required: %s", order.DepositMemo)
	}
	return &Prompt{Text: b.String()}
}

func promptCancelled() *Prompt {
	return &Prompt{Text: "Operation cancelled. Start a new swap whenever you are ready."}
}
