package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/shiftbot/internal/domain"
	"github.com/ashureev/shiftbot/internal/exchange"
	"github.com/shopspring/decimal"
)

// skipToken leaves the refund address unset.
const skipToken = "skip"

// coinListLimit caps the number of symbols shown in coin prompts.
const coinListLimit = 20

// Store is the persistence surface the engine needs.
type Store interface {
	GetSession(ctx context.Context, userID string) (*domain.UserSession, error)
	SaveSession(ctx context.Context, session *domain.UserSession) error
	ClearSession(ctx context.Context, userID string) error
	SaveSwap(ctx context.Context, swap *domain.SwapRecord) error
}

// Exchange is the subset of the exchange client the engine needs.
type Exchange interface {
	GetPairRate(ctx context.Context, from, to string) (*exchange.PairRate, error)
	RequestQuote(ctx context.Context, depositCoin, depositNetwork, settleCoin, settleNetwork, depositAmount string) (*exchange.Quote, error)
	CreateFixedOrder(ctx context.Context, quoteID, settleAddress, refundAddress string) (*exchange.Order, error)
	CreateVariableOrder(ctx context.Context, depositCoin, depositNetwork, settleCoin, settleNetwork, settleAddress, refundAddress string) (*exchange.Order, error)
}

// Catalog is the coin listing surface the engine needs.
type Catalog interface {
	NetworksFor(ctx context.Context, symbol string) ([]string, error)
	Symbols(ctx context.Context, limit int) ([]string, error)
}

// Engine drives the swap conversation. Events for the same user are
// serialized through a per-user critical section; different users proceed
// fully in parallel.
type Engine struct {
	store    Store
	ex       Exchange
	catalog  Catalog
	validate AddressValidator

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a conversation engine. A nil validator defaults to
// ValidAddressFormat.
func New(store Store, ex Exchange, catalog Catalog, validate AddressValidator) *Engine {
	if validate == nil {
		validate = ValidAddressFormat
	}
	return &Engine{
		store:    store,
		ex:       ex,
		catalog:  catalog,
		validate: validate,
		locks:    map[string]*sync.Mutex{},
	}
}

// userLock returns the mutex serializing one user's transitions. Entries are
// tiny and bounded by the number of users, so they are never reaped.
func (e *Engine) userLock(userID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[userID] = l
	}
	return l
}

// HandleEvent applies one inbound event to the user's session and returns
// the outbound prompt. Recoverable input problems come back as *FlowError
// with the session unchanged; transport and persistence failures come back
// as plain errors with the session unchanged.
func (e *Engine) HandleEvent(ctx context.Context, userID string, ev Event) (*Prompt, error) {
	l := e.userLock(userID)
	l.Lock()
	defer l.Unlock()

	sess, err := e.store.GetSession(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		sess = domain.NewSession(userID)
	}

	if _, ok := ev.(Cancel); ok {
		if err := e.store.ClearSession(ctx, userID); err != nil {
			return nil, fmt.Errorf("clear session: %w", err)
		}
		return promptCancelled(), nil
	}

	switch sess.State {
	case domain.StateIdle:
		return e.handleIdle(ctx, sess, ev)
	case domain.StateAwaitingDepositCoin:
		return e.handleCoin(ctx, sess, ev, true)
	case domain.StateAwaitingDepositNet:
		return e.handleNetwork(ctx, sess, ev, true)
	case domain.StateAwaitingSettleCoin:
		return e.handleCoin(ctx, sess, ev, false)
	case domain.StateAwaitingSettleNet:
		return e.handleNetwork(ctx, sess, ev, false)
	case domain.StateAwaitingAmount:
		return e.handleAmount(ctx, sess, ev)
	case domain.StateAwaitingSettleAddress:
		return e.handleSettleAddress(ctx, sess, ev)
	case domain.StateAwaitingRefundAddress:
		return e.handleRefundAddress(ctx, sess, ev)
	}
	return nil, flowErr(CodeUnexpectedInput, "Something went out of sync. Cancel and start over.")
}

func (e *Engine) handleIdle(ctx context.Context, sess *domain.UserSession, ev Event) (*Prompt, error) {
	sel, ok := ev.(SelectKind)
	if !ok {
		return nil, flowErr(CodeUnexpectedInput, "No swap in progress. Choose fixed or variable rate to start one.")
	}
	if !sel.Kind.Valid() {
		return nil, flowErr(CodeUnexpectedInput, "Choose either a fixed or a variable rate swap.")
	}

	symbols, err := e.catalog.Symbols(ctx, coinListLimit)
	if err != nil {
		return nil, fmt.Errorf("list coins: %w", err)
	}

	sess.Kind = sel.Kind
	sess.State = domain.StateAwaitingDepositCoin
	if err := e.store.SaveSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return promptChooseDepositCoin(sel.Kind, symbols), nil
}

func (e *Engine) handleCoin(ctx context.Context, sess *domain.UserSession, ev Event, deposit bool) (*Prompt, error) {
	enter, ok := ev.(EnterCoin)
	if !ok {
		return nil, flowErr(CodeUnexpectedInput, "Enter a coin symbol, for example BTC.")
	}

	symbol := strings.ToUpper(strings.TrimSpace(enter.Symbol))
	networks, err := e.catalog.NetworksFor(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("look up coin %s: %w", symbol, err)
	}
	if len(networks) == 0 {
		return nil, flowErr(CodeUnknownCoin,
			fmt.Sprintf("Coin %q not found. Enter a valid coin symbol.", enter.Symbol))
	}

	if deposit {
		sess.DepositCoin = symbol
		sess.State = domain.StateAwaitingDepositNet
	} else {
		sess.SettleCoin = symbol
		sess.State = domain.StateAwaitingSettleNet
	}
	if err := e.store.SaveSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return promptSelectNetwork(symbol, networks), nil
}

func (e *Engine) handleNetwork(ctx context.Context, sess *domain.UserSession, ev Event, deposit bool) (*Prompt, error) {
	sel, ok := ev.(SelectNetwork)
	if !ok {
		return nil, flowErr(CodeUnexpectedInput, "Pick one of the offered networks.")
	}

	coin := sess.SettleCoin
	if deposit {
		coin = sess.DepositCoin
	}
	networks, err := e.catalog.NetworksFor(ctx, coin)
	if err != nil {
		return nil, fmt.Errorf("look up coin %s: %w", coin, err)
	}
	valid := false
	for _, n := range networks {
		if n == sel.Name {
			valid = true
			break
		}
	}
	if !valid {
		return nil, flowErr(CodeUnexpectedInput,
			fmt.Sprintf("%q is not an available network for %s.", sel.Name, coin))
	}

	if deposit {
		sess.DepositNetwork = sel.Name
		sess.State = domain.StateAwaitingSettleCoin
		if err := e.store.SaveSession(ctx, sess); err != nil {
			return nil, fmt.Errorf("save session: %w", err)
		}
		symbols, err := e.catalog.Symbols(ctx, coinListLimit)
		if err != nil {
			return nil, fmt.Errorf("list coins: %w", err)
		}
		return promptChooseSettleCoin(sess, symbols), nil
	}

	sess.SettleNetwork = sel.Name
	if sess.Kind == domain.KindFixed {
		sess.State = domain.StateAwaitingAmount
		if err := e.store.SaveSession(ctx, sess); err != nil {
			return nil, fmt.Errorf("save session: %w", err)
		}
		return promptEnterAmount(sess), nil
	}

	// Variable rate collects no amount up front; the current rate and the
	// deposit bounds are fetched for display only.
	pr, err := e.ex.GetPairRate(ctx, sess.DepositCoin+"-"+sess.DepositNetwork,
		sess.SettleCoin+"-"+sess.SettleNetwork)
	if err != nil {
		return nil, fmt.Errorf("fetch pair rate: %w", err)
	}
	sess.State = domain.StateAwaitingSettleAddress
	if err := e.store.SaveSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return promptVariableRate(sess, pr), nil
}

func (e *Engine) handleAmount(ctx context.Context, sess *domain.UserSession, ev Event) (*Prompt, error) {
	enter, ok := ev.(EnterAmount)
	if !ok {
		return nil, flowErr(CodeUnexpectedInput,
			fmt.Sprintf("Enter the amount of %s to swap.", sess.DepositCoin))
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(enter.Text))
	if err != nil || !amount.IsPositive() {
		return nil, flowErr(CodeInvalidAmount, "Enter a valid positive number.")
	}

	quote, err := e.ex.RequestQuote(ctx,
		sess.DepositCoin, sess.DepositNetwork,
		sess.SettleCoin, sess.SettleNetwork, amount.String())
	if err != nil {
		// A failed quote aborts the flow: the session returns to idle and
		// the user restarts.
		sess.ResetFlow()
		if saveErr := e.store.SaveSession(ctx, sess); saveErr != nil {
			slog.Error("failed to reset session after quote failure",
				"user_id", sess.UserID, "error", saveErr)
		}
		if ae, ok := exchange.AsAPIError(err); ok {
			return nil, flowErr(CodeQuoteFailed,
				fmt.Sprintf("Quote request failed: %s. Start the swap again.", ae.Message))
		}
		return nil, flowErr(CodeQuoteFailed,
			"Quote request failed. Start the swap again.")
	}

	sess.DepositAmount = amount.String()
	sess.QuoteID = quote.ID
	sess.State = domain.StateAwaitingSettleAddress
	if err := e.store.SaveSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return promptQuote(sess, quote), nil
}

func (e *Engine) handleSettleAddress(ctx context.Context, sess *domain.UserSession, ev Event) (*Prompt, error) {
	enter, ok := ev.(EnterAddress)
	if !ok {
		return nil, flowErr(CodeUnexpectedInput,
			fmt.Sprintf("Enter your %s destination address.", sess.SettleCoin))
	}

	address := strings.TrimSpace(enter.Address)
	if !e.validate(address, sess.SettleCoin, sess.SettleNetwork) {
		return nil, flowErr(CodeInvalidAddress,
			fmt.Sprintf("That does not look like a valid %s address. Try again.", sess.SettleCoin))
	}

	sess.SettleAddress = address
	sess.State = domain.StateAwaitingRefundAddress
	if err := e.store.SaveSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return promptEnterRefundAddress(sess), nil
}

func (e *Engine) handleRefundAddress(ctx context.Context, sess *domain.UserSession, ev Event) (*Prompt, error) {
	enter, ok := ev.(EnterAddress)
	if !ok {
		return nil, flowErr(CodeUnexpectedInput,
			fmt.Sprintf("Enter your %s refund address or %q.", sess.DepositCoin, skipToken))
	}

	address := strings.TrimSpace(enter.Address)
	if strings.EqualFold(address, skipToken) {
		address = ""
	} else if !e.validate(address, sess.DepositCoin, sess.DepositNetwork) {
		return nil, flowErr(CodeInvalidAddress,
			fmt.Sprintf("That does not look like a valid %s address. Try again or type %q.",
				sess.DepositCoin, skipToken))
	}
	sess.RefundAddress = address

	return e.createOrder(ctx, sess)
}

func (e *Engine) createOrder(ctx context.Context, sess *domain.UserSession) (*Prompt, error) {
	var order *exchange.Order
	var err error
	if sess.Kind == domain.KindFixed {
		order, err = e.ex.CreateFixedOrder(ctx, sess.QuoteID, sess.SettleAddress, sess.RefundAddress)
	} else {
		order, err = e.ex.CreateVariableOrder(ctx,
			sess.DepositCoin, sess.DepositNetwork,
			sess.SettleCoin, sess.SettleNetwork,
			sess.SettleAddress, sess.RefundAddress)
	}
	if err != nil {
		// Order creation failure ends the flow; the user must restart.
		sess.ResetFlow()
		if saveErr := e.store.SaveSession(ctx, sess); saveErr != nil {
			slog.Error("failed to reset session after order failure",
				"user_id", sess.UserID, "error", saveErr)
		}
		if ae, ok := exchange.AsAPIError(err); ok {
			return nil, flowErr(CodeOrderCreationFailed,
				fmt.Sprintf("Order creation failed: %s. Start the swap again.", ae.Message))
		}
		return nil, flowErr(CodeOrderCreationFailed,
			"Order creation failed. Start the swap again.")
	}

	record := swapRecordFromOrder(sess, order)
	if err := e.store.SaveSwap(ctx, record); err != nil {
		return nil, fmt.Errorf("persist swap record: %w", err)
	}

	prompt := promptOrderCreated(sess, order)

	sess.SwapID = order.ID
	sess.ResetFlow()
	if err := e.store.SaveSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	slog.Info("swap created", "user_id", sess.UserID, "order_id", order.ID, "kind", record.Kind)
	return prompt, nil
}

func swapRecordFromOrder(sess *domain.UserSession, order *exchange.Order) *domain.SwapRecord {
	now := time.Now()
	status := domain.SwapStatus(order.Status)
	if status == "" {
		status = domain.StatusWaiting
	}
	record := &domain.SwapRecord{
		OrderID:        order.ID,
		UserID:         sess.UserID,
		Kind:           sess.Kind,
		DepositCoin:    sess.DepositCoin,
		DepositNetwork: sess.DepositNetwork,
		SettleCoin:     sess.SettleCoin,
		SettleNetwork:  sess.SettleNetwork,
		DepositAmount:  order.DepositAmount,
		SettleAmount:   order.SettleAmount,
		Rate:           order.Rate,
		Status:         status,
		DepositAddress: order.DepositAddress,
		DepositMemo:    order.DepositMemo,
		SettleAddress:  sess.SettleAddress,
		RefundAddress:  sess.RefundAddress,
		RefundMemo:     order.RefundMemo,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if order.ExpiresAt != "" {
		if t, err := time.Parse(time.RFC3339, order.ExpiresAt); err == nil {
			record.ExpiresAt = &t
		}
	}
	return record
}
