// Package trading implements the trading engine: buy, sell, and deposit
// against the append-only ledger, plus the portfolio and history read
// paths and their HTTP handlers.
//
// All monetary values use shopspring/decimal — never float64 for money.
package trading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/papertrade/ledger-engine/internal/model"
	"github.com/papertrade/ledger-engine/internal/position"
	"github.com/papertrade/ledger-engine/internal/quote"
	"github.com/papertrade/ledger-engine/internal/store"
	"github.com/papertrade/ledger-engine/internal/symbol"
)

var (
	// ErrInvalidInput is returned for malformed symbols and non-positive
	// or non-integer share counts and amounts.
	ErrInvalidInput = errors.New("trading: invalid input")

	// ErrInsufficientFunds is returned when a buy costs more than the
	// user's cash balance. Nothing is written.
	ErrInsufficientFunds = errors.New("trading: insufficient funds")

	// ErrNoPosition is returned when selling a symbol the user does not hold.
	ErrNoPosition = errors.New("trading: no position in symbol")

	// ErrInsufficientShares is returned when a sell exceeds the net
	// shares currently held.
	ErrInsufficientShares = errors.New("trading: insufficient shares")
)

// Engine orchestrates trading operations. Operations by the same user are
// serialized with a per-user mutex so the read-validate-apply sequence is
// race-free; operations by different users run in parallel. The store's
// Apply is the atomic commit unit underneath.
type Engine struct {
	store  store.Store
	quotes quote.Provider
	events *EventHub // optional hub for confirmation events

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewEngine creates a trading engine. Pass nil for hub if confirmation
// broadcasting is not needed.
func NewEngine(st store.Store, quotes quote.Provider, hub *EventHub) *Engine {
	return &Engine{
		store:  st,
		quotes: quotes,
		events: hub,
		locks:  make(map[string]*sync.Mutex),
	}
}

// userLock returns the mutex serializing operations for one user,
// creating it on first use. Locks are never removed; one mutex per active
// user is cheap.
func (e *Engine) userLock(userID string) *sync.Mutex {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()

	l, ok := e.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[userID] = l
	}
	return l
}

// tradableSymbol normalizes a raw ticker for the buy/sell paths. The CASH
// symbol marks deposit rows in the ledger and replays as a cash credit, so
// it can never name a trade even though a real ticker spells it.
func tradableSymbol(raw string) (string, error) {
	sym, err := symbol.Normalize(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if sym == model.CashSymbol {
		return "", fmt.Errorf("%w: %s is reserved for cash entries", ErrInvalidInput, model.CashSymbol)
	}
	return sym, nil
}

// Buy purchases shares at the current quoted price. The quote is fully
// resolved before any state is read or written; the cash check and the
// ledger append happen under the user's lock and commit atomically.
func (e *Engine) Buy(ctx context.Context, userID, rawSymbol string, shares int64) (*model.Transaction, error) {
	if shares < 1 {
		return nil, fmt.Errorf("%w: shares must be a positive integer", ErrInvalidInput)
	}
	sym, err := tradableSymbol(rawSymbol)
	if err != nil {
		return nil, err
	}

	q, err := e.quotes.Lookup(ctx, sym)
	if err != nil {
		return nil, err
	}

	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	u, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	cost := q.Price.Mul(decimal.NewFromInt(shares))
	if cost.GreaterThan(u.Cash) {
		return nil, fmt.Errorf("%w: need %s, have %s", ErrInsufficientFunds, cost, u.Cash)
	}

	entry := &model.Transaction{
		ID:         uuid.New().String(),
		UserID:     userID,
		Symbol:     q.Symbol,
		Name:       q.Name,
		Shares:     shares,
		Price:      q.Price,
		Total:      cost,
		Transacted: time.Now().UTC(),
	}

	if err := e.store.Apply(ctx, entry, position.CashDelta(*entry)); err != nil {
		if errors.Is(err, store.ErrInsufficientCash) {
			return nil, fmt.Errorf("%w: need %s", ErrInsufficientFunds, cost)
		}
		return nil, err
	}

	slog.Info("buy executed",
		"tx", entry.ID,
		"user", userID,
		"symbol", q.Symbol,
		"shares", shares,
		"price", q.Price.String(),
		"total", cost.String(),
	)
	e.emit(Event{
		Type:    "buy_executed",
		UserID:  userID,
		Symbol:  q.Symbol,
		Name:    q.Name,
		Shares:  shares,
		Price:   q.Price.String(),
		Total:   cost.String(),
		Message: fmt.Sprintf("Bought %d shares of %s", shares, q.Name),
	})

	return entry, nil
}

// Sell disposes of shares at the current quoted price. The net-share
// check uses the raw signed sum over the ledger, re-aggregated under the
// user's lock so concurrent sells cannot both pass validation.
func (e *Engine) Sell(ctx context.Context, userID, rawSymbol string, shares int64) (*model.Transaction, error) {
	if shares < 1 {
		return nil, fmt.Errorf("%w: shares must be a positive integer", ErrInvalidInput)
	}
	sym, err := tradableSymbol(rawSymbol)
	if err != nil {
		return nil, err
	}

	q, err := e.quotes.Lookup(ctx, sym)
	if err != nil {
		return nil, err
	}

	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	txs, err := e.store.Transactions(ctx, userID)
	if err != nil {
		return nil, err
	}

	held := position.NetShares(txs, q.Symbol)
	if held <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoPosition, q.Symbol)
	}
	if shares > held {
		return nil, fmt.Errorf("%w: want %d, hold %d", ErrInsufficientShares, shares, held)
	}

	proceeds := q.Price.Mul(decimal.NewFromInt(shares))
	entry := &model.Transaction{
		ID:         uuid.New().String(),
		UserID:     userID,
		Symbol:     q.Symbol,
		Name:       q.Name,
		Shares:     -shares,
		Price:      q.Price,
		Total:      proceeds,
		Transacted: time.Now().UTC(),
	}

	if err := e.store.Apply(ctx, entry, position.CashDelta(*entry)); err != nil {
		return nil, err
	}

	slog.Info("sell executed",
		"tx", entry.ID,
		"user", userID,
		"symbol", q.Symbol,
		"shares", shares,
		"price", q.Price.String(),
		"total", proceeds.String(),
	)
	e.emit(Event{
		Type:    "sell_executed",
		UserID:  userID,
		Symbol:  q.Symbol,
		Name:    q.Name,
		Shares:  shares,
		Price:   q.Price.String(),
		Total:   proceeds.String(),
		Message: fmt.Sprintf("Sold %d shares of %s", shares, q.Name),
	})

	return entry, nil
}

// Deposit credits cash to the user's balance. The deposit is recorded as
// a CASH ledger row so the balance stays reconstructible by replay.
func (e *Engine) Deposit(ctx context.Context, userID string, amount int64) (*model.Transaction, error) {
	if amount < 1 {
		return nil, fmt.Errorf("%w: amount must be a positive integer", ErrInvalidInput)
	}

	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	entry := &model.Transaction{
		ID:         uuid.New().String(),
		UserID:     userID,
		Symbol:     model.CashSymbol,
		Name:       "Cash deposit",
		Shares:     0,
		Price:      decimal.Zero,
		Total:      decimal.NewFromInt(amount),
		Transacted: time.Now().UTC(),
	}

	if err := e.store.Apply(ctx, entry, position.CashDelta(*entry)); err != nil {
		return nil, err
	}

	slog.Info("deposit executed",
		"tx", entry.ID,
		"user", userID,
		"amount", entry.Total.String(),
	)
	e.emit(Event{
		Type:    "deposit_executed",
		UserID:  userID,
		Symbol:  model.CashSymbol,
		Total:   entry.Total.String(),
		Message: fmt.Sprintf("Added $%d to your account", amount),
	})

	return entry, nil
}

// Portfolio returns the user's cash, held positions valued at fresh
// quotes, and total net worth. Always aggregated from the ledger —
// nothing here is cached across writes.
func (e *Engine) Portfolio(ctx context.Context, userID string) (*model.Portfolio, error) {
	u, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	txs, err := e.store.Transactions(ctx, userID)
	if err != nil {
		return nil, err
	}

	positions := position.Aggregate(txs)
	netWorth := u.Cash

	for i := range positions {
		q, err := e.quotes.Lookup(ctx, positions[i].Symbol)
		if err != nil {
			return nil, fmt.Errorf("value position %s: %w", positions[i].Symbol, err)
		}
		positions[i].Price = q.Price
		positions[i].Value = q.Price.Mul(decimal.NewFromInt(positions[i].Shares))
		netWorth = netWorth.Add(positions[i].Value)
	}

	return &model.Portfolio{
		UserID:    userID,
		Cash:      u.Cash,
		Positions: positions,
		NetWorth:  netWorth,
	}, nil
}

// History returns the user's ledger, most recent first.
func (e *Engine) History(ctx context.Context, userID string) ([]model.Transaction, error) {
	txs, err := e.store.Transactions(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]model.Transaction, len(txs))
	for i, t := range txs {
		out[len(txs)-1-i] = t
	}
	return out, nil
}

// Quote resolves a symbol through the quote provider.
func (e *Engine) Quote(ctx context.Context, rawSymbol string) (*model.Quote, error) {
	sym, err := symbol.Normalize(rawSymbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return e.quotes.Lookup(ctx, sym)
}

func (e *Engine) emit(ev Event) {
	if e.events != nil {
		e.events.Broadcast(ev)
	}
}
