// Package model defines the core domain types shared across the ledger engine.
// All monetary values use shopspring/decimal — never float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CashSymbol is the reserved symbol for deposit ledger rows. Deposits are
// recorded in the same append-only ledger as trades so that a user's cash
// balance is always reconstructible by replaying the ledger.
const CashSymbol = "CASH"

// User holds an account identity and its mutable cash balance. The
// credential hash is opaque to the engine; only internal/auth interprets it.
type User struct {
	ID         string          `json:"id" db:"id"`
	Username   string          `json:"username" db:"username"`
	Credential string          `json:"-" db:"credential"`
	Cash       decimal.Decimal `json:"cash" db:"cash"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// Transaction is an immutable ledger row. Once created, these are never
// modified or deleted; corrections are made by appending offsetting rows.
//
// Shares is signed: positive = buy, negative = sell, zero for CASH rows.
// Total is always a positive magnitude: price × |shares| for trades, the
// deposited amount for CASH rows. Cash deltas must be derived from
// (Shares, Price) or the CASH total — never by summing Total across
// trades, which carries no sign.
type Transaction struct {
	ID         string          `json:"id" db:"id"`
	UserID     string          `json:"user_id" db:"user_id"`
	Symbol     string          `json:"symbol" db:"symbol"`
	Name       string          `json:"name" db:"name"`
	Shares     int64           `json:"shares" db:"shares"`
	Price      decimal.Decimal `json:"price" db:"price"`
	Total      decimal.Decimal `json:"total" db:"total"`
	Transacted time.Time       `json:"transacted" db:"transacted"`
}

// Quote is an externally supplied current price and display name.
type Quote struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
}

// Position is a user's current net holding in one symbol, derived from the
// ledger. Never stored; recomputed after every write.
type Position struct {
	Symbol    string          `json:"symbol"`
	Name      string          `json:"name"`
	Shares    int64           `json:"shares"`
	CostBasis decimal.Decimal `json:"cost_basis"` // net cash outflow into this symbol
	AvgPrice  decimal.Decimal `json:"avg_price"`  // CostBasis / Shares, display only
	Price     decimal.Decimal `json:"price"`      // latest quote, filled at valuation
	Value     decimal.Decimal `json:"value"`      // Shares × Price
}

// Portfolio is the full read-path snapshot for one user: cash, held
// positions valued at fresh quotes, and total net worth.
type Portfolio struct {
	UserID    string          `json:"user_id"`
	Cash      decimal.Decimal `json:"cash"`
	Positions []Position      `json:"positions"`
	NetWorth  decimal.Decimal `json:"net_worth"` // cash + Σ position values
}
