// Package quote defines the price lookup contract and its implementations.
//
// The engine treats quotes as an external, side-effect-free collaborator:
// a lookup must fully resolve before any mutation begins, and its failures
// surface as typed errors — never as partial writes.
package quote

import (
	"context"
	"errors"

	"github.com/papertrade/ledger-engine/internal/model"
)

// ErrUnknownSymbol is returned when the provider has no quote for a symbol.
var ErrUnknownSymbol = errors.New("quote: unknown symbol")

// Provider supplies current prices and display names for ticker symbols.
// Lookup must have no side effects observable by the engine.
type Provider interface {
	Lookup(ctx context.Context, symbol string) (*model.Quote, error)
}
