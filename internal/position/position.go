// Package position derives current holdings from the transaction ledger.
//
// Positions are never stored: every read aggregates the ledger afresh so
// that a write can never leave a stale holdings cache behind. Valuation is
// a separate step applied with live quotes after aggregation.
package position

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/papertrade/ledger-engine/internal/model"
)

// Aggregate groups a user's ledger by symbol and returns the held
// positions (net shares > 0), ordered by symbol. CASH rows are skipped —
// they affect the balance, not holdings.
//
// Pure function: no side effects, safe to call concurrently. Callers must
// re-aggregate after any write; results must never be cached across one.
func Aggregate(txs []model.Transaction) []model.Position {
	type agg struct {
		name      string
		shares    int64
		costBasis decimal.Decimal
	}

	bySymbol := make(map[string]*agg)
	for _, t := range txs {
		if t.Symbol == model.CashSymbol {
			continue
		}
		a, ok := bySymbol[t.Symbol]
		if !ok {
			a = &agg{}
			bySymbol[t.Symbol] = a
		}
		a.name = t.Name
		a.shares += t.Shares
		// Net cash flow into the symbol: buys add, sells subtract.
		a.costBasis = a.costBasis.Add(t.Price.Mul(decimal.NewFromInt(t.Shares)))
	}

	symbols := make([]string, 0, len(bySymbol))
	for sym, a := range bySymbol {
		if a.shares > 0 {
			symbols = append(symbols, sym)
		}
	}
	sort.Strings(symbols)

	positions := make([]model.Position, 0, len(symbols))
	for _, sym := range symbols {
		a := bySymbol[sym]
		p := model.Position{
			Symbol:    sym,
			Name:      a.name,
			Shares:    a.shares,
			CostBasis: a.costBasis,
		}
		p.AvgPrice = a.costBasis.Div(decimal.NewFromInt(a.shares)).Round(4)
		positions = append(positions, p)
	}
	return positions
}

// NetShares returns the raw signed share sum for one symbol. This is the
// authoritative figure for sell validation — never a rounded or
// display-formatted value.
func NetShares(txs []model.Transaction, symbol string) int64 {
	var n int64
	for _, t := range txs {
		if t.Symbol == symbol {
			n += t.Shares
		}
	}
	return n
}

// CashDelta returns the signed cash effect of one ledger row: deposits
// credit their total, buys debit shares × price, sells credit it. Summing
// CashDelta over a user's ledger replays their balance relative to the
// starting cash.
func CashDelta(t model.Transaction) decimal.Decimal {
	if t.Symbol == model.CashSymbol {
		return t.Total
	}
	return t.Price.Mul(decimal.NewFromInt(t.Shares)).Neg()
}
