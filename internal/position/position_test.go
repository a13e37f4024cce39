package position_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/papertrade/ledger-engine/internal/model"
	"github.com/papertrade/ledger-engine/internal/position"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func tx(symbol string, shares int64, price float64) model.Transaction {
	total := d(price).Mul(decimal.NewFromInt(shares)).Abs()
	return model.Transaction{
		UserID: "user1",
		Symbol: symbol,
		Name:   symbol + " Corp",
		Shares: shares,
		Price:  d(price),
		Total:  total,
	}
}

func deposit(amount float64) model.Transaction {
	return model.Transaction{
		UserID: "user1",
		Symbol: model.CashSymbol,
		Name:   "Cash deposit",
		Price:  decimal.Zero,
		Total:  d(amount),
	}
}

func TestAggregate_GroupsBySymbol(t *testing.T) {
	txs := []model.Transaction{
		tx("AAPL", 10, 100),
		tx("GOOG", 3, 50),
		tx("AAPL", 5, 110),
	}

	positions := position.Aggregate(txs)
	if len(positions) != 2 {
		t.Fatalf("expected 2 positions, got %d", len(positions))
	}

	// Ordered by symbol.
	if positions[0].Symbol != "AAPL" || positions[1].Symbol != "GOOG" {
		t.Errorf("unexpected order: %s, %s", positions[0].Symbol, positions[1].Symbol)
	}
	if positions[0].Shares != 15 {
		t.Errorf("expected 15 AAPL shares, got %d", positions[0].Shares)
	}
	// Cost basis: 10×100 + 5×110 = 1550.
	if !positions[0].CostBasis.Equal(d(1550)) {
		t.Errorf("expected cost basis 1550, got %s", positions[0].CostBasis)
	}
}

func TestAggregate_SellsReduceNetShares(t *testing.T) {
	txs := []model.Transaction{
		tx("AAPL", 10, 100),
		tx("AAPL", -5, 120),
	}

	positions := position.Aggregate(txs)
	if len(positions) != 1 {
		t.Fatalf("expected 1 position, got %d", len(positions))
	}
	if positions[0].Shares != 5 {
		t.Errorf("expected net 5 shares, got %d", positions[0].Shares)
	}
	// Cost basis: 1000 − 600 = 400.
	if !positions[0].CostBasis.Equal(d(400)) {
		t.Errorf("expected cost basis 400, got %s", positions[0].CostBasis)
	}
}

func TestAggregate_FiltersClosedPositions(t *testing.T) {
	txs := []model.Transaction{
		tx("AAPL", 10, 100),
		tx("AAPL", -10, 120),
		tx("GOOG", 1, 50),
	}

	positions := position.Aggregate(txs)
	if len(positions) != 1 {
		t.Fatalf("expected only the open position, got %d", len(positions))
	}
	if positions[0].Symbol != "GOOG" {
		t.Errorf("expected GOOG, got %s", positions[0].Symbol)
	}
}

func TestAggregate_SkipsCashRows(t *testing.T) {
	txs := []model.Transaction{
		deposit(500),
		tx("AAPL", 2, 100),
		deposit(250),
	}

	positions := position.Aggregate(txs)
	if len(positions) != 1 {
		t.Fatalf("expected 1 position, got %d", len(positions))
	}
	if positions[0].Symbol != "AAPL" {
		t.Errorf("deposits must not appear as positions, got %s", positions[0].Symbol)
	}
}

func TestAggregate_Empty(t *testing.T) {
	if got := position.Aggregate(nil); len(got) != 0 {
		t.Errorf("expected no positions, got %d", len(got))
	}
}

// Calling the aggregator twice with no intervening writes must yield
// identical results.
func TestAggregate_Idempotent(t *testing.T) {
	txs := []model.Transaction{
		tx("AAPL", 10, 100),
		tx("AAPL", -3, 105),
		tx("GOOG", 7, 50),
		deposit(100),
	}

	first := position.Aggregate(txs)
	second := position.Aggregate(txs)

	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Symbol != second[i].Symbol ||
			first[i].Shares != second[i].Shares ||
			!first[i].CostBasis.Equal(second[i].CostBasis) {
			t.Errorf("position %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestNetShares_RawSignedSum(t *testing.T) {
	txs := []model.Transaction{
		tx("AAPL", 10, 100),
		tx("AAPL", -4, 110),
		tx("GOOG", 2, 50),
	}

	if got := position.NetShares(txs, "AAPL"); got != 6 {
		t.Errorf("expected 6, got %d", got)
	}
	if got := position.NetShares(txs, "GOOG"); got != 2 {
		t.Errorf("expected 2, got %d", got)
	}
	if got := position.NetShares(txs, "MSFT"); got != 0 {
		t.Errorf("expected 0 for unheld symbol, got %d", got)
	}
}

func TestCashDelta(t *testing.T) {
	cases := []struct {
		name string
		tx   model.Transaction
		want decimal.Decimal
	}{
		{"buy debits", tx("AAPL", 10, 100), d(-1000)},
		{"sell credits", tx("AAPL", -5, 120), d(600)},
		{"deposit credits", deposit(500), d(500)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := position.CashDelta(tc.tx); !got.Equal(tc.want) {
				t.Errorf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

// Replaying CashDelta over a ledger must reconstruct the balance for
// every prefix of the history.
func TestCashDelta_ReplayReconciles(t *testing.T) {
	initial := d(10000)
	txs := []model.Transaction{
		tx("AAPL", 10, 100), // -1000 → 9000
		tx("AAPL", -5, 120), // +600  → 9600
		deposit(500),        // +500  → 10100
		tx("GOOG", 20, 50),  // -1000 → 9100
	}
	want := []decimal.Decimal{d(9000), d(9600), d(10100), d(9100)}

	balance := initial
	for i, entry := range txs {
		balance = balance.Add(position.CashDelta(entry))
		if !balance.Equal(want[i]) {
			t.Fatalf("after %d entries: expected %s, got %s", i+1, want[i], balance)
		}
	}
}
