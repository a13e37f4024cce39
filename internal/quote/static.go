package quote

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/papertrade/ledger-engine/internal/model"
)

// StaticProvider serves quotes from an in-memory table. Used for testing
// and development when no quote API is configured.
type StaticProvider struct {
	mu     sync.RWMutex
	quotes map[string]model.Quote
}

// NewStaticProvider creates a provider pre-loaded with the given quotes.
func NewStaticProvider(quotes ...model.Quote) *StaticProvider {
	p := &StaticProvider{quotes: make(map[string]model.Quote)}
	for _, q := range quotes {
		p.quotes[q.Symbol] = q
	}
	return p
}

func (p *StaticProvider) Lookup(_ context.Context, symbol string) (*model.Quote, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	q, ok := p.quotes[symbol]
	if !ok {
		return nil, ErrUnknownSymbol
	}
	copy := q
	return &copy, nil
}

// SetPrice updates or inserts a quote. Handy for simulating price moves
// between operations in tests.
func (p *StaticProvider) SetPrice(symbol, name string, price decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.quotes[symbol] = model.Quote{Symbol: symbol, Name: name, Price: price}
}
