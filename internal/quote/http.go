package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/papertrade/ledger-engine/internal/model"
)

// HTTPProvider fetches quotes from an external price API. The endpoint is
// expected to answer GET {base}/quote?symbol=XXX with
// {"symbol": "...", "name": "...", "price": "123.45"} and 404 for symbols
// it does not know.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
}

// NewHTTPProvider creates a provider against the given base URL.
func NewHTTPProvider(baseURL string) *HTTPProvider {
	return &HTTPProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *HTTPProvider) Lookup(ctx context.Context, symbol string) (*model.Quote, error) {
	u := fmt.Sprintf("%s/quote?symbol=%s", p.baseURL, url.QueryEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build quote request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch quote %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrUnknownSymbol
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetch quote %s: unexpected status %s", symbol, resp.Status)
	}

	var body struct {
		Symbol string          `json:"symbol"`
		Name   string          `json:"name"`
		Price  decimal.Decimal `json:"price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode quote %s: %w", symbol, err)
	}
	if body.Price.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("quote %s: non-positive price %s", symbol, body.Price)
	}

	return &model.Quote{Symbol: body.Symbol, Name: body.Name, Price: body.Price}, nil
}
