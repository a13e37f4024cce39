package trading

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/papertrade/ledger-engine/internal/auth"
	"github.com/papertrade/ledger-engine/internal/metrics"
	"github.com/papertrade/ledger-engine/internal/model"
	"github.com/papertrade/ledger-engine/internal/quote"
	"github.com/papertrade/ledger-engine/internal/store"
)

// tradeRequest is the JSON body for POST /buy and /sell. Shares arrives
// as a json.Number so "10.5" and "abc" are rejected as invalid input
// rather than truncated.
type tradeRequest struct {
	Symbol string      `json:"symbol"`
	Shares json.Number `json:"shares"`
}

// depositRequest is the JSON body for POST /deposit.
type depositRequest struct {
	Amount json.Number `json:"amount"`
}

// tradeResponse is returned from buy, sell, and deposit.
type tradeResponse struct {
	Transaction *model.Transaction `json:"transaction"`
	Message     string             `json:"message"`
}

// HandleBuy handles POST /api/v1/buy.
func (e *Engine) HandleBuy(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	shares, err := parseCount(req.Shares)
	if err == nil {
		var entry *model.Transaction
		entry, err = e.Buy(r.Context(), userID, req.Symbol, shares)
		if err == nil {
			metrics.TradesTotal.WithLabelValues("buy").Inc()
			writeJSON(w, http.StatusOK, tradeResponse{
				Transaction: entry,
				Message:     fmt.Sprintf("Bought %d shares of %s", shares, entry.Name),
			})
			return
		}
	}

	metrics.RejectionsTotal.WithLabelValues(reason(err)).Inc()
	writeError(w, err.Error(), statusFor(err))
}

// HandleSell handles POST /api/v1/sell.
func (e *Engine) HandleSell(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	shares, err := parseCount(req.Shares)
	if err == nil {
		var entry *model.Transaction
		entry, err = e.Sell(r.Context(), userID, req.Symbol, shares)
		if err == nil {
			metrics.TradesTotal.WithLabelValues("sell").Inc()
			writeJSON(w, http.StatusOK, tradeResponse{
				Transaction: entry,
				Message:     fmt.Sprintf("Sold %d shares of %s", shares, entry.Name),
			})
			return
		}
	}

	metrics.RejectionsTotal.WithLabelValues(reason(err)).Inc()
	writeError(w, err.Error(), statusFor(err))
}

// HandleDeposit handles POST /api/v1/deposit.
func (e *Engine) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	amount, err := parseCount(req.Amount)
	if err == nil {
		var entry *model.Transaction
		entry, err = e.Deposit(r.Context(), userID, amount)
		if err == nil {
			metrics.DepositsTotal.Inc()
			writeJSON(w, http.StatusOK, tradeResponse{
				Transaction: entry,
				Message:     fmt.Sprintf("Added $%d to your account", amount),
			})
			return
		}
	}

	metrics.RejectionsTotal.WithLabelValues(reason(err)).Inc()
	writeError(w, err.Error(), statusFor(err))
}

// HandlePortfolio handles GET /api/v1/portfolio.
func (e *Engine) HandlePortfolio(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	p, err := e.Portfolio(r.Context(), userID)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	if p.Positions == nil {
		p.Positions = []model.Position{}
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleHistory handles GET /api/v1/history.
func (e *Engine) HandleHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	txs, err := e.History(r.Context(), userID)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	if txs == nil {
		txs = []model.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

// HandleQuote handles GET /api/v1/quote/{symbol}.
func (e *Engine) HandleQuote(w http.ResponseWriter, r *http.Request) {
	q, err := e.Quote(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// parseCount parses a share count or deposit amount: must be an integer
// and at least 1.
func parseCount(n json.Number) (int64, error) {
	v, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidInput, n.String())
	}
	if v < 1 {
		return 0, fmt.Errorf("%w: must be a positive integer", ErrInvalidInput)
	}
	return v, nil
}

// statusFor maps engine errors to HTTP status codes. Anything unmapped is
// a storage or collaborator failure: the operation did not apply at all.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, quote.ErrUnknownSymbol):
		return http.StatusNotFound
	case errors.Is(err, ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrNoPosition), errors.Is(err, ErrInsufficientShares):
		return http.StatusConflict
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// reason labels a rejection for metrics.
func reason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, quote.ErrUnknownSymbol):
		return "unknown_symbol"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrNoPosition):
		return "no_position"
	case errors.Is(err, ErrInsufficientShares):
		return "insufficient_shares"
	default:
		return "internal"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
