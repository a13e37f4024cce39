package trading_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/papertrade/ledger-engine/internal/auth"
	"github.com/papertrade/ledger-engine/internal/model"
	"github.com/papertrade/ledger-engine/internal/quote"
	"github.com/papertrade/ledger-engine/internal/store"
	"github.com/papertrade/ledger-engine/internal/trading"
)

// newHTTPEnv wires an engine, auth service, and chi router the way
// cmd/server does, returning a bearer token for a funded user.
func newHTTPEnv(t *testing.T) (chi.Router, *store.MemoryStore, string) {
	t.Helper()
	ms := store.NewMemoryStore()
	quotes := quote.NewStaticProvider(
		model.Quote{Symbol: "AAPL", Name: "Apple Inc.", Price: d(100)},
	)
	eng := trading.NewEngine(ms, quotes, nil)
	authSvc := auth.NewService(ms, "test-secret", time.Hour, d(10000))

	_, token, err := authSvc.Register(context.Background(), "alice", "hunter2pass", "hunter2pass")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authSvc.Middleware)
			r.Get("/quote/{symbol}", eng.HandleQuote)
			r.Post("/buy", eng.HandleBuy)
			r.Post("/sell", eng.HandleSell)
			r.Post("/deposit", eng.HandleDeposit)
			r.Get("/portfolio", eng.HandlePortfolio)
			r.Get("/history", eng.HandleHistory)
		})
	})

	return r, ms, token
}

func doJSON(t *testing.T, router chi.Router, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func userCash(t *testing.T, ms *store.MemoryStore) string {
	t.Helper()
	u, err := ms.GetUserByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	return u.Cash.String()
}

func TestHandleBuy_OK(t *testing.T) {
	router, ms, token := newHTTPEnv(t)

	w := doJSON(t, router, "POST", "/api/v1/buy", token, `{"symbol":"AAPL","shares":10}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Transaction model.Transaction `json:"transaction"`
		Message     string            `json:"message"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)

	if resp.Transaction.Shares != 10 {
		t.Errorf("expected 10 shares, got %d", resp.Transaction.Shares)
	}
	if !strings.Contains(resp.Message, "Bought 10") {
		t.Errorf("unexpected message: %q", resp.Message)
	}
	if got := userCash(t, ms); got != "9000" {
		t.Errorf("expected cash 9000, got %s", got)
	}
}

func TestHandleBuy_NonIntegerShares(t *testing.T) {
	router, ms, token := newHTTPEnv(t)

	for _, body := range []string{
		`{"symbol":"AAPL","shares":10.5}`,
		`{"symbol":"AAPL","shares":0}`,
		`{"symbol":"AAPL","shares":-3}`,
		`{"symbol":"AAPL","shares":"abc"}`,
	} {
		w := doJSON(t, router, "POST", "/api/v1/buy", token, body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", body, w.Code)
		}
	}
	if got := userCash(t, ms); got != "10000" {
		t.Errorf("cash changed on rejected buys: %s", got)
	}
}

func TestHandleBuy_UnknownSymbol(t *testing.T) {
	router, _, token := newHTTPEnv(t)

	w := doJSON(t, router, "POST", "/api/v1/buy", token, `{"symbol":"ZZZZ","shares":1}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestHandleBuy_InsufficientFunds(t *testing.T) {
	router, ms, token := newHTTPEnv(t)

	w := doJSON(t, router, "POST", "/api/v1/buy", token, `{"symbol":"AAPL","shares":500}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d: %s", w.Code, w.Body.String())
	}
	if got := userCash(t, ms); got != "10000" {
		t.Errorf("cash changed on rejected buy: %s", got)
	}
}

func TestHandleSell_NoPosition(t *testing.T) {
	router, _, token := newHTTPEnv(t)

	w := doJSON(t, router, "POST", "/api/v1/sell", token, `{"symbol":"AAPL","shares":10}`)
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

// Depositing "-5" is rejected as invalid input with cash unchanged.
func TestHandleDeposit_NegativeAmount(t *testing.T) {
	router, ms, token := newHTTPEnv(t)

	w := doJSON(t, router, "POST", "/api/v1/deposit", token, `{"amount":-5}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if got := userCash(t, ms); got != "10000" {
		t.Errorf("cash changed on rejected deposit: %s", got)
	}
}

func TestHandleDeposit_OK(t *testing.T) {
	router, ms, token := newHTTPEnv(t)

	w := doJSON(t, router, "POST", "/api/v1/deposit", token, `{"amount":500}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := userCash(t, ms); got != "10500" {
		t.Errorf("expected cash 10500, got %s", got)
	}
}

func TestHandlePortfolio_ReflectsWrites(t *testing.T) {
	router, _, token := newHTTPEnv(t)

	doJSON(t, router, "POST", "/api/v1/buy", token, `{"symbol":"AAPL","shares":10}`)

	w := doJSON(t, router, "GET", "/api/v1/portfolio", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var p model.Portfolio
	json.Unmarshal(w.Body.Bytes(), &p)

	if len(p.Positions) != 1 || p.Positions[0].Symbol != "AAPL" {
		t.Fatalf("expected one AAPL position, got %+v", p.Positions)
	}
	if p.Positions[0].Shares != 10 {
		t.Errorf("expected 10 shares, got %d", p.Positions[0].Shares)
	}
	if !p.NetWorth.Equal(d(10000)) {
		t.Errorf("expected net worth 10000, got %s", p.NetWorth)
	}
}

func TestHandleHistory_Empty(t *testing.T) {
	router, _, token := newHTTPEnv(t)

	w := doJSON(t, router, "GET", "/api/v1/history", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("expected empty array, got %s", w.Body.String())
	}
}

func TestHandleQuote_OK(t *testing.T) {
	router, _, token := newHTTPEnv(t)

	w := doJSON(t, router, "GET", "/api/v1/quote/aapl", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var q model.Quote
	json.Unmarshal(w.Body.Bytes(), &q)
	if q.Symbol != "AAPL" {
		t.Errorf("expected normalized AAPL, got %s", q.Symbol)
	}
}

func TestHandlers_RequireToken(t *testing.T) {
	router, _, _ := newHTTPEnv(t)

	w := doJSON(t, router, "POST", "/api/v1/buy", "", `{"symbol":"AAPL","shares":1}`)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", w.Code)
	}
}
