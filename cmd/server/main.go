package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/papertrade/ledger-engine/internal/auth"
	"github.com/papertrade/ledger-engine/internal/config"
	"github.com/papertrade/ledger-engine/internal/metrics"
	"github.com/papertrade/ledger-engine/internal/model"
	"github.com/papertrade/ledger-engine/internal/quote"
	"github.com/papertrade/ledger-engine/internal/store"
	"github.com/papertrade/ledger-engine/internal/trading"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// --- Configuration ---
	var cfg *config.Config
	var err error
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.FromEnv()
	}
	if err != nil {
		slog.Error("configuration failed", "err", err)
		os.Exit(1)
	}

	// --- Initialize store ---
	var st store.Store
	var cleanup []func()

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)

		if err := store.EnsureSchema(context.Background(), pool); err != nil {
			slog.Error("schema setup failed", "err", err)
			os.Exit(1)
		}
		st = store.NewPostgresStore(pool)
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if cfg.RedisURL != "" {
			opt, err := redis.ParseURL(cfg.RedisURL)
			if err != nil {
				slog.Error("invalid redis_url", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			st = store.NewCachedStore(st, rdb, time.Duration(cfg.CacheTTLSecs)*time.Second)
			slog.Info("Redis cache enabled")
		}
	} else {
		slog.Warn("database_url not set, using in-memory store (data will not persist)")
		st = store.NewMemoryStore()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Quote provider ---
	var quotes quote.Provider
	if cfg.QuoteURL != "" {
		quotes = quote.NewHTTPProvider(cfg.QuoteURL)
		slog.Info("quote provider configured", "url", cfg.QuoteURL)
	} else {
		slog.Warn("quote_url not set, serving static development quotes")
		quotes = quote.NewStaticProvider(
			model.Quote{Symbol: "AAPL", Name: "Apple Inc.", Price: decimal.NewFromFloat(190.50)},
			model.Quote{Symbol: "GOOG", Name: "Alphabet Inc.", Price: decimal.NewFromFloat(141.25)},
			model.Quote{Symbol: "MSFT", Name: "Microsoft Corporation", Price: decimal.NewFromFloat(415.00)},
		)
	}

	// --- Services ---
	authSvc := auth.NewService(st, cfg.JWTSecret,
		time.Duration(cfg.TokenTTLHrs)*time.Hour, cfg.StartingCashDecimal())

	hub := trading.NewEventHub()
	go hub.Run()

	engine := trading.NewEngine(st, quotes, hub)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"ledger-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/register", authSvc.HandleRegister)
		r.Post("/login", authSvc.HandleLogin)

		// Everything else requires a bearer token.
		r.Group(func(r chi.Router) {
			r.Use(authSvc.Middleware)

			// WebSocket endpoint for confirmation events.
			r.Get("/ws", hub.HandleWS)

			r.Get("/quote/{symbol}", engine.HandleQuote)
			r.Post("/buy", engine.HandleBuy)
			r.Post("/sell", engine.HandleSell)
			r.Post("/deposit", engine.HandleDeposit)
			r.Get("/portfolio", engine.HandlePortfolio)
			r.Get("/history", engine.HandleHistory)
		})
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("ledger-engine listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down ledger-engine...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("ledger-engine stopped")
}
