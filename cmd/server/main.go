package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Flight-Inspired/PaperTrade/internal/config"
	"github.com/Flight-Inspired/PaperTrade/internal/db"
	"github.com/Flight-Inspired/PaperTrade/internal/engine"
	"github.com/Flight-Inspired/PaperTrade/internal/events"
	httpserver "github.com/Flight-Inspired/PaperTrade/internal/http"
	"github.com/Flight-Inspired/PaperTrade/internal/ledger"
	"github.com/Flight-Inspired/PaperTrade/internal/quotes"
	"github.com/Flight-Inspired/PaperTrade/internal/valuation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	startingCash, err := decimal.NewFromString(cfg.StartingCash)
	if err != nil || startingCash.Sign() < 0 {
		logger.Fatal("starting cash", zap.String("value", cfg.StartingCash))
	}

	// Ledger store: Postgres when configured, in-memory otherwise.
	var store ledger.Store
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("db", zap.Error(err))
		}
		defer pool.Close()
		if err := db.Migrate(ctx, pool); err != nil {
			logger.Fatal("migrate", zap.Error(err))
		}
		store = ledger.NewPostgres(pool)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory ledger store")
		store = ledger.NewMemory()
	}

	// Quote oracle. The engine uses it directly; display reads go through
	// the TTL cache.
	var oracle quotes.Provider
	switch cfg.QuoteProvider {
	case "static":
		oracle = quotes.NewStaticDefaults()
	default:
		oracle = quotes.NewYahoo()
	}
	cached, err := quotes.NewCached(oracle, cfg.QuoteTTL)
	if err != nil {
		logger.Fatal("quote cache", zap.Error(err))
	}

	var pub events.Publisher
	if cfg.KafkaBrokers != "" {
		kp := events.NewKafkaPublisher(strings.Split(cfg.KafkaBrokers, ","), cfg.KafkaTopic, logger)
		defer kp.Close()
		pub = kp
	}

	eng := engine.New(store, oracle, pub, logger)
	val := valuation.New(store, cached)

	s := httpserver.NewServer(store, eng, val, cached, logger, cfg.CORSOrigin, startingCash)

	server := &http.Server{Addr: ":" + cfg.Port, Handler: s.R}
	go func() {
		logger.Info("http listening", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http", zap.Error(err))
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	ctxShut, cancelShut := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShut()
	_ = server.Shutdown(ctxShut)
	logger.Info("shutdown complete")
}
