// Package engine validates and applies buy, sell, and deposit operations
// against the ledger store. Oracle lookups happen before the store's critical
// section; only the final validate+mutate step runs inside the atomic unit.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Flight-Inspired/PaperTrade/internal/domain"
	"github.com/Flight-Inspired/PaperTrade/internal/events"
	"github.com/Flight-Inspired/PaperTrade/internal/ledger"
	"github.com/Flight-Inspired/PaperTrade/internal/models"
	"github.com/Flight-Inspired/PaperTrade/internal/positions"
	"github.com/Flight-Inspired/PaperTrade/internal/quotes"
)

var (
	ErrInvalidInput     = errors.New("engine: invalid input")
	ErrUnknownSymbol    = errors.New("engine: unknown symbol")
	ErrQuoteUnavailable = errors.New("engine: quote unavailable")
)

// maxRetries bounds the internal retry loop on optimistic-write conflicts.
// Conflicts are infrastructure noise, never surfaced as such to callers.
const maxRetries = 3

type Engine struct {
	store  ledger.Store
	oracle quotes.Provider
	pub    events.Publisher
	logger *zap.Logger
}

// New wires the engine. pub may be nil when event publishing is disabled.
func New(store ledger.Store, oracle quotes.Provider, pub events.Publisher, logger *zap.Logger) *Engine {
	return &Engine{store: store, oracle: oracle, pub: pub, logger: logger}
}

// Buy purchases qty whole shares of symbol at the oracle's current price.
// The funds check is enforced inside the store's atomic unit.
func (e *Engine) Buy(ctx context.Context, userID int64, symbol string, qty int64) (models.Transaction, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" || qty <= 0 {
		return models.Transaction{}, ErrInvalidInput
	}
	q, err := e.lookup(ctx, symbol)
	if err != nil {
		return models.Transaction{}, err
	}
	tx, err := e.mutate(ctx, userID, symbol, qty, q.Price)
	if err != nil {
		return models.Transaction{}, err
	}
	e.logger.Info("buy executed",
		zap.Int64("user_id", userID),
		zap.String("symbol", symbol),
		zap.Int64("shares", qty),
		zap.String("price", q.Price.String()),
	)
	e.publish(ctx, events.TradeEvent(tx))
	return tx, nil
}

// Sell disposes qty whole shares of symbol at the oracle's current price.
// The holdings pre-check runs before the critical section; the store
// re-validates it inside the atomic unit, so a stale pre-check cannot let
// two concurrent sells overdraw the position.
func (e *Engine) Sell(ctx context.Context, userID int64, symbol string, qty int64) (models.Transaction, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" || qty <= 0 {
		return models.Transaction{}, ErrInvalidInput
	}
	q, err := e.lookup(ctx, symbol)
	if err != nil {
		return models.Transaction{}, err
	}

	txs, err := e.store.Transactions(ctx, userID)
	if err != nil {
		return models.Transaction{}, err
	}
	if qty > positions.SharesOf(txs, symbol) {
		return models.Transaction{}, ledger.ErrOversell
	}

	tx, err := e.mutate(ctx, userID, symbol, -qty, q.Price)
	if err != nil {
		return models.Transaction{}, err
	}
	e.logger.Info("sell executed",
		zap.Int64("user_id", userID),
		zap.String("symbol", symbol),
		zap.Int64("shares", qty),
		zap.String("price", q.Price.String()),
	)
	e.publish(ctx, events.TradeEvent(tx))
	return tx, nil
}

// Deposit adds cash to the account. No transaction row is appended; the
// inflow lands in the separate deposits audit trail.
func (e *Engine) Deposit(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.Sign() <= 0 {
		return decimal.Zero, ErrInvalidInput
	}
	newCash, err := e.store.Deposit(ctx, userID, amount)
	if errors.Is(err, ledger.ErrInvalidAmount) {
		return decimal.Zero, ErrInvalidInput
	}
	if err != nil {
		return decimal.Zero, err
	}
	e.logger.Info("deposit executed",
		zap.Int64("user_id", userID),
		zap.String("amount", amount.String()),
	)
	e.publish(ctx, events.DepositEvent(userID, amount, time.Now().UTC()))
	return newCash, nil
}

// lookup consults the oracle, distinguishing an unknown symbol from an
// unreachable oracle. No ledger state is touched on either failure.
func (e *Engine) lookup(ctx context.Context, symbol string) (models.Quote, error) {
	q, err := e.oracle.Lookup(ctx, symbol)
	if errors.Is(err, quotes.ErrNotFound) {
		return models.Quote{}, ErrUnknownSymbol
	}
	if err != nil {
		return models.Quote{}, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}
	return q, nil
}

// mutate applies the trade at the already-observed price, retrying bounded
// times when the store reports a stale optimistic write.
func (e *Engine) mutate(ctx context.Context, userID int64, symbol string, shares int64, price decimal.Decimal) (models.Transaction, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		tx, err := e.store.ExecuteTrade(ctx, userID, symbol, shares, price)
		if err == nil {
			return tx, nil
		}
		if !errors.Is(err, ledger.ErrConflict) {
			return models.Transaction{}, err
		}
		lastErr = err
		e.logger.Debug("trade conflict, retrying",
			zap.Int64("user_id", userID),
			zap.Int("attempt", attempt+1),
		)
	}
	return models.Transaction{}, fmt.Errorf("trade failed after %d attempts: %w", maxRetries, lastErr)
}

func (e *Engine) publish(ctx context.Context, ev events.Event) {
	if e.pub == nil {
		return
	}
	e.pub.Publish(ctx, ev)
}
