package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/Flight-Inspired/PaperTrade/internal/models"
)

var (
	ErrUserNotFound      = errors.New("ledger: user not found")
	ErrUsernameTaken     = errors.New("ledger: username already taken")
	ErrInvalidAmount     = errors.New("ledger: amount must be positive")
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")
	ErrOversell          = errors.New("ledger: not enough shares held")

	// ErrConflict signals a stale optimistic write. It is retried by the
	// engine and never reaches callers.
	ErrConflict = errors.New("ledger: concurrent modification")
)

// Store is durable access to the cash scalar and the append-only trade log.
//
// ExecuteTrade is the atomic unit: inside one critical section it re-reads
// cash, re-derives the symbol position, enforces the funds and oversell
// checks, writes the new cash, and appends the transaction row. Either both
// the cash write and the row land, or neither does. Callers pass signed
// shares: positive buys, negative sells.
type Store interface {
	CreateUser(ctx context.Context, username, passwordHash string, startingCash decimal.Decimal) (models.User, error)
	User(ctx context.Context, id int64) (models.User, error)
	Cash(ctx context.Context, userID int64) (decimal.Decimal, error)

	Deposit(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error)
	ExecuteTrade(ctx context.Context, userID int64, symbol string, shares int64, price decimal.Decimal) (models.Transaction, error)

	Transactions(ctx context.Context, userID int64) ([]models.Transaction, error)
	Deposits(ctx context.Context, userID int64) ([]models.Deposit, error)
}

// tradeDelta is the signed cash movement of a trade: negative for a buy
// (cash out), positive for a sell (cash in).
func tradeDelta(shares int64, price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(-shares))
}
