package ledger

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newUser(t *testing.T, s Store, cash string) int64 {
	t.Helper()
	u, err := s.CreateUser(context.Background(), "alice", "x", dec(cash))
	require.NoError(t, err)
	return u.ID
}

func TestCreateUser(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "alice", "hash", dec("10000.00"))
	require.NoError(t, err)
	assert.True(t, u.Cash.Equal(dec("10000.00")))

	_, err = s.CreateUser(ctx, "alice", "hash", dec("10000.00"))
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = s.User(ctx, u.ID+1)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestExecuteTradeConservation(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	id := newUser(t, s, "10000.00")

	tx, err := s.ExecuteTrade(ctx, id, "NFLX", 10, dec("500.00"))
	require.NoError(t, err)
	assert.Equal(t, int64(10), tx.Shares)

	cash, err := s.Cash(ctx, id)
	require.NoError(t, err)
	assert.True(t, cash.Equal(dec("5000.00")), "cash = %s", cash)

	// A sell moves cash by exactly shares x price.
	_, err = s.ExecuteTrade(ctx, id, "NFLX", -4, dec("550.00"))
	require.NoError(t, err)
	cash, _ = s.Cash(ctx, id)
	assert.True(t, cash.Equal(dec("7200.00")), "cash = %s", cash)

	txs, err := s.Transactions(ctx, id)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	// Most recent first.
	assert.Equal(t, int64(-4), txs[0].Shares)
	assert.Equal(t, int64(10), txs[1].Shares)
}

func TestExecuteTradeInsufficientFunds(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	id := newUser(t, s, "100.00")

	_, err := s.ExecuteTrade(ctx, id, "NFLX", 1, dec("500.00"))
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	// No mutation on rejection.
	cash, _ := s.Cash(ctx, id)
	assert.True(t, cash.Equal(dec("100.00")))
	txs, _ := s.Transactions(ctx, id)
	assert.Empty(t, txs)
}

func TestExecuteTradeExactFunds(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	id := newUser(t, s, "500.00")

	// Spending down to exactly zero is allowed; cash >= 0 holds.
	_, err := s.ExecuteTrade(ctx, id, "NFLX", 1, dec("500.00"))
	require.NoError(t, err)
	cash, _ := s.Cash(ctx, id)
	assert.True(t, cash.IsZero())
}

func TestExecuteTradeOversell(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	id := newUser(t, s, "10000.00")

	_, err := s.ExecuteTrade(ctx, id, "NFLX", 5, dec("100.00"))
	require.NoError(t, err)

	_, err = s.ExecuteTrade(ctx, id, "NFLX", -6, dec("100.00"))
	assert.ErrorIs(t, err, ErrOversell)

	// Selling shares of a symbol never bought is also an oversell.
	_, err = s.ExecuteTrade(ctx, id, "AAPL", -1, dec("100.00"))
	assert.ErrorIs(t, err, ErrOversell)

	cash, _ := s.Cash(ctx, id)
	assert.True(t, cash.Equal(dec("9500.00")))
}

func TestDeposit(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	id := newUser(t, s, "100.00")

	newCash, err := s.Deposit(ctx, id, dec("1000.00"))
	require.NoError(t, err)
	assert.True(t, newCash.Equal(dec("1100.00")))

	// Deposits mutate cash only: no transaction row, one audit row.
	txs, _ := s.Transactions(ctx, id)
	assert.Empty(t, txs)
	deps, err := s.Deposits(ctx, id)
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.True(t, deps[0].Amount.Equal(dec("1000.00")))

	_, err = s.Deposit(ctx, id, dec("-5.00"))
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = s.Deposit(ctx, id, decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestUnknownUser(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	_, err := s.Cash(ctx, 42)
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = s.Deposit(ctx, 42, dec("1.00"))
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = s.ExecuteTrade(ctx, 42, "NFLX", 1, dec("1.00"))
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = s.Transactions(ctx, 42)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
