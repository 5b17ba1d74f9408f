package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Flight-Inspired/PaperTrade/internal/models"
)

// Memory is an in-process store with the same contract as Postgres, used by
// tests and standalone runs. Writes are optimistic: the balance snapshot
// carries a version counter and a commit against a stale version fails with
// ErrConflict, which the engine retries.
type Memory struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]*memUser
	names  map[string]int64
}

type memUser struct {
	user     models.User
	version  uint64
	txs      []models.Transaction
	deposits []models.Deposit
	nextTx   int64
	nextDep  int64
}

func NewMemory() *Memory {
	return &Memory{users: make(map[int64]*memUser), names: make(map[string]int64)}
}

var _ Store = (*Memory)(nil)

func (s *Memory) CreateUser(_ context.Context, username, passwordHash string, startingCash decimal.Decimal) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.names[username]; taken {
		return models.User{}, ErrUsernameTaken
	}
	s.nextID++
	u := models.User{ID: s.nextID, Username: username, PasswordHash: passwordHash, Cash: startingCash}
	s.users[u.ID] = &memUser{user: u, nextTx: 1, nextDep: 1}
	s.names[username] = u.ID
	return u, nil
}

func (s *Memory) User(_ context.Context, id int64) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mu, ok := s.users[id]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return mu.user, nil
}

func (s *Memory) Cash(_ context.Context, userID int64) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mu, ok := s.users[userID]
	if !ok {
		return decimal.Zero, ErrUserNotFound
	}
	return mu.user.Cash, nil
}

func (s *Memory) Deposit(_ context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.Sign() <= 0 {
		return decimal.Zero, ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	mu, ok := s.users[userID]
	if !ok {
		return decimal.Zero, ErrUserNotFound
	}
	mu.user.Cash = mu.user.Cash.Add(amount)
	mu.version++
	mu.deposits = append(mu.deposits, models.Deposit{
		ID: mu.nextDep, UserID: userID, Amount: amount, TS: time.Now().UTC(),
	})
	mu.nextDep++
	return mu.user.Cash, nil
}

func (s *Memory) ExecuteTrade(_ context.Context, userID int64, symbol string, shares int64, price decimal.Decimal) (models.Transaction, error) {
	// Optimistic snapshot.
	s.mu.RLock()
	mu, ok := s.users[userID]
	if !ok {
		s.mu.RUnlock()
		return models.Transaction{}, ErrUserNotFound
	}
	cash := mu.user.Cash
	version := mu.version
	var held int64
	if shares < 0 {
		for _, t := range mu.txs {
			if t.Symbol == symbol {
				held += t.Shares
			}
		}
	}
	s.mu.RUnlock()

	delta := tradeDelta(shares, price)
	newCash := cash.Add(delta)
	if shares > 0 && newCash.Sign() < 0 {
		return models.Transaction{}, ErrInsufficientFunds
	}
	if shares < 0 && -shares > held {
		return models.Transaction{}, ErrOversell
	}

	// Commit only if nothing moved since the snapshot.
	s.mu.Lock()
	defer s.mu.Unlock()
	if mu.version != version {
		return models.Transaction{}, ErrConflict
	}
	tx := models.Transaction{
		ID: mu.nextTx, UserID: userID, Symbol: symbol,
		Shares: shares, Price: price, TS: time.Now().UTC(),
	}
	mu.nextTx++
	mu.user.Cash = newCash
	mu.version++
	mu.txs = append(mu.txs, tx)
	return tx, nil
}

func (s *Memory) Transactions(_ context.Context, userID int64) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mu, ok := s.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	// Most recent first.
	out := make([]models.Transaction, 0, len(mu.txs))
	for i := len(mu.txs) - 1; i >= 0; i-- {
		out = append(out, mu.txs[i])
	}
	return out, nil
}

func (s *Memory) Deposits(_ context.Context, userID int64) ([]models.Deposit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mu, ok := s.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	out := make([]models.Deposit, 0, len(mu.deposits))
	for i := len(mu.deposits) - 1; i >= 0; i-- {
		out = append(out, mu.deposits[i])
	}
	return out, nil
}
