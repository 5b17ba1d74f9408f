package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Flight-Inspired/PaperTrade/internal/models"
)

// Postgres serializes mutations per user with a row lock on users: every
// buy/sell runs in one transaction that takes SELECT ... FOR UPDATE on the
// user row, re-derives the position inside the same transaction, and commits
// the cash write together with the appended row. Conflicts are queued on the
// lock rather than surfaced, so ErrConflict never originates here.
type Postgres struct{ DB *pgxpool.Pool }

func NewPostgres(db *pgxpool.Pool) *Postgres { return &Postgres{DB: db} }

var _ Store = (*Postgres)(nil)

func (s *Postgres) CreateUser(ctx context.Context, username, passwordHash string, startingCash decimal.Decimal) (models.User, error) {
	u := models.User{Username: username, PasswordHash: passwordHash, Cash: startingCash}
	err := s.DB.QueryRow(ctx, `
		INSERT INTO users (username, password_hash, cash)
		VALUES ($1, $2, $3)
		RETURNING id
	`, username, passwordHash, startingCash).Scan(&u.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.User{}, ErrUsernameTaken
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (s *Postgres) User(ctx context.Context, id int64) (models.User, error) {
	var u models.User
	err := s.DB.QueryRow(ctx,
		`SELECT id, username, password_hash, cash FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Cash)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *Postgres) Cash(ctx context.Context, userID int64) (decimal.Decimal, error) {
	var cash decimal.Decimal
	err := s.DB.QueryRow(ctx, `SELECT cash FROM users WHERE id = $1`, userID).Scan(&cash)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, ErrUserNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("get cash: %w", err)
	}
	return cash, nil
}

func (s *Postgres) Deposit(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.Sign() <= 0 {
		return decimal.Zero, ErrInvalidAmount
	}
	var newCash decimal.Decimal
	err := pgx.BeginFunc(ctx, s.DB, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			UPDATE users SET cash = cash + $1 WHERE id = $2
			RETURNING cash
		`, amount, userID).Scan(&newCash)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("deposit cash: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO deposits (user_id, amount) VALUES ($1, $2)`, userID, amount,
		); err != nil {
			return fmt.Errorf("deposit audit row: %w", err)
		}
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return newCash, nil
}

func (s *Postgres) ExecuteTrade(ctx context.Context, userID int64, symbol string, shares int64, price decimal.Decimal) (models.Transaction, error) {
	var out models.Transaction
	err := pgx.BeginFunc(ctx, s.DB, func(tx pgx.Tx) error {
		var cash decimal.Decimal
		err := tx.QueryRow(ctx,
			`SELECT cash FROM users WHERE id = $1 FOR UPDATE`, userID,
		).Scan(&cash)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("lock user row: %w", err)
		}

		delta := tradeDelta(shares, price)
		newCash := cash.Add(delta)
		if shares > 0 && newCash.Sign() < 0 {
			return ErrInsufficientFunds
		}
		if shares < 0 {
			// Re-derive the position under the lock: the pre-check outside
			// the critical section can be stale.
			var held int64
			if err := tx.QueryRow(ctx, `
				SELECT COALESCE(SUM(shares), 0) FROM transactions
				WHERE user_id = $1 AND symbol = $2
			`, userID, symbol).Scan(&held); err != nil {
				return fmt.Errorf("derive position: %w", err)
			}
			if -shares > held {
				return ErrOversell
			}
		}

		if _, err := tx.Exec(ctx,
			`UPDATE users SET cash = $1 WHERE id = $2`, newCash, userID,
		); err != nil {
			return fmt.Errorf("update cash: %w", err)
		}
		out = models.Transaction{UserID: userID, Symbol: symbol, Shares: shares, Price: price}
		if err := tx.QueryRow(ctx, `
			INSERT INTO transactions (user_id, symbol, shares, price)
			VALUES ($1, $2, $3, $4)
			RETURNING id, ts
		`, userID, symbol, shares, price).Scan(&out.ID, &out.TS); err != nil {
			return fmt.Errorf("append transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Transaction{}, err
	}
	return out, nil
}

func (s *Postgres) Transactions(ctx context.Context, userID int64) ([]models.Transaction, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, user_id, symbol, shares, price, ts FROM transactions
		WHERE user_id = $1
		ORDER BY ts DESC, id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	out := make([]models.Transaction, 0)
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Symbol, &t.Shares, &t.Price, &t.TS); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Postgres) Deposits(ctx context.Context, userID int64) ([]models.Deposit, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, user_id, amount, ts FROM deposits
		WHERE user_id = $1
		ORDER BY ts DESC, id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list deposits: %w", err)
	}
	defer rows.Close()
	out := make([]models.Deposit, 0)
	for rows.Next() {
		var d models.Deposit
		if err := rows.Scan(&d.ID, &d.UserID, &d.Amount, &d.TS); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
