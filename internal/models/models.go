package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is an account holder. Cash is only ever mutated through the ledger
// store; NUMERIC in the database, decimal here to avoid float drift.
type User struct {
	ID           int64           `json:"id"`
	Username     string          `json:"username"`
	PasswordHash string          `json:"-"`
	Cash         decimal.Decimal `json:"cash"`
}

// Transaction is one append-only ledger row. The sign of Shares encodes the
// side: positive for a buy, negative for a sell. Rows are never updated or
// deleted; holdings are derived by summing them.
type Transaction struct {
	ID     int64           `json:"id"`
	UserID int64           `json:"user_id"`
	Symbol string          `json:"symbol"`
	Shares int64           `json:"shares"`
	Price  decimal.Decimal `json:"price"`
	TS     time.Time       `json:"ts"`
}

// Deposit is a cash-inflow audit row. Deposits never appear in the share
// ledger and never affect position aggregation.
type Deposit struct {
	ID     int64           `json:"id"`
	UserID int64           `json:"user_id"`
	Amount decimal.Decimal `json:"amount"`
	TS     time.Time       `json:"ts"`
}

// Holding is a derived open position.
type Holding struct {
	Symbol    string          `json:"symbol"`
	Shares    int64           `json:"shares"`
	CostBasis decimal.Decimal `json:"cost_basis"`
}

// Quote is the oracle's answer for one symbol.
type Quote struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
	AsOf   time.Time       `json:"as_of"`
}
