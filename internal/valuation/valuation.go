// Package valuation combines cash and aggregated positions with live quotes
// into a portfolio value. Prices come from the oracle at call time, never
// from acquisition history.
package valuation

import (
	"context"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/Flight-Inspired/PaperTrade/internal/ledger"
	"github.com/Flight-Inspired/PaperTrade/internal/positions"
	"github.com/Flight-Inspired/PaperTrade/internal/quotes"
)

type Row struct {
	Symbol    string          `json:"symbol"`
	Shares    int64           `json:"shares"`
	CostBasis decimal.Decimal `json:"cost_basis"`
	Price     decimal.Decimal `json:"price"`
	Value     decimal.Decimal `json:"value"`
	Display   string          `json:"display"`
	// QuoteUnavailable marks a held symbol the oracle could not price. The
	// row is kept (shares and cost basis are still known) but excluded from
	// the total.
	QuoteUnavailable bool `json:"quote_unavailable,omitempty"`
}

type Portfolio struct {
	UserID       int64           `json:"user_id"`
	Cash         decimal.Decimal `json:"cash"`
	CashDisplay  string          `json:"cash_display"`
	Rows         []Row           `json:"rows"`
	Total        decimal.Decimal `json:"total"`
	TotalDisplay string          `json:"total_display"`
	Incomplete   bool            `json:"incomplete,omitempty"`
	AsOf         time.Time       `json:"as_of"`
}

type Service struct {
	store  ledger.Store
	oracle quotes.Provider
}

func New(store ledger.Store, oracle quotes.Provider) *Service {
	return &Service{store: store, oracle: oracle}
}

// Portfolio values the account: cash plus every open position at its live
// price. A failed quote degrades that row, not the whole portfolio.
func (s *Service) Portfolio(ctx context.Context, userID int64) (Portfolio, error) {
	cash, err := s.store.Cash(ctx, userID)
	if err != nil {
		return Portfolio{}, err
	}
	txs, err := s.store.Transactions(ctx, userID)
	if err != nil {
		return Portfolio{}, err
	}

	out := Portfolio{
		UserID: userID,
		Cash:   cash,
		Total:  cash,
		Rows:   make([]Row, 0),
		AsOf:   time.Now().UTC(),
	}
	for _, h := range positions.Holdings(txs) {
		row := Row{Symbol: h.Symbol, Shares: h.Shares, CostBasis: h.CostBasis}
		q, err := s.oracle.Lookup(ctx, h.Symbol)
		if err != nil {
			row.QuoteUnavailable = true
			out.Incomplete = true
		} else {
			row.Price = q.Price
			row.Value = q.Price.Mul(decimal.NewFromInt(h.Shares))
			row.Display = USD(row.Value)
			out.Total = out.Total.Add(row.Value)
		}
		out.Rows = append(out.Rows, row)
	}
	out.CashDisplay = USD(cash)
	out.TotalDisplay = USD(out.Total)
	return out, nil
}

// USD renders an amount the way the account currency displays it,
// e.g. "$7,200.00".
func USD(d decimal.Decimal) string {
	minor := d.Shift(2).Round(0).IntPart()
	return money.New(minor, money.USD).Display()
}
