// Package positions derives share positions from the transaction log.
// There is no stored state to drift: a position is always the sum of the
// signed share quantities in the ledger.
package positions

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Flight-Inspired/PaperTrade/internal/models"
)

type Position struct {
	Shares    int64
	CostBasis decimal.Decimal
}

// Aggregate folds the log into per-symbol positions. Pure function of its
// input; order of transactions does not matter.
func Aggregate(txs []models.Transaction) map[string]Position {
	out := make(map[string]Position)
	for _, tx := range txs {
		p := out[tx.Symbol]
		p.Shares += tx.Shares
		p.CostBasis = p.CostBasis.Add(tx.Price.Mul(decimal.NewFromInt(tx.Shares)))
		out[tx.Symbol] = p
	}
	return out
}

// Holdings returns only open positions (shares > 0), sorted by symbol.
// A fully sold symbol drops out of holdings; its rows stay in the history.
func Holdings(txs []models.Transaction) []models.Holding {
	agg := Aggregate(txs)
	out := make([]models.Holding, 0, len(agg))
	for sym, p := range agg {
		if p.Shares <= 0 {
			continue
		}
		out = append(out, models.Holding{Symbol: sym, Shares: p.Shares, CostBasis: p.CostBasis})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// SharesOf is the net share count for one symbol.
func SharesOf(txs []models.Transaction, symbol string) int64 {
	var n int64
	for _, tx := range txs {
		if tx.Symbol == symbol {
			n += tx.Shares
		}
	}
	return n
}
