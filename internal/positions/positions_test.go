package positions

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/Flight-Inspired/PaperTrade/internal/models"
)

func tx(symbol string, shares int64, price string) models.Transaction {
	return models.Transaction{Symbol: symbol, Shares: shares, Price: decimal.RequireFromString(price)}
}

func TestAggregate(t *testing.T) {
	txs := []models.Transaction{
		tx("NFLX", 10, "500.00"),
		tx("NFLX", -4, "550.00"),
		tx("AAPL", 3, "190.00"),
	}

	agg := Aggregate(txs)
	require.Len(t, agg, 2)

	nflx := agg["NFLX"]
	assert.Equal(t, int64(6), nflx.Shares)
	// 10*500 - 4*550 = 2800
	assert.True(t, nflx.CostBasis.Equal(decimal.RequireFromString("2800.00")),
		"cost basis = %s", nflx.CostBasis)

	aapl := agg["AAPL"]
	assert.Equal(t, int64(3), aapl.Shares)
	assert.True(t, aapl.CostBasis.Equal(decimal.RequireFromString("570.00")))
}

func TestHoldingsExcludesFullySold(t *testing.T) {
	txs := []models.Transaction{
		tx("NFLX", 10, "500.00"),
		tx("NFLX", -10, "550.00"),
		tx("AAPL", 2, "190.00"),
	}

	hs := Holdings(txs)
	require.Len(t, hs, 1)
	assert.Equal(t, "AAPL", hs[0].Symbol)

	// The fully sold symbol is gone from holdings but stays in the log.
	assert.Equal(t, int64(0), SharesOf(txs, "NFLX"))
}

func TestHoldingsSortedBySymbol(t *testing.T) {
	txs := []models.Transaction{
		tx("TSLA", 1, "220.00"),
		tx("AAPL", 1, "190.00"),
		tx("MSFT", 1, "420.00"),
	}
	hs := Holdings(txs)
	require.Len(t, hs, 3)
	assert.Equal(t, "AAPL", hs[0].Symbol)
	assert.Equal(t, "MSFT", hs[1].Symbol)
	assert.Equal(t, "TSLA", hs[2].Symbol)
}

func TestHoldingsEmptyLog(t *testing.T) {
	assert.Empty(t, Holdings(nil))
}

// Aggregation is a pure function of the log: same input, same output,
// regardless of how many times it runs and in what order rows arrive.
func TestProperty_AggregateIdempotentAndOrderFree(t *testing.T) {
	symbols := []string{"AAPL", "MSFT", "NFLX"}
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 30).Draw(t, "n")
		txs := make([]models.Transaction, n)
		for i := range txs {
			txs[i] = models.Transaction{
				Symbol: rapid.SampledFrom(symbols).Draw(t, "sym"),
				Shares: rapid.Int64Range(-50, 50).Draw(t, "shares"),
				Price:  decimal.NewFromInt(rapid.Int64Range(1, 1000).Draw(t, "price")),
			}
		}

		first := Aggregate(txs)
		second := Aggregate(txs)
		if len(first) != len(second) {
			t.Fatalf("aggregate not idempotent: %d vs %d symbols", len(first), len(second))
		}
		for sym, p := range first {
			q := second[sym]
			if p.Shares != q.Shares || !p.CostBasis.Equal(q.CostBasis) {
				t.Fatalf("aggregate not idempotent for %s: %+v vs %+v", sym, p, q)
			}
		}

		// Reversed log aggregates identically.
		rev := make([]models.Transaction, n)
		for i := range txs {
			rev[n-1-i] = txs[i]
		}
		for sym, p := range Aggregate(rev) {
			q := first[sym]
			if p.Shares != q.Shares || !p.CostBasis.Equal(q.CostBasis) {
				t.Fatalf("aggregate order-sensitive for %s", sym)
			}
		}
	})
}

// Every ledger produced by buys-then-bounded-sells aggregates to
// non-negative share counts.
func TestProperty_BoundedSellsNeverGoNegative(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		bought := rapid.Int64Range(1, 100).Draw(t, "bought")
		sold := rapid.Int64Range(0, bought).Draw(t, "sold")
		txs := []models.Transaction{
			{Symbol: "TEST", Shares: bought, Price: decimal.NewFromInt(10)},
			{Symbol: "TEST", Shares: -sold, Price: decimal.NewFromInt(12)},
		}
		if got := SharesOf(txs, "TEST"); got < 0 {
			t.Fatalf("net shares went negative: %d", got)
		}
	})
}
