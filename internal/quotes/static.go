package quotes

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Flight-Inspired/PaperTrade/internal/domain"
	"github.com/Flight-Inspired/PaperTrade/internal/models"
)

// Static serves quotes from a fixed table. Used by tests and offline runs.
type Static struct {
	mu     sync.RWMutex
	quotes map[string]models.Quote
	// Err, when set, is returned by every lookup (simulates oracle outage).
	Err error
}

func NewStatic() *Static {
	return &Static{quotes: make(map[string]models.Quote)}
}

// NewStaticDefaults seeds a handful of familiar tickers.
func NewStaticDefaults() *Static {
	s := NewStatic()
	for sym, p := range map[string]string{
		"AAPL": "190.00", "MSFT": "420.00", "GOOGL": "145.00",
		"AMZN": "180.00", "TSLA": "220.00", "NVDA": "800.00", "NFLX": "500.00",
	} {
		s.Set(sym, sym+" Inc.", decimal.RequireFromString(p))
	}
	return s
}

func (s *Static) Set(symbol, name string, price decimal.Decimal) {
	symbol = domain.NormalizeSymbol(symbol)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[symbol] = models.Quote{Symbol: symbol, Name: name, Price: price, AsOf: time.Now().UTC()}
}

func (s *Static) Lookup(_ context.Context, symbol string) (models.Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return models.Quote{}, s.Err
	}
	q, ok := s.quotes[domain.NormalizeSymbol(symbol)]
	if !ok {
		return models.Quote{}, ErrNotFound
	}
	return q, nil
}
