package quotes

import (
	"context"
	"time"

	"github.com/Flight-Inspired/PaperTrade/internal/cache"
	"github.com/Flight-Inspired/PaperTrade/internal/domain"
	"github.com/Flight-Inspired/PaperTrade/internal/models"
)

// Cached decorates a Provider with a short-TTL ristretto cache. Read-only
// paths (quote endpoint, valuation) go through it; buys and sells skip it so
// every trade executes at a price the operation personally observed.
type Cached struct {
	next Provider
	c    *cache.Cache
}

func NewCached(next Provider, ttl time.Duration) (*Cached, error) {
	c, err := cache.New(1<<20, ttl)
	if err != nil {
		return nil, err
	}
	return &Cached{next: next, c: c}, nil
}

func (p *Cached) Lookup(ctx context.Context, symbol string) (models.Quote, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if v, ok := p.c.Get(symbol); ok {
		if q, ok := v.(models.Quote); ok {
			return q, nil
		}
	}
	q, err := p.next.Lookup(ctx, symbol)
	if err != nil {
		// Misses and failures are not cached: a symbol can list tomorrow
		// and an outage should not outlive itself.
		return models.Quote{}, err
	}
	p.c.Set(symbol, q)
	return q, nil
}
