// Package quotes is the price-lookup boundary. Providers are treated as
// non-deterministic and fallible: a lookup either returns a quote, reports
// the symbol unknown, or fails outright.
package quotes

import (
	"context"
	"errors"

	"github.com/Flight-Inspired/PaperTrade/internal/models"
)

// ErrNotFound means the provider answered and the symbol does not exist.
// Any other error is a transport or provider failure.
var ErrNotFound = errors.New("quotes: symbol not found")

type Provider interface {
	Lookup(ctx context.Context, symbol string) (models.Quote, error)
}
