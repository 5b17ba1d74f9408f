package quotes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Flight-Inspired/PaperTrade/internal/models"
)

func TestStaticProvider(t *testing.T) {
	s := NewStatic()
	s.Set("nflx", "Netflix Inc.", decimal.RequireFromString("500.00"))

	// Lookups are case-insensitive on the symbol.
	q, err := s.Lookup(context.Background(), " nflx ")
	require.NoError(t, err)
	assert.Equal(t, "NFLX", q.Symbol)
	assert.True(t, q.Price.Equal(decimal.RequireFromString("500.00")))

	_, err = s.Lookup(context.Background(), "ZZZZ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestYahooLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/NFLX", r.URL.Path)
		fmt.Fprint(w, `{"chart":{"result":[{"meta":{"symbol":"NFLX","shortName":"Netflix, Inc.","regularMarketPrice":512.34,"regularMarketTime":1700000000}}]}}`)
	}))
	defer srv.Close()

	q, err := NewYahooWithBase(srv.URL).Lookup(context.Background(), "nflx")
	require.NoError(t, err)
	assert.Equal(t, "NFLX", q.Symbol)
	assert.Equal(t, "Netflix, Inc.", q.Name)
	assert.True(t, q.Price.Equal(decimal.RequireFromString("512.34")))
	assert.Equal(t, time.Unix(1700000000, 0), q.AsOf)
}

func TestYahooFallbackToLastClose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":[{"meta":{"symbol":"NFLX"},"timestamp":[1,2,3],"indicators":{"quote":[{"close":[100.5,101.25,0]}]}}]}}`)
	}))
	defer srv.Close()

	q, err := NewYahooWithBase(srv.URL).Lookup(context.Background(), "NFLX")
	require.NoError(t, err)
	// Trailing zero close is skipped; last non-zero close wins.
	assert.True(t, q.Price.Equal(decimal.RequireFromString("101.25")), "price = %s", q.Price)
}

func TestYahooUnknownSymbol(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":[],"error":{"code":"Not Found"}}}`)
	}))
	defer srv.Close()

	_, err := NewYahooWithBase(srv.URL).Lookup(context.Background(), "ZZZZ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestYahooServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewYahooWithBase(srv.URL).Lookup(context.Background(), "NFLX")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

type countingProvider struct {
	next  Provider
	calls atomic.Int64
}

func (p *countingProvider) Lookup(ctx context.Context, symbol string) (models.Quote, error) {
	p.calls.Add(1)
	return p.next.Lookup(ctx, symbol)
}

func TestCachedHitsUnderlyingOnce(t *testing.T) {
	static := NewStatic()
	static.Set("AAPL", "Apple Inc.", decimal.RequireFromString("190.00"))
	counting := &countingProvider{next: static}

	cached, err := NewCached(counting, time.Minute)
	require.NoError(t, err)

	q1, err := cached.Lookup(context.Background(), "AAPL")
	require.NoError(t, err)
	// ristretto admits asynchronously; settle before the second read.
	cached.c.Wait()
	q2, err := cached.Lookup(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.True(t, q1.Price.Equal(q2.Price))
	assert.Equal(t, int64(1), counting.calls.Load())
}

func TestCachedDoesNotCacheFailures(t *testing.T) {
	static := NewStatic()
	static.Err = errors.New("oracle down")
	counting := &countingProvider{next: static}

	cached, err := NewCached(counting, time.Minute)
	require.NoError(t, err)

	_, err = cached.Lookup(context.Background(), "AAPL")
	require.Error(t, err)
	_, err = cached.Lookup(context.Background(), "AAPL")
	require.Error(t, err)
	assert.Equal(t, int64(2), counting.calls.Load())
}
