package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Flight-Inspired/PaperTrade/internal/domain"
	"github.com/Flight-Inspired/PaperTrade/internal/models"
)

// Yahoo fetches quotes from the Yahoo Finance v8 chart endpoint.
type Yahoo struct {
	cli  *http.Client
	base string
}

func NewYahoo() *Yahoo {
	return &Yahoo{
		cli:  &http.Client{Timeout: 8 * time.Second},
		base: "https://query2.finance.yahoo.com",
	}
}

// NewYahooWithBase points the provider at an alternative host (tests).
func NewYahooWithBase(base string) *Yahoo {
	y := NewYahoo()
	y.base = base
	return y
}

func (p *Yahoo) Lookup(ctx context.Context, symbol string) (models.Quote, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return models.Quote{}, ErrNotFound
	}

	url := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1m&range=1d", p.base, symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.Quote{}, err
	}
	req.Header.Set("User-Agent", "papertrade/1.0")

	resp, err := p.cli.Do(req)
	if err != nil {
		return models.Quote{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return models.Quote{}, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return models.Quote{}, fmt.Errorf("yahoo http %d", resp.StatusCode)
	}

	var raw struct {
		Chart struct {
			Result []struct {
				Meta struct {
					Symbol             string  `json:"symbol"`
					LongName           string  `json:"longName"`
					ShortName          string  `json:"shortName"`
					RegularMarketPrice float64 `json:"regularMarketPrice"`
					RegularMarketTime  int64   `json:"regularMarketTime"`
				} `json:"meta"`
				Timestamp  []int64 `json:"timestamp"`
				Indicators struct {
					Quote []struct {
						Close []float64 `json:"close"`
					} `json:"quote"`
				} `json:"indicators"`
			} `json:"result"`
			Error any `json:"error"`
		} `json:"chart"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return models.Quote{}, err
	}
	if len(raw.Chart.Result) == 0 {
		return models.Quote{}, ErrNotFound
	}

	r := raw.Chart.Result[0]
	price := r.Meta.RegularMarketPrice
	asOf := time.Unix(r.Meta.RegularMarketTime, 0)

	// Fallback: last non-zero close when meta is missing.
	if (price <= 0 || r.Meta.RegularMarketTime == 0) && len(r.Timestamp) > 0 &&
		len(r.Indicators.Quote) > 0 && len(r.Indicators.Quote[0].Close) == len(r.Timestamp) {
		for i := len(r.Timestamp) - 1; i >= 0; i-- {
			if c := r.Indicators.Quote[0].Close[i]; c > 0 {
				price = c
				asOf = time.Unix(r.Timestamp[i], 0)
				break
			}
		}
	}
	if price <= 0 {
		return models.Quote{}, ErrNotFound
	}
	if asOf.IsZero() {
		asOf = time.Now()
	}

	name := r.Meta.LongName
	if name == "" {
		name = r.Meta.ShortName
	}
	if name == "" {
		name = symbol
	}
	return models.Quote{
		Symbol: symbol,
		Name:   name,
		Price:  decimal.NewFromFloat(price).Round(2),
		AsOf:   asOf,
	}, nil
}
