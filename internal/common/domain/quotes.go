package domain

import (
	"context"
	"time"
)

// QuoteProvider fetches the latest market snapshot for one symbol from the
// upstream source. Implementations must be safe for concurrent use.
type QuoteProvider interface {
	FetchQuote(ctx context.Context, symbol string) (*Quote, error)
}

// Quote is a single instrument's latest price snapshot. Price is 0 only for
// the placeholder created before the first successful refresh.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	Volume        int64     `json:"volume"`
	MarketCap     float64   `json:"market_cap"`
	LastUpdated   time.Time `json:"last_updated"`
}

// Instrument is one element of the tracked universe.
type Instrument struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Sector string `json:"sector"`
	Tier   int    `json:"tier"` // 1 = top market-cap tier
}
