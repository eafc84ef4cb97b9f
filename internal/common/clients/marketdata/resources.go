package marketdata

import (
	"time"

	"github.com/mkorobovv/trade-mirror/internal/common/domain"
)

type getChartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  any           `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol              string  `json:"symbol"`
		RegularMarketPrice  float64 `json:"regularMarketPrice"`
		RegularMarketVolume int64   `json:"regularMarketVolume"`
		ChartPreviousClose  float64 `json:"chartPreviousClose"`
		RegularMarketTime   int64   `json:"regularMarketTime"`
	} `json:"meta"`

	Timestamp []int64 `json:"timestamp"`

	Indicators struct {
		Quote []struct {
			Close  []float64 `json:"close"`
			Volume []int64   `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

// CreateDomain maps the upstream chart payload to a domain.Quote. Returns nil
// when the payload carries no usable price.
func (res *getChartResponse) CreateDomain() *domain.Quote {
	if len(res.Chart.Result) == 0 {
		return nil
	}

	r := res.Chart.Result[0]

	price := r.Meta.RegularMarketPrice
	updatedAt := time.Unix(r.Meta.RegularMarketTime, 0)

	// Fallback to the last non-zero close when meta is missing.
	if price <= 0 && len(r.Timestamp) > 0 && len(r.Indicators.Quote) > 0 &&
		len(r.Indicators.Quote[0].Close) == len(r.Timestamp) {
		closes := r.Indicators.Quote[0].Close
		for i := len(r.Timestamp) - 1; i >= 0; i-- {
			if closes[i] > 0 {
				price = closes[i]
				updatedAt = time.Unix(r.Timestamp[i], 0)
				break
			}
		}
	}

	if price <= 0 {
		return nil
	}

	if updatedAt.IsZero() || r.Meta.RegularMarketTime == 0 {
		updatedAt = time.Now()
	}

	var change, changePercent float64
	if r.Meta.ChartPreviousClose > 0 {
		change = price - r.Meta.ChartPreviousClose
		changePercent = change / r.Meta.ChartPreviousClose * 100
	}

	return &domain.Quote{
		Symbol:        r.Meta.Symbol,
		Price:         price,
		Change:        change,
		ChangePercent: changePercent,
		Volume:        r.Meta.RegularMarketVolume,
		LastUpdated:   updatedAt,
	}
}
