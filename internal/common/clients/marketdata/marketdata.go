// Package marketdata wraps the upstream quote endpoint behind the
// domain.QuoteProvider port. The upstream is treated as a black box that can
// be slow, rate-limited or unavailable; callers own the fallback behavior.
package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mkorobovv/trade-mirror/internal/common/config"
	"github.com/mkorobovv/trade-mirror/internal/common/domain"
	"github.com/mkorobovv/trade-mirror/pkg/errs"
	"github.com/sethvargo/go-retry"
)

var ErrNoResult = errors.New("marketdata: no result for symbol")

type Client struct {
	httpClient *http.Client

	baseURL       string
	retryAttempts uint64
}

func NewClient(cfg *config.Market) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		retryAttempts: cfg.RetryAttempts,
	}
}

// FetchQuote returns the latest quote for ticker. Transient upstream errors
// are retried with fibonacci backoff; an empty upstream result is returned
// as ErrNoResult without retrying.
func (c *Client) FetchQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, ErrNoResult
	}

	var quote *domain.Quote

	backoff := retry.WithMaxRetries(c.retryAttempts, retry.NewFibonacci(200*time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		quote, err = c.fetchOnce(ctx, symbol)
		if err == nil {
			return nil
		}

		if errors.Is(err, ErrNoResult) {
			return err
		}

		return retry.RetryableError(err)
	})
	if err != nil {
		return nil, err
	}

	return quote, nil
}

func (c *Client) fetchOnce(ctx context.Context, symbol string) (*domain.Quote, error) {
	url := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1m&range=1d", c.baseURL, symbol)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.NewStack(err)
	}
	req.Header.Set("User-Agent", "trade-mirror/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errs.NewStack(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("marketdata: upstream http %d", resp.StatusCode)
	}

	res := &getChartResponse{}
	if err := json.NewDecoder(resp.Body).Decode(res); err != nil {
		return nil, errs.NewStack(err)
	}

	quote := res.CreateDomain()
	if quote == nil {
		return nil, ErrNoResult
	}

	return quote, nil
}
