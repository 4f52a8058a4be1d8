package feed

// yahoo.go: market data adapter over the public Yahoo chart/options
// endpoints. Yahoo throttles unauthenticated clients hard, so every
// request goes through a shared rate limiter with retries.

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/davidrc/gapscalp/internal/domain"
	"golang.org/x/time/rate"
)

const (
	defaultBase = "https://query1.finance.yahoo.com"

	// Conservative: Yahoo tolerates ~2 req/s before serving 429s.
	requestsPerSec = 2

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// Yahoo implements ports.OptionsFeed and ports.BarProvider against the
// live API.
type Yahoo struct {
	http    *http.Client
	base    string
	limiter *rate.Limiter

	mu         sync.Mutex
	ydayCloses map[string]float64
}

// NewYahoo creates a client. An empty base uses the production URL.
func NewYahoo(base string) *Yahoo {
	if base == "" {
		base = defaultBase
	}
	return &Yahoo{
		http:       &http.Client{Timeout: 10 * time.Second},
		base:       base,
		limiter:    rate.NewLimiter(requestsPerSec, 2),
		ydayCloses: make(map[string]float64),
	}
}

// --- wire types ---

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type optionsResponse struct {
	OptionChain struct {
		Result []struct {
			Options []struct {
				ExpirationDate int64         `json:"expirationDate"`
				Calls          []yahooOption `json:"calls"`
				Puts           []yahooOption `json:"puts"`
			} `json:"options"`
		} `json:"result"`
	} `json:"optionChain"`
}

type yahooOption struct {
	Strike            float64 `json:"strike"`
	Bid               float64 `json:"bid"`
	Ask               float64 `json:"ask"`
	ImpliedVolatility float64 `json:"impliedVolatility"`
}

// GetBars implements ports.BarProvider with daily candles.
func (y *Yahoo) GetBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=1d",
		y.base, url.PathEscape(symbol), start.Unix(), end.Add(24*time.Hour).Unix())

	var resp chartResponse
	if err := y.get(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("feed.Yahoo.GetBars: %s: %w", symbol, err)
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("feed.Yahoo.GetBars: %s: %s", symbol, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, nil
	}

	result := resp.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	bars := make([]domain.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == nil || quote.Open[i] == nil {
			continue // Yahoo nulls out halted/partial sessions
		}
		bar := domain.Bar{
			Timestamp: time.Unix(ts, 0).UTC(),
			Open:      *quote.Open[i],
			Close:     *quote.Close[i],
		}
		if quote.High[i] != nil {
			bar.High = *quote.High[i]
		}
		if quote.Low[i] != nil {
			bar.Low = *quote.Low[i]
		}
		if quote.Volume[i] != nil {
			bar.Volume = *quote.Volume[i]
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

// GetYesterdayClose implements ports.OptionsFeed. Cached per symbol for
// the process lifetime.
func (y *Yahoo) GetYesterdayClose(ctx context.Context, symbol string) (float64, error) {
	y.mu.Lock()
	if c, ok := y.ydayCloses[symbol]; ok {
		y.mu.Unlock()
		return c, nil
	}
	y.mu.Unlock()

	end := time.Now()
	bars, err := y.GetBars(ctx, symbol, end.AddDate(0, 0, -7), end)
	if err != nil {
		return 0, err
	}
	if len(bars) < 2 {
		return 0, fmt.Errorf("feed.Yahoo.GetYesterdayClose: %s: not enough history", symbol)
	}

	c := bars[len(bars)-2].Close
	y.mu.Lock()
	y.ydayCloses[symbol] = c
	y.mu.Unlock()
	return c, nil
}

// GetCurrentPrice implements ports.OptionsFeed.
func (y *Yahoo) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?range=1d&interval=1d", y.base, url.PathEscape(symbol))

	var resp chartResponse
	if err := y.get(ctx, u, &resp); err != nil {
		return 0, fmt.Errorf("feed.Yahoo.GetCurrentPrice: %s: %w", symbol, err)
	}
	if len(resp.Chart.Result) == 0 {
		return 0, fmt.Errorf("feed.Yahoo.GetCurrentPrice: %s: empty result", symbol)
	}
	price := resp.Chart.Result[0].Meta.RegularMarketPrice
	if price <= 0 {
		return 0, fmt.Errorf("feed.Yahoo.GetCurrentPrice: %s: no price", symbol)
	}
	return price, nil
}

// GetChain implements ports.OptionsFeed with the nearest expiration.
func (y *Yahoo) GetChain(ctx context.Context, symbol string) ([]domain.OptionQuote, error) {
	u := fmt.Sprintf("%s/v7/finance/options/%s", y.base, url.PathEscape(symbol))

	var resp optionsResponse
	if err := y.get(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("feed.Yahoo.GetChain: %s: %w", symbol, err)
	}
	if len(resp.OptionChain.Result) == 0 || len(resp.OptionChain.Result[0].Options) == 0 {
		return nil, nil
	}

	opts := resp.OptionChain.Result[0].Options[0]
	expiry := time.Unix(opts.ExpirationDate, 0).UTC()

	chain := make([]domain.OptionQuote, 0, len(opts.Calls)+len(opts.Puts))
	for _, o := range opts.Calls {
		chain = append(chain, toQuote(o, domain.Call, expiry))
	}
	for _, o := range opts.Puts {
		chain = append(chain, toQuote(o, domain.Put, expiry))
	}
	return chain, nil
}

func toQuote(o yahooOption, typ domain.OptionType, expiry time.Time) domain.OptionQuote {
	iv := o.ImpliedVolatility
	if iv <= 0 {
		iv = defaultIV
	}
	return domain.OptionQuote{
		Strike:     o.Strike,
		Type:       typ,
		Bid:        o.Bid,
		Ask:        o.Ask,
		IV:         iv,
		Expiration: expiry,
	}
}

// get runs a GET with rate limiting and exponential-backoff retries.
func (y *Yahoo) get(ctx context.Context, url string, out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := y.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "gapscalp/1.0")

		resp, err := y.http.Do(req)
		if err != nil {
			if attempt == maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("status %d after %d retries", resp.StatusCode, maxRetries)
			}
			slog.Warn("feed: retrying after API pushback", "status", resp.StatusCode, "attempt", attempt+1)
			sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

func sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
