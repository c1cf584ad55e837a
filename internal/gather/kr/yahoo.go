// Package kr fetches KRX daily bars through the Yahoo Finance chart API.
// KOSPI symbols carry the ".KS" suffix and KOSDAQ the ".KQ" suffix, which is
// exactly the form Yahoo expects, so symbols pass through unchanged.
package kr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"kquant/internal/domain"
	"kquant/internal/gather"
	"kquant/internal/util"
)

// Compile-time interface check.
var _ gather.Source = (*YahooSource)(nil)

const defaultBaseURL = "https://query1.finance.yahoo.com"

// YahooSource fetches daily bars from the Yahoo chart API, rate-limited and
// retried with exponential backoff.
type YahooSource struct {
	client  *http.Client
	baseURL string
	limiter *util.RateLimiter
	log     *slog.Logger
}

// NewYahooSource creates a YahooSource allowing ratePerMinute requests per
// minute.
func NewYahooSource(ratePerMinute int) *YahooSource {
	return &YahooSource{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: defaultBaseURL,
		limiter: util.NewRateLimiter(ratePerMinute),
		log:     slog.Default().With("source", "kr-yahoo"),
	}
}

// yahooChart is the response structure of the Yahoo chart API. Numeric arrays
// arrive as interface{} because Yahoo emits JSON null for sessions without a
// quote.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []interface{} `json:"open"`
					High   []interface{} `json:"high"`
					Low    []interface{} `json:"low"`
					Close  []interface{} `json:"close"`
					Volume []interface{} `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func toFloat(v interface{}) float64 {
	if v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

// FetchDailyBars returns up to days daily bars for the symbol, oldest first.
func (s *YahooSource) FetchDailyBars(ctx context.Context, symbol string, days int) ([]domain.Bar, error) {
	var bars []domain.Bar
	err := util.Retry(ctx, 3, time.Second, func() error {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		var ferr error
		bars, ferr = s.fetchChart(ctx, symbol, rangeForDays(days))
		return ferr
	})
	if err != nil {
		return nil, err
	}

	if len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars, nil
}

// fetchChart performs one chart API call and converts the response.
func (s *YahooSource) fetchChart(ctx context.Context, symbol, rng string) ([]domain.Bar, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=%s",
		s.baseURL, url.PathEscape(strings.ToUpper(symbol)), rng)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	// Yahoo rejects requests without a browser user agent.
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		return nil, fmt.Errorf("yahoo: no data for %s", symbol)
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo: no quote data for %s", symbol)
	}
	quote := result.Indicators.Quote[0]

	upper := strings.ToUpper(symbol)
	bars := make([]domain.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		o := toFloat(quote.Open[i])
		h := toFloat(quote.High[i])
		l := toFloat(quote.Low[i])
		c := toFloat(quote.Close[i])
		if o == 0 && h == 0 && l == 0 && c == 0 {
			continue // null bar (holiday, halted session)
		}
		bars = append(bars, domain.Bar{
			Symbol: upper,
			// Session timestamps flatten to the UTC date so that re-fetches
			// of the same day merge instead of duplicating.
			Timestamp: time.Unix(ts, 0).UTC().Truncate(24 * time.Hour),
			Open:      o,
			High:      h,
			Low:       l,
			Close:     c,
			Volume:    int64(toFloat(quote.Volume[i])),
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
	return bars, nil
}

// rangeForDays maps a requested bar count to the smallest Yahoo range
// parameter that covers it. Thresholds sit below each range's trading-day
// capacity (a "1mo" window holds about 21 sessions) so the fetch always
// covers the request; the surplus is trimmed by the caller. Daily history
// tops out at "2y", which covers the default optimization window.
func rangeForDays(days int) string {
	switch {
	case days < 20:
		return "1mo"
	case days < 60:
		return "3mo"
	case days < 120:
		return "6mo"
	case days < 245:
		return "1y"
	}
	return "2y"
}
