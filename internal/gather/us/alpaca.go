// Package us fetches US daily bars through the Alpaca market-data API.
package us

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"kquant/internal/domain"
	"kquant/internal/gather"
)

// Compile-time interface checks.
var _ gather.Source = (*AlpacaSource)(nil)
var _ gather.MultiSource = (*AlpacaSource)(nil)

// AlpacaSource fetches daily bars from the Alpaca market-data API, one symbol
// at a time or batched.
type AlpacaSource struct {
	client *marketdata.Client
	log    *slog.Logger
}

// NewAlpacaSource creates an AlpacaSource with the given credentials.
// dataURL overrides the market-data endpoint when non-empty.
func NewAlpacaSource(apiKey, apiSecret, dataURL string) *AlpacaSource {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}

	return &AlpacaSource{
		client: marketdata.NewClient(opts),
		log:    slog.Default().With("source", "us-alpaca"),
	}
}

// FetchDailyBars returns up to days daily bars for the symbol, oldest first.
func (s *AlpacaSource) FetchDailyBars(ctx context.Context, symbol string, days int) ([]domain.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start, end := fetchWindow(time.Now().UTC(), days)
	upper := strings.ToUpper(symbol)

	alpacaBars, err := s.client.GetBars(upper, barsRequest(start, end))
	if err != nil {
		return nil, fmt.Errorf("alpaca GetBars %s: %w", upper, err)
	}

	bars := convertBars(upper, alpacaBars)
	if len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars, nil
}

// FetchMultiDailyBars fetches daily bars for a batch of symbols in a single
// API call. Symbols Alpaca knows nothing about are simply absent from the
// result map.
func (s *AlpacaSource) FetchMultiDailyBars(ctx context.Context, symbols []string, days int) (map[string][]domain.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	upper := make([]string, len(symbols))
	for i, sym := range symbols {
		upper[i] = strings.ToUpper(sym)
	}

	start, end := fetchWindow(time.Now().UTC(), days)
	multiBars, err := s.client.GetMultiBars(upper, barsRequest(start, end))
	if err != nil {
		return nil, fmt.Errorf("alpaca GetMultiBars (%d symbols): %w", len(upper), err)
	}

	out := make(map[string][]domain.Bar, len(multiBars))
	for symbol, alpacaBars := range multiBars {
		bars := convertBars(strings.ToUpper(symbol), alpacaBars)
		if len(bars) > days {
			bars = bars[len(bars)-days:]
		}
		out[strings.ToUpper(symbol)] = bars
	}
	return out, nil
}

func barsRequest(start, end time.Time) marketdata.GetBarsRequest {
	return marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
		End:       end,
		Feed:      "sip",
	}
}

// fetchWindow converts a bar count to the calendar window to request. The end
// pins to the last UTC day boundary so a partially-formed session bar never
// enters the history; the start over-covers (weekends plus a holiday margin)
// and the surplus is trimmed after conversion.
func fetchWindow(now time.Time, days int) (start, end time.Time) {
	end = now.Truncate(24 * time.Hour)
	start = end.AddDate(0, 0, -(days*7/5 + 14))
	return start, end
}

// convertBars maps Alpaca bars onto domain bars, flattening session
// timestamps to their UTC date.
func convertBars(symbol string, in []marketdata.Bar) []domain.Bar {
	bars := make([]domain.Bar, 0, len(in))
	for _, ab := range in {
		bars = append(bars, domain.Bar{
			Symbol:    symbol,
			Timestamp: ab.Timestamp.UTC().Truncate(24 * time.Hour),
			Open:      ab.Open,
			High:      ab.High,
			Low:       ab.Low,
			Close:     ab.Close,
			Volume:    int64(ab.Volume),
		})
	}
	return bars
}
