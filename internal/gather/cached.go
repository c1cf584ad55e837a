package gather

import (
	"context"
	"log/slog"
	"time"

	"kquant/internal/domain"
	"kquant/internal/store"
)

// Compile-time interface check.
var _ Source = (*CachedSource)(nil)

// CachedSource serves bars from the Parquet store when it already holds
// enough history, falling back to the upstream source and merge-writing what
// it fetched. The cache is kept current by the daily gather jobs, so a hit is
// served without a staleness check; daily bars never change retroactively.
type CachedSource struct {
	upstream Source
	bars     store.BarStore
	log      *slog.Logger
}

// NewCachedSource wraps upstream with cache-through reads against bars.
func NewCachedSource(upstream Source, bars store.BarStore) *CachedSource {
	return &CachedSource{
		upstream: upstream,
		bars:     bars,
		log:      slog.Default().With("source", "cached"),
	}
}

// FetchDailyBars returns up to days daily bars for the symbol, oldest first.
func (s *CachedSource) FetchDailyBars(ctx context.Context, symbol string, days int) ([]domain.Bar, error) {
	market := domain.MarketForSymbol(symbol)

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -(days*7/5 + 14))

	cached, err := s.bars.ReadBars(ctx, symbol, market, start, end)
	if err == nil && len(cached) >= days {
		s.log.Debug("cache hit", "symbol", symbol, "bars", len(cached))
		return cached[len(cached)-days:], nil
	}

	fetched, err := s.upstream.FetchDailyBars(ctx, symbol, days)
	if err != nil {
		return nil, err
	}
	if werr := s.bars.WriteBars(ctx, market, fetched); werr != nil {
		// A failed cache write must not fail the read path.
		s.log.Warn("caching bars failed", "symbol", symbol, "error", werr)
	}
	return fetched, nil
}
