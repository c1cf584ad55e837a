// Package gather acquires daily bar history from the upstream market-data
// providers and feeds it into the bar store.
package gather

import (
	"context"

	"kquant/internal/domain"
)

// Source fetches daily bar history for a single symbol.
type Source interface {
	// FetchDailyBars returns up to days daily bars for the symbol, oldest
	// first, ending at the most recent completed session.
	FetchDailyBars(ctx context.Context, symbol string, days int) ([]domain.Bar, error)
}

// MultiSource is implemented by sources that can fetch many symbols in one
// upstream call. Bulk gatherers prefer it over per-symbol fetching.
type MultiSource interface {
	Source

	// FetchMultiDailyBars returns up to days daily bars per symbol, oldest
	// first. Unknown symbols are absent from the map.
	FetchMultiDailyBars(ctx context.Context, symbols []string, days int) (map[string][]domain.Bar, error)
}

// Gatherer is the interface for all bulk data gathering processes.
type Gatherer interface {
	// Name returns the gatherer identifier.
	Name() string
	// Run executes one gathering pass. It returns early when ctx is
	// cancelled.
	Run(ctx context.Context) error
}
