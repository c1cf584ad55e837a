// Package store persists kquant's two durable artifacts: daily bar history
// as Parquet files on disk, and optimization outcomes in SQLite.
package store

import (
	"context"
	"errors"
	"time"

	"kquant/internal/domain"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("store: not found")

// BarStore persists and retrieves OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars under the given market, merging with
	// any bars already stored for the same dates.
	WriteBars(ctx context.Context, market domain.Market, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol and market within
	// [start, end], in chronological order.
	ReadBars(ctx context.Context, symbol string, market domain.Market, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols stored for the given market.
	ListSymbols(ctx context.Context, market domain.Market) ([]string, error)
}

// OutcomeStore persists and retrieves optimization outcomes.
type OutcomeStore interface {
	// SaveOutcome appends an outcome to the history for its symbol.
	SaveOutcome(ctx context.Context, outcome *domain.OptimizationOutcome) error

	// ListOutcomes returns the most recent outcomes for a symbol, newest
	// first, up to limit.
	ListOutcomes(ctx context.Context, symbol string, limit int) ([]domain.OptimizationOutcome, error)

	// LatestOutcome returns the newest outcome for a symbol, or ErrNotFound.
	LatestOutcome(ctx context.Context, symbol string) (*domain.OptimizationOutcome, error)
}
