package gather

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"kquant/internal/domain"
	"kquant/internal/store"
)

// fakeSource serves a fixed number of recent daily bars per symbol and counts
// how many times it was asked.
type fakeSource struct {
	barsPerSymbol int
	calls         atomic.Int64
	err           error
}

func (f *fakeSource) FetchDailyBars(ctx context.Context, symbol string, days int) ([]domain.Bar, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	n := f.barsPerSymbol
	if n > days {
		n = days
	}
	return recentBars(symbol, n), nil
}

// recentBars builds n daily bars ending yesterday (UTC), oldest first.
func recentBars(symbol string, n int) []domain.Bar {
	end := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, -1)
	bars := make([]domain.Bar, n)
	for i := 0; i < n; i++ {
		ts := end.AddDate(0, 0, -(n - 1 - i))
		bars[i] = domain.Bar{
			Symbol:    symbol,
			Timestamp: ts,
			Open:      100,
			High:      101,
			Low:       99,
			Close:     100 + float64(i),
			Volume:    1000,
		}
	}
	return bars
}

func TestCachedSourceMissThenHit(t *testing.T) {
	ctx := context.Background()
	upstream := &fakeSource{barsPerSymbol: 10}
	ps := store.NewParquetStore(t.TempDir())
	src := NewCachedSource(upstream, ps)

	got, err := src.FetchDailyBars(ctx, "005930.KS", 10)
	if err != nil {
		t.Fatalf("FetchDailyBars: %v", err)
	}
	if len(got) != 10 {
		t.Fatalf("got %d bars, want 10", len(got))
	}
	if n := upstream.calls.Load(); n != 1 {
		t.Fatalf("upstream calls = %d, want 1", n)
	}

	// The fetched bars must land in the store under the derived market.
	symbols, err := ps.ListSymbols(ctx, domain.MarketKOSPI)
	if err != nil {
		t.Fatalf("ListSymbols: %v", err)
	}
	if len(symbols) != 1 || symbols[0] != "005930.KS" {
		t.Fatalf("stored symbols = %v, want [005930.KS]", symbols)
	}

	// Second request is served from the cache without touching upstream.
	again, err := src.FetchDailyBars(ctx, "005930.KS", 10)
	if err != nil {
		t.Fatalf("FetchDailyBars (cached): %v", err)
	}
	if n := upstream.calls.Load(); n != 1 {
		t.Fatalf("upstream calls after cache hit = %d, want 1", n)
	}
	if len(again) != len(got) {
		t.Fatalf("cached read returned %d bars, want %d", len(again), len(got))
	}
	for i := range got {
		if !again[i].Timestamp.Equal(got[i].Timestamp) || again[i].Close != got[i].Close {
			t.Fatalf("bar %d mismatch: cached %+v, fetched %+v", i, again[i], got[i])
		}
	}
}

func TestCachedSourceTrimsToRequest(t *testing.T) {
	ctx := context.Background()
	upstream := &fakeSource{barsPerSymbol: 10}
	ps := store.NewParquetStore(t.TempDir())
	src := NewCachedSource(upstream, ps)

	if _, err := src.FetchDailyBars(ctx, "AAPL", 10); err != nil {
		t.Fatalf("prime cache: %v", err)
	}

	got, err := src.FetchDailyBars(ctx, "AAPL", 4)
	if err != nil {
		t.Fatalf("FetchDailyBars: %v", err)
	}
	if n := upstream.calls.Load(); n != 1 {
		t.Fatalf("upstream calls = %d, want 1", n)
	}
	if len(got) != 4 {
		t.Fatalf("got %d bars, want 4", len(got))
	}
	// Tail of the cached history: the newest bars, still chronological.
	if got[3].Close != 109 {
		t.Fatalf("last close = %v, want 109", got[3].Close)
	}
	if !got[0].Timestamp.Before(got[3].Timestamp) {
		t.Fatalf("bars out of order: %v .. %v", got[0].Timestamp, got[3].Timestamp)
	}
}

func TestCachedSourceRefetchesWhenShort(t *testing.T) {
	ctx := context.Background()
	upstream := &fakeSource{barsPerSymbol: 10}
	ps := store.NewParquetStore(t.TempDir())
	src := NewCachedSource(upstream, ps)

	if _, err := src.FetchDailyBars(ctx, "AAPL", 10); err != nil {
		t.Fatalf("prime cache: %v", err)
	}

	// The cache holds 10 bars; asking for more goes back upstream.
	if _, err := src.FetchDailyBars(ctx, "AAPL", 20); err != nil {
		t.Fatalf("FetchDailyBars: %v", err)
	}
	if n := upstream.calls.Load(); n != 2 {
		t.Fatalf("upstream calls = %d, want 2", n)
	}
}

func TestCachedSourceUpstreamError(t *testing.T) {
	wantErr := errors.New("provider down")
	upstream := &fakeSource{err: wantErr}
	ps := store.NewParquetStore(t.TempDir())
	src := NewCachedSource(upstream, ps)

	_, err := src.FetchDailyBars(context.Background(), "AAPL", 10)
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}
