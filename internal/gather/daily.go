package gather

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"kquant/internal/domain"
	"kquant/internal/store"
)

const (
	defaultBatchSize = 200
	defaultWorkers   = 4
)

// Compile-time interface check.
var _ Gatherer = (*DailyGatherer)(nil)

// DailyGatherer fetches daily history for a symbol list and merge-writes it
// into the bar store. Sources that support batched fetching are driven in
// batches; everything else goes through a per-symbol worker pool.
type DailyGatherer struct {
	name      string
	symbols   []string
	days      int
	batchSize int
	workers   int
	source    Source
	bars      store.BarStore
	log       *slog.Logger
}

// NewDailyGatherer builds a gatherer over the given symbols. batchSize and
// workers fall back to defaults when non-positive.
func NewDailyGatherer(name string, symbols []string, days, batchSize, workers int, source Source, bars store.BarStore) *DailyGatherer {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &DailyGatherer{
		name:      name,
		symbols:   symbols,
		days:      days,
		batchSize: batchSize,
		workers:   workers,
		source:    source,
		bars:      bars,
		log:       slog.Default().With("gatherer", name),
	}
}

// Name identifies the gatherer in logs and scheduling.
func (g *DailyGatherer) Name() string { return g.name }

// Run fetches and stores bars for every configured symbol. Individual symbol
// failures are logged and counted, not propagated; Run only returns an error
// when the context is cancelled.
func (g *DailyGatherer) Run(ctx context.Context) error {
	started := time.Now()
	g.log.Info("gather start", "symbols", len(g.symbols), "days", g.days)

	var ok, failed atomic.Int64
	if multi, isMulti := g.source.(MultiSource); isMulti {
		g.runBatched(ctx, multi, &ok, &failed)
	} else {
		g.runPerSymbol(ctx, &ok, &failed)
	}

	g.log.Info("gather complete",
		"ok", ok.Load(),
		"failed", failed.Load(),
		"elapsed", time.Since(started).Round(time.Millisecond))
	return ctx.Err()
}

func (g *DailyGatherer) runPerSymbol(ctx context.Context, ok, failed *atomic.Int64) {
	jobs := make(chan string, len(g.symbols))
	for _, sym := range g.symbols {
		jobs <- sym
	}
	close(jobs)

	var wg sync.WaitGroup
	for i := 0; i < g.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sym := range jobs {
				if ctx.Err() != nil {
					return
				}
				if err := g.gatherOne(ctx, sym); err != nil {
					failed.Add(1)
					g.log.Warn("gather symbol failed", "symbol", sym, "error", err)
					continue
				}
				ok.Add(1)
			}
		}()
	}
	wg.Wait()
}

func (g *DailyGatherer) gatherOne(ctx context.Context, symbol string) error {
	bars, err := g.source.FetchDailyBars(ctx, symbol, g.days)
	if err != nil {
		return err
	}
	if len(bars) == 0 {
		return fmt.Errorf("no bars returned for %s", symbol)
	}
	return g.bars.WriteBars(ctx, domain.MarketForSymbol(symbol), bars)
}

func (g *DailyGatherer) runBatched(ctx context.Context, src MultiSource, ok, failed *atomic.Int64) {
	for i := 0; i < len(g.symbols); i += g.batchSize {
		if ctx.Err() != nil {
			return
		}
		end := i + g.batchSize
		if end > len(g.symbols) {
			end = len(g.symbols)
		}
		batch := g.symbols[i:end]

		barsBySymbol, err := src.FetchMultiDailyBars(ctx, batch, g.days)
		if err != nil {
			failed.Add(int64(len(batch)))
			g.log.Warn("gather batch failed", "offset", i, "size", len(batch), "error", err)
			continue
		}

		for _, sym := range batch {
			bars := barsBySymbol[strings.ToUpper(sym)]
			if len(bars) == 0 {
				failed.Add(1)
				g.log.Warn("symbol missing from batch response", "symbol", sym)
				continue
			}
			if err := g.bars.WriteBars(ctx, domain.MarketForSymbol(sym), bars); err != nil {
				failed.Add(1)
				g.log.Warn("write bars failed", "symbol", sym, "error", err)
				continue
			}
			ok.Add(1)
		}
	}
}
