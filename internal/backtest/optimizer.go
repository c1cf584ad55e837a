package backtest

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"kquant/internal/domain"
)

// SearchBest simulates and evaluates every grid candidate over the training
// bars sequentially and returns the winner. It returns ErrNoQualifier when
// no candidate reaches MinQualifyingTrades with a positive Sharpe.
func SearchBest(bars []domain.Bar, grid Grid) (domain.RunResult, error) {
	candidates := grid.Candidates()
	results := make([]domain.RunResult, len(candidates))
	for i, p := range candidates {
		results[i] = Evaluate(p, Simulate(bars, p))
	}
	return selectBest(results)
}

// SearchBestParallel evaluates the grid with at most parallelism candidate
// simulations in flight, then reduces the results in enumeration order. The
// winner is identical to SearchBest's; only wall-clock time differs.
func SearchBestParallel(ctx context.Context, bars []domain.Bar, grid Grid, parallelism int) (domain.RunResult, error) {
	if parallelism < 1 {
		parallelism = 1
	}

	candidates := grid.Candidates()
	results := make([]domain.RunResult, len(candidates))
	sem := make(chan struct{}, parallelism)

	g, gctx := errgroup.WithContext(ctx)

	for i, p := range candidates {
		i, p := i, p
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = Evaluate(p, Simulate(bars, p))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return domain.RunResult{}, err
	}
	return selectBest(results)
}

// selectBest folds the per-candidate results in enumeration order. A result
// qualifies with at least MinQualifyingTrades trades; the winner is the
// qualifying result with the strictly highest Sharpe, so ties keep the
// earliest candidate. No qualifier, or a best Sharpe of zero or below,
// means no usable result.
func selectBest(results []domain.RunResult) (domain.RunResult, error) {
	var best domain.RunResult
	bestSharpe := math.Inf(-1)
	found := false

	for _, r := range results {
		if r.Trades < MinQualifyingTrades {
			continue
		}
		if r.Sharpe > bestSharpe {
			best = r
			bestSharpe = r.Sharpe
			found = true
		}
	}

	if !found || best.Sharpe <= 0 {
		return domain.RunResult{}, ErrNoQualifier
	}
	return best, nil
}
