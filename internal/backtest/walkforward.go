package backtest

import (
	"context"
	"fmt"
	"time"

	"kquant/internal/domain"
)

// SplitWindows divides a raw bar series into the training and test windows:
// the first 75% trains, and the test window starts 50 bars before the split
// so its indicators are already warmed up when the held-out period begins.
// ErrInsufficientData is returned when the raw series, the training window,
// or the test window is below its minimum.
func SplitWindows(bars []domain.Bar) (train, test []domain.Bar, err error) {
	if len(bars) < MinBars {
		return nil, nil, fmt.Errorf("%w: %d bars, need %d", ErrInsufficientData, len(bars), MinBars)
	}

	split := int(float64(len(bars)) * TrainFraction)
	train = bars[:split]
	test = bars[split-WarmupOverlapBars:]

	if len(train) < MinTrainBars {
		return nil, nil, fmt.Errorf("%w: train window %d bars, need %d", ErrInsufficientData, len(train), MinTrainBars)
	}
	if len(test) < MinTestBars {
		return nil, nil, fmt.Errorf("%w: test window %d bars, need %d", ErrInsufficientData, len(test), MinTestBars)
	}
	return train, test, nil
}

// Divergence measures how far the held-out Sharpe fell from the training
// Sharpe, as a percentage of the training value. A non-positive training
// Sharpe is maximal divergence by definition: exactly 100.
func Divergence(trainSharpe, testSharpe float64) float64 {
	if trainSharpe <= 0 {
		return 100
	}
	diff := trainSharpe - testSharpe
	if diff < 0 {
		diff = -diff
	}
	return diff / trainSharpe * 100
}

// VerdictFor classifies a divergence: fail above DivergenceFailPct, pass at
// or below it. The comparison uses the unrounded divergence.
func VerdictFor(divergence float64) domain.Verdict {
	if divergence > DivergenceFailPct {
		return domain.VerdictFail
	}
	return domain.VerdictPass
}

// Optimize runs the full pipeline for one symbol's bar history: window
// split, grid search on the training window, then a single walk-forward
// re-run of the winner on the test window. The outcome is fully populated
// or nil with an error; divergence is stored rounded to 1dp while the
// verdict compares the unrounded value.
//
// When parallelism > 1 the grid search fans out; selection semantics are
// identical either way.
func Optimize(ctx context.Context, symbol string, market domain.Market, bars []domain.Bar, grid Grid, parallelism int) (*domain.OptimizationOutcome, error) {
	train, test, err := SplitWindows(bars)
	if err != nil {
		return nil, err
	}

	var best domain.RunResult
	if parallelism > 1 {
		best, err = SearchBestParallel(ctx, train, grid, parallelism)
	} else {
		best, err = SearchBest(train, grid)
	}
	if err != nil {
		return nil, err
	}

	testRun := Evaluate(best.Params, Simulate(test, best.Params))

	divergence := Divergence(best.Sharpe, testRun.Sharpe)

	return &domain.OptimizationOutcome{
		Symbol:              symbol,
		Market:              market,
		Best:                best.Params,
		TrainSharpe:         best.Sharpe,
		TestSharpe:          testRun.Sharpe,
		TestWinRate:         testRun.WinRate,
		SharpeDivergencePct: roundTo(divergence, 1),
		Verdict:             VerdictFor(divergence),
		CreatedAt:           time.Now().UTC(),
	}, nil
}
