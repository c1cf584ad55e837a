package backtest

import (
	"context"
	"errors"
	"testing"

	"kquant/internal/domain"
)

func TestDefaultGridCandidates(t *testing.T) {
	grid := DefaultGrid()
	candidates := grid.Candidates()

	// 5*3*3*3*3 combinations; every default fast value is below every slow
	// value, so none are skipped.
	if len(candidates) != 405 {
		t.Fatalf("got %d candidates, want 405", len(candidates))
	}

	first := domain.ParameterSet{
		RSIOversold: 25, BBPeriod: 15, BBStd: 1.5,
		EMAFast: 10, EMASlow: 100,
		TargetPct: 3.0, StopPct: -5.0,
	}
	if candidates[0] != first {
		t.Errorf("candidates[0] = %+v, want %+v", candidates[0], first)
	}
	// The slow EMA axis varies fastest.
	if candidates[1].EMASlow != 150 || candidates[1].EMAFast != 10 {
		t.Errorf("candidates[1] = %+v, want EMASlow 150 with EMAFast 10", candidates[1])
	}

	for i, c := range candidates {
		if err := c.Validate(); err != nil {
			t.Fatalf("candidate %d invalid: %v", i, err)
		}
	}
}

func TestGridSkipsInvertedEMA(t *testing.T) {
	grid := Grid{
		RSIOversold: []int{30},
		BBPeriod:    []int{20},
		BBStd:       []float64{2.0},
		EMAFast:     []int{10, 200},
		EMASlow:     []int{100},
		TargetPct:   3.0,
		StopPct:     -5.0,
	}
	candidates := grid.Candidates()
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1 (fast >= slow skipped)", len(candidates))
	}
	if candidates[0].EMAFast != 10 {
		t.Errorf("surviving candidate has EMAFast %d, want 10", candidates[0].EMAFast)
	}
}

func TestSelectBestRequiresMinTrades(t *testing.T) {
	// The 2-trade result has the top Sharpe but can never be selected.
	results := []domain.RunResult{
		{Params: domain.ParameterSet{RSIOversold: 25}, Trades: 2, Sharpe: 9.99},
		{Params: domain.ParameterSet{RSIOversold: 30}, Trades: 3, Sharpe: 1.2},
	}
	best, err := selectBest(results)
	if err != nil {
		t.Fatalf("selectBest returned error: %v", err)
	}
	if best.Params.RSIOversold != 30 {
		t.Errorf("selected RSIOversold %d, want 30", best.Params.RSIOversold)
	}
}

func TestSelectBestTieKeepsFirst(t *testing.T) {
	results := []domain.RunResult{
		{Params: domain.ParameterSet{RSIOversold: 25}, Trades: 5, Sharpe: 2.0},
		{Params: domain.ParameterSet{RSIOversold: 35}, Trades: 8, Sharpe: 2.0},
	}
	best, err := selectBest(results)
	if err != nil {
		t.Fatalf("selectBest returned error: %v", err)
	}
	if best.Params.RSIOversold != 25 {
		t.Errorf("tie selected RSIOversold %d, want first candidate 25", best.Params.RSIOversold)
	}
}

func TestSelectBestNoQualifier(t *testing.T) {
	// No candidate with enough trades.
	_, err := selectBest([]domain.RunResult{
		{Trades: 2, Sharpe: 5},
		{Trades: 1, Sharpe: 3},
	})
	if !errors.Is(err, ErrNoQualifier) {
		t.Errorf("err = %v, want ErrNoQualifier", err)
	}

	// Qualifiers exist but the best Sharpe is not positive.
	_, err = selectBest([]domain.RunResult{
		{Trades: 5, Sharpe: -0.5},
		{Trades: 4, Sharpe: 0},
	})
	if !errors.Is(err, ErrNoQualifier) {
		t.Errorf("err = %v, want ErrNoQualifier", err)
	}

	if _, err := selectBest(nil); !errors.Is(err, ErrNoQualifier) {
		t.Errorf("err = %v for empty results, want ErrNoQualifier", err)
	}
}

func TestSearchBestFindsWinner(t *testing.T) {
	bars := makeBars(crashCycle(100, 400, 111, 40))
	best, err := SearchBest(bars, DefaultGrid())
	if err != nil {
		t.Fatalf("SearchBest returned error: %v", err)
	}
	if best.Trades < MinQualifyingTrades {
		t.Errorf("winner has %d trades, want >= %d", best.Trades, MinQualifyingTrades)
	}
	if best.Sharpe <= 0 {
		t.Errorf("winner Sharpe = %f, want positive", best.Sharpe)
	}
	if err := best.Params.Validate(); err != nil {
		t.Errorf("winner params invalid: %v", err)
	}
}

func TestSearchBestParallelMatchesSequential(t *testing.T) {
	bars := makeBars(crashCycle(100, 400, 111, 40))
	grid := DefaultGrid()

	seq, seqErr := SearchBest(bars, grid)
	par, parErr := SearchBestParallel(context.Background(), bars, grid, 8)

	if seqErr != nil || parErr != nil {
		t.Fatalf("errors: sequential %v, parallel %v", seqErr, parErr)
	}
	if seq != par {
		t.Errorf("parallel winner %+v differs from sequential %+v", par, seq)
	}
}

func TestSearchBestParallelCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	bars := makeBars(crashCycle(100, 400, 111, 40))
	_, err := SearchBestParallel(ctx, bars, DefaultGrid(), 4)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestSearchBestNoTrades(t *testing.T) {
	// A non-signalling series yields zero trades everywhere.
	bars := makeBars(basePattern(100, 400))
	_, err := SearchBest(bars, DefaultGrid())
	if !errors.Is(err, ErrNoQualifier) {
		t.Errorf("err = %v, want ErrNoQualifier", err)
	}
}
