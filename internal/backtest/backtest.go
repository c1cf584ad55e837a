// Package backtest implements the optimization pipeline: trade simulation
// under one parameter set, performance evaluation, grid search over the
// training window, and walk-forward validation on the held-out window. The
// pipeline is pure and synchronous; callers own the bar slices they pass in,
// and every call is safe to run concurrently with any other.
package backtest

import (
	"errors"
	"math"
)

// Pipeline limits. A symbol below the bar minimums cannot produce a usable
// outcome; a candidate below the trade minimum never qualifies.
const (
	// MinBars is the minimum raw history length for a full optimization.
	MinBars = 200
	// MinTrainBars and MinTestBars bound the two walk-forward windows.
	MinTrainBars = 150
	MinTestBars  = 50

	// TrainFraction of the raw series forms the training window.
	TrainFraction = 0.75
	// WarmupOverlapBars lead the test window so indicators are defined when
	// the held-out period begins.
	WarmupOverlapBars = 50

	// HoldingCapBars force-closes a position after this many bars.
	HoldingCapBars = 20

	// MinQualifyingTrades is the fewest trades a candidate may have and
	// still be considered by selection.
	MinQualifyingTrades = 3

	// DivergenceFailPct is the train/test Sharpe divergence above which the
	// verdict is fail.
	DivergenceFailPct = 30.0

	// pctBEntry is the %B level at or below which an entry fires.
	pctBEntry = 0.2

	// warmupMargin pads the simulation start past the slowest indicator.
	warmupMargin = 5
)

// Sentinel errors. Callers match with errors.Is; the service layer collapses
// both to its single no-usable-result error.
var (
	// ErrInsufficientData means the bar history is too short to split into
	// valid train and test windows.
	ErrInsufficientData = errors.New("backtest: insufficient bar history")

	// ErrNoQualifier means no grid candidate produced enough trades with a
	// positive risk-adjusted score.
	ErrNoQualifier = errors.New("backtest: no qualifying candidate")
)

// roundTo rounds v to the given number of decimal places.
func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
