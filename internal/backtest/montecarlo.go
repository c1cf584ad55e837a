package backtest

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Monte Carlo defaults.
const (
	DefaultSimulations = 5000
	DefaultTargetPct   = 10.0
)

// MonteCarloConfig controls a bootstrap run. Zero values fall back to the
// defaults; SampleSize 0 resamples as many trades as the input has. The
// same seed over the same pnls always produces the same result.
type MonteCarloConfig struct {
	Simulations int
	SampleSize  int
	TargetPct   float64
	Seed        int64
}

// MonteCarloResult is the bootstrap distribution of compounded returns.
// MedianMaxDrawdown is a non-positive percentage (the median of each
// simulation's deepest decline); VaR95 equals the 5th percentile return.
type MonteCarloResult struct {
	Simulations       int     `json:"simulations"`
	TradesPerSim      int     `json:"trades_per_sim"`
	MedianReturnPct   float64 `json:"median_return_pct"`
	MeanReturnPct     float64 `json:"mean_return_pct"`
	StdReturnPct      float64 `json:"std_return_pct"`
	Percentile5       float64 `json:"percentile_5"`
	Percentile25      float64 `json:"percentile_25"`
	Percentile75      float64 `json:"percentile_75"`
	Percentile95      float64 `json:"percentile_95"`
	ProbPositive      float64 `json:"prob_positive"`
	ProbTarget        float64 `json:"prob_target"`
	MedianMaxDrawdown float64 `json:"median_max_drawdown"`
	VaR95             float64 `json:"var_95"`
}

// MonteCarlo bootstraps the realized pnl list: each simulation resamples the
// trades with replacement and compounds them, giving a distribution of total
// returns and drawdowns. Fewer than 3 trades cannot support resampling and
// yield a zero-valued result.
func MonteCarlo(pnls []float64, cfg MonteCarloConfig) MonteCarloResult {
	if len(pnls) < MinQualifyingTrades {
		return MonteCarloResult{}
	}

	sims := cfg.Simulations
	if sims <= 0 {
		sims = DefaultSimulations
	}
	sampleSize := cfg.SampleSize
	if sampleSize <= 0 {
		sampleSize = len(pnls)
	}
	target := cfg.TargetPct
	if target == 0 {
		target = DefaultTargetPct
	}

	rng := rand.New(rand.NewSource(cfg.Seed))

	totalReturns := make([]float64, sims)
	maxDrawdowns := make([]float64, sims)
	sampled := make([]float64, sampleSize)

	for s := 0; s < sims; s++ {
		for j := range sampled {
			sampled[j] = pnls[rng.Intn(len(pnls))]
		}
		curve := compound(sampled)
		totalReturns[s] = (curve[len(curve)-1] - 1) * 100
		maxDrawdowns[s] = maxDrawdownPct(curve)
	}

	positive := 0
	reachedTarget := 0
	for _, r := range totalReturns {
		if r > 0 {
			positive++
		}
		if r >= target {
			reachedTarget++
		}
	}

	mean := stat.Mean(totalReturns, nil)
	std := stat.PopStdDev(totalReturns, nil)

	sortedReturns := append([]float64(nil), totalReturns...)
	sort.Float64s(sortedReturns)
	sortedDrawdowns := append([]float64(nil), maxDrawdowns...)
	sort.Float64s(sortedDrawdowns)

	return MonteCarloResult{
		Simulations:       sims,
		TradesPerSim:      sampleSize,
		MedianReturnPct:   roundTo(percentile(sortedReturns, 0.50), 2),
		MeanReturnPct:     roundTo(mean, 2),
		StdReturnPct:      roundTo(std, 2),
		Percentile5:       roundTo(percentile(sortedReturns, 0.05), 2),
		Percentile25:      roundTo(percentile(sortedReturns, 0.25), 2),
		Percentile75:      roundTo(percentile(sortedReturns, 0.75), 2),
		Percentile95:      roundTo(percentile(sortedReturns, 0.95), 2),
		ProbPositive:      roundTo(float64(positive)/float64(sims)*100, 1),
		ProbTarget:        roundTo(float64(reachedTarget)/float64(sims)*100, 1),
		MedianMaxDrawdown: roundTo(percentile(sortedDrawdowns, 0.50), 2),
		VaR95:             roundTo(percentile(sortedReturns, 0.05), 2),
	}
}

// compound builds the cumulative equity curve of one unit through the pnl
// sequence.
func compound(pnls []float64) []float64 {
	curve := make([]float64, len(pnls))
	acc := 1.0
	for i, p := range pnls {
		acc *= 1 + p/100
		curve[i] = acc
	}
	return curve
}

// maxDrawdownPct returns the deepest peak-to-trough decline of the curve as
// a non-positive percentage (0 when the curve never falls below a peak).
func maxDrawdownPct(curve []float64) float64 {
	worst := 0.0
	peak := math.Inf(-1)
	for _, v := range curve {
		if v > peak {
			peak = v
		}
		dd := (v - peak) / peak * 100
		if dd < worst {
			worst = dd
		}
	}
	return worst
}

// percentile interpolates linearly within a sorted slice; p is a fraction
// in [0, 1].
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := p * float64(len(sorted)-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi || hi >= len(sorted) {
		return sorted[lo]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
