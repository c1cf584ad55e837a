package backtest

import (
	"math"
	"testing"
)

func TestMonteCarloTooFewTrades(t *testing.T) {
	got := MonteCarlo([]float64{5, -2}, MonteCarloConfig{Simulations: 100, Seed: 1})
	if got != (MonteCarloResult{}) {
		t.Errorf("got %+v, want zero result for 2 trades", got)
	}
}

func TestMonteCarloDeterministic(t *testing.T) {
	pnls := []float64{4.2, -1.1, 7.9, -5.0, 2.3}
	cfg := MonteCarloConfig{Simulations: 300, Seed: 99}

	a := MonteCarlo(pnls, cfg)
	b := MonteCarlo(pnls, cfg)
	if a != b {
		t.Errorf("same seed diverged:\n%+v\n%+v", a, b)
	}

	c := MonteCarlo(pnls, MonteCarloConfig{Simulations: 300, Seed: 100})
	if a == c {
		t.Error("different seeds produced identical distributions")
	}
}

// With identical pnls every resample compounds to the same total, so the
// whole distribution collapses onto one point.
func TestMonteCarloDegenerate(t *testing.T) {
	res := MonteCarlo([]float64{5, 5, 5}, MonteCarloConfig{Simulations: 200, Seed: 7})

	if res.Simulations != 200 || res.TradesPerSim != 3 {
		t.Fatalf("shape = %d sims x %d trades, want 200 x 3", res.Simulations, res.TradesPerSim)
	}
	want := 15.76 // 1.05^3 compounded
	for name, got := range map[string]float64{
		"median": res.MedianReturnPct,
		"mean":   res.MeanReturnPct,
		"p5":     res.Percentile5,
		"p25":    res.Percentile25,
		"p75":    res.Percentile75,
		"p95":    res.Percentile95,
		"var95":  res.VaR95,
	} {
		if got != want {
			t.Errorf("%s = %f, want %f", name, got, want)
		}
	}
	if res.StdReturnPct != 0 {
		t.Errorf("std = %f, want 0", res.StdReturnPct)
	}
	if res.ProbPositive != 100.0 || res.ProbTarget != 100.0 {
		t.Errorf("probs = %f/%f, want 100/100", res.ProbPositive, res.ProbTarget)
	}
	// A monotonically rising curve never draws down.
	if res.MedianMaxDrawdown != 0 {
		t.Errorf("MedianMaxDrawdown = %f, want 0", res.MedianMaxDrawdown)
	}
}

func TestMonteCarloDistributionShape(t *testing.T) {
	pnls := []float64{10, -5, 8, -3, 12, -7, 6}
	res := MonteCarlo(pnls, MonteCarloConfig{Simulations: 500, SampleSize: 10, TargetPct: 5, Seed: 42})

	if res.TradesPerSim != 10 {
		t.Errorf("TradesPerSim = %d, want 10", res.TradesPerSim)
	}
	if !(res.Percentile5 <= res.Percentile25 && res.Percentile25 <= res.MedianReturnPct &&
		res.MedianReturnPct <= res.Percentile75 && res.Percentile75 <= res.Percentile95) {
		t.Errorf("percentiles not ordered: %f %f %f %f %f",
			res.Percentile5, res.Percentile25, res.MedianReturnPct, res.Percentile75, res.Percentile95)
	}
	if res.VaR95 != res.Percentile5 {
		t.Errorf("VaR95 = %f, want Percentile5 %f", res.VaR95, res.Percentile5)
	}
	if res.MedianMaxDrawdown > 0 {
		t.Errorf("MedianMaxDrawdown = %f, want <= 0", res.MedianMaxDrawdown)
	}
	if res.StdReturnPct <= 0 {
		t.Errorf("StdReturnPct = %f, want positive for mixed pnls", res.StdReturnPct)
	}
	if res.ProbPositive < 0 || res.ProbPositive > 100 {
		t.Errorf("ProbPositive = %f outside [0, 100]", res.ProbPositive)
	}
	if res.ProbTarget > res.ProbPositive {
		// Reaching +5% implies being positive.
		t.Errorf("ProbTarget %f exceeds ProbPositive %f", res.ProbTarget, res.ProbPositive)
	}
}

func TestPercentileInterpolation(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}
	cases := []struct {
		p    float64
		want float64
	}{
		{0, 1},
		{0.25, 1.75},
		{0.5, 2.5},
		{1, 4},
	}
	for _, c := range cases {
		if got := percentile(sorted, c.p); got != c.want {
			t.Errorf("percentile(%v, %.2f) = %f, want %f", sorted, c.p, got, c.want)
		}
	}
	if got := percentile(nil, 0.5); got != 0 {
		t.Errorf("percentile(nil) = %f, want 0", got)
	}
	if got := percentile([]float64{7}, 0.95); got != 7 {
		t.Errorf("single element = %f, want 7", got)
	}
}

func TestMaxDrawdownPct(t *testing.T) {
	// Peak 1.2 down to 0.9 is the deepest decline: -25%.
	curve := []float64{1.0, 1.2, 0.9, 1.1, 1.3}
	if got := maxDrawdownPct(curve); math.Abs(got-(-25)) > 1e-9 {
		t.Errorf("maxDrawdownPct = %f, want -25", got)
	}
	rising := []float64{1.0, 1.1, 1.2}
	if got := maxDrawdownPct(rising); got != 0 {
		t.Errorf("rising curve drawdown = %f, want 0", got)
	}
}
