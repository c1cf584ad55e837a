package backtest

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"kquant/internal/domain"
)

// sharpeAnnualization scales the per-trade Sharpe ratio. The divisor 10 is a
// fixed holding-period approximation in days; it is a constant of the scoring
// scheme and is not derived from the realized holding time.
var sharpeAnnualization = math.Sqrt(252.0 / 10.0)

// Pnls extracts the per-trade percentage returns in trade order.
func Pnls(trades []domain.Trade) []float64 {
	if len(trades) == 0 {
		return nil
	}
	out := make([]float64, len(trades))
	for i, t := range trades {
		out[i] = t.PnlPct
	}
	return out
}

// Evaluate reduces a trade list to its summary metrics. Returns are
// compounded, not summed; the Sharpe ratio uses the population standard
// deviation and is zero when the returns do not vary. The metrics carry
// their fixed roundings (win rate 1dp, return 2dp, Sharpe 2dp): selection
// and divergence downstream always compare the rounded values. An empty
// trade list yields a zero-valued result.
func Evaluate(params domain.ParameterSet, trades []domain.Trade) domain.RunResult {
	res := domain.RunResult{
		Params: params,
		Trades: len(trades),
	}
	if len(trades) == 0 {
		return res
	}

	pnls := Pnls(trades)

	wins := 0
	for _, p := range pnls {
		if p > 0 {
			wins++
		}
	}
	res.WinRate = roundTo(float64(wins)/float64(len(pnls))*100, 1)

	total := 1.0
	for _, p := range pnls {
		total *= 1 + p/100
	}
	res.TotalReturnPct = roundTo((total-1)*100, 2)

	std := stat.PopStdDev(pnls, nil)
	if std > 0 {
		res.Sharpe = roundTo(stat.Mean(pnls, nil)/std*sharpeAnnualization, 2)
	}

	return res
}
