package backtest

import (
	"gonum.org/v1/gonum/stat"
)

// DefaultAnnualRiskFreePct is the annual risk-free rate assumed by the risk
// metrics, in percent.
const DefaultAnnualRiskFreePct = 3.5

// RiskMetrics are risk-adjusted performance measures of one pnl sequence.
// MaxDrawdownPct is a positive magnitude; all ratios are rounded to 2dp.
type RiskMetrics struct {
	Sharpe               float64 `json:"sharpe"`
	Sortino              float64 `json:"sortino"`
	MaxDrawdownPct       float64 `json:"max_drawdown_pct"`
	Calmar               float64 `json:"calmar"`
	Omega                float64 `json:"omega"`
	MaxConsecutiveLosses int     `json:"max_consecutive_losses"`
	RecoveryFactor       float64 `json:"recovery_factor"`
}

// ComputeRiskMetrics derives the risk-adjusted measures from a pnl sequence.
// annualRiskFreePct is converted to a per-trade rate over 252 trading days;
// pass DefaultAnnualRiskFreePct when no better figure is available. Fewer
// than 2 trades yield a zero-valued result.
func ComputeRiskMetrics(pnls []float64, annualRiskFreePct float64) RiskMetrics {
	if len(pnls) < 2 {
		return RiskMetrics{}
	}

	rfPerTrade := annualRiskFreePct / 252

	excess := make([]float64, len(pnls))
	for i, p := range pnls {
		excess[i] = p - rfPerTrade
	}

	sharpe := 0.0
	if std := stat.PopStdDev(excess, nil); std > 0 {
		sharpe = stat.Mean(excess, nil) / std * sharpeAnnualization
	}

	// Sortino penalizes downside variance only. The downside deviation is
	// taken over the raw losing trades and floored at 1e-6 so a loss-free or
	// single-loss sequence stays finite.
	var losses []float64
	for _, p := range pnls {
		if p < 0 {
			losses = append(losses, p)
		}
	}
	downsideStd := 0.0
	if len(losses) > 0 {
		downsideStd = stat.PopStdDev(losses, nil)
	}
	if downsideStd < 1e-6 {
		downsideStd = 1e-6
	}
	sortino := stat.Mean(excess, nil) / downsideStd * sharpeAnnualization

	curve := compound(pnls)
	totalReturn := (curve[len(curve)-1] - 1) * 100
	maxDD := -maxDrawdownPct(curve)

	calmar := 0.0
	recovery := 0.0
	if maxDD > 0 {
		calmar = totalReturn / maxDD
		recovery = totalReturn / maxDD
	}

	gainSum := 0.0
	lossSum := 0.0
	for _, p := range pnls {
		if p > 0 {
			gainSum += p
		} else if p < 0 {
			lossSum += -p
		}
	}
	omega := 0.0
	switch {
	case lossSum > 0:
		omega = gainSum / lossSum
	case gainSum > 0:
		omega = gainSum
	}

	return RiskMetrics{
		Sharpe:               roundTo(sharpe, 2),
		Sortino:              roundTo(sortino, 2),
		MaxDrawdownPct:       roundTo(maxDD, 2),
		Calmar:               roundTo(calmar, 2),
		Omega:                roundTo(omega, 2),
		MaxConsecutiveLosses: maxConsecutiveLosses(pnls),
		RecoveryFactor:       roundTo(recovery, 2),
	}
}

// maxConsecutiveLosses counts the longest run of strictly negative pnls.
func maxConsecutiveLosses(pnls []float64) int {
	maxStreak := 0
	current := 0
	for _, p := range pnls {
		if p < 0 {
			current++
			if current > maxStreak {
				maxStreak = current
			}
		} else {
			current = 0
		}
	}
	return maxStreak
}
