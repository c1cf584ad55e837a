package backtest

import "kquant/internal/domain"

// Grid defines the parameter sweep for one optimization: the axis values to
// combine plus the exit parameters shared by every candidate.
type Grid struct {
	RSIOversold []int
	BBPeriod    []int
	BBStd       []float64
	EMAFast     []int
	EMASlow     []int
	TargetPct   float64
	StopPct     float64
}

// DefaultGrid returns the standard sweep: 405 axis combinations, of which
// the EMAFast < EMASlow constraint keeps all (every fast value sits below
// every slow value in the defaults).
func DefaultGrid() Grid {
	return Grid{
		RSIOversold: []int{25, 28, 30, 33, 35},
		BBPeriod:    []int{15, 20, 25},
		BBStd:       []float64{1.5, 2.0, 2.5},
		EMAFast:     []int{10, 21, 50},
		EMASlow:     []int{100, 150, 200},
		TargetPct:   3.0,
		StopPct:     -5.0,
	}
}

// Candidates enumerates every valid combination in the fixed nested order
// (RSI, then BB period, BB std, EMA fast, EMA slow). Combinations with
// EMAFast >= EMASlow are skipped. The order is the tie-break order for
// selection, so it must stay stable.
func (g Grid) Candidates() []domain.ParameterSet {
	capacity := len(g.RSIOversold) * len(g.BBPeriod) * len(g.BBStd) * len(g.EMAFast) * len(g.EMASlow)
	out := make([]domain.ParameterSet, 0, capacity)
	for _, rsiOS := range g.RSIOversold {
		for _, bbPeriod := range g.BBPeriod {
			for _, bbStd := range g.BBStd {
				for _, emaFast := range g.EMAFast {
					for _, emaSlow := range g.EMASlow {
						if emaFast >= emaSlow {
							continue
						}
						out = append(out, domain.ParameterSet{
							RSIOversold: rsiOS,
							BBPeriod:    bbPeriod,
							BBStd:       bbStd,
							EMAFast:     emaFast,
							EMASlow:     emaSlow,
							TargetPct:   g.TargetPct,
							StopPct:     g.StopPct,
						})
					}
				}
			}
		}
	}
	return out
}
