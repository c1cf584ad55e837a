package backtest

import (
	"kquant/internal/domain"
	"kquant/internal/indicator"
)

// Simulate replays bars under params and returns the completed trades in
// entry order. The simulation holds at most one position: an entry signal on
// bar i fills at the close of bar i+1, and an open position is checked for
// exit before any new entry is considered. Bars where RSI or %B is undefined
// never produce an entry. The final bar only closes positions; a position
// still open after the last evaluated bar is force-closed at the final
// bar's close.
//
// An empty result is a valid outcome, not an error.
func Simulate(bars []domain.Bar, params domain.ParameterSet) []domain.Trade {
	n := len(bars)
	if n == 0 {
		return nil
	}

	ind := indicator.Compute(bars, params)
	closes := make([]float64, n)
	for i, b := range bars {
		closes[i] = b.Close
	}

	lookback := params.EMASlow
	if params.BBPeriod > lookback {
		lookback = params.BBPeriod
	}
	lookback += warmupMargin

	var trades []domain.Trade
	inTrade := false
	entryPrice := 0.0
	entryIdx := 0

	for i := lookback; i < n-1; i++ {
		if inTrade {
			pnl := (closes[i] - entryPrice) / entryPrice * 100
			held := i - entryIdx
			switch {
			case pnl >= params.TargetPct:
				trades = append(trades, closedTrade(entryIdx, entryPrice, i, pnl, domain.ExitTarget))
				inTrade = false
			case pnl <= params.StopPct:
				trades = append(trades, closedTrade(entryIdx, entryPrice, i, pnl, domain.ExitStop))
				inTrade = false
			case held >= HoldingCapBars:
				trades = append(trades, closedTrade(entryIdx, entryPrice, i, pnl, domain.ExitExpiry))
				inTrade = false
			}
			// An exit bar never evaluates a new entry.
			continue
		}

		rsiVal, okRSI := ind.RSI.At(i)
		pbVal, okPB := ind.PercentB.At(i)
		if !okRSI || !okPB {
			continue
		}

		if rsiVal <= float64(params.RSIOversold) ||
			pbVal <= pctBEntry ||
			indicator.BullishCross(ind.EMAFast, ind.EMASlow, i) {
			entryPrice = closes[i+1]
			entryIdx = i + 1
			inTrade = true
		}
	}

	if inTrade {
		pnl := (closes[n-1] - entryPrice) / entryPrice * 100
		trades = append(trades, closedTrade(entryIdx, entryPrice, n-1, pnl, domain.ExitFinal))
	}

	return trades
}

func closedTrade(entryIdx int, entryPrice float64, exitIdx int, pnl float64, reason domain.ExitReason) domain.Trade {
	return domain.Trade{
		EntryIndex: entryIdx,
		EntryPrice: entryPrice,
		ExitIndex:  exitIdx,
		PnlPct:     pnl,
		Reason:     reason,
	}
}
