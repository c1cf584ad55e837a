// Package domain defines the core value types shared across kquant: bars,
// parameter sets, simulated trades, run results, and optimization outcomes.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Markets
// ---------------------------------------------------------------------------

// Market identifies the exchange universe a symbol belongs to.
type Market string

const (
	MarketKOSPI  Market = "kospi"
	MarketKOSDAQ Market = "kosdaq"
	MarketUS     Market = "us"
)

// ParseMarket converts a user-supplied market string into a Market.
func ParseMarket(s string) (Market, error) {
	switch Market(s) {
	case MarketKOSPI, MarketKOSDAQ, MarketUS:
		return Market(s), nil
	}
	return "", fmt.Errorf("unknown market %q", s)
}

// IsKorean reports whether the market trades on the KRX (KOSPI or KOSDAQ).
func (m Market) IsKorean() bool {
	return m == MarketKOSPI || m == MarketKOSDAQ
}

// MarketForSymbol infers the market from a symbol's listing suffix: ".KS" is
// KOSPI, ".KQ" is KOSDAQ, anything else trades in the US.
func MarketForSymbol(symbol string) Market {
	switch {
	case strings.HasSuffix(strings.ToUpper(symbol), ".KS"):
		return MarketKOSPI
	case strings.HasSuffix(strings.ToUpper(symbol), ".KQ"):
		return MarketKOSDAQ
	}
	return MarketUS
}

// ---------------------------------------------------------------------------
// Bars
// ---------------------------------------------------------------------------

// Bar is one trading day of OHLCV data. Bar sequences are chronological with
// no duplicate dates and are treated as immutable once ingested.
type Bar struct {
	Symbol    string
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// ---------------------------------------------------------------------------
// Parameters
// ---------------------------------------------------------------------------

// ParameterSet is one candidate configuration for the trade simulator.
type ParameterSet struct {
	RSIOversold int     `json:"rsi_oversold"`
	BBPeriod    int     `json:"bb_period"`
	BBStd       float64 `json:"bb_std"`
	EMAFast     int     `json:"ema_fast"`
	EMASlow     int     `json:"ema_slow"`
	TargetPct   float64 `json:"target_pct"`
	StopPct     float64 `json:"stop_pct"`
}

// Validate checks the structural invariants a ParameterSet must satisfy
// before it may be simulated.
func (p ParameterSet) Validate() error {
	if p.RSIOversold <= 0 || p.RSIOversold >= 100 {
		return fmt.Errorf("rsi_oversold %d outside (0, 100)", p.RSIOversold)
	}
	if p.BBPeriod < 2 {
		return fmt.Errorf("bb_period %d below minimum 2", p.BBPeriod)
	}
	if p.BBStd < 0 {
		return fmt.Errorf("bb_std %.2f negative", p.BBStd)
	}
	if p.EMAFast < 1 || p.EMASlow < 1 {
		return fmt.Errorf("ema spans must be positive, got fast=%d slow=%d", p.EMAFast, p.EMASlow)
	}
	if p.EMAFast >= p.EMASlow {
		return fmt.Errorf("ema_fast %d must be below ema_slow %d", p.EMAFast, p.EMASlow)
	}
	if p.TargetPct <= 0 {
		return fmt.Errorf("target_pct %.2f must be positive", p.TargetPct)
	}
	if p.StopPct >= 0 {
		return fmt.Errorf("stop_pct %.2f must be negative", p.StopPct)
	}
	return nil
}

// String renders the set in the compact form used in logs.
func (p ParameterSet) String() string {
	return fmt.Sprintf("rsi<=%d bb(%d,%.1f) ema(%d/%d) tgt=%.1f stop=%.1f",
		p.RSIOversold, p.BBPeriod, p.BBStd, p.EMAFast, p.EMASlow, p.TargetPct, p.StopPct)
}

// ---------------------------------------------------------------------------
// Trades
// ---------------------------------------------------------------------------

// ExitReason records which rule closed a simulated trade.
type ExitReason string

const (
	ExitTarget ExitReason = "target" // profit target reached
	ExitStop   ExitReason = "stop"   // stop loss reached
	ExitExpiry ExitReason = "expiry" // holding cap reached
	ExitFinal  ExitReason = "final"  // forced close at series end
)

// Trade is one completed round trip produced by the simulator. EntryIndex is
// the fill bar — always one bar after the signal bar.
type Trade struct {
	EntryIndex int
	EntryPrice float64
	ExitIndex  int
	PnlPct     float64
	Reason     ExitReason
}

// ---------------------------------------------------------------------------
// Results
// ---------------------------------------------------------------------------

// RunResult summarizes one simulation of a parameter set over one window.
// Metrics carry the fixed roundings (Sharpe 2dp, WinRate 1dp, TotalReturnPct
// 2dp) so that selection and divergence always compare the reported values.
type RunResult struct {
	Params         ParameterSet
	Trades         int
	WinRate        float64
	TotalReturnPct float64
	Sharpe         float64
}

// Verdict classifies how a parameter set generalized from train to test.
type Verdict string

const (
	VerdictPass Verdict = "pass"
	VerdictFail Verdict = "fail"
)

// OptimizationOutcome is the product of one full optimization request: the
// winning parameters plus the walk-forward comparison. It is either fully
// populated or entirely absent — a pipeline that cannot produce a usable
// outcome produces nothing.
type OptimizationOutcome struct {
	Symbol              string       `json:"symbol"`
	Market              Market       `json:"market"`
	Best                ParameterSet `json:"best"`
	TrainSharpe         float64      `json:"train_sharpe"`
	TestSharpe          float64      `json:"test_sharpe"`
	TestWinRate         float64      `json:"test_win_rate"`
	SharpeDivergencePct float64      `json:"sharpe_divergence_pct"`
	Verdict             Verdict      `json:"verdict"`
	CreatedAt           time.Time    `json:"created_at"`
}

// Generalized reports whether the walk-forward check passed.
func (o *OptimizationOutcome) Generalized() bool {
	return o.Verdict == VerdictPass
}
