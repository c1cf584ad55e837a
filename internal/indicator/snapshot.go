package indicator

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"kquant/internal/domain"
)

// Snapshot parameters. The pipeline's tunable periods do not apply here; the
// snapshot always reports the standard configurations.
const (
	snapshotMinBars   = 30
	snapshotBBPeriod  = 20
	snapshotBBStd     = 2.0
	snapshotMACDFast  = 12
	snapshotMACDSlow  = 26
	snapshotMACDSpan  = 9
	snapshotEMAFast   = 50
	snapshotEMASlow   = 200
	snapshotVolWindow = 20
)

// Snapshot summarizes the latest indicator values for one symbol. Undefined
// indicator values fall back to neutral defaults (RSI 50, %B 0.5, volume
// ratio 1, others 0) at this presentation boundary; the simulation pipeline
// never reads these fallbacks.
type Snapshot struct {
	Symbol        string  `json:"symbol"`
	RSI           float64 `json:"rsi"`
	BBPercentB    float64 `json:"bb_pctb"`
	BBBandwidth   float64 `json:"bb_bandwidth"`
	MACDHistogram float64 `json:"macd_histogram"`
	MACDCross     int     `json:"macd_signal_cross"`
	ATR           float64 `json:"atr"`
	ATRPct        float64 `json:"atr_pct"`
	EMA50         float64 `json:"ema_50"`
	EMA200        float64 `json:"ema_200"`
	GoldenCross   bool    `json:"golden_cross"`
	DeadCross     bool    `json:"dead_cross"`
	High52W       float64 `json:"high_52w"`
	High20D       float64 `json:"high_20d"`
	VolumeRatio   float64 `json:"volume_ratio"`
	BBSqueeze     bool    `json:"bb_squeeze"`
	Return3MPct   float64 `json:"return_3m_pct"`
}

// ComputeSnapshot computes a Snapshot from the latest bars of one symbol.
// It needs at least 30 bars of history.
func ComputeSnapshot(bars []domain.Bar) (*Snapshot, error) {
	n := len(bars)
	if n < snapshotMinBars {
		return nil, fmt.Errorf("snapshot needs at least %d bars, got %d", snapshotMinBars, n)
	}

	symbol := bars[n-1].Symbol
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	vols := make([]float64, n)
	for i, b := range bars {
		closes[i] = b.Close
		highs[i] = b.High
		lows[i] = b.Low
		vols[i] = float64(b.Volume)
	}
	lastClose := closes[n-1]

	snap := &Snapshot{Symbol: symbol}

	// RSI(14).
	rsiVal := 50.0
	if v, ok := RSI(closes, RSIPeriod).Last(); ok {
		rsiVal = v
	}
	snap.RSI = roundTo(rsiVal, 2)

	// Bollinger(20, 2): %B and bandwidth from the latest bands.
	lower, mid, upper := Bollinger(closes, snapshotBBPeriod, snapshotBBStd)
	pctb := 0.5
	bandwidth := 0.0
	lo, okL := lower.Last()
	up, okU := upper.Last()
	if okL && okU {
		m, _ := mid.Last()
		if m != 0 {
			bandwidth = (up - lo) / m
		}
		if rng := up - lo; rng != 0 {
			pctb = (lastClose - lo) / rng
		}
	}
	snap.BBPercentB = roundTo(pctb, 4)
	snap.BBBandwidth = roundTo(bandwidth, 4)

	// MACD(12, 26, 9) histogram and the sign flip against the previous bar.
	_, _, hist := MACD(closes, snapshotMACDFast, snapshotMACDSlow, snapshotMACDSpan)
	histVal := 0.0
	if v, ok := hist.Last(); ok {
		histVal = v
	}
	histPrev := 0.0
	if v, ok := hist.At(n - 2); ok {
		histPrev = v
	}
	switch {
	case histVal > 0 && histPrev <= 0:
		snap.MACDCross = 1
	case histVal < 0 && histPrev >= 0:
		snap.MACDCross = -1
	}
	snap.MACDHistogram = roundTo(histVal, 4)

	// ATR(14), absolute and as a percentage of the latest close.
	atrVal := 0.0
	if v, ok := ATR(highs, lows, closes, ATRPeriod).Last(); ok {
		atrVal = v
	}
	atrPct := 0.0
	if lastClose != 0 {
		atrPct = atrVal / lastClose * 100
	}
	snap.ATR = roundTo(atrVal, 2)
	snap.ATRPct = roundTo(atrPct, 2)

	// EMA 50/200 with golden/dead cross detection. With a short history the
	// slow EMA falls back to a shorter span rather than going undefined.
	ema50 := EMA(closes, snapshotEMAFast)
	slowSpan := snapshotEMASlow
	if n < snapshotEMASlow {
		slowSpan = n
		if slowSpan > 100 {
			slowSpan = 100
		}
	}
	ema200 := EMA(closes, slowSpan)
	ema50Val, _ := ema50.Last()
	ema200Val, _ := ema200.Last()
	if prev50, ok := ema50.At(n - 2); ok {
		if prev200, ok2 := ema200.At(n - 2); ok2 {
			if ema50Val > ema200Val && prev50 <= prev200 {
				snap.GoldenCross = true
			} else if ema50Val < ema200Val && prev50 >= prev200 {
				snap.DeadCross = true
			}
		}
	}
	snap.EMA50 = roundTo(ema50Val, 2)
	snap.EMA200 = roundTo(ema200Val, 2)

	// 52-week and 20-day highs.
	snap.High52W = roundTo(maxOf(tail(highs, 252)), 0)
	snap.High20D = roundTo(maxOf(tail(highs, snapshotVolWindow)), 0)

	// Volume against its 20-day average.
	volWindow := vols
	if n >= snapshotVolWindow {
		volWindow = vols[n-snapshotVolWindow:]
	}
	volRatio := 1.0
	if avg := stat.Mean(volWindow, nil); avg > 0 {
		volRatio = vols[n-1] / avg
	}
	snap.VolumeRatio = roundTo(volRatio, 2)

	// Bandwidth squeeze: the latest bandwidth contracted below 70% of its
	// 20-bar average.
	if n >= snapshotVolWindow {
		bw := bandwidthSeries(lower, mid, upper)
		recent := bw[n-1]
		avg := nanMean(bw[n-snapshotVolWindow:])
		if !math.IsNaN(recent) && !math.IsNaN(avg) && recent < avg*0.7 {
			snap.BBSqueeze = true
		}
	}

	// 3-month return (60 trading days, capped by available history).
	lookback := n - 1
	if lookback > 60 {
		lookback = 60
	}
	if lookback > 0 {
		base := closes[n-1-lookback]
		if base != 0 {
			snap.Return3MPct = roundTo((lastClose-base)/base*100, 2)
		}
	}

	return snap, nil
}

// bandwidthSeries returns (upper-lower)/mid per bar, NaN where the bands are
// undefined or mid is zero.
func bandwidthSeries(lower, mid, upper Series) []float64 {
	n := lower.Len()
	out := nanSlice(n)
	for i := 0; i < n; i++ {
		lo, okL := lower.At(i)
		up, okU := upper.At(i)
		m, okM := mid.At(i)
		if !okL || !okU || !okM || m == 0 {
			continue
		}
		out[i] = (up - lo) / m
	}
	return out
}

// nanMean averages the defined values in vals, NaN if none are defined.
func nanMean(vals []float64) float64 {
	sum := 0.0
	count := 0
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		count++
	}
	if count == 0 {
		return math.NaN()
	}
	return sum / float64(count)
}

// tail returns the last k elements of vals (all of them when k >= len).
func tail(vals []float64, k int) []float64 {
	if len(vals) <= k {
		return vals
	}
	return vals[len(vals)-k:]
}

func maxOf(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// roundTo rounds v to the given number of decimal places.
func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
