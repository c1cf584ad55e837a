package indicator

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"kquant/internal/domain"
)

// Periods fixed by the optimization pipeline and the snapshot.
const (
	RSIPeriod = 14
	ATRPeriod = 14
)

// ---------------------------------------------------------------------------
// Kernels
// ---------------------------------------------------------------------------

// RSI computes the relative strength index with Wilder smoothing. Gains and
// losses are clipped at zero (the first bar contributes zero of each), and
// the running averages follow avg[i] = (1-a)*avg[i-1] + a*x[i] with
// a = 1/period, seeded from the first gain/loss. Values are undefined for
// i < period-1 and whenever the average loss is zero.
func RSI(close []float64, period int) Series {
	n := len(close)
	out := nanSlice(n)
	if period < 1 || n == 0 {
		return newSeries(out)
	}

	gain := make([]float64, n)
	loss := make([]float64, n)
	for i := 1; i < n; i++ {
		d := close[i] - close[i-1]
		if d > 0 {
			gain[i] = d
		} else if d < 0 {
			loss[i] = -d
		}
	}

	alpha := 1.0 / float64(period)
	avgGain := gain[0]
	avgLoss := loss[0]
	for i := 0; i < n; i++ {
		if i > 0 {
			avgGain = (1-alpha)*avgGain + alpha*gain[i]
			avgLoss = (1-alpha)*avgLoss + alpha*loss[i]
		}
		if i < period-1 {
			continue
		}
		if avgLoss == 0 {
			// No losses in the window: the ratio is unbounded, so the value
			// stays undefined rather than pinning to 100.
			continue
		}
		rs := avgGain / avgLoss
		out[i] = 100 - 100/(1+rs)
	}
	return newSeries(out)
}

// Bollinger computes the lower, middle, and upper bands: rolling mean of
// close over period, offset by mult times the rolling sample standard
// deviation. All three are undefined for i < period-1.
func Bollinger(close []float64, period int, mult float64) (lower, mid, upper Series) {
	n := len(close)
	lo := nanSlice(n)
	mi := nanSlice(n)
	up := nanSlice(n)
	if period >= 2 {
		for i := period - 1; i < n; i++ {
			window := close[i-period+1 : i+1]
			m := stat.Mean(window, nil)
			sd := stat.StdDev(window, nil)
			mi[i] = m
			up[i] = m + mult*sd
			lo[i] = m - mult*sd
		}
	}
	return newSeries(lo), newSeries(mi), newSeries(up)
}

// PercentB locates close within the Bollinger bands: 0 at the lower band,
// 1 at the upper. Undefined where the bands are undefined or the band range
// is zero (flat window).
func PercentB(close []float64, lower, upper Series) Series {
	n := len(close)
	out := nanSlice(n)
	for i := 0; i < n; i++ {
		lo, okL := lower.At(i)
		up, okU := upper.At(i)
		if !okL || !okU {
			continue
		}
		rng := up - lo
		if rng == 0 {
			continue
		}
		out[i] = (close[i] - lo) / rng
	}
	return newSeries(out)
}

// EMA computes an exponential moving average with alpha = 2/(span+1), seeded
// with the first value. Defined from index 0.
func EMA(values []float64, span int) Series {
	n := len(values)
	out := nanSlice(n)
	if span < 1 || n == 0 {
		return newSeries(out)
	}
	alpha := 2.0 / float64(span+1)
	ema := values[0]
	out[0] = ema
	for i := 1; i < n; i++ {
		ema = (1-alpha)*ema + alpha*values[i]
		out[i] = ema
	}
	return newSeries(out)
}

// MACD computes the MACD line (fast EMA minus slow EMA), its signal line
// (EMA of the MACD line), and the histogram (line minus signal). All three
// are defined from index 0.
func MACD(close []float64, fast, slow, signalSpan int) (line, signal, histogram Series) {
	n := len(close)
	emaFast := EMA(close, fast)
	emaSlow := EMA(close, slow)

	lineVals := make([]float64, n)
	for i := 0; i < n; i++ {
		lineVals[i] = emaFast.values[i] - emaSlow.values[i]
	}
	sig := EMA(lineVals, signalSpan)

	hist := make([]float64, n)
	for i := 0; i < n; i++ {
		hist[i] = lineVals[i] - sig.values[i]
	}
	return newSeries(lineVals), sig, newSeries(hist)
}

// ATR computes the average true range: the rolling mean of the true range
// over period. The first bar's true range is high-low (there is no previous
// close). Undefined for i < period-1.
func ATR(high, low, close []float64, period int) Series {
	n := len(close)
	out := nanSlice(n)
	if period < 1 || n == 0 || len(high) != n || len(low) != n {
		return newSeries(out)
	}

	tr := make([]float64, n)
	tr[0] = high[0] - low[0]
	for i := 1; i < n; i++ {
		hl := high[i] - low[i]
		hc := math.Abs(high[i] - close[i-1])
		lc := math.Abs(low[i] - close[i-1])
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}
	for i := period - 1; i < n; i++ {
		out[i] = stat.Mean(tr[i-period+1:i+1], nil)
	}
	return newSeries(out)
}

// BullishCross reports whether the fast series crossed above the slow series
// at index i: fast is above slow at i after being at or below it at i-1.
// False when either series is undefined at i or i-1.
func BullishCross(fast, slow Series, i int) bool {
	if i < 1 {
		return false
	}
	prevFast, ok1 := fast.At(i - 1)
	prevSlow, ok2 := slow.At(i - 1)
	curFast, ok3 := fast.At(i)
	curSlow, ok4 := slow.At(i)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return false
	}
	return curFast > curSlow && prevFast <= prevSlow
}

// ---------------------------------------------------------------------------
// Per-parameter indicator set
// ---------------------------------------------------------------------------

// Set holds the indicator series the trade simulator reads, all aligned with
// the bar slice they were computed from.
type Set struct {
	RSI       Series
	BandLower Series
	BandMid   Series
	BandUpper Series
	PercentB  Series
	EMAFast   Series
	EMASlow   Series
	ATR       Series
}

// Compute builds the full indicator set for bars under params in one pass.
// Every series in the result has exactly len(bars) slots.
func Compute(bars []domain.Bar, params domain.ParameterSet) *Set {
	n := len(bars)
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	for i, b := range bars {
		closes[i] = b.Close
		highs[i] = b.High
		lows[i] = b.Low
	}

	lower, mid, upper := Bollinger(closes, params.BBPeriod, params.BBStd)
	return &Set{
		RSI:       RSI(closes, RSIPeriod),
		BandLower: lower,
		BandMid:   mid,
		BandUpper: upper,
		PercentB:  PercentB(closes, lower, upper),
		EMAFast:   EMA(closes, params.EMAFast),
		EMASlow:   EMA(closes, params.EMASlow),
		ATR:       ATR(highs, lows, closes, ATRPeriod),
	}
}
