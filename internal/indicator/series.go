// Package indicator computes technical indicator series from daily bars:
// Wilder RSI, Bollinger bands, EMA, MACD, and ATR, plus a latest-value
// snapshot for serving. Every series is aligned 1:1 with the input bars;
// warm-up values are undefined and reachable only through comma-ok
// accessors, never as zeroes.
package indicator

import "math"

// Series is a float64 sequence aligned with a bar slice. Slots without a
// defined value (warm-up prefixes, degenerate windows) hold NaN internally;
// use At or Last to read values.
type Series struct {
	values []float64
}

// newSeries wraps a value slice. Undefined slots must already be NaN.
func newSeries(values []float64) Series {
	return Series{values: values}
}

// nanSlice returns a slice of n NaNs.
func nanSlice(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

// Len returns the number of slots in the series.
func (s Series) Len() int {
	return len(s.values)
}

// At returns the value at index i. The second return value is false when i is
// out of range or the value is undefined.
func (s Series) At(i int) (float64, bool) {
	if i < 0 || i >= len(s.values) {
		return 0, false
	}
	v := s.values[i]
	if math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// Defined reports whether the series holds a usable value at index i.
func (s Series) Defined(i int) bool {
	_, ok := s.At(i)
	return ok
}

// Last returns the final value in the series.
func (s Series) Last() (float64, bool) {
	return s.At(len(s.values) - 1)
}
