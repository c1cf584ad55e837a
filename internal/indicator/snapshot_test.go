package indicator

import (
	"math"
	"testing"
)

func TestComputeSnapshotMinBars(t *testing.T) {
	bars := makeBars(oscillating(29))
	if _, err := ComputeSnapshot(bars); err == nil {
		t.Fatal("ComputeSnapshot accepted fewer than 30 bars")
	}
}

func TestComputeSnapshot(t *testing.T) {
	bars := makeBars(oscillating(120))
	snap, err := ComputeSnapshot(bars)
	if err != nil {
		t.Fatalf("ComputeSnapshot returned error: %v", err)
	}

	if snap.Symbol != "TEST" {
		t.Errorf("Symbol = %q, want %q", snap.Symbol, "TEST")
	}
	if snap.RSI < 0 || snap.RSI > 100 {
		t.Errorf("RSI = %f outside [0, 100]", snap.RSI)
	}
	if snap.ATR <= 0 {
		t.Errorf("ATR = %f, want positive", snap.ATR)
	}
	if snap.ATRPct <= 0 {
		t.Errorf("ATRPct = %f, want positive", snap.ATRPct)
	}
	if snap.VolumeRatio != 1.0 {
		t.Errorf("VolumeRatio = %f on constant volume, want 1.0", snap.VolumeRatio)
	}
	if snap.EMA50 <= 0 || snap.EMA200 <= 0 {
		t.Errorf("EMAs = %f/%f, want positive", snap.EMA50, snap.EMA200)
	}

	// The 52-week high covers the whole series here and must match the
	// largest bar high, rounded to a whole number.
	wantHigh := 0.0
	for _, b := range bars {
		if b.High > wantHigh {
			wantHigh = b.High
		}
	}
	if snap.High52W != math.Round(wantHigh) {
		t.Errorf("High52W = %f, want %f", snap.High52W, math.Round(wantHigh))
	}
	if snap.High20D > snap.High52W {
		t.Errorf("High20D %f exceeds High52W %f", snap.High20D, snap.High52W)
	}
}

func TestComputeSnapshotNeutralFallbacks(t *testing.T) {
	// A perfectly flat series leaves RSI and %B undefined; the snapshot
	// reports the neutral defaults instead.
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100
	}
	bars := makeBars(closes)
	for i := range bars {
		bars[i].High = 100
		bars[i].Low = 100
	}

	snap, err := ComputeSnapshot(bars)
	if err != nil {
		t.Fatalf("ComputeSnapshot returned error: %v", err)
	}

	if snap.RSI != 50.0 {
		t.Errorf("RSI = %f on flat series, want neutral 50", snap.RSI)
	}
	if snap.BBPercentB != 0.5 {
		t.Errorf("BBPercentB = %f on flat series, want neutral 0.5", snap.BBPercentB)
	}
	if snap.BBBandwidth != 0 {
		t.Errorf("BBBandwidth = %f on flat series, want 0", snap.BBBandwidth)
	}
	if snap.MACDHistogram != 0 {
		t.Errorf("MACDHistogram = %f on flat series, want 0", snap.MACDHistogram)
	}
	if snap.MACDCross != 0 {
		t.Errorf("MACDCross = %d on flat series, want 0", snap.MACDCross)
	}
	if snap.ATR != 0 {
		t.Errorf("ATR = %f on flat series, want 0", snap.ATR)
	}
	if snap.Return3MPct != 0 {
		t.Errorf("Return3MPct = %f on flat series, want 0", snap.Return3MPct)
	}
	if snap.GoldenCross || snap.DeadCross {
		t.Error("cross flags set on flat series")
	}
}

func TestRoundTo(t *testing.T) {
	cases := []struct {
		v      float64
		places int
		want   float64
	}{
		{3.14159, 2, 3.14},
		{123.456, 1, 123.5},
		{2.5, 0, 3},
		{-2.5, 0, -3},
		{99.999, 0, 100},
	}
	for _, c := range cases {
		if got := roundTo(c.v, c.places); got != c.want {
			t.Errorf("roundTo(%f, %d) = %f, want %f", c.v, c.places, got, c.want)
		}
	}
}
