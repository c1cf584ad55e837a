package domain

import (
	"strings"
	"testing"
	"time"
)

func TestParseMarket(t *testing.T) {
	cases := []struct {
		in      string
		want    Market
		wantErr bool
	}{
		{"kospi", MarketKOSPI, false},
		{"kosdaq", MarketKOSDAQ, false},
		{"us", MarketUS, false},
		{"KOSPI", "", true},
		{"cn", "", true},
		{"", "", true},
	}
	for _, tc := range cases {
		got, err := ParseMarket(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseMarket(%q) expected error, got %q", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseMarket(%q) returned error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseMarket(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMarketIsKorean(t *testing.T) {
	if !MarketKOSPI.IsKorean() || !MarketKOSDAQ.IsKorean() {
		t.Error("KOSPI and KOSDAQ should report as Korean markets")
	}
	if MarketUS.IsKorean() {
		t.Error("us should not report as a Korean market")
	}
}

func TestMarketForSymbol(t *testing.T) {
	cases := []struct {
		symbol string
		want   Market
	}{
		{"005930.KS", MarketKOSPI},
		{"247540.KQ", MarketKOSDAQ},
		{"035420.ks", MarketKOSPI},
		{"AAPL", MarketUS},
		{"BRK.B", MarketUS},
	}
	for _, tc := range cases {
		if got := MarketForSymbol(tc.symbol); got != tc.want {
			t.Errorf("MarketForSymbol(%q) = %q, want %q", tc.symbol, got, tc.want)
		}
	}
}

func validParams() ParameterSet {
	return ParameterSet{
		RSIOversold: 30,
		BBPeriod:    20,
		BBStd:       2.0,
		EMAFast:     21,
		EMASlow:     100,
		TargetPct:   3.0,
		StopPct:     -5.0,
	}
}

func TestParameterSetValidate(t *testing.T) {
	if err := validParams().Validate(); err != nil {
		t.Fatalf("valid parameter set rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*ParameterSet)
	}{
		{"zero rsi threshold", func(p *ParameterSet) { p.RSIOversold = 0 }},
		{"rsi threshold at 100", func(p *ParameterSet) { p.RSIOversold = 100 }},
		{"bb period too short", func(p *ParameterSet) { p.BBPeriod = 1 }},
		{"negative bb std", func(p *ParameterSet) { p.BBStd = -0.5 }},
		{"zero ema fast", func(p *ParameterSet) { p.EMAFast = 0 }},
		{"fast equals slow", func(p *ParameterSet) { p.EMAFast = 100; p.EMASlow = 100 }},
		{"fast above slow", func(p *ParameterSet) { p.EMAFast = 150; p.EMASlow = 100 }},
		{"zero target", func(p *ParameterSet) { p.TargetPct = 0 }},
		{"positive stop", func(p *ParameterSet) { p.StopPct = 2.0 }},
	}
	for _, tc := range cases {
		p := validParams()
		tc.mutate(&p)
		if err := p.Validate(); err == nil {
			t.Errorf("%s: Validate() accepted invalid set %+v", tc.name, p)
		}
	}
}

func TestParameterSetString(t *testing.T) {
	s := validParams().String()
	for _, frag := range []string{"rsi<=30", "bb(20,2.0)", "ema(21/100)"} {
		if !strings.Contains(s, frag) {
			t.Errorf("String() = %q, missing %q", s, frag)
		}
	}
}

func TestOutcomeGeneralized(t *testing.T) {
	o := OptimizationOutcome{Verdict: VerdictPass}
	if !o.Generalized() {
		t.Error("pass verdict should report generalized")
	}
	o.Verdict = VerdictFail
	if o.Generalized() {
		t.Error("fail verdict should not report generalized")
	}
}

func TestZeroValues(t *testing.T) {
	// Zero-value entities must be inert: no surprising defaults.
	var bar Bar
	if bar.Symbol != "" || !bar.Timestamp.IsZero() {
		t.Error("zero-value Bar should have empty symbol and zero timestamp")
	}
	if bar.Open != 0 || bar.High != 0 || bar.Low != 0 || bar.Close != 0 || bar.Volume != 0 {
		t.Error("zero-value Bar should have zero OHLCV")
	}

	var tr Trade
	if tr.EntryIndex != 0 || tr.EntryPrice != 0 || tr.PnlPct != 0 || tr.Reason != "" {
		t.Error("zero-value Trade should be empty")
	}

	var rr RunResult
	if rr.Trades != 0 || rr.WinRate != 0 || rr.TotalReturnPct != 0 || rr.Sharpe != 0 {
		t.Error("zero-value RunResult should have zero metrics")
	}

	var out OptimizationOutcome
	if out.Verdict != "" || !out.CreatedAt.Equal(time.Time{}) {
		t.Error("zero-value OptimizationOutcome should be empty")
	}
}
