package us

import (
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
)

func TestFetchWindow(t *testing.T) {
	now := time.Date(2026, 8, 21, 14, 30, 0, 0, time.UTC)
	start, end := fetchWindow(now, 504)

	want := time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC)
	if !end.Equal(want) {
		t.Errorf("end = %v, want %v (UTC day boundary)", end, want)
	}
	// The calendar window must cover 504 trading days: ~706 calendar days
	// plus a holiday margin.
	if got := end.Sub(start).Hours() / 24; got < 710 {
		t.Errorf("window covers %.0f calendar days, want >= 710", got)
	}
}

func TestConvertBars(t *testing.T) {
	in := []marketdata.Bar{
		{
			Timestamp: time.Date(2026, 8, 20, 4, 0, 0, 0, time.UTC),
			Open:      185.0, High: 186.5, Low: 184.0, Close: 185.5,
			Volume: 50000000,
		},
		{
			Timestamp: time.Date(2026, 8, 21, 4, 0, 0, 0, time.UTC),
			Open:      185.5, High: 187.0, Low: 185.0, Close: 186.0,
			Volume: 45000000,
		},
	}

	bars := convertBars("AAPL", in)
	if len(bars) != 2 {
		t.Fatalf("got %d bars, want 2", len(bars))
	}
	// Session timestamps flatten to their UTC date.
	want := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	if !bars[0].Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", bars[0].Timestamp, want)
	}
	if bars[0].Symbol != "AAPL" || bars[0].Close != 185.5 || bars[0].Volume != 50000000 {
		t.Errorf("first bar = %+v", bars[0])
	}
}

func TestNewAlpacaSource(t *testing.T) {
	s := NewAlpacaSource("key", "secret", "https://data.example.test")
	if s.client == nil {
		t.Fatal("client not initialized")
	}
}
