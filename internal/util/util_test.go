package util

import (
	"context"
	"errors"
	"testing"
	"time"

	"kquant/internal/domain"
)

func TestRetry(t *testing.T) {
	attempts := 0
	targetAttempts := 3

	err := Retry(context.Background(), 5, 0, func() error {
		attempts++
		if attempts < targetAttempts {
			return errors.New("transient error")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Retry returned unexpected error: %v", err)
	}
	if attempts != targetAttempts {
		t.Errorf("Retry called fn %d times, want %d", attempts, targetAttempts)
	}
}

func TestRetryAllFail(t *testing.T) {
	attempts := 0
	maxAttempts := 3

	err := Retry(context.Background(), maxAttempts, 0, func() error {
		attempts++
		return errors.New("persistent error")
	})

	if err == nil {
		t.Fatal("Retry should return error when all attempts fail")
	}
	if attempts != maxAttempts {
		t.Errorf("Retry called fn %d times, want %d", attempts, maxAttempts)
	}
}

func TestRateLimiterNew(t *testing.T) {
	rl := NewRateLimiter(60)
	if rl == nil {
		t.Fatal("NewRateLimiter returned nil")
	}
}

func TestTradingCalendarWeekend(t *testing.T) {
	cal := NewTradingCalendar(domain.MarketKOSPI)

	sat := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) // Saturday
	if cal.IsTradingDay(sat) {
		t.Error("Saturday should not be a trading day")
	}
	mon := time.Date(2024, 6, 17, 12, 0, 0, 0, time.UTC) // Monday
	if !cal.IsTradingDay(mon) {
		t.Error("an ordinary Monday should be a trading day")
	}
}

func TestTradingCalendarHolidays(t *testing.T) {
	kr := NewTradingCalendar(domain.MarketKOSPI)
	us := NewTradingCalendar(domain.MarketUS)

	hangul := time.Date(2024, 10, 9, 9, 0, 0, 0, time.UTC) // Wednesday, Hangul Day
	if kr.IsTradingDay(hangul) {
		t.Error("Hangul Day should close the KRX")
	}
	if !us.IsTradingDay(hangul) {
		t.Error("Hangul Day should not close US markets")
	}

	julyFourth := time.Date(2024, 7, 4, 9, 0, 0, 0, time.UTC) // Thursday
	if us.IsTradingDay(julyFourth) {
		t.Error("July 4th should close US markets")
	}
	if !kr.IsTradingDay(julyFourth) {
		t.Error("July 4th should not close the KRX")
	}
}

func TestNextTradingDay(t *testing.T) {
	cal := NewTradingCalendar(domain.MarketKOSPI)

	fri := time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC) // Friday
	next := cal.NextTradingDay(fri)
	want := time.Date(2024, 6, 17, 0, 0, 0, 0, time.UTC) // following Monday
	if !next.Equal(want) {
		t.Errorf("NextTradingDay(friday) = %v, want %v", next, want)
	}
}
