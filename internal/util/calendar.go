package util

import (
	"time"

	"kquant/internal/domain"
)

// TradingCalendar answers whether a given date is a trading day for a market.
// Weekends and fixed-date statutory holidays are covered; lunar-calendar
// holidays (Seollal, Chuseok, Buddha's birthday) and floating US holidays are
// not modelled — a scheduled run on one of those days fetches the same bars
// as the previous session and is harmless.
type TradingCalendar struct {
	market domain.Market
}

// NewTradingCalendar creates a TradingCalendar for the given market.
func NewTradingCalendar(market domain.Market) *TradingCalendar {
	return &TradingCalendar{
		market: market,
	}
}

// krxHolidays are the fixed-date KRX market closures (month, day).
var krxHolidays = map[[2]int]bool{
	{1, 1}:   true, // New Year's Day
	{3, 1}:   true, // Independence Movement Day
	{5, 1}:   true, // Labour Day (KRX closes)
	{5, 5}:   true, // Children's Day
	{6, 6}:   true, // Memorial Day
	{8, 15}:  true, // Liberation Day
	{10, 3}:  true, // National Foundation Day
	{10, 9}:  true, // Hangul Day
	{12, 25}: true, // Christmas Day
	{12, 31}: true, // year-end closure
}

// usHolidays are the fixed-date NYSE closures (month, day).
var usHolidays = map[[2]int]bool{
	{1, 1}:   true, // New Year's Day
	{6, 19}:  true, // Juneteenth
	{7, 4}:   true, // Independence Day
	{12, 25}: true, // Christmas Day
}

// IsTradingDay reports whether the market trades on the date of t.
func (tc *TradingCalendar) IsTradingDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}

	key := [2]int{int(t.Month()), t.Day()}
	if tc.market.IsKorean() {
		return !krxHolidays[key]
	}
	return !usHolidays[key]
}

// NextTradingDay returns the first trading day strictly after t.
func (tc *TradingCalendar) NextTradingDay(t time.Time) time.Time {
	d := t.AddDate(0, 0, 1)
	for !tc.IsTradingDay(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}
