package types

import "time"

// DayLayout is the calendar-day key used across valuation series
const DayLayout = "2006-01-02"

// Standard metric names stored by history providers
const (
	MetricOpen   = "Open"
	MetricHigh   = "High"
	MetricLow    = "Low"
	MetricClose  = "Close"
	MetricVolume = "Volume"
)

// PricePoint is a single dated observation of one metric for one instrument
type PricePoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// TradeInput is a buy trade as received from the caller, before validation.
// Quantity and PurchasePrice are pointers so a missing field can be told
// apart from an explicit zero.
type TradeInput struct {
	ID            string   `json:"id,omitempty"`
	Symbol        string   `json:"symbol"`
	PurchasePrice *float64 `json:"purchase_price"`
	Quantity      *float64 `json:"quantity"`
	Date          string   `json:"date"`
}

// DayKey returns the UTC calendar day of t
func DayKey(t time.Time) string {
	return t.UTC().Format(DayLayout)
}

// StartOfDay truncates t to midnight UTC
func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns the last representable instant of t's UTC day
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}
