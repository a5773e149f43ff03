package models

import (
	"math"
	"time"
)

// OHLCV is one daily price bar. External read-only input to the backtester.
type OHLCV struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Validate enforces the bar invariants: positive finite prices, the high/low
// envelope, non-negative volume, a usable date.
func (b OHLCV) Validate() error {
	if b.Date.IsZero() {
		return &InvalidPriceError{Symbol: b.Symbol, Date: b.Date, Field: "date", Reason: "missing date"}
	}
	prices := []struct {
		field string
		value float64
	}{
		{"open", b.Open},
		{"high", b.High},
		{"low", b.Low},
		{"close", b.Close},
	}
	for _, p := range prices {
		if math.IsNaN(p.value) || math.IsInf(p.value, 0) || p.value <= 0 {
			return &InvalidPriceError{Symbol: b.Symbol, Date: b.Date, Field: p.field, Value: p.value, Reason: "price must be positive and finite"}
		}
	}
	if b.High < b.Open || b.High < b.Close || b.High < b.Low {
		return &InvalidPriceError{Symbol: b.Symbol, Date: b.Date, Field: "high", Value: b.High, Reason: "high below open/close/low"}
	}
	if b.Low > b.Open || b.Low > b.Close {
		return &InvalidPriceError{Symbol: b.Symbol, Date: b.Date, Field: "low", Value: b.Low, Reason: "low above open/close"}
	}
	if math.IsNaN(b.Volume) || math.IsInf(b.Volume, 0) || b.Volume < 0 {
		return &InvalidPriceError{Symbol: b.Symbol, Date: b.Date, Field: "volume", Value: b.Volume, Reason: "volume must be non-negative"}
	}
	return nil
}
