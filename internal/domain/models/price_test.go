package models

import (
	"errors"
	"math"
	"testing"
	"time"
)

func validBar() OHLCV {
	return OHLCV{
		Symbol: "0700.HK",
		Date:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Open:   100, High: 105, Low: 98, Close: 103,
		Volume: 1_000_000,
	}
}

func TestOHLCVValidate(t *testing.T) {
	if err := validBar().Validate(); err != nil {
		t.Fatalf("valid bar rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*OHLCV)
	}{
		{"zero close", func(b *OHLCV) { b.Close = 0 }},
		{"negative open", func(b *OHLCV) { b.Open = -1 }},
		{"nan high", func(b *OHLCV) { b.High = math.NaN() }},
		{"high below close", func(b *OHLCV) { b.High = 102.9; b.Close = 103 }},
		{"low above open", func(b *OHLCV) { b.Low = 101 }},
		{"negative volume", func(b *OHLCV) { b.Volume = -5 }},
		{"zero date", func(b *OHLCV) { b.Date = time.Time{} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := validBar()
			tc.mutate(&b)
			err := b.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			var ipe *InvalidPriceError
			if !errors.As(err, &ipe) {
				t.Fatalf("expected InvalidPriceError, got %T", err)
			}
		})
	}
}
