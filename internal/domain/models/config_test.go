package models

import (
	"testing"
	"time"
)

func TestRangeCount(t *testing.T) {
	cases := []struct {
		r    Range
		want int
	}{
		{Range{Min: -2.0, Max: -1.0, Step: 0.5}, 3},
		{Range{Min: 1.0, Max: 2.0, Step: 0.5}, 3},
		{Range{Min: 20, Max: 35, Step: 5}, 4},
		{Range{Min: 0.1, Max: 0.3, Step: 0.1}, 3}, // float accumulation trap
		{Range{Min: 1, Max: 1, Step: 1}, 1},
		{Range{Min: 2, Max: 1, Step: 1}, 0},
		{Range{Min: 1, Max: 2, Step: 0}, 0},
	}
	for _, tc := range cases {
		if got := tc.r.Count(); got != tc.want {
			t.Errorf("Count(%+v) = %d, want %d", tc.r, got, tc.want)
		}
	}
}

func TestIntRangeCount(t *testing.T) {
	cases := []struct {
		r    IntRange
		want int
	}{
		{IntRange{Min: 5, Max: 25, Step: 5}, 5},
		{IntRange{Min: 50, Max: 150, Step: 50}, 3},
		{IntRange{Min: 10, Max: 10, Step: 1}, 1},
		{IntRange{Min: 10, Max: 5, Step: 1}, 0},
	}
	for _, tc := range cases {
		if got := tc.r.Count(); got != tc.want {
			t.Errorf("Count(%+v) = %d, want %d", tc.r, got, tc.want)
		}
	}
}

func TestDefaultGridCombinations(t *testing.T) {
	if got := DefaultGridConfig().TotalCombinations(); got != 2160 {
		t.Fatalf("reference grid enumerates %d combinations, want 2160", got)
	}
}

func TestDefaultOptimizationConfig(t *testing.T) {
	c := DefaultOptimizationConfig()
	if c.MaxWorkers != 8 {
		t.Errorf("MaxWorkers = %d, want 8", c.MaxWorkers)
	}
	if c.Timeout != time.Hour {
		t.Errorf("Timeout = %s, want 1h", c.Timeout)
	}
	if c.MinTrades != 10 {
		t.Errorf("MinTrades = %d, want 10", c.MinTrades)
	}
	if c.PrimaryMetric != MetricSharpe {
		t.Errorf("PrimaryMetric = %s, want sharpe", c.PrimaryMetric)
	}
	if err := ValidateConfig(c); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestDefaultBacktestConfig(t *testing.T) {
	c := DefaultBacktestConfig()
	if c.InitialCapital != 100000 {
		t.Errorf("InitialCapital = %v, want 100000", c.InitialCapital)
	}
	if c.CommissionRate != 0.001 {
		t.Errorf("CommissionRate = %v, want 0.001", c.CommissionRate)
	}
	if c.Slippage != 0.0005 {
		t.Errorf("Slippage = %v, want 0.0005", c.Slippage)
	}
	if c.RiskFreeRate != 0.02 {
		t.Errorf("RiskFreeRate = %v, want 0.02", c.RiskFreeRate)
	}
	if c.AllowShortSelling {
		t.Errorf("short selling must default off")
	}
	if err := ValidateConfig(c); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestMetricDirection(t *testing.T) {
	if !MetricSharpe.HigherIsBetter() || !MetricTotalReturn.HigherIsBetter() {
		t.Fatalf("sharpe and total return rank higher-is-better")
	}
	if MetricMaxDrawdown.HigherIsBetter() {
		t.Fatalf("drawdown ranks lower-is-better")
	}
}
