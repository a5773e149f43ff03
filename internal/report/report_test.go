package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"econquant/internal/domain/models"
)

func sampleBacktest() *models.BacktestResult {
	entry := time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC)
	exit := time.Date(2024, 1, 21, 0, 0, 0, 0, time.UTC)
	return &models.BacktestResult{
		RunID:          "run-1",
		Symbol:         "HSI",
		SeriesID:       "hibor_on",
		Params:         &models.ParameterSet{ZScoreBuy: -1.5, ZScoreSell: 1.5, RSIBuy: 30, RSISell: 70, SMAFast: 10, SMASlow: 50},
		From:           entry.AddDate(0, 0, -10),
		To:             exit.AddDate(0, 0, 8),
		InitialCapital: 100000,
		FinalCapital:   112000,
		TotalReturn:    0.12,
		SharpeRatio:    1.25,
		MaxDrawdown:    0.04,
		WinRate:        1.0,
		TradeCount:     1,
		Trades: []models.Trade{{
			Symbol:     "HSI",
			Side:       models.SideLong,
			EntryDate:  entry,
			ExitDate:   exit,
			EntryPrice: decimal.NewFromFloat(90.045),
			ExitPrice:  decimal.NewFromFloat(109.945),
			Units:      decimal.NewFromInt(1109),
			Commission: decimal.NewFromFloat(221.8),
			PnL:        decimal.NewFromFloat(12000),
			ReturnPct:  0.12,
		}},
	}
}

func TestWriteJSONRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleBacktest()); err != nil {
		t.Fatalf("write: %v", err)
	}
	var decoded models.BacktestResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Symbol != "HSI" || decoded.TradeCount != 1 {
		t.Fatalf("decoded = %+v", decoded)
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Fatalf("output not indented")
	}
}

func TestWriteBacktestMarkdown(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteBacktestMarkdown(&buf, sampleBacktest()); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"# Backtest HSI",
		"- Series: hibor_on",
		"z[-1.50,1.50] rsi[30,70] sma[10,50]",
		"| Total return | 12.00% |",
		"| Sharpe ratio | 1.250 |",
		"## Trades (1, 1 profitable)",
		"2024-01-11 | 2024-01-21",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestWriteOptimizationMarkdown(t *testing.T) {
	best := models.RankedResult{
		Rank:      1,
		GridIndex: 3,
		Params:    models.ParameterSet{ZScoreBuy: -2, ZScoreSell: 2, RSIBuy: 25, RSISell: 75, SMAFast: 5, SMASlow: 20},
		Result:    sampleBacktest(),
	}
	res := &models.OptimizationResult{
		RunID:             "run-2",
		SeriesID:          "hibor_on",
		Symbol:            "HSI",
		Metric:            models.MetricSharpe,
		Best:              &best,
		Rankings:          []models.RankedResult{best},
		TotalCombinations: 8,
		ValidCombinations: 1,
		SkippedInvalid:    2,
		FilteredLowTrades: 5,
		Evaluated:         6,
		Duration:          1500 * time.Millisecond,
		TimedOut:          true,
	}

	var buf bytes.Buffer
	if err := WriteOptimizationMarkdown(&buf, res); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"# Optimization hibor_on / HSI",
		"- Timed out: partial ranking from 6 evaluated combinations",
		"| Total | 8 |",
		"| Skipped invalid | 2 |",
		"| Below trade floor | 5 |",
		"Best: z[-2.00,2.00] rsi[25,75] sma[5,20] (sharpe = 1.2500)",
		"## Ranking (top 1 of 1)",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestWriteValidationMarkdown(t *testing.T) {
	rep := &models.ValidationReport{
		TotalRecords: 10,
		ValidRecords: 8,
		Rejected:     2,
		Warnings:     1,
		QualityScore: 0.8,
		Issues: []models.ValidationIssue{
			{Row: 3, SeriesID: "cpi", Field: "value", Kind: models.IssueNonFinite, Severity: models.SeverityError, Reason: "value is NaN"},
			{Row: 7, SeriesID: "cpi", Field: "value", Kind: models.IssueOutlier, Severity: models.SeverityWarning, Reason: "z-score 4.4 beyond 3.0"},
		},
	}
	var buf bytes.Buffer
	if err := WriteValidationMarkdown(&buf, rep); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"| Quality score | 0.800 |",
		"- non_finite: 1",
		"- outlier: 1",
		"| 7 | cpi | value | outlier | warning |",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestWriteTradesCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTradesCSV(&buf, sampleBacktest().Trades); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want header plus one trade", len(lines))
	}
	if lines[0] != "symbol,side,entry_date,exit_date,entry_price,exit_price,units,commission,pnl,return_pct" {
		t.Fatalf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "HSI,long,2024-01-11,2024-01-21,90.045,109.945,1109,") {
		t.Fatalf("row = %q", lines[1])
	}
}

func TestWriteTradesCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTradesCSV(&buf, nil); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); !strings.HasPrefix(got, "symbol,side,") || strings.Count(got, "\n") != 0 {
		t.Fatalf("empty trade list output = %q", got)
	}
}
