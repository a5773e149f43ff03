package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionSide distinguishes long from short holdings.
type PositionSide string

const (
	SideLong  PositionSide = "long"
	SideShort PositionSide = "short"
)

func (s PositionSide) String() string { return string(s) }

// Position is the open holding of one backtest run. Ledger quantities are
// decimal so cash conservation is exact. Owned by a single engine run and
// discarded at completion.
type Position struct {
	Side     PositionSide
	Units    decimal.Decimal
	AvgCost  decimal.Decimal
	OpenedAt time.Time
}

// EquityPoint is one date's total portfolio value (cash plus mark-to-market).
type EquityPoint struct {
	Date   time.Time `json:"date"`
	Equity float64   `json:"equity"`
}

// Trade records one completed round trip, net of commission and slippage.
type Trade struct {
	Symbol     string          `json:"symbol"`
	Side       PositionSide    `json:"side"`
	EntryDate  time.Time       `json:"entry_date"`
	ExitDate   time.Time       `json:"exit_date"`
	EntryPrice decimal.Decimal `json:"entry_price"`
	ExitPrice  decimal.Decimal `json:"exit_price"`
	Units      decimal.Decimal `json:"units"`
	Commission decimal.Decimal `json:"commission"`
	PnL        decimal.Decimal `json:"pnl"`
	ReturnPct  float64         `json:"return_pct"`
}

// Profitable reports whether the round trip made money after costs.
func (t Trade) Profitable() bool { return t.PnL.IsPositive() }

// BacktestResult is the immutable outcome of one engine run. Symbol, series
// and date range reference the exact inputs; Params is stamped by the caller
// that owns the parameter set before the result is shared.
type BacktestResult struct {
	RunID            string        `json:"run_id"`
	Symbol           string        `json:"symbol"`
	SeriesID         string        `json:"series_id"`
	Params           *ParameterSet `json:"params,omitempty"`
	From             time.Time     `json:"from"`
	To               time.Time     `json:"to"`
	InitialCapital   float64       `json:"initial_capital"`
	FinalCapital     float64       `json:"final_capital"`
	TotalReturn      float64       `json:"total_return"`
	AnnualizedReturn float64       `json:"annualized_return"`
	SharpeRatio      float64       `json:"sharpe_ratio"`
	MaxDrawdown      float64       `json:"max_drawdown"`
	WinRate          float64       `json:"win_rate"`
	TradeCount       int           `json:"trade_count"`
	Trades           []Trade       `json:"trades"`
	EquityCurve      []EquityPoint `json:"equity_curve"`
}

// MetricValue returns the named metric for ranking.
func (r *BacktestResult) MetricValue(m Metric) float64 {
	switch m {
	case MetricTotalReturn:
		return r.TotalReturn
	case MetricMaxDrawdown:
		return r.MaxDrawdown
	default:
		return r.SharpeRatio
	}
}

// AnalysisResult bundles one series' validation report, derived indicators,
// and combined signal stream for a single parameter set. It is the output of
// the analyze operation, before any simulation.
type AnalysisResult struct {
	RunID      string            `json:"run_id"`
	SeriesID   string            `json:"series_id"`
	Strategy   CombineStrategy   `json:"strategy"`
	Params     ParameterSet      `json:"params"`
	Report     *ValidationReport `json:"report"`
	Indicators *IndicatorSet     `json:"indicators"`
	Signals    []TradingSignal   `json:"signals"`
}

// RankedResult pairs one evaluated candidate with its metrics. GridIndex is
// the candidate's position in the fixed enumeration order and breaks final
// ties, which keeps rankings reproducible across any worker count.
type RankedResult struct {
	Rank      int             `json:"rank"`
	GridIndex int             `json:"grid_index"`
	Params    ParameterSet    `json:"params"`
	Result    *BacktestResult `json:"result"`
}

// OptimizationResult is the outcome of one optimization session.
// ValidCombinations counts candidates that were evaluated and retained;
// candidates failing the ordering invariants are skipped silently and
// candidates below the trade floor are discarded, not ranked low.
type OptimizationResult struct {
	RunID             string         `json:"run_id"`
	SeriesID          string         `json:"series_id"`
	Symbol            string         `json:"symbol"`
	Metric            Metric         `json:"metric"`
	Best              *RankedResult  `json:"best,omitempty"`
	Rankings          []RankedResult `json:"rankings"`
	TotalCombinations int            `json:"total_combinations"`
	ValidCombinations int            `json:"valid_combinations"`
	SkippedInvalid    int            `json:"skipped_invalid"`
	FilteredLowTrades int            `json:"filtered_low_trades"`
	Failed            int            `json:"failed"`
	Evaluated         int            `json:"evaluated"`
	Duration          time.Duration  `json:"duration"`
	TimedOut          bool           `json:"timed_out"`
}
