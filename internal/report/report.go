// Package report renders result objects for the CLI: indented JSON, markdown
// summaries, and a trade CSV. Renderers read the results and never modify
// them.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/samber/lo"

	"econquant/internal/domain/models"
)

const dateLayout = "2006-01-02"

// rankingRows caps the markdown ranking table; the full ranking is always
// available through the JSON output.
const rankingRows = 20

// WriteJSON renders any result object as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printer accumulates the first write error so render code stays linear.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

// WriteBacktestMarkdown renders one backtest run: headline metrics and the
// round-trip trades.
func WriteBacktestMarkdown(w io.Writer, res *models.BacktestResult) error {
	p := &printer{w: w}
	p.printf("# Backtest %s\n\n", res.Symbol)
	p.printf("- Run: %s\n", res.RunID)
	p.printf("- Series: %s\n", res.SeriesID)
	if res.Params != nil {
		p.printf("- Parameters: %s\n", res.Params.Label())
	}
	p.printf("- Period: %s to %s\n\n", res.From.Format(dateLayout), res.To.Format(dateLayout))

	p.printf("| Metric | Value |\n|---|---|\n")
	p.printf("| Initial capital | %.2f |\n", res.InitialCapital)
	p.printf("| Final capital | %.2f |\n", res.FinalCapital)
	p.printf("| Total return | %.2f%% |\n", res.TotalReturn*100)
	p.printf("| Annualized return | %.2f%% |\n", res.AnnualizedReturn*100)
	p.printf("| Sharpe ratio | %.3f |\n", res.SharpeRatio)
	p.printf("| Max drawdown | %.2f%% |\n", res.MaxDrawdown*100)
	p.printf("| Win rate | %.2f%% |\n", res.WinRate*100)
	p.printf("| Trades | %d |\n", res.TradeCount)

	if len(res.Trades) > 0 {
		winners := lo.CountBy(res.Trades, models.Trade.Profitable)
		p.printf("\n## Trades (%d, %d profitable)\n\n", len(res.Trades), winners)
		p.printf("| Side | Entry | Exit | Entry price | Exit price | PnL | Return |\n")
		p.printf("|---|---|---|---|---|---|---|\n")
		for _, t := range res.Trades {
			p.printf("| %s | %s | %s | %s | %s | %s | %.2f%% |\n",
				t.Side,
				t.EntryDate.Format(dateLayout), t.ExitDate.Format(dateLayout),
				t.EntryPrice.StringFixed(4), t.ExitPrice.StringFixed(4),
				t.PnL.StringFixed(2), t.ReturnPct*100)
		}
	}
	return p.err
}

// WriteOptimizationMarkdown renders the session accounting and the top of
// the deterministic ranking.
func WriteOptimizationMarkdown(w io.Writer, res *models.OptimizationResult) error {
	p := &printer{w: w}
	p.printf("# Optimization %s / %s\n\n", res.SeriesID, res.Symbol)
	p.printf("- Run: %s\n", res.RunID)
	p.printf("- Metric: %s\n", res.Metric)
	p.printf("- Duration: %s\n", res.Duration)
	if res.TimedOut {
		p.printf("- Timed out: partial ranking from %d evaluated combinations\n", res.Evaluated)
	}
	p.printf("\n| Combinations | Count |\n|---|---|\n")
	p.printf("| Total | %d |\n", res.TotalCombinations)
	p.printf("| Evaluated | %d |\n", res.Evaluated)
	p.printf("| Retained | %d |\n", res.ValidCombinations)
	p.printf("| Skipped invalid | %d |\n", res.SkippedInvalid)
	p.printf("| Below trade floor | %d |\n", res.FilteredLowTrades)
	p.printf("| Failed | %d |\n", res.Failed)

	if res.Best != nil {
		p.printf("\nBest: %s (%s = %.4f)\n", res.Best.Params.Label(),
			res.Metric, res.Best.Result.MetricValue(res.Metric))
	}

	if len(res.Rankings) > 0 {
		top := lo.Slice(res.Rankings, 0, rankingRows)
		p.printf("\n## Ranking (top %d of %d)\n\n", len(top), len(res.Rankings))
		p.printf("| Rank | Parameters | %s | Return | Drawdown | Trades |\n", res.Metric)
		p.printf("|---|---|---|---|---|---|\n")
		for _, r := range top {
			p.printf("| %d | %s | %.4f | %.2f%% | %.2f%% | %d |\n",
				r.Rank, r.Params.Label(), r.Result.MetricValue(res.Metric),
				r.Result.TotalReturn*100, r.Result.MaxDrawdown*100, r.Result.TradeCount)
		}
	}
	return p.err
}

// WriteValidationMarkdown renders the quality accounting and the findings.
func WriteValidationMarkdown(w io.Writer, report *models.ValidationReport) error {
	p := &printer{w: w}
	p.printf("# Validation Report\n\n")
	p.printf("| | Count |\n|---|---|\n")
	p.printf("| Total records | %d |\n", report.TotalRecords)
	p.printf("| Valid | %d |\n", report.ValidRecords)
	p.printf("| Rejected | %d |\n", report.Rejected)
	p.printf("| Warnings | %d |\n", report.Warnings)
	p.printf("| Repaired | %d |\n", report.Repaired)
	p.printf("| Quality score | %.3f |\n", report.QualityScore)

	if len(report.Issues) > 0 {
		byKind := lo.CountValuesBy(report.Issues, func(i models.ValidationIssue) models.IssueKind {
			return i.Kind
		})
		p.printf("\n## Issues (%d)\n\n", len(report.Issues))
		for kind, n := range byKind {
			p.printf("- %s: %d\n", kind, n)
		}
		p.printf("\n| Row | Series | Field | Kind | Severity | Reason |\n")
		p.printf("|---|---|---|---|---|---|\n")
		for _, issue := range report.Issues {
			p.printf("| %d | %s | %s | %s | %s | %s |\n",
				issue.Row, issue.SeriesID, issue.Field, issue.Kind, issue.Severity, issue.Reason)
		}
	}
	return p.err
}

// WriteTradesCSV writes completed round trips in the flat column shape
// spreadsheet tooling expects.
func WriteTradesCSV(w io.Writer, trades []models.Trade) error {
	cw := csv.NewWriter(w)
	header := []string{
		"symbol", "side", "entry_date", "exit_date", "entry_price", "exit_price",
		"units", "commission", "pnl", "return_pct",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, t := range trades {
		row := []string{
			t.Symbol, t.Side.String(),
			t.EntryDate.Format(dateLayout), t.ExitDate.Format(dateLayout),
			t.EntryPrice.String(), t.ExitPrice.String(),
			t.Units.String(), t.Commission.String(), t.PnL.String(),
			strconv.FormatFloat(t.ReturnPct, 'f', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
