package backtest

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"econquant/internal/domain/models"
)

const tradingDaysPerYear = 252.0

// fillMetrics derives the risk/return summary from the equity curve and
// trade list already on the result. riskFree is the annual rate; it is
// de-annualized with the same 252-day convention used everywhere else.
func fillMetrics(res *models.BacktestResult, riskFree float64) {
	if len(res.EquityCurve) == 0 || res.InitialCapital <= 0 {
		return
	}
	final := res.EquityCurve[len(res.EquityCurve)-1].Equity
	res.FinalCapital = final
	res.TotalReturn = final/res.InitialCapital - 1

	returns := dailyReturns(res.EquityCurve)
	res.AnnualizedReturn = annualize(final/res.InitialCapital, len(returns))
	res.SharpeRatio = sharpe(returns, riskFree)
	res.MaxDrawdown = maxDrawdown(res.EquityCurve)
	res.WinRate = winRate(res.Trades)
}

func dailyReturns(curve []models.EquityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}
	out := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, curve[i].Equity/prev-1)
	}
	return out
}

// annualize compounds the growth ratio over the elapsed trading days.
func annualize(growthRatio float64, days int) float64 {
	if days == 0 {
		return 0
	}
	if growthRatio <= 0 {
		return -1
	}
	return math.Pow(growthRatio, tradingDaysPerYear/float64(days)) - 1
}

// sharpe is the annualized ratio of mean daily excess return to daily
// volatility. Fewer than two observations or zero volatility yields 0
// rather than NaN.
func sharpe(returns []float64, riskFree float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	std := stat.StdDev(returns, nil)
	if std == 0 || math.IsNaN(std) {
		return 0
	}
	excess := stat.Mean(returns, nil) - riskFree/tradingDaysPerYear
	return excess / std * math.Sqrt(tradingDaysPerYear)
}

// maxDrawdown is the deepest peak-to-trough decline, as a positive fraction.
func maxDrawdown(curve []models.EquityPoint) float64 {
	peak := math.Inf(-1)
	worst := 0.0
	for _, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			if dd := (peak - p.Equity) / peak; dd > worst {
				worst = dd
			}
		}
	}
	return worst
}

func winRate(trades []models.Trade) float64 {
	if len(trades) == 0 {
		return 0
	}
	wins := 0
	for _, t := range trades {
		if t.Profitable() {
			wins++
		}
	}
	return float64(wins) / float64(len(trades))
}
