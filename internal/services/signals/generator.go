package signals

import (
	"fmt"

	"econquant/internal/domain/models"
	"econquant/pkg/logger"
)

// Confidence scales: how far past a threshold maps to full confidence.
// One sigma for z-score, ten RSI points, a 2% relative SMA gap.
const (
	zscoreFullConfidence = 1.0
	rsiFullConfidence    = 10.0
	smaGapFullConfidence = 0.02
)

// IndicatorSignals is one indicator's vote series, input to the combiner.
type IndicatorSignals struct {
	Name    string
	Signals []models.TradingSignal
}

// Generator maps indicator series to per-indicator signal series. One signal
// per indicator per date; the combiner reduces them to one decision.
type Generator struct {
	log *logger.Logger
}

func NewGenerator(log *logger.Logger) *Generator {
	if log == nil {
		log = logger.Nop()
	}
	return &Generator{log: log}
}

// Generate builds the three vote streams for one indicator set.
func (g *Generator) Generate(set *models.IndicatorSet, params models.ParameterSet) []IndicatorSignals {
	return []IndicatorSignals{
		{Name: "zscore", Signals: g.FromZScore(set.ZScore, params)},
		{Name: "rsi", Signals: g.FromRSI(set.RSI, params)},
		{Name: "sma_cross", Signals: g.FromSMACross(set.SMAFast, set.SMASlow, params)},
	}
}

// FromZScore: Buy at or below the buy threshold, Sell at or above the sell
// threshold. Undefined points vote Hold.
func (g *Generator) FromZScore(series []models.TechnicalIndicator, params models.ParameterSet) []models.TradingSignal {
	out := make([]models.TradingSignal, 0, len(series))
	for _, p := range series {
		s := models.TradingSignal{
			SeriesID:     p.SeriesID,
			Date:         p.Date,
			Action:       models.ActionHold,
			Contributors: []string{"zscore"},
		}
		switch {
		case !p.Valid:
			s.Rationale = "zscore undefined"
		case p.Value <= params.ZScoreBuy:
			s.Action = models.ActionBuy
			s.Confidence = clamp01((params.ZScoreBuy - p.Value) / zscoreFullConfidence)
			s.Rationale = fmt.Sprintf("zscore %.2f <= buy threshold %.2f", p.Value, params.ZScoreBuy)
		case p.Value >= params.ZScoreSell:
			s.Action = models.ActionSell
			s.Confidence = clamp01((p.Value - params.ZScoreSell) / zscoreFullConfidence)
			s.Rationale = fmt.Sprintf("zscore %.2f >= sell threshold %.2f", p.Value, params.ZScoreSell)
		default:
			s.Rationale = "zscore within thresholds"
		}
		out = append(out, s)
	}
	return out
}

// FromRSI: Buy strictly below the oversold threshold, Sell strictly above
// the overbought threshold.
func (g *Generator) FromRSI(series []models.TechnicalIndicator, params models.ParameterSet) []models.TradingSignal {
	out := make([]models.TradingSignal, 0, len(series))
	for _, p := range series {
		s := models.TradingSignal{
			SeriesID:     p.SeriesID,
			Date:         p.Date,
			Action:       models.ActionHold,
			Contributors: []string{"rsi"},
		}
		switch {
		case !p.Valid:
			s.Rationale = "rsi undefined"
		case p.Value < params.RSIBuy:
			s.Action = models.ActionBuy
			s.Confidence = clamp01((params.RSIBuy - p.Value) / rsiFullConfidence)
			s.Rationale = fmt.Sprintf("rsi %.1f oversold (< %.1f)", p.Value, params.RSIBuy)
		case p.Value > params.RSISell:
			s.Action = models.ActionSell
			s.Confidence = clamp01((p.Value - params.RSISell) / rsiFullConfidence)
			s.Rationale = fmt.Sprintf("rsi %.1f overbought (> %.1f)", p.Value, params.RSISell)
		default:
			s.Rationale = "rsi neutral"
		}
		out = append(out, s)
	}
	return out
}

// FromSMACross: Buy when the fast average crosses above the slow one, Sell
// on the cross below. Confidence grows with the relative gap after the
// cross. Dates where only one series exists are skipped; the first shared
// date votes Hold because there is no previous pair to compare.
func (g *Generator) FromSMACross(fast, slow []models.TechnicalIndicator, params models.ParameterSet) []models.TradingSignal {
	slowByDate := make(map[int64]models.TechnicalIndicator, len(slow))
	for _, p := range slow {
		slowByDate[p.Date.Unix()] = p
	}

	out := make([]models.TradingSignal, 0, len(fast))
	havePrev := false
	var prevFast, prevSlow float64
	for _, f := range fast {
		sl, ok := slowByDate[f.Date.Unix()]
		if !ok || !f.Valid || !sl.Valid {
			continue
		}
		s := models.TradingSignal{
			SeriesID:     f.SeriesID,
			Date:         f.Date,
			Action:       models.ActionHold,
			Contributors: []string{"sma_cross"},
			Rationale:    "no crossover",
		}
		if havePrev {
			gap := relativeGap(f.Value, sl.Value)
			switch {
			case prevFast <= prevSlow && f.Value > sl.Value:
				s.Action = models.ActionBuy
				s.Confidence = clamp01(gap / smaGapFullConfidence)
				s.Rationale = fmt.Sprintf("sma(%d) crossed above sma(%d)", params.SMAFast, params.SMASlow)
			case prevFast >= prevSlow && f.Value < sl.Value:
				s.Action = models.ActionSell
				s.Confidence = clamp01(gap / smaGapFullConfidence)
				s.Rationale = fmt.Sprintf("sma(%d) crossed below sma(%d)", params.SMAFast, params.SMASlow)
			}
		}
		out = append(out, s)
		prevFast, prevSlow = f.Value, sl.Value
		havePrev = true
	}
	return out
}

func relativeGap(fast, slow float64) float64 {
	if slow == 0 {
		return 0
	}
	gap := (fast - slow) / slow
	if gap < 0 {
		gap = -gap
	}
	return gap
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
