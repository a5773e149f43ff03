package signals

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"

	"econquant/internal/domain/models"
	"econquant/pkg/logger"
)

// Combiner reduces per-indicator vote streams to one TradingSignal per date.
// Every strategy resolves ties to Hold and emits at most one signal per
// series per date.
type Combiner struct {
	log *logger.Logger
}

func NewCombiner(log *logger.Logger) *Combiner {
	if log == nil {
		log = logger.Nop()
	}
	return &Combiner{log: log}
}

type vote struct {
	name string
	sig  models.TradingSignal
}

// Combine merges the vote streams under the selected strategy. prices are
// required only by the best-performer strategy, which scores indicators by
// the Sharpe of following each one alone.
func (c *Combiner) Combine(strategy models.CombineStrategy, inputs []IndicatorSignals, prices []models.OHLCV) ([]models.TradingSignal, error) {
	if !strategy.IsValid() {
		return nil, fmt.Errorf("unknown combine strategy %q", strategy)
	}
	byDate, dates := votesByDate(inputs)
	if len(dates) == 0 {
		return nil, nil
	}

	if strategy == models.CombineBestPerformer {
		return c.combineBestPerformer(inputs, byDate, dates, prices), nil
	}

	out := make([]models.TradingSignal, 0, len(dates))
	for _, d := range dates {
		vs := byDate[d.Unix()]
		var s models.TradingSignal
		switch strategy {
		case models.CombineConsensus:
			s = consensusDecision(vs)
		case models.CombineWeighted:
			s = weightedDecision(vs)
		default:
			s = majorityDecision(vs)
		}
		out = append(out, s)
	}
	return out, nil
}

// votesByDate groups votes on the union date axis. Within a date, votes keep
// the input stream order, so downstream tie handling is deterministic.
func votesByDate(inputs []IndicatorSignals) (map[int64][]vote, []time.Time) {
	byDate := make(map[int64][]vote)
	seen := make(map[int64]time.Time)
	for _, in := range inputs {
		for _, s := range in.Signals {
			key := s.Date.Unix()
			byDate[key] = append(byDate[key], vote{name: in.Name, sig: s})
			seen[key] = s.Date
		}
	}
	dates := lo.Values(seen)
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return byDate, dates
}

func (c *Combiner) combineBestPerformer(inputs []IndicatorSignals, byDate map[int64][]vote, dates []time.Time, prices []models.OHLCV) []models.TradingSignal {
	closeByDate := make(map[int64]float64, len(prices))
	for _, b := range prices {
		closeByDate[b.Date.Unix()] = b.Close
	}

	type perfState struct {
		inMarket  bool
		haveClose bool
		lastClose float64
		returns   []float64
	}
	states := make(map[string]*perfState, len(inputs))
	order := make([]string, 0, len(inputs))
	for _, in := range inputs {
		states[in.Name] = &perfState{}
		order = append(order, in.Name)
	}

	out := make([]models.TradingSignal, 0, len(dates))
	for _, d := range dates {
		vs := byDate[d.Unix()]

		// Accrue one more daily return per indicator before deciding, so
		// scores only ever see history up to the current date.
		if close, ok := closeByDate[d.Unix()]; ok {
			for _, st := range states {
				if st.haveClose {
					r := 0.0
					if st.inMarket {
						r = close/st.lastClose - 1
					}
					st.returns = append(st.returns, r)
				}
				st.lastClose = close
				st.haveClose = true
			}
		}

		best, score, scored := "", math.Inf(-1), false
		for _, name := range order {
			st := states[name]
			if len(st.returns) < 2 {
				continue
			}
			s := runningSharpe(st.returns)
			if !scored || s > score {
				best, score, scored = name, s, true
			}
		}

		var s models.TradingSignal
		if !scored {
			s = majorityDecision(vs)
		} else if chosen, ok := lo.Find(vs, func(v vote) bool { return v.name == best }); ok {
			s = chosen.sig
			s.Contributors = []string{chosen.name}
			s.Rationale = fmt.Sprintf("best performer %s (sharpe %.2f): %s", chosen.name, score, chosen.sig.Rationale)
		} else {
			// Best indicator has no vote today; nothing to defer to.
			s = majorityDecision(vs)
		}
		out = append(out, s)

		// Positions transition after the decision, effective from tomorrow.
		for _, v := range vs {
			st := states[v.name]
			switch v.sig.Action {
			case models.ActionBuy:
				st.inMarket = true
			case models.ActionSell:
				st.inMarket = false
			}
		}
	}
	return out
}

func runningSharpe(returns []float64) float64 {
	std := stat.StdDev(returns, nil)
	if std == 0 || math.IsNaN(std) {
		return 0
	}
	return stat.Mean(returns, nil) / std
}

// majorityDecision picks the action with the single highest vote count.
// Any shared maximum resolves to Hold.
func majorityDecision(vs []vote) models.TradingSignal {
	counts := lo.CountValuesBy(vs, func(v vote) models.SignalAction { return v.sig.Action })
	winner := models.ActionHold
	best, tied := -1, false
	for _, a := range []models.SignalAction{models.ActionBuy, models.ActionSell, models.ActionHold} {
		n := counts[a]
		if n > best {
			winner, best, tied = a, n, false
		} else if n == best {
			tied = true
		}
	}
	if tied || winner == models.ActionHold {
		return holdSignal(vs, "no majority")
	}

	backers := lo.Filter(vs, func(v vote, _ int) bool { return v.sig.Action == winner })
	conf := lo.SumBy(backers, func(v vote) float64 { return v.sig.Confidence }) / float64(len(backers))
	return combinedSignal(vs, winner, conf,
		lo.Map(backers, func(v vote, _ int) string { return v.name }),
		fmt.Sprintf("majority %d/%d voted %s", len(backers), len(vs), winner))
}

// consensusDecision requires every indicator to agree on Buy or Sell.
// Confidence is the weakest backer's.
func consensusDecision(vs []vote) models.TradingSignal {
	first := vs[0].sig.Action
	if first == models.ActionHold {
		return holdSignal(vs, "no consensus")
	}
	for _, v := range vs[1:] {
		if v.sig.Action != first {
			return holdSignal(vs, "no consensus")
		}
	}
	weakest := lo.MinBy(vs, func(a, b vote) bool { return a.sig.Confidence < b.sig.Confidence })
	return combinedSignal(vs, first, weakest.sig.Confidence,
		lo.Map(vs, func(v vote, _ int) string { return v.name }),
		fmt.Sprintf("all %d indicators voted %s", len(vs), first))
}

// weightedDecision sums each action's confidence and takes the strict
// argmax; equal weights resolve to Hold. Confidence is the winning share of
// total weight.
func weightedDecision(vs []vote) models.TradingSignal {
	weights := make(map[models.SignalAction]float64, 3)
	for _, v := range vs {
		weights[v.sig.Action] += v.sig.Confidence
	}
	total := weights[models.ActionBuy] + weights[models.ActionSell] + weights[models.ActionHold]
	if total == 0 {
		return holdSignal(vs, "no weight behind any action")
	}

	winner := models.ActionHold
	best, tied := -1.0, false
	for _, a := range []models.SignalAction{models.ActionBuy, models.ActionSell, models.ActionHold} {
		w := weights[a]
		if w > best {
			winner, best, tied = a, w, false
		} else if w == best {
			tied = true
		}
	}
	if tied || winner == models.ActionHold {
		return holdSignal(vs, "weighted tie")
	}

	backers := lo.Filter(vs, func(v vote, _ int) bool { return v.sig.Action == winner })
	return combinedSignal(vs, winner, clamp01(best/total),
		lo.Map(backers, func(v vote, _ int) string { return v.name }),
		fmt.Sprintf("weighted vote %s (%.2f of %.2f)", winner, best, total))
}

func holdSignal(vs []vote, rationale string) models.TradingSignal {
	return combinedSignal(vs, models.ActionHold, 0,
		lo.Map(vs, func(v vote, _ int) string { return v.name }), rationale)
}

func combinedSignal(vs []vote, action models.SignalAction, conf float64, contributors []string, rationale string) models.TradingSignal {
	return models.TradingSignal{
		SeriesID:     vs[0].sig.SeriesID,
		Date:         vs[0].sig.Date,
		Action:       action,
		Confidence:   conf,
		Contributors: contributors,
		Rationale:    rationale,
	}
}
