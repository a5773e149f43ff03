package optimizer

import (
	"econquant/internal/domain/models"
)

// gridPoint is one candidate with its position in the fixed enumeration
// order. The index counts every point of the full product, including ones
// later skipped, so it is stable however the grid is filtered.
type gridPoint struct {
	index  int
	params models.ParameterSet
}

// enumerateGrid expands the six-dimension product in fixed odometer order
// (zscore_buy, zscore_sell, rsi_buy, rsi_sell, sma_fast, sma_slow; last
// dimension fastest). Candidates violating the parameter ordering rules are
// dropped and counted, never queued.
func enumerateGrid(g models.GridConfig, indicatorName string) (points []gridPoint, skipped int) {
	points = make([]gridPoint, 0, g.TotalCombinations())
	idx := 0
	for zb := 0; zb < g.ZScoreBuy.Count(); zb++ {
		for zs := 0; zs < g.ZScoreSell.Count(); zs++ {
			for rb := 0; rb < g.RSIBuy.Count(); rb++ {
				for rs := 0; rs < g.RSISell.Count(); rs++ {
					for sf := 0; sf < g.SMAFast.Count(); sf++ {
						for ss := 0; ss < g.SMASlow.Count(); ss++ {
							p, err := models.NewParameterSet(models.ParameterSet{
								IndicatorName: indicatorName,
								ZScoreBuy:     g.ZScoreBuy.Value(zb),
								ZScoreSell:    g.ZScoreSell.Value(zs),
								RSIBuy:        g.RSIBuy.Value(rb),
								RSISell:       g.RSISell.Value(rs),
								SMAFast:       g.SMAFast.Value(sf),
								SMASlow:       g.SMASlow.Value(ss),
							})
							if err != nil {
								skipped++
							} else {
								points = append(points, gridPoint{index: idx, params: p})
							}
							idx++
						}
					}
				}
			}
		}
	}
	return points, skipped
}

// smaWindows returns the fast and slow periods the grid can ask for, so
// shared series are computed once before workers start.
func smaWindows(g models.GridConfig) (fast, slow []int) {
	for i := 0; i < g.SMAFast.Count(); i++ {
		fast = append(fast, g.SMAFast.Value(i))
	}
	for i := 0; i < g.SMASlow.Count(); i++ {
		slow = append(slow, g.SMASlow.Value(i))
	}
	return fast, slow
}
