package indicators

import (
	"math"

	"econquant/internal/domain/models"
)

// WilderState carries the running gain/loss averages of Wilder's smoothing.
// It is the explicit accumulator of the RSI recurrence so a single step can
// be tested without the surrounding loop.
type WilderState struct {
	AvgGain float64
	AvgLoss float64
}

// wilderSeed builds the initial state: a simple average of gains and losses
// over the first window of changes.
func wilderSeed(changes []float64, window int) WilderState {
	var gains, losses float64
	for _, c := range changes[:window] {
		if c > 0 {
			gains += c
		} else {
			losses -= c
		}
	}
	n := float64(window)
	return WilderState{AvgGain: gains / n, AvgLoss: losses / n}
}

// wilderStep advances the recurrence by one change:
// avg = (avg*(window-1) + current) / window. This is exponential smoothing
// of the running average, not a sliding recomputation, so values depend on
// the whole ordered history.
func wilderStep(st WilderState, change float64, window int) (WilderState, float64) {
	var gain, loss float64
	if change > 0 {
		gain = change
	} else {
		loss = -change
	}
	n := float64(window)
	st.AvgGain = (st.AvgGain*(n-1) + gain) / n
	st.AvgLoss = (st.AvgLoss*(n-1) + loss) / n
	return st, rsiFromAverages(st.AvgGain, st.AvgLoss)
}

// rsiFromAverages maps the running averages to the 0-100 oscillator.
// No movement at all is neutral (50); gains without losses saturate at 100.
func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// rsiSeries runs the fold over the full series. The first RSI lands on the
// record at index window (the seed consumes the first window changes).
func rsiSeries(records []models.RawIndicatorRecord, window int) ([]models.TechnicalIndicator, error) {
	if len(records) < window+1 {
		return nil, &models.InsufficientDataError{Op: "rsi", Needed: window + 1, Have: len(records)}
	}
	changes := make([]float64, len(records)-1)
	for i := 1; i < len(records); i++ {
		changes[i-1] = records[i].Value - records[i-1].Value
	}

	st := wilderSeed(changes, window)
	out := make([]models.TechnicalIndicator, 0, len(records)-window)

	rsi := rsiFromAverages(st.AvgGain, st.AvgLoss)
	point, err := rsiPoint(records[window], window, rsi)
	if err != nil {
		return nil, err
	}
	out = append(out, point)

	for i := window; i < len(changes); i++ {
		st, rsi = wilderStep(st, changes[i], window)
		point, err = rsiPoint(records[i+1], window, rsi)
		if err != nil {
			return nil, err
		}
		out = append(out, point)
	}
	return out, nil
}

func rsiPoint(r models.RawIndicatorRecord, window int, rsi float64) (models.TechnicalIndicator, error) {
	if math.IsNaN(rsi) || math.IsInf(rsi, 0) {
		return models.TechnicalIndicator{}, &models.CalculationOverflowError{Op: "rsi", Value: rsi}
	}
	return models.TechnicalIndicator{
		SeriesID: r.SeriesID,
		Date:     r.Date,
		Kind:     models.IndicatorRSI,
		Window:   window,
		Value:    rsi,
		Valid:    true,
	}, nil
}
