package indicators

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"econquant/internal/domain/models"
)

// smaSeries computes a plain trailing arithmetic mean. Fast and slow series
// come from independent calls and share the record date axis, so crossover
// comparisons line up by date.
func smaSeries(records []models.RawIndicatorRecord, window int, kind models.IndicatorKind) ([]models.TechnicalIndicator, error) {
	if window < 1 {
		return nil, fmt.Errorf("sma window must be positive, got %d", window)
	}
	if len(records) < window {
		return nil, &models.InsufficientDataError{Op: kind.String(), Needed: window, Have: len(records)}
	}
	values := make([]float64, len(records))
	for i, r := range records {
		values[i] = r.Value
	}

	out := make([]models.TechnicalIndicator, 0, len(records)-window+1)
	for i := window - 1; i < len(values); i++ {
		mean := stat.Mean(values[i-window+1:i+1], nil)
		if math.IsNaN(mean) || math.IsInf(mean, 0) {
			return nil, &models.CalculationOverflowError{Op: kind.String(), Value: mean}
		}
		out = append(out, models.TechnicalIndicator{
			SeriesID: records[i].SeriesID,
			Date:     records[i].Date,
			Kind:     kind,
			Window:   window,
			Value:    mean,
			Valid:    true,
		})
	}
	return out, nil
}
