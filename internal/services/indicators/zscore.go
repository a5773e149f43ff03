package indicators

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"econquant/internal/domain/models"
)

// zscoreSeries computes (value - rolling_mean) / rolling_std for every point
// with a full trailing window behind it, the point itself included. Earlier
// points are omitted, not zero-filled. Standard deviation is the sample
// (n-1) form. A zero-variance window marks the point invalid rather than
// producing an infinity.
func zscoreSeries(records []models.RawIndicatorRecord, window int) ([]models.TechnicalIndicator, error) {
	if len(records) < window {
		return nil, &models.InsufficientDataError{Op: "zscore", Needed: window, Have: len(records)}
	}
	values := make([]float64, len(records))
	for i, r := range records {
		values[i] = r.Value
	}

	out := make([]models.TechnicalIndicator, 0, len(records)-window+1)
	for i := window - 1; i < len(values); i++ {
		win := values[i-window+1 : i+1]
		mean := stat.Mean(win, nil)
		std := stat.StdDev(win, nil)

		point := models.TechnicalIndicator{
			SeriesID: records[i].SeriesID,
			Date:     records[i].Date,
			Kind:     models.IndicatorZScore,
			Window:   window,
		}
		if std == 0 || math.IsNaN(std) {
			// Undefined statistic, not an error. Valid stays false.
			out = append(out, point)
			continue
		}
		z := (values[i] - mean) / std
		if math.IsNaN(z) || math.IsInf(z, 0) {
			return nil, &models.CalculationOverflowError{Op: "zscore", Value: z}
		}
		point.Value = z
		point.Valid = true
		out = append(out, point)
	}
	return out, nil
}
