package indicators

import (
	"fmt"

	"econquant/internal/domain/models"
	"econquant/pkg/logger"
)

// Calculator derives technical series from validated economic records.
// Inputs must be sorted ascending by date with unique dates; the validator's
// cleaned records satisfy both. Order matters: RSI is a stateful recurrence
// and recomputation from an arbitrary start point is not equivalent.
type Calculator struct {
	log *logger.Logger
}

func NewCalculator(log *logger.Logger) *Calculator {
	if log == nil {
		log = logger.Nop()
	}
	return &Calculator{log: log}
}

// ZScore computes the trailing-window z-score series.
func (c *Calculator) ZScore(records []models.RawIndicatorRecord, window int) ([]models.TechnicalIndicator, error) {
	if err := ensureOrdered(records); err != nil {
		return nil, err
	}
	series, err := zscoreSeries(records, window)
	if err != nil {
		return nil, err
	}
	c.log.Debug("zscore computed",
		logger.Int("window", window),
		logger.Int("points", len(series)))
	return series, nil
}

// RSI computes Wilder's RSI series.
func (c *Calculator) RSI(records []models.RawIndicatorRecord, window int) ([]models.TechnicalIndicator, error) {
	if err := ensureOrdered(records); err != nil {
		return nil, err
	}
	series, err := rsiSeries(records, window)
	if err != nil {
		return nil, err
	}
	c.log.Debug("rsi computed",
		logger.Int("window", window),
		logger.Int("points", len(series)))
	return series, nil
}

// SMA computes a trailing simple moving average series. kind must be
// IndicatorSMAFast or IndicatorSMASlow; the same window math serves both.
func (c *Calculator) SMA(records []models.RawIndicatorRecord, window int, kind models.IndicatorKind) ([]models.TechnicalIndicator, error) {
	if kind != models.IndicatorSMAFast && kind != models.IndicatorSMASlow {
		return nil, fmt.Errorf("sma kind must be %s or %s, got %s",
			models.IndicatorSMAFast, models.IndicatorSMASlow, kind)
	}
	if err := ensureOrdered(records); err != nil {
		return nil, err
	}
	series, err := smaSeries(records, window, kind)
	if err != nil {
		return nil, err
	}
	c.log.Debug("sma computed",
		logger.String("kind", kind.String()),
		logger.Int("window", window),
		logger.Int("points", len(series)))
	return series, nil
}

// All computes every configured series for one record set.
func (c *Calculator) All(records []models.RawIndicatorRecord, cfg models.CalcConfig, smaFast, smaSlow int) (*models.IndicatorSet, error) {
	if err := ensureOrdered(records); err != nil {
		return nil, err
	}
	zscore, err := zscoreSeries(records, cfg.ZScoreWindow)
	if err != nil {
		return nil, err
	}
	rsi, err := rsiSeries(records, cfg.RSIWindow)
	if err != nil {
		return nil, err
	}
	fast, err := smaSeries(records, smaFast, models.IndicatorSMAFast)
	if err != nil {
		return nil, err
	}
	slow, err := smaSeries(records, smaSlow, models.IndicatorSMASlow)
	if err != nil {
		return nil, err
	}
	return &models.IndicatorSet{
		SeriesID: records[0].SeriesID,
		From:     records[0].Date,
		To:       records[len(records)-1].Date,
		ZScore:   zscore,
		RSI:      rsi,
		SMAFast:  fast,
		SMASlow:  slow,
	}, nil
}

func ensureOrdered(records []models.RawIndicatorRecord) error {
	for i := 1; i < len(records); i++ {
		if !records[i].Date.After(records[i-1].Date) {
			return fmt.Errorf("records not strictly ascending by date at index %d (%s)",
				i, records[i].Date.Format("2006-01-02"))
		}
	}
	return nil
}
