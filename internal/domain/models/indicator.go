package models

import "time"

// IndicatorKind identifies a derived technical series.
type IndicatorKind string

const (
	IndicatorZScore  IndicatorKind = "zscore"
	IndicatorRSI     IndicatorKind = "rsi"
	IndicatorSMAFast IndicatorKind = "sma_fast"
	IndicatorSMASlow IndicatorKind = "sma_slow"
)

func (k IndicatorKind) String() string { return string(k) }

func (k IndicatorKind) IsValid() bool {
	switch k {
	case IndicatorZScore, IndicatorRSI, IndicatorSMAFast, IndicatorSMASlow:
		return true
	default:
		return false
	}
}

// TechnicalIndicator is one point of a derived series. Value is meaningful
// only while Valid is true; Valid=false marks dates where the statistic is
// undefined (zero-variance window), which is not an error condition.
// One record per (series, date, kind); produced only by the calculator and
// never mutated afterward.
type TechnicalIndicator struct {
	SeriesID string        `json:"series_id"`
	Date     time.Time     `json:"date"`
	Kind     IndicatorKind `json:"kind"`
	Window   int           `json:"window"`
	Value    float64       `json:"value"`
	Valid    bool          `json:"valid"`
}

// IndicatorSet bundles every derived series for one economic series over one
// date range, keeping the reference back to the inputs that produced it.
type IndicatorSet struct {
	SeriesID string              `json:"series_id"`
	From     time.Time           `json:"from"`
	To       time.Time           `json:"to"`
	ZScore   []TechnicalIndicator `json:"zscore"`
	RSI      []TechnicalIndicator `json:"rsi"`
	SMAFast  []TechnicalIndicator `json:"sma_fast"`
	SMASlow  []TechnicalIndicator `json:"sma_slow"`
}
