package models

import "time"

// QualityFlag grades a raw record after validation.
type QualityFlag string

const (
	QualityGood     QualityFlag = "good"     // passed every check untouched
	QualityFair     QualityFlag = "fair"     // passed with warnings (e.g. outlier)
	QualityPoor     QualityFlag = "poor"     // value repaired by interpolation
	QualityRejected QualityFlag = "rejected" // failed validation, excluded from use
)

func (q QualityFlag) String() string { return string(q) }

func (q QualityFlag) IsValid() bool {
	switch q {
	case QualityGood, QualityFair, QualityPoor, QualityRejected:
		return true
	default:
		return false
	}
}

// Usable reports whether records carrying this flag may feed downstream
// calculations.
func (q QualityFlag) Usable() bool { return q.IsValid() && q != QualityRejected }

// RawIndicatorRecord is a single dated observation of an economic series:
// an interest-rate fixing, a CPI print, a visitor count. Records are
// immutable once validated; Quality is the only field the validator stamps.
type RawIndicatorRecord struct {
	SeriesID string      `json:"series_id"`
	Date     time.Time   `json:"date"`
	Value    float64     `json:"value"`
	Source   string      `json:"source,omitempty"`
	Quality  QualityFlag `json:"quality,omitempty"`
}
