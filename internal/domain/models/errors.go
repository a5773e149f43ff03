package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoQualifyingResults is returned when every enumerated combination was
// skipped, filtered, or failed and nothing remains to rank.
var ErrNoQualifyingResults = errors.New("no parameter combination produced a qualifying result")

// InsufficientDataError reports a series shorter than an operation requires.
// Recoverable: the caller may widen the data range or shrink the window.
type InsufficientDataError struct {
	Op     string
	Needed int
	Have   int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: insufficient data: need %d points, have %d", e.Op, e.Needed, e.Have)
}

// InvalidPriceError reports an OHLCV bar violating its invariants. Fatal for
// the run that consumed the bar.
type InvalidPriceError struct {
	Symbol string
	Date   time.Time
	Field  string
	Value  float64
	Reason string
}

func (e *InvalidPriceError) Error() string {
	return fmt.Sprintf("invalid price %s %s: %s=%v: %s",
		e.Symbol, e.Date.Format("2006-01-02"), e.Field, e.Value, e.Reason)
}

// CalculationOverflowError reports a non-finite intermediate value outside
// the documented invalid-marking cases. Points at corrupt upstream data.
type CalculationOverflowError struct {
	Op    string
	Value float64
}

func (e *CalculationOverflowError) Error() string {
	return fmt.Sprintf("calculation overflow in %s: %v", e.Op, e.Value)
}

// TimeoutError reports an optimization budget expiring before a single
// combination completed. With at least one completed combination the
// optimizer instead returns the partial result flagged TimedOut.
type TimeoutError struct {
	Elapsed   time.Duration
	Evaluated int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("optimization timed out after %s (%d combinations evaluated)", e.Elapsed, e.Evaluated)
}

// DataQualityError reports a validated series whose quality score fell below
// the caller's floor. The accompanying report carries the per-row findings.
type DataQualityError struct {
	SeriesID string
	Score    float64
	Min      float64
}

func (e *DataQualityError) Error() string {
	return fmt.Sprintf("series %s failed validation: quality score %.3f below minimum %.3f",
		e.SeriesID, e.Score, e.Min)
}

// DataLoadError wraps a loader failure, keeping the source path.
type DataLoadError struct {
	Path string
	Err  error
}

func (e *DataLoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *DataLoadError) Unwrap() error { return e.Err }
