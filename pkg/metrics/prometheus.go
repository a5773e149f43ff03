package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder exposes pipeline counters through Prometheus. A nil *Recorder is
// valid and records nothing, so services can run without telemetry.
type Recorder struct {
	combinations *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	bestScore    *prometheus.GaugeVec
	dataQuality  *prometheus.GaugeVec
	duration     *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		combinations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "econquant_combinations_total",
				Help: "Optimizer combinations by outcome (evaluated, skipped, filtered, failed)",
			},
			[]string{"outcome"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "econquant_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		bestScore: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "econquant_best_score",
				Help: "Best optimization score found so far",
			},
			[]string{"metric"},
		),
		dataQuality: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "econquant_data_quality_score",
				Help: "Validator quality score per series",
			},
			[]string{"series"},
		),
		duration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "econquant_operation_duration_seconds",
				Help:    "Duration of pipeline operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordCombination counts one optimizer candidate by outcome.
func (r *Recorder) RecordCombination(outcome string) {
	if r == nil {
		return
	}
	r.combinations.WithLabelValues(outcome).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	if r == nil {
		return
	}
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordBestScore tracks the running best score for the active metric.
func (r *Recorder) RecordBestScore(metric string, score float64) {
	if r == nil {
		return
	}
	r.bestScore.WithLabelValues(metric).Set(score)
}

// RecordDataQuality tracks the validator quality score for a series.
func (r *Recorder) RecordDataQuality(series string, score float64) {
	if r == nil {
		return
	}
	r.dataQuality.WithLabelValues(series).Set(score)
}

// RecordDuration records operation duration in seconds.
func (r *Recorder) RecordDuration(op string, seconds float64) {
	if r == nil {
		return
	}
	r.duration.WithLabelValues(op).Observe(seconds)
}
