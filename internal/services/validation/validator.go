package validation

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"econquant/internal/domain/models"
	"econquant/pkg/logger"
	"econquant/pkg/util"
)

// Validator checks raw economic records for completeness, duplicates, and
// statistical outliers, and optionally repairs unusable values. Per-row
// problems are reported in the ValidationReport, never returned as errors;
// only structurally unusable input (empty, or nothing survives) fails the
// whole operation.
type Validator struct {
	cfg models.ValidationConfig
	log *logger.Logger
}

func NewValidator(cfg models.ValidationConfig, log *logger.Logger) *Validator {
	if log == nil {
		log = logger.Nop()
	}
	return &Validator{cfg: cfg, log: log}
}

// Validate runs every check without touching values. The input slice is
// never mutated; cleaned records come back sorted by series and date with
// quality flags stamped.
func (v *Validator) Validate(records []models.RawIndicatorRecord) (*models.ValidationReport, error) {
	return v.run(records, "", false)
}

// ValidateAndRepair validates and then fills unusable values with the given
// method. Repair never happens implicitly: callers opt in per call. Rows
// whose value was filled are flagged Poor and counted in Repaired.
func (v *Validator) ValidateAndRepair(records []models.RawIndicatorRecord, method models.RepairMethod) (*models.ValidationReport, error) {
	if !method.IsValid() {
		return nil, fmt.Errorf("unknown repair method %q", method)
	}
	return v.run(records, method, true)
}

// row is the working state for one input record during a validation pass.
type row struct {
	rec      models.RawIndicatorRecord
	input    int // position in the caller's slice, reported in issues
	rejected bool
	gap      bool // value unusable but everything else sound; repair candidate
}

func (v *Validator) run(records []models.RawIndicatorRecord, method models.RepairMethod, repair bool) (*models.ValidationReport, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("validate: no records")
	}

	report := &models.ValidationReport{TotalRecords: len(records)}
	rows := make([]*row, len(records))
	for i, rec := range records {
		rec.Quality = models.QualityGood
		rows[i] = &row{rec: rec, input: i}
	}

	v.checkStructure(rows, report, repair)
	v.checkDuplicates(rows, report)
	if repair {
		v.repairGaps(rows, method, report)
	}
	v.checkOutliers(rows, report)

	v.assemble(rows, report)
	if report.ValidRecords == 0 {
		return nil, fmt.Errorf("validate: all %d records rejected", report.TotalRecords)
	}

	v.log.Info("validation complete",
		logger.Int("total", report.TotalRecords),
		logger.Int("valid", report.ValidRecords),
		logger.Int("rejected", report.Rejected),
		logger.Int("warnings", report.Warnings),
		logger.Int("repaired", report.Repaired),
		logger.Float64("quality_score", report.QualityScore))
	return report, nil
}

// checkStructure rejects rows with missing identifiers, unusable dates, or
// non-finite values. In repair mode a non-finite value is deferred as a gap
// instead of rejected outright; repairGaps settles it.
func (v *Validator) checkStructure(rows []*row, report *models.ValidationReport, repair bool) {
	for _, r := range rows {
		if r.rec.SeriesID == "" {
			r.reject(report, "series_id", models.IssueMissingField, "series identifier is empty")
		}
		if r.rec.Date.IsZero() {
			r.reject(report, "date", models.IssueBadDate, "date is missing or unparseable")
		}
		if math.IsNaN(r.rec.Value) || math.IsInf(r.rec.Value, 0) {
			if repair && !r.rejected {
				r.gap = true
				continue
			}
			r.reject(report, "value", models.IssueNonFinite, fmt.Sprintf("value %v is not a finite number", r.rec.Value))
		}
	}
}

// checkDuplicates rejects every repeat of a (series, day) pair after its
// first occurrence, in input order.
func (v *Validator) checkDuplicates(rows []*row, report *models.ValidationReport) {
	type key struct {
		series string
		day    int64
	}
	seen := make(map[key]int, len(rows))
	for _, r := range rows {
		if r.rec.SeriesID == "" || r.rec.Date.IsZero() {
			continue
		}
		k := key{series: r.rec.SeriesID, day: util.DayUTC(r.rec.Date).Unix()}
		if first, dup := seen[k]; dup {
			r.gap = false
			r.reject(report, "date", models.IssueDuplicate,
				fmt.Sprintf("duplicate of row %d for %s on %s", first, k.series, util.DayUTC(r.rec.Date).Format("2006-01-02")))
			continue
		}
		seen[k] = r.input
	}
}

// repairGaps fills deferred non-finite values from the surrounding usable
// points of the same series. A gap with no way to fill it under the chosen
// method stays rejected.
func (v *Validator) repairGaps(rows []*row, method models.RepairMethod, report *models.ValidationReport) {
	bySeries := make(map[string][]*row)
	for _, r := range rows {
		if r.rejected {
			continue
		}
		bySeries[r.rec.SeriesID] = append(bySeries[r.rec.SeriesID], r)
	}

	for _, series := range bySeries {
		sort.Slice(series, func(i, j int) bool { return series[i].rec.Date.Before(series[j].rec.Date) })
		for i, r := range series {
			if !r.gap {
				continue
			}
			filled, ok := fillValue(series, i, method)
			if !ok {
				r.gap = false
				r.reject(report, "value", models.IssueNonFinite,
					fmt.Sprintf("value not finite and not repairable with %s", method))
				continue
			}
			r.rec.Value = filled
			r.rec.Quality = models.QualityPoor
			r.gap = false
			report.Repaired++
			report.Issues = append(report.Issues, models.ValidationIssue{
				Row:      r.input,
				SeriesID: r.rec.SeriesID,
				Field:    "value",
				Kind:     models.IssueNonFinite,
				Severity: models.SeverityWarning,
				Reason:   fmt.Sprintf("value repaired by %s to %v", method, filled),
			})
		}
	}
}

// fillValue computes the replacement for the gap at index i of a date-sorted
// series slice. Neighbor methods look past adjacent gaps to the nearest
// usable value; linear interpolation weights by elapsed time, since economic
// series skip weekends and holidays.
func fillValue(series []*row, i int, method models.RepairMethod) (float64, bool) {
	prev, hasPrev := nearestUsable(series, i, -1)
	next, hasNext := nearestUsable(series, i, +1)

	switch method {
	case models.RepairForwardFill:
		if hasPrev {
			return prev.rec.Value, true
		}
	case models.RepairBackwardFill:
		if hasNext {
			return next.rec.Value, true
		}
	case models.RepairLinear:
		if hasPrev && hasNext {
			span := next.rec.Date.Sub(prev.rec.Date).Seconds()
			if span <= 0 {
				return prev.rec.Value, true
			}
			frac := series[i].rec.Date.Sub(prev.rec.Date).Seconds() / span
			return prev.rec.Value + (next.rec.Value-prev.rec.Value)*frac, true
		}
	case models.RepairMean, models.RepairMedian:
		values := usableValues(series)
		if len(values) == 0 {
			return 0, false
		}
		if method == models.RepairMean {
			return stat.Mean(values, nil), true
		}
		return median(values), true
	}
	return 0, false
}

// median averages the middle pair on even counts.
func median(values []float64) float64 {
	sort.Float64s(values)
	mid := len(values) / 2
	if len(values)%2 == 1 {
		return values[mid]
	}
	return (values[mid-1] + values[mid]) / 2
}

func nearestUsable(series []*row, from, step int) (*row, bool) {
	for i := from + step; i >= 0 && i < len(series); i += step {
		if !series[i].gap && !series[i].rejected {
			return series[i], true
		}
	}
	return nil, false
}

func usableValues(series []*row) []float64 {
	values := make([]float64, 0, len(series))
	for _, r := range series {
		if !r.gap && !r.rejected {
			values = append(values, r.rec.Value)
		}
	}
	return values
}

// checkOutliers flags values far from their series' center. The z here uses
// the population standard deviation over the whole series: the series is the
// entire population under test, unlike the calculator's rolling windows.
// Outliers stay usable, downgraded to Fair.
func (v *Validator) checkOutliers(rows []*row, report *models.ValidationReport) {
	bySeries := make(map[string][]*row)
	for _, r := range rows {
		if r.rejected || r.gap {
			continue
		}
		bySeries[r.rec.SeriesID] = append(bySeries[r.rec.SeriesID], r)
	}

	for _, series := range bySeries {
		if len(series) < 3 {
			continue
		}
		values := make([]float64, len(series))
		for i, r := range series {
			values[i] = r.rec.Value
		}
		mean := stat.Mean(values, nil)
		std := stat.PopStdDev(values, nil)
		if std == 0 || math.IsNaN(std) {
			continue
		}
		for _, r := range series {
			z := (r.rec.Value - mean) / std
			if math.Abs(z) <= v.cfg.OutlierThreshold {
				continue
			}
			if r.rec.Quality == models.QualityGood {
				r.rec.Quality = models.QualityFair
			}
			report.Warnings++
			report.Issues = append(report.Issues, models.ValidationIssue{
				Row:      r.input,
				SeriesID: r.rec.SeriesID,
				Field:    "value",
				Kind:     models.IssueOutlier,
				Severity: models.SeverityWarning,
				Reason:   fmt.Sprintf("value %v is %.1f population std devs from the series mean", r.rec.Value, z),
			})
		}
	}
}

// assemble fills the counters and the cleaned, sorted record list.
func (v *Validator) assemble(rows []*row, report *models.ValidationReport) {
	cleaned := make([]models.RawIndicatorRecord, 0, len(rows))
	for _, r := range rows {
		if r.rejected {
			continue
		}
		cleaned = append(cleaned, r.rec)
	}
	sort.Slice(cleaned, func(i, j int) bool {
		if cleaned[i].SeriesID != cleaned[j].SeriesID {
			return cleaned[i].SeriesID < cleaned[j].SeriesID
		}
		return cleaned[i].Date.Before(cleaned[j].Date)
	})
	sort.SliceStable(report.Issues, func(i, j int) bool { return report.Issues[i].Row < report.Issues[j].Row })

	report.Records = cleaned
	report.ValidRecords = len(cleaned)
	report.QualityScore = float64(report.ValidRecords) / float64(report.TotalRecords)
}

// reject stamps the row Rejected and appends one error issue. Later checks
// may add further issues to an already rejected row.
func (r *row) reject(report *models.ValidationReport, field string, kind models.IssueKind, reason string) {
	if !r.rejected {
		r.rejected = true
		r.rec.Quality = models.QualityRejected
		report.Rejected++
	}
	report.Issues = append(report.Issues, models.ValidationIssue{
		Row:      r.input,
		SeriesID: r.rec.SeriesID,
		Field:    field,
		Kind:     kind,
		Severity: models.SeverityError,
		Reason:   reason,
	})
}
