package models

// IssueKind classifies a validation finding.
type IssueKind string

const (
	IssueMissingField IssueKind = "missing_field"
	IssueBadDate      IssueKind = "bad_date"
	IssueNonFinite    IssueKind = "non_finite"
	IssueDuplicate    IssueKind = "duplicate"
	IssueOutlier      IssueKind = "outlier"
)

func (k IssueKind) String() string { return string(k) }

// IssueSeverity ranks a finding. Errors reject the record; warnings keep it
// usable with a Fair quality flag.
type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"
	SeverityWarning IssueSeverity = "warning"
)

// ValidationIssue is one finding against one input row.
type ValidationIssue struct {
	Row      int           `json:"row"`
	SeriesID string        `json:"series_id,omitempty"`
	Field    string        `json:"field"`
	Kind     IssueKind     `json:"kind"`
	Severity IssueSeverity `json:"severity"`
	Reason   string        `json:"reason"`
}

// RepairMethod selects how repair mode fills unusable values. Repair runs
// only on explicit request, never implicitly.
type RepairMethod string

const (
	RepairForwardFill  RepairMethod = "forward_fill"
	RepairBackwardFill RepairMethod = "backward_fill"
	RepairLinear       RepairMethod = "linear"
	RepairMean         RepairMethod = "mean"
	RepairMedian       RepairMethod = "median"
)

func (m RepairMethod) String() string { return string(m) }

func (m RepairMethod) IsValid() bool {
	switch m {
	case RepairForwardFill, RepairBackwardFill, RepairLinear, RepairMean, RepairMedian:
		return true
	default:
		return false
	}
}

// ValidationReport is the validator's full answer: per-row findings, quality
// accounting, and the cleaned records sorted by date with quality stamped.
type ValidationReport struct {
	TotalRecords int                  `json:"total_records"`
	ValidRecords int                  `json:"valid_records"`
	Rejected     int                  `json:"rejected"`
	Warnings     int                  `json:"warnings"`
	Repaired     int                  `json:"repaired"`
	QualityScore float64              `json:"quality_score"`
	Issues       []ValidationIssue    `json:"issues,omitempty"`
	Records      []RawIndicatorRecord `json:"-"`
}

// Passed reports whether the cleaned records are usable downstream under the
// given minimum quality score.
func (r *ValidationReport) Passed(minScore float64) bool {
	return r.ValidRecords > 0 && r.QualityScore >= minScore
}
